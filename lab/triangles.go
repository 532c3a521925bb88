package lab

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/der-antikeks/glabs/camera"
	"github.com/der-antikeks/glabs/gpu"
	"github.com/der-antikeks/glabs/input"
)

func init() {
	register("triangles", func() Demo { return NewTriangles() })
	register("freecam", func() Demo { return NewFreeCam() })
}

var (
	trianglePositions = []float32{
		-0.5, 0.7, 0,
		0.5, 0.7, 0,
		0, 0.1, 0,

		-0.2, -0.3, 0,
		0.2, -0.3, 0,
		0, -0.9, 0,
	}

	triangleColors = []float32{
		1, 0, 0,
		1, 1, 0,
		0, 0, 1,

		1, 1, 0,
		0, 0, 1,
		1, 0, 0,
	}
)

const freeCamHelp = `controls:
  W/S  move forward/backward
  A/D  turn left/right
  E/Q  look up/down
  Esc  quit`

// Triangles draws two colored triangles, optionally seen through a
// keyboard steered camera.
type Triangles struct {
	dev gpu.Device

	program   *gpu.Program
	positions *gpu.Buffer
	colors    *gpu.Buffer
	vao       *gpu.VertexArray

	camera bool
	view   camera.Heading
	keys   *input.KeyState
}

func NewTriangles() *Triangles {
	return &Triangles{keys: input.NewKeyState()}
}

// NewFreeCam adds a projection and the heading camera.
func NewFreeCam() *Triangles {
	return &Triangles{
		camera: true,
		view:   camera.NewHeading(),
		keys:   input.NewKeyState(),
	}
}

func (t *Triangles) Init(env *Env) error {
	t.dev = env.Device

	vert := "triangles.vert"
	if t.camera {
		vert = "freecam.vert"
	}

	var err error
	if t.program, err = loadProgram(env, vert, "triangles.frag"); err != nil {
		return fmt.Errorf("triangle shaders: %w", err)
	}

	t.positions = gpu.NewBuffer(t.dev, gpu.Bytes(trianglePositions), 0)
	t.colors = gpu.NewBuffer(t.dev, gpu.Bytes(triangleColors), 0)
	t.vao = gpu.NewVertexArray(t.dev).
		Attrib(0, 0, 3, 0).
		Attrib(1, 1, 3, 0).
		VertexBuffer(0, t.positions, 0, 3*4).
		VertexBuffer(1, t.colors, 0, 3*4)

	if t.camera {
		t.dev.Enable(gpu.DepthTest)
		fmt.Fprintln(env.Out, freeCamHelp)
	}
	return nil
}

// View returns the current camera state.
func (t *Triangles) View() camera.Heading {
	return t.view
}

func (t *Triangles) Handle(m input.Message) {
	t.keys.Apply(m)
}

func (t *Triangles) Frame(env *Env) error {
	t.dev.ClearColor(mgl32.Vec4{0, 0, 0, 1})
	t.dev.ClearDepth(1)

	t.program.Use()
	if t.camera {
		t.view = t.view.Step(t.keys)

		w, h := env.Window.FramebufferSize()
		t.program.SetMat4("projection", camera.Perspective(camera.Aspect(w, h), camera.HeadingFar))
		t.program.SetMat4("view", t.view.View())
	}

	t.vao.Bind()
	t.dev.DrawArrays(gpu.Triangles, 0, len(trianglePositions)/3)
	return nil
}

func (t *Triangles) Dispose() {
	if t.program != nil {
		t.program.Dispose()
	}
	if t.vao != nil {
		t.vao.Dispose()
	}
	if t.positions != nil {
		t.positions.Dispose()
		t.colors.Dispose()
	}
}
