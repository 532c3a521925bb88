package lab

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/der-antikeks/glabs/camera"
	"github.com/der-antikeks/glabs/gpu"
	"github.com/der-antikeks/glabs/input"
)

func init() {
	register("phong", func() Demo { return NewPhong() })
	register("blend", func() Demo { return NewBlend() })
}

// position, normal
var litCube = []float32{
	-0.5, -0.5, -0.5, 0, 0, -1,
	0.5, -0.5, -0.5, 0, 0, -1,
	0.5, 0.5, -0.5, 0, 0, -1,
	0.5, 0.5, -0.5, 0, 0, -1,
	-0.5, 0.5, -0.5, 0, 0, -1,
	-0.5, -0.5, -0.5, 0, 0, -1,

	-0.5, -0.5, 0.5, 0, 0, 1,
	0.5, -0.5, 0.5, 0, 0, 1,
	0.5, 0.5, 0.5, 0, 0, 1,
	0.5, 0.5, 0.5, 0, 0, 1,
	-0.5, 0.5, 0.5, 0, 0, 1,
	-0.5, -0.5, 0.5, 0, 0, 1,

	-0.5, 0.5, 0.5, -1, 0, 0,
	-0.5, 0.5, -0.5, -1, 0, 0,
	-0.5, -0.5, -0.5, -1, 0, 0,
	-0.5, -0.5, -0.5, -1, 0, 0,
	-0.5, -0.5, 0.5, -1, 0, 0,
	-0.5, 0.5, 0.5, -1, 0, 0,

	0.5, 0.5, 0.5, 1, 0, 0,
	0.5, 0.5, -0.5, 1, 0, 0,
	0.5, -0.5, -0.5, 1, 0, 0,
	0.5, -0.5, -0.5, 1, 0, 0,
	0.5, -0.5, 0.5, 1, 0, 0,
	0.5, 0.5, 0.5, 1, 0, 0,

	-0.5, -0.5, -0.5, 0, -1, 0,
	0.5, -0.5, -0.5, 0, -1, 0,
	0.5, -0.5, 0.5, 0, -1, 0,
	0.5, -0.5, 0.5, 0, -1, 0,
	-0.5, -0.5, 0.5, 0, -1, 0,
	-0.5, -0.5, -0.5, 0, -1, 0,

	-0.5, 0.5, -0.5, 0, 1, 0,
	0.5, 0.5, -0.5, 0, 1, 0,
	0.5, 0.5, 0.5, 0, 1, 0,
	0.5, 0.5, 0.5, 0, 1, 0,
	-0.5, 0.5, 0.5, 0, 1, 0,
	-0.5, 0.5, -0.5, 0, 1, 0,
}

const (
	litCubeStride = 6 * 4
	phongFar      = 100
)

type Material struct {
	Ambient, Diffuse, Specular mgl32.Vec3
	Shininess                  float32
}

type Light struct {
	Position                   mgl32.Vec3
	Ambient, Diffuse, Specular mgl32.Vec3
}

var (
	coral = Material{
		Ambient:   mgl32.Vec3{1, 0.5, 0.31},
		Diffuse:   mgl32.Vec3{1, 0.5, 0.31},
		Specular:  mgl32.Vec3{0.5, 0.5, 0.5},
		Shininess: 32,
	}

	teal = Material{
		Ambient:   mgl32.Vec3{0, 0.1, 0.06},
		Diffuse:   mgl32.Vec3{0, 0.50980392, 0.50980392},
		Specular:  mgl32.Vec3{0.50196078, 0.50196078, 0.50196078},
		Shininess: 32,
	}

	whiteLight = Light{
		Position: mgl32.Vec3{1.2, 1, 2},
		Ambient:  mgl32.Vec3{0.2, 0.2, 0.2},
		Diffuse:  mgl32.Vec3{0.5, 0.5, 0.5},
		Specular: mgl32.Vec3{1, 1, 1},
	}

	blendAxis = mgl32.Vec3{1, 0.5, 0}.Normalize()
)

// Phong lights a cube with a single point light. Without blending the
// camera flies with WASD and the mouse, with blending the half
// transparent cube spins in front of a fixed camera.
type Phong struct {
	dev gpu.Device

	program *gpu.Program
	cube    *gpu.Buffer
	vao     *gpu.VertexArray

	blend    bool
	material Material
	fly      camera.Fly
	keys     *input.KeyState
}

func NewPhong() *Phong {
	return &Phong{
		material: coral,
		fly:      camera.NewFly(),
		keys:     input.NewKeyState(),
	}
}

func NewBlend() *Phong {
	return &Phong{
		blend:    true,
		material: teal,
		fly:      camera.NewFly(),
		keys:     input.NewKeyState(),
	}
}

func (p *Phong) Init(env *Env) error {
	p.dev = env.Device

	var err error
	if p.program, err = loadProgram(env, "phong.vert", "phong.frag"); err != nil {
		return fmt.Errorf("phong shaders: %w", err)
	}

	p.cube = gpu.NewBuffer(p.dev, gpu.Bytes(litCube), 0)
	p.vao = gpu.NewVertexArray(p.dev).
		Attrib(0, 0, 3, 0).
		Attrib(1, 0, 3, 3*4).
		VertexBuffer(0, p.cube, 0, litCubeStride)

	p.dev.Enable(gpu.DepthTest)
	alpha := float32(1)
	if p.blend {
		p.dev.Enable(gpu.Blend)
		p.dev.BlendFunc(gpu.SrcAlpha, gpu.OneMinusSrcAlpha)
		alpha = 0.5
	}

	p.program.SetVec3("light.position", whiteLight.Position)
	p.program.SetVec3("light.ambient", whiteLight.Ambient)
	p.program.SetVec3("light.diffuse", whiteLight.Diffuse)
	p.program.SetVec3("light.specular", whiteLight.Specular)

	p.program.SetVec3("material.ambient", p.material.Ambient)
	p.program.SetVec3("material.diffuse", p.material.Diffuse)
	p.program.SetVec3("material.specular", p.material.Specular)
	p.program.SetFloat("material.shininess", p.material.Shininess)

	p.program.SetFloat("alpha", alpha)
	return nil
}

// Camera returns the current camera state.
func (p *Phong) Camera() camera.Fly {
	return p.fly
}

func (p *Phong) Handle(m input.Message) {
	if p.blend {
		return
	}
	p.keys.Apply(m)
	p.fly = p.fly.Apply(m)
}

func (p *Phong) Frame(env *Env) error {
	p.dev.ClearColor(mgl32.Vec4{0.1, 0.1, 0.1, 1})
	p.dev.ClearDepth(1)

	w, h := env.Window.FramebufferSize()
	projection := camera.Perspective(camera.Aspect(w, h), phongFar)

	var (
		view  mgl32.Mat4
		model = mgl32.Ident4()
		eye   mgl32.Vec3
	)
	if p.blend {
		eye = mgl32.Vec3{0, 0, 3}
		view = mgl32.LookAtV(eye, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
		model = mgl32.HomogRotate3D(float32(env.Window.Time()), blendAxis)
	} else {
		p.fly = p.fly.Step(p.keys)
		eye = p.fly.Position
		view = p.fly.View()
	}

	p.program.Use()
	p.program.SetMat4("projection", projection)
	p.program.SetMat4("view", view)
	p.program.SetMat4("model", model)
	p.program.SetVec3("viewPos", eye)

	p.vao.Bind()
	p.dev.DrawArrays(gpu.Triangles, 0, len(litCube)/6)
	return nil
}

func (p *Phong) Dispose() {
	if p.program != nil {
		p.program.Dispose()
	}
	if p.vao != nil {
		p.vao.Dispose()
	}
	if p.cube != nil {
		p.cube.Dispose()
	}
}
