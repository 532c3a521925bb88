package lab

import (
	"fmt"
	"io/fs"
	"log/slog"
	"slices"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/der-antikeks/glabs/asset"
	"github.com/der-antikeks/glabs/camera"
	"github.com/der-antikeks/glabs/config"
	"github.com/der-antikeks/glabs/gpu"
	"github.com/der-antikeks/glabs/input"
)

func init() {
	register("tess", func() Demo { return NewTess() })
}

var (
	tessShaders = []string{"cube.vert", "cube.cont", "cube.eval", "cube.frag"}
	tessStages  = gpu.Stages(gpu.VertexStage, gpu.TessControlStage, gpu.TessEvaluationStage, gpu.FragmentStage)

	cubeCorners = []mgl32.Vec4{
		{-1, -1, -1, 1},
		{1, -1, -1, 1},
		{1, 1, -1, 1},
		{-1, 1, -1, 1},
		{-1, -1, 1, 1},
		{1, -1, 1, 1},
		{1, 1, 1, 1},
		{-1, 1, 1, 1},
	}

	// six quad patches, one per face
	cubePatches = []uint16{
		0, 4, 7, 3,
		5, 1, 2, 6,
		0, 1, 5, 4,
		7, 6, 2, 3,
		4, 5, 6, 7,
		0, 1, 2, 3,
	}
)

const (
	PatchSize        = 4
	TransformBinding = 0
)

// Tess draws a cube as six tessellated quad patches through a program
// pipeline. The camera orbits the cube with the left mouse button held,
// the scroll wheel zooms.
type Tess struct {
	dev    gpu.Device
	window Window
	log    *slog.Logger

	orbit camera.Orbit

	program   *gpu.Program
	pipeline  *gpu.Pipeline
	vertices  *gpu.Buffer
	indices   *gpu.Buffer
	vao       *gpu.VertexArray
	transform gpu.TransformBlock
	watcher   *asset.Watcher

	background mgl32.Vec4
}

func NewTess() *Tess {
	return &Tess{orbit: camera.NewOrbit()}
}

// buildPipeline compiles the four stages into one separable program and
// binds it into every slot of a new pipeline.
func buildPipeline(dev gpu.Device, fsys fs.FS) (*gpu.Program, *gpu.Pipeline, error) {
	sources, err := asset.LoadShaders(fsys, tessShaders...)
	if err != nil {
		return nil, nil, err
	}

	program, err := gpu.BuildProgram(dev, true, sources...)
	if err != nil {
		return nil, nil, err
	}

	pipeline := gpu.NewPipeline(dev)
	if err := pipeline.Use(tessStages, program); err != nil {
		pipeline.Dispose()
		program.Dispose()
		return nil, nil, err
	}
	return program, pipeline, nil
}

func (t *Tess) Init(env *Env) error {
	t.dev, t.window, t.log = env.Device, env.Window, env.Log
	t.background = env.Config.Render.Background

	var err error
	t.program, t.pipeline, err = buildPipeline(t.dev, env.Shaders)
	if err != nil {
		return fmt.Errorf("tessellation shaders: %w", err)
	}

	t.vertices = gpu.NewBuffer(t.dev, gpu.Bytes(cubeCorners), 0)
	t.indices = gpu.NewBuffer(t.dev, gpu.Bytes(cubePatches), 0)

	switch env.Config.Render.Transform {
	case config.TransformInvalidate:
		t.transform = gpu.NewInvalidatingTransform(t.dev)
	default:
		ring, err := gpu.NewTransformRing(t.dev, env.Config.Render.FramesInFlight)
		if err != nil {
			return fmt.Errorf("transform ring: %w", err)
		}
		t.transform = ring
	}

	t.vao = gpu.NewVertexArray(t.dev).
		Attrib(0, 0, 4, 0).
		VertexBuffer(0, t.vertices, 0, 4*4).
		ElementBuffer(t.indices)

	t.dev.Enable(gpu.DepthTest)
	t.dev.DepthFunc(gpu.LessEqual)
	if env.Config.Render.Wireframe {
		t.dev.PolygonMode(gpu.Line)
	} else {
		t.dev.PolygonMode(gpu.Fill)
	}

	if env.Config.Shaders.Watch && env.ShaderDir != "" {
		if t.watcher, err = asset.NewWatcher(env.ShaderDir, t.log); err != nil {
			t.log.Warn("shader reload disabled", "dir", env.ShaderDir, "error", err)
		}
	}

	t.log.Info("tessellated cube",
		"transform", env.Config.Render.Transform,
		"alignment", t.dev.UniformBufferOffsetAlignment(),
	)
	return nil
}

// Orbit returns the current camera state.
func (t *Tess) Orbit() camera.Orbit {
	return t.orbit
}

func (t *Tess) Handle(m input.Message) {
	next := t.orbit.Apply(m)
	if next.Captured != t.orbit.Captured {
		t.window.SetCursorCaptured(next.Captured)
	}
	t.orbit = next
}

func (t *Tess) Frame(env *Env) error {
	t.reload(env)

	w, h := env.Window.FramebufferSize()
	if err := t.transform.Write(gpu.Transform{MVP: t.orbit.MVP(camera.Aspect(w, h))}); err != nil {
		return err
	}

	t.dev.ClearColor(t.background)
	t.dev.ClearDepth(1)

	t.pipeline.Bind()
	t.vao.Bind()
	t.transform.Bind(TransformBinding)

	t.dev.PatchVertices(PatchSize)
	t.dev.DrawElementsInstancedBaseVertex(gpu.Patches, len(cubePatches), gpu.Uint16, 0, 1, 0)

	t.transform.Retire()
	return nil
}

// reload rebuilds the pipeline when a stage source changed on disk. A
// broken source keeps the previous pipeline.
func (t *Tess) reload(env *Env) {
	if t.watcher == nil {
		return
	}

	changed := t.watcher.Changed()
	if !slices.ContainsFunc(changed, func(n string) bool { return slices.Contains(tessShaders, n) }) {
		return
	}

	program, pipeline, err := buildPipeline(t.dev, env.Shaders)
	if err != nil {
		t.log.Warn("shader reload failed", "files", changed, "error", err)
		return
	}

	t.pipeline.Dispose()
	t.program.Dispose()
	t.program, t.pipeline = program, pipeline
	t.log.Info("shaders reloaded", "files", changed)
}

func (t *Tess) Dispose() {
	if t.watcher != nil {
		t.watcher.Close()
	}
	if t.pipeline != nil {
		t.pipeline.Dispose()
	}
	if t.program != nil {
		t.program.Dispose()
	}
	if t.vao != nil {
		t.vao.Dispose()
	}
	if t.transform != nil {
		t.transform.Dispose()
	}
	if t.vertices != nil {
		t.vertices.Dispose()
	}
	if t.indices != nil {
		t.indices.Dispose()
	}
}
