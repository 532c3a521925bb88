package lab

import (
	"bytes"
	"encoding/binary"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/der-antikeks/glabs/camera"
	"github.com/der-antikeks/glabs/config"
	"github.com/der-antikeks/glabs/gpu"
	"github.com/der-antikeks/glabs/gpu/gputest"
	"github.com/der-antikeks/glabs/input"
	"github.com/der-antikeks/glabs/shaders"
)

// fakeWindow delivers scripted messages: script[n] is pushed by the n-th
// PollEvents. It closes itself after maxFrames frames when set.
type fakeWindow struct {
	input.Queue

	width, height int
	frames        int
	maxFrames     int
	step          float64
	closed        bool
	captured      []bool
	script        map[int][]input.Message
}

func newFakeWindow(maxFrames int) *fakeWindow {
	return &fakeWindow{
		width:     640,
		height:    480,
		maxFrames: maxFrames,
		step:      1.0 / 60,
		script:    map[int][]input.Message{},
	}
}

func (w *fakeWindow) FramebufferSize() (int, int)    { return w.width, w.height }
func (w *fakeWindow) SetCursorCaptured(captured bool) { w.captured = append(w.captured, captured) }
func (w *fakeWindow) ShouldClose() bool               { return w.closed }
func (w *fakeWindow) SetShouldClose(v bool)           { w.closed = v }
func (w *fakeWindow) SwapBuffers()                    {}
func (w *fakeWindow) Time() float64                   { return float64(w.frames) * w.step }

func (w *fakeWindow) PollEvents() {
	w.frames++
	for _, m := range w.script[w.frames] {
		w.Push(m)
	}
	if w.maxFrames > 0 && w.frames >= w.maxFrames {
		w.closed = true
	}
}

func newEnv(t *testing.T, w *fakeWindow) (*Env, *gputest.Device) {
	t.Helper()
	dev := gputest.New()
	return &Env{
		Device:  dev,
		Window:  w,
		Config:  config.Default(),
		Log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Shaders: shaders.FS,
		Out:     io.Discard,
	}, dev
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"blend", "freecam", "model", "phong", "tess", "triangles"}, Names())

	for _, name := range Names() {
		d, err := New(name)
		require.NoError(t, err)
		assert.NotNil(t, d)
	}

	_, err := New("lab8")
	assert.Error(t, err)
}

func TestTessInit(t *testing.T) {
	w := newFakeWindow(0)
	env, dev := newEnv(t, w)

	tess := NewTess()
	require.NoError(t, tess.Init(env))

	p := tess.pipeline.Program(gpu.VertexStage)
	require.NotNil(t, p)
	assert.True(t, p.Separable())

	slots := dev.Pipelines[tess.pipeline.Handle()]
	require.Len(t, slots, 4)
	for _, s := range []gpu.Stage{gpu.VertexStage, gpu.TessControlStage, gpu.TessEvaluationStage, gpu.FragmentStage} {
		assert.Equal(t, p.Handle(), slots[s], "%v slot", s)
	}

	assert.Equal(t, 8*16, len(dev.Buffers[tess.vertices.Handle()].Data))
	assert.Equal(t, gpu.Bytes(cubePatches), dev.Buffers[tess.indices.Handle()].Data)
	assert.Zero(t, dev.Buffers[tess.indices.Handle()].Flags, "immutable")

	vao := dev.VertexArrays[tess.vao.Handle()]
	assert.Equal(t, gputest.Attrib{Binding: 0, Size: 4, Offset: 0}, vao.Attribs[0])
	assert.Equal(t, gputest.VertexBinding{Buffer: tess.vertices.Handle(), Stride: 16}, vao.Bindings[0])
	assert.Equal(t, tess.indices.Handle(), vao.Elements)

	assert.True(t, dev.Enabled[gpu.DepthTest])
	assert.Equal(t, gpu.LessEqual, dev.Depth)
	assert.Equal(t, gpu.Line, dev.Polygon)
	assert.IsType(t, &gpu.TransformRing{}, tess.transform)

	tess.Dispose()
	assert.Zero(t, dev.Live())
}

func TestTessFrames(t *testing.T) {
	w := newFakeWindow(3)
	env, dev := newEnv(t, w)

	tess := NewTess()
	require.NoError(t, Run(env, tess))

	require.Len(t, dev.Draws, 3)
	for i, d := range dev.Draws {
		assert.Equal(t, gpu.Patches, d.Primitive)
		assert.True(t, d.Indexed)
		assert.Equal(t, 24, d.Count)
		assert.Equal(t, gpu.Uint16, d.IndexType)
		assert.Equal(t, 1, d.Instances)
		assert.Zero(t, d.BaseVertex)
		assert.Equal(t, PatchSize, d.PatchSize)

		b := d.Uniforms[TransformBinding]
		assert.Equal(t, i*dev.Alignment, b.Offset, "frame %v uses its own slot", i)
		assert.Equal(t, dev.Alignment, b.Size)
	}

	assert.Equal(t, mgl32.Vec4{0.2, 0.2, 0.3, 1}, dev.Clear)
	assert.Equal(t, float32(1), dev.ClearDepthValue)
	assert.Equal(t, [4]int{0, 0, 640, 480}, dev.ViewportRect)
	assert.Zero(t, dev.Live(), "everything is released")
}

func TestTessOrbitScenario(t *testing.T) {
	w := newFakeWindow(0)
	w.script[1] = []input.Message{input.MessageMouseScroll{Y: 8}}
	w.script[2] = []input.Message{
		input.MessageMouseButton{Button: input.MouseLeft, Action: input.Press, X: 100, Y: 100},
		input.MessageMouseMove{X: 150, Y: 100},
	}
	w.script[3] = []input.Message{
		input.MessageMouseButton{Button: input.MouseLeft, Action: input.Release, X: 150, Y: 100},
		input.MessageKey{Key: input.KeyEscape, Action: input.Press},
	}

	env, dev := newEnv(t, w)
	tess := NewTess()
	require.NoError(t, Run(env, tess))

	o := tess.Orbit()
	assert.Equal(t, float32(3), o.Zoom)
	assert.Equal(t, float32(5), o.Yaw)
	assert.Zero(t, o.Pitch)
	assert.False(t, o.Captured)
	assert.Equal(t, []bool{true, false}, w.captured)
	assert.Len(t, dev.Draws, 3, "escape closes after the third frame")
}

func TestTessInvalidatingTransform(t *testing.T) {
	w := newFakeWindow(2)
	env, dev := newEnv(t, w)
	env.Config.Render.Transform = config.TransformInvalidate

	tess := NewTess()
	require.NoError(t, tess.Init(env))
	defer tess.Dispose()

	inv, ok := tess.transform.(*gpu.InvalidatingTransform)
	require.True(t, ok)

	w.script[1] = []input.Message{input.MessageMouseScroll{Y: -8}}
	for range 2 {
		require.NoError(t, tess.Frame(env))
		w.PollEvents()
		for m := range w.Messages() {
			tess.Handle(m)
		}
	}
	require.NoError(t, tess.Frame(env))

	assert.Equal(t, 3, dev.Count("MapBufferRange"))
	assert.Equal(t, 3, dev.Count("UnmapBuffer"))
	assert.Zero(t, dev.Count("FenceSync"))

	buf := dev.Buffers[inv.Buffer().Handle()]
	assert.False(t, buf.Mapped)

	want := camera.Orbit{Zoom: 5}.MVP(camera.Aspect(640, 480))
	var got mgl32.Mat4
	for i := range got {
		got[i] = math.Float32frombits(binary.NativeEndian.Uint32(buf.Data[i*4:]))
	}
	assert.Equal(t, want, got)

	for _, d := range dev.Draws {
		assert.Equal(t, gputest.Range{Buffer: inv.Buffer().Handle(), Size: dev.Alignment}, d.Uniforms[TransformBinding])
	}
}

func TestTessFillMode(t *testing.T) {
	env, dev := newEnv(t, newFakeWindow(1))
	env.Config.Render.Wireframe = false
	env.Config.Render.FramesInFlight = 2

	tess := NewTess()
	require.NoError(t, Run(env, tess))

	assert.Equal(t, gpu.Fill, dev.Polygon)
	ring, ok := tess.transform.(*gpu.TransformRing)
	require.True(t, ok)
	assert.Equal(t, 2*dev.Alignment, ring.Buffer().Size())
}

func tessFS(t *testing.T) fstest.MapFS {
	t.Helper()
	fsys := fstest.MapFS{}
	for _, name := range tessShaders {
		src, err := fs.ReadFile(shaders.FS, name)
		require.NoError(t, err)
		fsys[name] = &fstest.MapFile{Data: src}
	}
	return fsys
}

func TestTessShaderErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(fstest.MapFS, *gputest.Device)
		check  func(*testing.T, error)
	}{
		{
			name: "compile",
			modify: func(fsys fstest.MapFS, _ *gputest.Device) {
				fsys["cube.eval"] = &fstest.MapFile{Data: []byte("#version 450 core\n#error broken\n")}
			},
			check: func(t *testing.T, err error) {
				var ce *gpu.CompileError
				require.ErrorAs(t, err, &ce)
				assert.Equal(t, gpu.TessEvaluationStage, ce.Stage)
				assert.Equal(t, "cube.eval", ce.Name)
			},
		},
		{
			name: "empty",
			modify: func(fsys fstest.MapFS, _ *gputest.Device) {
				fsys["cube.frag"] = &fstest.MapFile{Data: []byte("  \n")}
			},
			check: func(t *testing.T, err error) {
				var ce *gpu.CompileError
				require.ErrorAs(t, err, &ce)
				assert.Equal(t, gpu.FragmentStage, ce.Stage)
			},
		},
		{
			name: "missing",
			modify: func(fsys fstest.MapFS, _ *gputest.Device) {
				delete(fsys, "cube.cont")
			},
			check: func(t *testing.T, err error) {
				var ce *gpu.CompileError
				require.ErrorAs(t, err, &ce)
				assert.Equal(t, "cube.cont", ce.Name)
			},
		},
		{
			name: "link",
			modify: func(_ fstest.MapFS, dev *gputest.Device) {
				dev.FailLink = true
			},
			check: func(t *testing.T, err error) {
				var le *gpu.LinkError
				assert.ErrorAs(t, err, &le)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, dev := newEnv(t, newFakeWindow(1))
			fsys := tessFS(t)
			tt.modify(fsys, dev)
			env.Shaders = fsys

			err := Run(env, NewTess())
			require.Error(t, err)
			assert.Contains(t, err.Error(), "tessellation shaders")
			tt.check(t, err)

			assert.Empty(t, dev.Draws)
			assert.Zero(t, dev.Live(), "nothing leaks")
		})
	}
}

func TestTessMapFailure(t *testing.T) {
	env, dev := newEnv(t, newFakeWindow(1))
	dev.FailMap = true

	err := Run(env, NewTess())
	assert.ErrorIs(t, err, gpu.ErrMapFailed)
	assert.Zero(t, dev.Live())
}

func TestTessReload(t *testing.T) {
	dir := t.TempDir()
	for name, f := range tessFS(t) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), f.Data, 0o644))
	}

	env, dev := newEnv(t, newFakeWindow(0))
	env.Shaders = os.DirFS(dir)
	env.ShaderDir = dir
	env.Config.Shaders.Watch = true

	tess := NewTess()
	require.NoError(t, tess.Init(env))
	defer tess.Dispose()
	require.NotNil(t, tess.watcher)

	first := tess.pipeline.Handle()
	compiled := dev.Count("CreateShader")

	// unrelated files are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, tess.Frame(env))
	assert.Equal(t, compiled, dev.Count("CreateShader"))

	frag := filepath.Join(dir, "cube.frag")
	good, err := os.ReadFile(frag)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(frag, []byte("#version 450 core\n#error broken\n"), 0o644))
	assert.Eventually(t, func() bool {
		if err := tess.Frame(env); err != nil {
			return false
		}
		return dev.Count("CreateShader") > compiled
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, first, tess.pipeline.Handle(), "broken source keeps the pipeline")

	require.NoError(t, os.WriteFile(frag, good, 0o644))
	assert.Eventually(t, func() bool {
		if err := tess.Frame(env); err != nil {
			return false
		}
		return tess.pipeline.Handle() != first
	}, 2*time.Second, 20*time.Millisecond)

	_, alive := dev.Pipelines[first]
	assert.False(t, alive, "replaced pipeline is released")
}

func TestEscapeCloses(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			w := newFakeWindow(0)
			w.script[2] = []input.Message{input.MessageKey{Key: input.KeyEscape, Action: input.Press}}
			env, dev := newEnv(t, w)

			d, err := New(name)
			require.NoError(t, err)
			require.NoError(t, Run(env, d))

			assert.True(t, w.ShouldClose())
			assert.Len(t, dev.Draws, 2)
			assert.Zero(t, dev.Live())
		})
	}
}

func TestTriangles(t *testing.T) {
	env, dev := newEnv(t, newFakeWindow(0))
	tri := NewTriangles()
	require.NoError(t, tri.Init(env))
	defer tri.Dispose()
	require.NoError(t, tri.Frame(env))

	require.Len(t, dev.Draws, 1)
	d := dev.Draws[0]
	assert.Equal(t, gpu.Triangles, d.Primitive)
	assert.False(t, d.Indexed)
	assert.Equal(t, 6, d.Count)
	assert.Equal(t, tri.program.Handle(), d.Program)

	vao := dev.VertexArrays[d.VertexArray]
	assert.Equal(t, tri.positions.Handle(), vao.Bindings[0].Buffer)
	assert.Equal(t, tri.colors.Handle(), vao.Bindings[1].Buffer)
	assert.Equal(t, uint32(1), vao.Attribs[1].Binding)

	assert.False(t, dev.Enabled[gpu.DepthTest])
	assert.Nil(t, dev.UniformValue(tri.program.Handle(), "view"))
	assert.Equal(t, mgl32.Vec4{0, 0, 0, 1}, dev.Clear)
}

func TestFreeCam(t *testing.T) {
	w := newFakeWindow(0)
	w.script[1] = []input.Message{input.MessageKey{Key: input.KeyW, Action: input.Press}}

	env, dev := newEnv(t, w)
	var out bytes.Buffer
	env.Out = &out

	fc := NewFreeCam()
	require.NoError(t, fc.Init(env))
	defer fc.Dispose()

	assert.Contains(t, out.String(), "W/S")
	assert.True(t, dev.Enabled[gpu.DepthTest])

	for range 3 {
		require.NoError(t, fc.Frame(env))
		w.PollEvents()
		for m := range w.Messages() {
			fc.Handle(m)
		}
	}

	// W was held for the second and third frame
	v := fc.View()
	assert.InDelta(t, 3-2*camera.HeadingSpeed, v.Position.Z(), 1e-4)
	assert.Equal(t, float32(3.14), v.Horizontal)
	assert.Equal(t, v.View(), dev.UniformValue(fc.program.Handle(), "view"))
	assert.NotNil(t, dev.UniformValue(fc.program.Handle(), "projection"))
}

func TestPhong(t *testing.T) {
	w := newFakeWindow(2)
	w.script[1] = []input.Message{input.MessageKey{Key: input.KeyW, Action: input.Press}}
	env, dev := newEnv(t, w)

	p := NewPhong()
	require.NoError(t, p.Init(env))
	defer p.Dispose()

	h := p.program.Handle()
	assert.Equal(t, whiteLight.Position, dev.UniformValue(h, "light.position"))
	assert.Equal(t, coral.Diffuse, dev.UniformValue(h, "material.diffuse"))
	assert.Equal(t, float32(32), dev.UniformValue(h, "material.shininess"))
	assert.Equal(t, float32(1), dev.UniformValue(h, "alpha"))
	assert.False(t, dev.Enabled[gpu.Blend])

	vao := dev.VertexArrays[p.vao.Handle()]
	assert.Equal(t, gputest.Attrib{Binding: 0, Size: 3, Offset: 12}, vao.Attribs[1])
	assert.Equal(t, litCubeStride, vao.Bindings[0].Stride)

	start := p.Camera().Position
	require.NoError(t, p.Frame(env))
	w.PollEvents()
	for m := range w.Messages() {
		p.Handle(m)
	}
	require.NoError(t, p.Frame(env))

	assert.NotEqual(t, start, p.Camera().Position, "W moves the camera")
	assert.Equal(t, p.Camera().Position, dev.UniformValue(h, "viewPos"))
	require.Len(t, dev.Draws, 2)
	assert.Equal(t, 36, dev.Draws[1].Count)
}

func TestBlend(t *testing.T) {
	w := newFakeWindow(0)
	env, dev := newEnv(t, w)

	b := NewBlend()
	require.NoError(t, b.Init(env))
	defer b.Dispose()

	h := b.program.Handle()
	assert.True(t, dev.Enabled[gpu.Blend])
	assert.Equal(t, gpu.SrcAlpha, dev.BlendSrc)
	assert.Equal(t, gpu.OneMinusSrcAlpha, dev.BlendDst)
	assert.Equal(t, float32(0.5), dev.UniformValue(h, "alpha"))
	assert.Equal(t, teal.Diffuse, dev.UniformValue(h, "material.diffuse"))

	// input does not move the fixed camera
	b.Handle(input.MessageKey{Key: input.KeyW, Action: input.Press})
	w.step, w.frames = 0.5, 2
	require.NoError(t, b.Frame(env))

	assert.Equal(t, mgl32.Vec3{0, 0, 3}, dev.UniformValue(h, "viewPos"))
	assert.Equal(t, mgl32.HomogRotate3D(1, blendAxis), dev.UniformValue(h, "model"))
}

func TestModel(t *testing.T) {
	env, dev := newEnv(t, newFakeWindow(0))

	m := NewModel("", "", false)
	require.NoError(t, m.Init(env))
	defer m.Dispose()
	require.NoError(t, m.Frame(env))

	require.Len(t, dev.Draws, 1)
	d := dev.Draws[0]
	assert.Equal(t, 36, d.Count, "six quads as twelve triangles")
	assert.Equal(t, m.texture.Handle(), d.Textures[0])
	assert.Equal(t, 256, dev.Textures[m.texture.Handle()].Bounds().Dx())

	vao := dev.VertexArrays[d.VertexArray]
	assert.Equal(t, 36*3*4, vao.Bindings[1].Offset)
	assert.Equal(t, 36*5*4, vao.Bindings[2].Offset)
	assert.Equal(t, 36*8*4, len(dev.Buffers[m.vertices.Handle()].Data))

	assert.NotNil(t, dev.UniformValue(m.program.Handle(), "uMvpMatrix"))
}

func TestModelFlat(t *testing.T) {
	env, dev := newEnv(t, newFakeWindow(0))

	m := NewModel("", "", true)
	require.NoError(t, m.Init(env))
	defer m.Dispose()

	var sources []string
	for _, s := range dev.Shaders {
		sources = append(sources, s.Source)
	}
	flat, err := fs.ReadFile(shaders.FS, "model_flat.vert")
	require.NoError(t, err)
	assert.Contains(t, sources, string(flat))
}

func TestModelFiles(t *testing.T) {
	dir := t.TempDir()
	obj := filepath.Join(dir, "tri.obj")
	require.NoError(t, os.WriteFile(obj, []byte("v 0 0 0\nv 1 0 0\nv 0 1 0\nvt 0 0\nvn 0 0 1\nf 1/1/1 2/1/1 3/1/1\n"), 0o644))

	env, dev := newEnv(t, newFakeWindow(0))
	m := NewModel(obj, "", false)
	require.NoError(t, m.Init(env))
	require.NoError(t, m.Frame(env))
	m.Dispose()

	require.Len(t, dev.Draws, 1)
	assert.Equal(t, 3, dev.Draws[0].Count)
	assert.Zero(t, dev.Live())

	for _, m := range []*Model{
		NewModel(filepath.Join(dir, "missing.obj"), "", false),
		NewModel(obj, filepath.Join(dir, "missing.png"), false),
	} {
		env, dev := newEnv(t, newFakeWindow(0))
		assert.Error(t, Run(env, m))
		assert.Zero(t, dev.Live())
	}
}

func TestModelAdvance(t *testing.T) {
	tests := []struct {
		name  string
		last  float64
		now   float64
		angle float32
	}{
		{"same frame", 0, 0.01, 0},
		{"one tick", 0, 0.017, modelStep},
		{"six ticks", 0, 0.1, 6 * modelStep},
		{"stall", 0, 5, modelStep},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Model{last: tt.last}
			m.advance(tt.now)
			assert.Equal(t, tt.angle, m.Angle())
		})
	}
}
