package lab

import (
	"embed"
	"fmt"
	"image"
	"image/color"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/der-antikeks/glabs/asset"
	"github.com/der-antikeks/glabs/camera"
	"github.com/der-antikeks/glabs/gpu"
	"github.com/der-antikeks/glabs/input"
)

func init() {
	register("model", func() Demo { return NewModel("", "", false) })
}

//go:embed models
var models embed.FS

const (
	defaultModel = "models/cube.obj"

	// the model turns modelStep degrees every modelTick seconds
	modelTick = 0.016
	modelStep = 2

	maxTextureSize = 4096
)

var (
	modelEye        = mgl32.Vec3{0, 3, 10}
	modelBackground = mgl32.Vec4{0.2, 0.3, 0.2, 1}
)

// Model shows a textured Wavefront OBJ model spinning around the y
// axis.
type Model struct {
	// OBJ and Texture are file paths, empty selects the built in cube
	// and a checkerboard.
	OBJ, Texture string
	// Flat disables normal interpolation across faces.
	Flat bool

	dev gpu.Device

	program  *gpu.Program
	vertices *gpu.Buffer
	vao      *gpu.VertexArray
	texture  *gpu.Texture
	count    int

	angle float32
	last  float64
}

func NewModel(obj, texture string, flat bool) *Model {
	return &Model{OBJ: obj, Texture: texture, Flat: flat}
}

// open resolves a file path, or the embedded default when path is empty.
func open(path, fallback string) (fs.FS, string) {
	if path == "" {
		return models, fallback
	}
	return os.DirFS(filepath.Dir(path)), filepath.Base(path)
}

func (m *Model) Init(env *Env) error {
	m.dev = env.Device

	vert, frag := "model.vert", "model.frag"
	if m.Flat {
		vert, frag = "model_flat.vert", "model_flat.frag"
	}

	var err error
	if m.program, err = loadProgram(env, vert, frag); err != nil {
		return fmt.Errorf("model shaders: %w", err)
	}

	mesh, err := asset.LoadOBJFile(open(m.OBJ, defaultModel))
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	m.count = mesh.Len()

	var img *image.RGBA
	if m.Texture != "" {
		fsys, name := open(m.Texture, "")
		if img, err = asset.LoadImage(fsys, name, maxTextureSize); err != nil {
			return fmt.Errorf("load texture: %w", err)
		}
	} else {
		img = asset.Checkerboard(256, 8, color.RGBA{230, 230, 230, 255}, color.RGBA{60, 90, 60, 255})
	}
	m.texture = gpu.NewTexture(m.dev, img)

	uvs, normals := mesh.PlanarOffsets()
	m.vertices = gpu.NewBuffer(m.dev, gpu.Bytes(mesh.Planar()), 0)
	m.vao = gpu.NewVertexArray(m.dev).
		Attrib(0, 0, 3, 0).
		Attrib(1, 1, 2, 0).
		Attrib(2, 2, 3, 0).
		VertexBuffer(0, m.vertices, 0, 3*4).
		VertexBuffer(1, m.vertices, uvs, 2*4).
		VertexBuffer(2, m.vertices, normals, 3*4)

	m.dev.Enable(gpu.DepthTest)
	m.last = env.Window.Time()

	env.Log.Info("model", "vertices", m.count, "texture", img.Bounds().Size(), "flat", m.Flat)
	return nil
}

// Angle returns the current rotation in degrees.
func (m *Model) Angle() float32 {
	return m.angle
}

func (m *Model) Handle(input.Message) {}

// advance turns the model for every full tick since the last frame.
func (m *Model) advance(now float64) {
	if now-m.last > 1 {
		m.last = now - modelTick
	}
	for now-m.last >= modelTick {
		m.angle += modelStep
		m.last += modelTick
	}
}

func (m *Model) Frame(env *Env) error {
	m.advance(env.Window.Time())

	w, h := env.Window.FramebufferSize()
	projection := camera.Perspective(camera.Aspect(w, h), camera.Far)
	view := mgl32.LookAtV(modelEye, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	model := mgl32.Scale3D(3, 3, 3).Mul4(mgl32.HomogRotate3DY(mgl32.DegToRad(m.angle)))

	m.dev.ClearColor(modelBackground)
	m.dev.ClearDepth(1)

	m.program.Use()
	m.program.SetMat4("uMvpMatrix", projection.Mul4(view).Mul4(model))
	m.program.SetMat4("uModelMatrix", model)

	m.texture.Bind(0)
	m.vao.Bind()
	m.dev.DrawArrays(gpu.Triangles, 0, m.count)
	return nil
}

func (m *Model) Dispose() {
	if m.program != nil {
		m.program.Dispose()
	}
	if m.vao != nil {
		m.vao.Dispose()
	}
	if m.vertices != nil {
		m.vertices.Dispose()
	}
	if m.texture != nil {
		m.texture.Dispose()
	}
}
