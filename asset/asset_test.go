package asset

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/der-antikeks/glabs/gpu"
)

const quadOBJ = `# a textured quad
o quad
v -1 -1 0
v 1 -1 0
v 1 1 0
v -1 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 0 1
s off
f 1/1/1 2/2/1 3/3/1 4/4/1
`

func TestLoadOBJQuad(t *testing.T) {
	m, err := LoadOBJ(strings.NewReader(quadOBJ))
	require.NoError(t, err)

	require.Equal(t, 6, m.Len(), "quad is split into two triangles")
	assert.Equal(t, []mgl32.Vec3{
		{-1, -1, 0}, {1, -1, 0}, {-1, 1, 0},
		{1, -1, 0}, {1, 1, 0}, {-1, 1, 0},
	}, m.Positions)
	assert.Equal(t, mgl32.Vec2{0, 1}, m.UVs[0], "v is flipped")
	assert.Equal(t, mgl32.Vec2{1, 0}, m.UVs[4])
	for _, n := range m.Normals {
		assert.Equal(t, mgl32.Vec3{0, 0, 1}, n)
	}
}

func TestLoadOBJFaces(t *testing.T) {
	tests := []struct {
		name  string
		face  string
		count int
	}{
		{"triangle", "f 1 2 3", 3},
		{"quad", "f 1 2 3 4", 6},
		{"pentagon", "f 1 2 3 4 5", 9},
		{"relative", "f -3 -2 -1", 3},
		{"position and normal", "f 1//1 2//1 3//1", 3},
	}

	const verts = "v 0 0 0\nv 1 0 0\nv 1 1 0\nv 0 1 0\nv 0 2 0\nvn 0 0 1\n"
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := LoadOBJ(strings.NewReader(verts + tt.face + "\n"))
			require.NoError(t, err)
			assert.Equal(t, tt.count, m.Len())
			assert.Len(t, m.UVs, tt.count)
			assert.Len(t, m.Normals, tt.count)
		})
	}
}

func TestLoadOBJErrors(t *testing.T) {
	tests := []struct {
		name string
		obj  string
		line int
	}{
		{"bad float", "v 0 0 0\nv 1 x 0\n", 2},
		{"short vertex", "v 0 0\n", 1},
		{"index out of range", "v 0 0 0\n\nf 1 2 3\n", 3},
		{"bad index", "v 0 0 0\nf 1 a 1\n", 2},
		{"degenerate face", "v 0 0 0\nf 1 1\n", 2},
		{"missing uv", "v 0 0 0\n# comment\nf 1/1 1/1 1/1\n", 3},
		{"unknown statement", "v 0 0 0\nfoo bar\n", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadOBJ(strings.NewReader(tt.obj))
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.line, pe.Line)
		})
	}
}

func TestPlanar(t *testing.T) {
	m, err := LoadOBJ(strings.NewReader(quadOBJ))
	require.NoError(t, err)

	p := m.Planar()
	assert.Len(t, p, 6*(3+2+3))

	uvs, normals := m.PlanarOffsets()
	assert.Equal(t, 6*3*4, uvs)
	assert.Equal(t, uvs+6*2*4, normals)
	assert.Equal(t, float32(0), p[uvs/4], "first uv u")
	assert.Equal(t, float32(1), p[normals/4+2], "first normal z")
}

func TestLoadOBJFile(t *testing.T) {
	fsys := fstest.MapFS{"quad.obj": {Data: []byte(quadOBJ)}}

	m, err := LoadOBJFile(fsys, "quad.obj")
	require.NoError(t, err)
	assert.Equal(t, 6, m.Len())

	_, err = LoadOBJFile(fsys, "missing.obj")
	assert.Error(t, err)
}

func TestLoadShaders(t *testing.T) {
	fsys := fstest.MapFS{
		"cube.vert": {Data: []byte("vert")},
		"cube.cont": {Data: []byte("cont")},
		"cube.eval": {Data: []byte("eval")},
		"cube.frag": {Data: []byte("frag")},
	}

	sources, err := LoadShaders(fsys, "cube.vert", "cube.cont", "cube.eval", "cube.frag")
	require.NoError(t, err)
	require.Len(t, sources, 4)
	assert.Equal(t, gpu.ShaderSource{Stage: gpu.TessControlStage, Name: "cube.cont", Source: "cont"}, sources[1])
	assert.Equal(t, gpu.TessEvaluationStage, sources[2].Stage)

	_, err = LoadShaders(fsys, "cube.vert", "cube.geom")
	var ce *gpu.CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, gpu.GeometryStage, ce.Stage)
	assert.Equal(t, "cube.geom", ce.Name)

	_, err = LoadShaders(fsys, "cube.txt")
	assert.Error(t, err)
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestLoadImage(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 8, 4))
	gray.SetGray(1, 0, color.Gray{Y: 200})

	fsys := fstest.MapFS{
		"gray.png":   {Data: encodePNG(t, gray)},
		"broken.png": {Data: []byte("not a png")},
	}

	img, err := LoadImage(fsys, "gray.png", 0)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 4), img.Bounds())
	assert.Equal(t, color.RGBA{200, 200, 200, 255}, img.RGBAAt(1, 0))

	img, err = LoadImage(fsys, "gray.png", 4)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 2), img.Bounds())

	_, err = LoadImage(fsys, "broken.png", 0)
	assert.ErrorContains(t, err, "decode broken.png")

	_, err = LoadImage(fsys, "missing.png", 0)
	assert.Error(t, err)
}

func TestFit(t *testing.T) {
	tests := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{100, 50, 0, 100, 50},
		{100, 50, 200, 100, 50},
		{100, 50, 10, 10, 5},
		{50, 100, 10, 5, 10},
		{1000, 1, 10, 10, 1},
	}
	for _, tt := range tests {
		w, h := fit(tt.w, tt.h, tt.max)
		assert.Equal(t, tt.wantW, w)
		assert.Equal(t, tt.wantH, h)
	}
}

func TestCheckerboard(t *testing.T) {
	a := color.RGBA{255, 255, 255, 255}
	b := color.RGBA{0, 0, 0, 255}
	img := Checkerboard(64, 8, a, b)

	assert.Equal(t, image.Rect(0, 0, 64, 64), img.Bounds())
	assert.Equal(t, a, img.RGBAAt(0, 0))
	assert.Equal(t, b, img.RGBAAt(8, 0))
	assert.Equal(t, b, img.RGBAAt(0, 8))
	assert.Equal(t, a, img.RGBAAt(8, 8))
	assert.Equal(t, a, img.RGBAAt(63, 63))
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	w, err := NewWatcher(dir, log)
	require.NoError(t, err)
	defer w.Close()

	assert.Empty(t, w.Changed())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "cube.frag"), []byte("void main() {}"), 0o644))

	var changed []string
	assert.Eventually(t, func() bool {
		changed = append(changed, w.Changed()...)
		return len(changed) > 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, changed, "cube.frag")

	_, err = NewWatcher(filepath.Join(dir, "missing"), log)
	assert.Error(t, err)
}
