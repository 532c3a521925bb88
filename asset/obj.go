package asset

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// ParseError reports a malformed line of a model file.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %v %q: %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Mesh is a triangle list, every three vertices form a face. Missing uvs
// and normals are zero.
type Mesh struct {
	Positions []mgl32.Vec3
	UVs       []mgl32.Vec2
	Normals   []mgl32.Vec3
}

func (m *Mesh) Len() int {
	return len(m.Positions)
}

// Planar returns all positions, then all uvs, then all normals.
func (m *Mesh) Planar() []float32 {
	n := m.Len()
	r := make([]float32, 0, n*8)
	for _, p := range m.Positions {
		r = append(r, p[:]...)
	}
	for _, uv := range m.UVs {
		r = append(r, uv[:]...)
	}
	for _, nv := range m.Normals {
		r = append(r, nv[:]...)
	}
	return r
}

// PlanarOffsets returns the byte offsets of the uv and normal sections
// of Planar.
func (m *Mesh) PlanarOffsets() (uvs, normals int) {
	uvs = m.Len() * 3 * 4
	normals = uvs + m.Len()*2*4
	return uvs, normals
}

func (m *Mesh) addVertex(p mgl32.Vec3, uv mgl32.Vec2, n mgl32.Vec3) {
	m.Positions = append(m.Positions, p)
	m.UVs = append(m.UVs, uv)
	m.Normals = append(m.Normals, n)
}

func LoadOBJFile(fsys fs.FS, name string) (*Mesh, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := LoadOBJ(f)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", name, err)
	}
	return m, nil
}

/*
	LoadOBJ reads a wavefront obj model, positions, uvs and normals only.

	object format
	http://paulbourke.net/dataformats/obj/

	Quads are split into two triangles, larger polygons into a fan. The v
	texture coordinate is flipped for OpenGL's bottom-left image origin.
*/
func LoadOBJ(r io.Reader) (*Mesh, error) {
	var (
		vertices []mgl32.Vec3
		normals  []mgl32.Vec3
		uvs      []mgl32.Vec2

		mesh = &Mesh{}
	)

	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		text := scanner.Text()
		fields := strings.Fields(text)
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		fail := func(err error) error {
			return &ParseError{Line: line, Text: text, Err: err}
		}

		switch fields[0] {

		// Vertex data

		case "v": // geometric vertices: x, y, z, [w]
			v, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, fail(err)
			}
			vertices = append(vertices, mgl32.Vec3{v[0], v[1], v[2]})

		case "vt": // texture vertices: u, v, [w]
			v, err := parseFloats(fields[1:], 2)
			if err != nil {
				return nil, fail(err)
			}
			uvs = append(uvs, mgl32.Vec2{v[0], 1 - v[1]})

		case "vn": // vertex normals: i, j, k
			v, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, fail(err)
			}
			normals = append(normals, mgl32.Vec3{v[0], v[1], v[2]})

		// Elements

		case "f": // face: v/vt/vn v/vt/vn v/vt/vn [v/vt/vn ...]
			corners := fields[1:]
			if len(corners) < 3 {
				return nil, fail(fmt.Errorf("face with %v vertices", len(corners)))
			}

			var tris [][3]string
			if len(corners) == 4 {
				tris = [][3]string{
					{corners[0], corners[1], corners[3]},
					{corners[1], corners[2], corners[3]},
				}
			} else {
				for i := 1; i+1 < len(corners); i++ {
					tris = append(tris, [3]string{corners[0], corners[i], corners[i+1]})
				}
			}

			for _, tri := range tris {
				for _, c := range tri {
					var (
						p  mgl32.Vec3
						uv mgl32.Vec2
						n  mgl32.Vec3
					)
					a := strings.Split(c, "/")

					i, err := parseIndex(a[0], len(vertices))
					if err != nil {
						return nil, fail(fmt.Errorf("vertex: %w", err))
					}
					p = vertices[i]

					if len(a) > 1 && a[1] != "" {
						i, err := parseIndex(a[1], len(uvs))
						if err != nil {
							return nil, fail(fmt.Errorf("uv: %w", err))
						}
						uv = uvs[i]
					}

					if len(a) > 2 && a[2] != "" {
						i, err := parseIndex(a[2], len(normals))
						if err != nil {
							return nil, fail(fmt.Errorf("normal: %w", err))
						}
						n = normals[i]
					}

					mesh.addVertex(p, uv, n)
				}
			}

		case "vp", "cstype", "deg", "bmat", "step",
			"p", "l", "curv", "curv2", "surf",
			"parm", "trim", "hole", "scrv", "sp", "end", "con",
			"g", "s", "mg", "o",
			"usemtl", "mtllib", "bevel", "c_interp", "d_interp", "lod",
			"shadow_obj", "trace_obj", "ctech", "stech":

		default:
			return nil, fail(fmt.Errorf("unknown statement %q", fields[0]))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return mesh, nil
}

func parseFloats(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("want %v values, got %v", n, len(fields))
	}
	r := make([]float32, n)
	for i := range r {
		v, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, err
		}
		r[i] = float32(v)
	}
	return r, nil
}

// parseIndex resolves a one based or negative relative index.
func parseIndex(s string, count int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		i = count + i + 1
	}
	if i < 1 || i > count {
		return 0, fmt.Errorf("index %v out of range 1..%v", s, count)
	}
	return i - 1, nil
}
