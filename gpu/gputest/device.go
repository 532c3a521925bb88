// Package gputest provides a gpu.Device that records calls and simulates
// object state in memory, for tests without a graphics context.
package gputest

import (
	"image"
	"maps"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/der-antikeks/glabs/gpu"
)

type Call struct {
	Name string
	Args []any
}

type Shader struct {
	Stage  gpu.Stage
	Source string
}

type Program struct {
	Shaders   []uint32
	Stages    gpu.StageMask
	Separable bool
}

type Buffer struct {
	Data   []byte
	Flags  gpu.StorageFlags
	Mapped bool
	Access gpu.MapAccess
}

type Attrib struct {
	Binding      uint32
	Size, Offset int
}

type VertexBinding struct {
	Buffer         uint32
	Offset, Stride int
}

type VertexArray struct {
	Attribs  map[uint32]Attrib
	Bindings map[uint32]VertexBinding
	Elements uint32
}

type Range struct {
	Buffer       uint32
	Offset, Size int
}

// Draw is a snapshot of the state a draw call was issued with.
type Draw struct {
	Primitive  gpu.Primitive
	First      int
	Count      int
	IndexType  gpu.IndexType
	Indexed    bool
	Offset     int
	Instances  int
	BaseVertex int
	PatchSize  int

	Program     uint32
	Pipeline    uint32
	VertexArray uint32
	Uniforms    map[uint32]Range
	Textures    map[uint32]uint32
}

type Device struct {
	RendererName string
	VersionName  string
	Alignment    int

	// FailCompile decides which sources fail to compile, by default
	// those containing "#error".
	FailCompile func(stage gpu.Stage, src string) bool
	FailLink    bool
	FailMap     bool
	// WaitResults are returned by ClientWaitSync in order, then
	// SyncAlreadySignaled.
	WaitResults []gpu.SyncStatus

	Calls []Call
	Draws []Draw

	Shaders      map[uint32]Shader
	Programs     map[uint32]Program
	Pipelines    map[uint32]map[gpu.Stage]uint32
	Buffers      map[uint32]*Buffer
	VertexArrays map[uint32]*VertexArray
	Textures     map[uint32]*image.RGBA
	Syncs        map[gpu.Sync]bool
	Locations    map[uint32]map[string]int32
	Uniforms     map[uint32]map[int32]any

	Enabled         map[gpu.Capability]bool
	UniformBindings map[uint32]Range
	TextureUnits    map[uint32]uint32

	Program, Pipeline, VertexArray uint32
	PatchSize                      int
	ViewportRect                   [4]int
	Polygon                        gpu.PolygonMode
	Depth                          gpu.CompareFunc
	BlendSrc, BlendDst             gpu.BlendFactor
	Clear                          mgl32.Vec4
	ClearDepthValue                float32

	next uint32
}

func New() *Device {
	return &Device{
		RendererName: "gputest",
		VersionName:  "4.6 gputest",
		Alignment:    256,

		Shaders:      map[uint32]Shader{},
		Programs:     map[uint32]Program{},
		Pipelines:    map[uint32]map[gpu.Stage]uint32{},
		Buffers:      map[uint32]*Buffer{},
		VertexArrays: map[uint32]*VertexArray{},
		Textures:     map[uint32]*image.RGBA{},
		Syncs:        map[gpu.Sync]bool{},
		Locations:    map[uint32]map[string]int32{},
		Uniforms:     map[uint32]map[int32]any{},

		Enabled:         map[gpu.Capability]bool{},
		UniformBindings: map[uint32]Range{},
		TextureUnits:    map[uint32]uint32{},
		PatchSize:       3,
	}
}

func (d *Device) record(name string, args ...any) {
	d.Calls = append(d.Calls, Call{Name: name, Args: args})
}

func (d *Device) handle() uint32 {
	d.next++
	return d.next
}

// Count returns how often the named method was called.
func (d *Device) Count(name string) int {
	n := 0
	for _, c := range d.Calls {
		if c.Name == name {
			n++
		}
	}
	return n
}

// Reset forgets recorded calls and draws, object state is kept.
func (d *Device) Reset() {
	d.Calls = nil
	d.Draws = nil
}

// Live returns the number of objects not yet deleted.
func (d *Device) Live() int {
	return len(d.Shaders) + len(d.Programs) + len(d.Pipelines) + len(d.Buffers) +
		len(d.VertexArrays) + len(d.Textures) + len(d.Syncs)
}

func (d *Device) Renderer() string { return d.RendererName }
func (d *Device) Version() string  { return d.VersionName }

func (d *Device) UniformBufferOffsetAlignment() int {
	d.record("UniformBufferOffsetAlignment")
	return d.Alignment
}

func (d *Device) CreateShader(stage gpu.Stage, src string) (uint32, string, bool) {
	d.record("CreateShader", stage, src)

	fail := d.FailCompile
	if fail == nil {
		fail = func(_ gpu.Stage, src string) bool { return strings.Contains(src, "#error") }
	}
	if fail(stage, src) {
		return 0, "0:1(1): error: compilation failed", false
	}

	h := d.handle()
	d.Shaders[h] = Shader{Stage: stage, Source: src}
	return h, "", true
}

func (d *Device) DeleteShader(h uint32) {
	d.record("DeleteShader", h)
	delete(d.Shaders, h)
}

func (d *Device) CreateProgram(shaders []uint32, separable bool) (uint32, string, bool) {
	d.record("CreateProgram", shaders, separable)

	if d.FailLink {
		return 0, "error: linking failed", false
	}

	p := Program{Shaders: append([]uint32(nil), shaders...), Separable: separable}
	for _, s := range shaders {
		sh, ok := d.Shaders[s]
		if !ok {
			return 0, "error: invalid shader object", false
		}
		p.Stages |= sh.Stage.Mask()
	}

	h := d.handle()
	d.Programs[h] = p
	d.Locations[h] = map[string]int32{}
	d.Uniforms[h] = map[int32]any{}
	return h, "", true
}

func (d *Device) DeleteProgram(h uint32) {
	d.record("DeleteProgram", h)
	delete(d.Programs, h)
	delete(d.Locations, h)
	delete(d.Uniforms, h)
}

func (d *Device) UseProgram(h uint32) {
	d.record("UseProgram", h)
	d.Program = h
}

// UniformLocation hands out a new location per name. Names starting
// with "missing" are reported as inactive.
func (d *Device) UniformLocation(program uint32, name string) int32 {
	d.record("UniformLocation", program, name)
	locs, ok := d.Locations[program]
	if !ok || strings.HasPrefix(name, "missing") {
		return -1
	}
	loc, ok := locs[name]
	if !ok {
		loc = int32(len(locs))
		locs[name] = loc
	}
	return loc
}

func (d *Device) setUniform(name string, program uint32, loc int32, v any) {
	d.record(name, program, loc, v)
	if u, ok := d.Uniforms[program]; ok {
		u[loc] = v
	}
}

// UniformValue returns the last value set for the named uniform.
func (d *Device) UniformValue(program uint32, name string) any {
	loc, ok := d.Locations[program][name]
	if !ok {
		return nil
	}
	return d.Uniforms[program][loc]
}

func (d *Device) ProgramUniformMat4(program uint32, loc int32, m mgl32.Mat4) {
	d.setUniform("ProgramUniformMat4", program, loc, m)
}

func (d *Device) ProgramUniformVec3(program uint32, loc int32, v mgl32.Vec3) {
	d.setUniform("ProgramUniformVec3", program, loc, v)
}

func (d *Device) ProgramUniformFloat(program uint32, loc int32, v float32) {
	d.setUniform("ProgramUniformFloat", program, loc, v)
}

func (d *Device) ProgramUniformInt(program uint32, loc int32, v int32) {
	d.setUniform("ProgramUniformInt", program, loc, v)
}

func (d *Device) CreatePipeline() uint32 {
	d.record("CreatePipeline")
	h := d.handle()
	d.Pipelines[h] = map[gpu.Stage]uint32{}
	return h
}

func (d *Device) UseProgramStages(pipeline uint32, stages gpu.StageMask, program uint32) {
	d.record("UseProgramStages", pipeline, stages, program)
	slots, ok := d.Pipelines[pipeline]
	if !ok {
		return
	}
	for _, s := range stages.Each() {
		slots[s] = program
	}
}

func (d *Device) BindPipeline(h uint32) {
	d.record("BindPipeline", h)
	d.Pipeline = h
}

func (d *Device) DeletePipeline(h uint32) {
	d.record("DeletePipeline", h)
	delete(d.Pipelines, h)
}

func (d *Device) CreateBuffer(size int, data []byte, flags gpu.StorageFlags) uint32 {
	d.record("CreateBuffer", size, flags)
	b := &Buffer{Data: make([]byte, size), Flags: flags}
	copy(b.Data, data)

	h := d.handle()
	d.Buffers[h] = b
	return h
}

func (d *Device) MapBufferRange(buffer uint32, offset, length int, access gpu.MapAccess) []byte {
	d.record("MapBufferRange", buffer, offset, length, access)
	b, ok := d.Buffers[buffer]
	if !ok || d.FailMap || b.Mapped || offset+length > len(b.Data) {
		return nil
	}
	if access&gpu.MapWrite != 0 && b.Flags&gpu.StorageMapWrite == 0 {
		return nil
	}
	if access&gpu.MapPersistent != 0 && b.Flags&gpu.StoragePersistent == 0 {
		return nil
	}
	if access&gpu.MapInvalidateBuffer != 0 {
		clear(b.Data)
	}

	b.Mapped = true
	b.Access = access
	return b.Data[offset : offset+length]
}

func (d *Device) UnmapBuffer(buffer uint32) bool {
	d.record("UnmapBuffer", buffer)
	b, ok := d.Buffers[buffer]
	if !ok || !b.Mapped {
		return false
	}
	b.Mapped = false
	return true
}

func (d *Device) BindUniformBufferRange(index, buffer uint32, offset, size int) {
	d.record("BindUniformBufferRange", index, buffer, offset, size)
	d.UniformBindings[index] = Range{Buffer: buffer, Offset: offset, Size: size}
}

func (d *Device) DeleteBuffer(h uint32) {
	d.record("DeleteBuffer", h)
	delete(d.Buffers, h)
}

func (d *Device) CreateVertexArray() uint32 {
	d.record("CreateVertexArray")
	h := d.handle()
	d.VertexArrays[h] = &VertexArray{
		Attribs:  map[uint32]Attrib{},
		Bindings: map[uint32]VertexBinding{},
	}
	return h
}

func (d *Device) VertexArrayAttrib(vao, attrib, binding uint32, size, relativeOffset int) {
	d.record("VertexArrayAttrib", vao, attrib, binding, size, relativeOffset)
	if v, ok := d.VertexArrays[vao]; ok {
		v.Attribs[attrib] = Attrib{Binding: binding, Size: size, Offset: relativeOffset}
	}
}

func (d *Device) VertexArrayVertexBuffer(vao, binding, buffer uint32, offset, stride int) {
	d.record("VertexArrayVertexBuffer", vao, binding, buffer, offset, stride)
	if v, ok := d.VertexArrays[vao]; ok {
		v.Bindings[binding] = VertexBinding{Buffer: buffer, Offset: offset, Stride: stride}
	}
}

func (d *Device) VertexArrayElementBuffer(vao, buffer uint32) {
	d.record("VertexArrayElementBuffer", vao, buffer)
	if v, ok := d.VertexArrays[vao]; ok {
		v.Elements = buffer
	}
}

func (d *Device) BindVertexArray(h uint32) {
	d.record("BindVertexArray", h)
	d.VertexArray = h
}

func (d *Device) DeleteVertexArray(h uint32) {
	d.record("DeleteVertexArray", h)
	delete(d.VertexArrays, h)
}

func (d *Device) CreateTexture2D(img *image.RGBA) uint32 {
	d.record("CreateTexture2D", img.Bounds())
	h := d.handle()
	d.Textures[h] = img
	return h
}

func (d *Device) BindTextureUnit(unit, texture uint32) {
	d.record("BindTextureUnit", unit, texture)
	d.TextureUnits[unit] = texture
}

func (d *Device) DeleteTexture(h uint32) {
	d.record("DeleteTexture", h)
	delete(d.Textures, h)
}

func (d *Device) FenceSync() gpu.Sync {
	d.record("FenceSync")
	s := gpu.Sync(d.handle())
	d.Syncs[s] = true
	return s
}

func (d *Device) ClientWaitSync(s gpu.Sync, timeout time.Duration) gpu.SyncStatus {
	d.record("ClientWaitSync", s, timeout)
	if !d.Syncs[s] {
		return gpu.SyncWaitFailed
	}
	if len(d.WaitResults) > 0 {
		r := d.WaitResults[0]
		d.WaitResults = d.WaitResults[1:]
		return r
	}
	return gpu.SyncAlreadySignaled
}

func (d *Device) DeleteSync(s gpu.Sync) {
	d.record("DeleteSync", s)
	delete(d.Syncs, s)
}

func (d *Device) Enable(c gpu.Capability) {
	d.record("Enable", c)
	d.Enabled[c] = true
}

func (d *Device) Disable(c gpu.Capability) {
	d.record("Disable", c)
	d.Enabled[c] = false
}

func (d *Device) DepthFunc(f gpu.CompareFunc) {
	d.record("DepthFunc", f)
	d.Depth = f
}

func (d *Device) BlendFunc(src, dst gpu.BlendFactor) {
	d.record("BlendFunc", src, dst)
	d.BlendSrc, d.BlendDst = src, dst
}

func (d *Device) PolygonMode(m gpu.PolygonMode) {
	d.record("PolygonMode", m)
	d.Polygon = m
}

func (d *Device) Viewport(x, y, width, height int) {
	d.record("Viewport", x, y, width, height)
	d.ViewportRect = [4]int{x, y, width, height}
}

func (d *Device) ClearColor(c mgl32.Vec4) {
	d.record("ClearColor", c)
	d.Clear = c
}

func (d *Device) ClearDepth(v float32) {
	d.record("ClearDepth", v)
	d.ClearDepthValue = v
}

func (d *Device) PatchVertices(n int) {
	d.record("PatchVertices", n)
	d.PatchSize = n
}

func (d *Device) snapshot() Draw {
	return Draw{
		PatchSize:   d.PatchSize,
		Program:     d.Program,
		Pipeline:    d.Pipeline,
		VertexArray: d.VertexArray,
		Uniforms:    maps.Clone(d.UniformBindings),
		Textures:    maps.Clone(d.TextureUnits),
	}
}

func (d *Device) DrawArrays(p gpu.Primitive, first, count int) {
	d.record("DrawArrays", p, first, count)
	draw := d.snapshot()
	draw.Primitive, draw.First, draw.Count, draw.Instances = p, first, count, 1
	d.Draws = append(d.Draws, draw)
}

func (d *Device) DrawElementsInstancedBaseVertex(p gpu.Primitive, count int, t gpu.IndexType, offset, instances, baseVertex int) {
	d.record("DrawElementsInstancedBaseVertex", p, count, t, offset, instances, baseVertex)
	draw := d.snapshot()
	draw.Primitive, draw.Count, draw.IndexType, draw.Indexed = p, count, t, true
	draw.Offset, draw.Instances, draw.BaseVertex = offset, instances, baseVertex
	d.Draws = append(d.Draws, draw)
}
