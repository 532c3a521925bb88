// Package glcore implements gpu.Device with OpenGL 4.5 core direct state
// access calls. A context must be current on the calling thread.
package glcore

import (
	"context"
	"image"
	"log/slog"
	"time"
	"unsafe"

	"github.com/go-gl/gl/v4.5-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/der-antikeks/glabs/gpu"
)

type Device struct {
	log *slog.Logger
}

// New loads the GL function pointers of the current context. With a non
// nil logger driver debug messages are forwarded to it.
func New(log *slog.Logger) (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, err
	}

	d := &Device{log: log}
	if log != nil {
		gl.Enable(gl.DEBUG_OUTPUT)
		gl.DebugMessageCallback(d.debug, nil)
	}
	return d, nil
}

func (d *Device) debug(source, gltype, id, severity uint32, _ int32, message string, _ unsafe.Pointer) {
	level := slog.LevelDebug
	switch severity {
	case gl.DEBUG_SEVERITY_HIGH:
		level = slog.LevelError
	case gl.DEBUG_SEVERITY_MEDIUM:
		level = slog.LevelWarn
	case gl.DEBUG_SEVERITY_LOW:
		level = slog.LevelInfo
	}
	d.log.Log(context.Background(), level, "gl", "source", source, "type", gltype, "id", id, "message", message)
}

func (d *Device) Renderer() string {
	return gl.GoStr(gl.GetString(gl.RENDERER))
}

func (d *Device) Version() string {
	return gl.GoStr(gl.GetString(gl.VERSION))
}

func (d *Device) UniformBufferOffsetAlignment() int {
	var a int32
	gl.GetIntegerv(gl.UNIFORM_BUFFER_OFFSET_ALIGNMENT, &a)
	return int(a)
}

var shaderTypes = map[gpu.Stage]uint32{
	gpu.VertexStage:         gl.VERTEX_SHADER,
	gpu.TessControlStage:    gl.TESS_CONTROL_SHADER,
	gpu.TessEvaluationStage: gl.TESS_EVALUATION_SHADER,
	gpu.GeometryStage:       gl.GEOMETRY_SHADER,
	gpu.FragmentStage:       gl.FRAGMENT_SHADER,
}

func (d *Device) CreateShader(stage gpu.Stage, src string) (uint32, string, bool) {
	h := gl.CreateShader(shaderTypes[stage])

	csrc, free := gl.Strs(src + "\x00")
	gl.ShaderSource(h, 1, csrc, nil)
	free()
	gl.CompileShader(h)

	var status int32
	gl.GetShaderiv(h, gl.COMPILE_STATUS, &status)

	var size int32
	gl.GetShaderiv(h, gl.INFO_LOG_LENGTH, &size)
	log := infoLog(size, func(l *int32, b *uint8) { gl.GetShaderInfoLog(h, size, l, b) })

	if status == gl.FALSE {
		gl.DeleteShader(h)
		return 0, log, false
	}
	return h, log, true
}

func infoLog(size int32, get func(*int32, *uint8)) string {
	if size <= 0 {
		return ""
	}
	b := make([]uint8, size+1)
	var l int32
	get(&l, &b[0])
	return string(b[:l])
}

func (d *Device) DeleteShader(h uint32) {
	gl.DeleteShader(h)
}

func (d *Device) CreateProgram(shaders []uint32, separable bool) (uint32, string, bool) {
	h := gl.CreateProgram()
	if separable {
		gl.ProgramParameteri(h, gl.PROGRAM_SEPARABLE, gl.TRUE)
	}

	for _, s := range shaders {
		gl.AttachShader(h, s)
	}
	gl.LinkProgram(h)
	for _, s := range shaders {
		gl.DetachShader(h, s)
	}

	var status int32
	gl.GetProgramiv(h, gl.LINK_STATUS, &status)

	var size int32
	gl.GetProgramiv(h, gl.INFO_LOG_LENGTH, &size)
	log := infoLog(size, func(l *int32, b *uint8) { gl.GetProgramInfoLog(h, size, l, b) })

	if status == gl.FALSE {
		gl.DeleteProgram(h)
		return 0, log, false
	}
	return h, log, true
}

func (d *Device) DeleteProgram(h uint32) {
	gl.DeleteProgram(h)
}

func (d *Device) UseProgram(h uint32) {
	gl.UseProgram(h)
}

func (d *Device) UniformLocation(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}

func (d *Device) ProgramUniformMat4(program uint32, loc int32, m mgl32.Mat4) {
	gl.ProgramUniformMatrix4fv(program, loc, 1, false, &m[0])
}

func (d *Device) ProgramUniformVec3(program uint32, loc int32, v mgl32.Vec3) {
	gl.ProgramUniform3fv(program, loc, 1, &v[0])
}

func (d *Device) ProgramUniformFloat(program uint32, loc int32, v float32) {
	gl.ProgramUniform1f(program, loc, v)
}

func (d *Device) ProgramUniformInt(program uint32, loc int32, v int32) {
	gl.ProgramUniform1i(program, loc, v)
}

var stageBits = map[gpu.Stage]uint32{
	gpu.VertexStage:         gl.VERTEX_SHADER_BIT,
	gpu.TessControlStage:    gl.TESS_CONTROL_SHADER_BIT,
	gpu.TessEvaluationStage: gl.TESS_EVALUATION_SHADER_BIT,
	gpu.GeometryStage:       gl.GEOMETRY_SHADER_BIT,
	gpu.FragmentStage:       gl.FRAGMENT_SHADER_BIT,
}

func (d *Device) CreatePipeline() uint32 {
	var h uint32
	gl.CreateProgramPipelines(1, &h)
	return h
}

func (d *Device) UseProgramStages(pipeline uint32, stages gpu.StageMask, program uint32) {
	var bits uint32
	for _, s := range stages.Each() {
		bits |= stageBits[s]
	}
	gl.UseProgramStages(pipeline, bits, program)
}

func (d *Device) BindPipeline(h uint32) {
	gl.BindProgramPipeline(h)
}

func (d *Device) DeletePipeline(h uint32) {
	gl.DeleteProgramPipelines(1, &h)
}

func storageFlags(f gpu.StorageFlags) uint32 {
	var r uint32
	for bit, v := range map[gpu.StorageFlags]uint32{
		gpu.StorageDynamic:    gl.DYNAMIC_STORAGE_BIT,
		gpu.StorageMapRead:    gl.MAP_READ_BIT,
		gpu.StorageMapWrite:   gl.MAP_WRITE_BIT,
		gpu.StoragePersistent: gl.MAP_PERSISTENT_BIT,
		gpu.StorageCoherent:   gl.MAP_COHERENT_BIT,
	} {
		if f&bit != 0 {
			r |= v
		}
	}
	return r
}

func mapAccess(a gpu.MapAccess) uint32 {
	var r uint32
	for bit, v := range map[gpu.MapAccess]uint32{
		gpu.MapRead:             gl.MAP_READ_BIT,
		gpu.MapWrite:            gl.MAP_WRITE_BIT,
		gpu.MapPersistent:       gl.MAP_PERSISTENT_BIT,
		gpu.MapCoherent:         gl.MAP_COHERENT_BIT,
		gpu.MapInvalidateRange:  gl.MAP_INVALIDATE_RANGE_BIT,
		gpu.MapInvalidateBuffer: gl.MAP_INVALIDATE_BUFFER_BIT,
		gpu.MapUnsynchronized:   gl.MAP_UNSYNCHRONIZED_BIT,
	} {
		if a&bit != 0 {
			r |= v
		}
	}
	return r
}

func (d *Device) CreateBuffer(size int, data []byte, flags gpu.StorageFlags) uint32 {
	var h uint32
	gl.CreateBuffers(1, &h)

	var ptr unsafe.Pointer
	if len(data) > 0 {
		ptr = gl.Ptr(data)
	}
	gl.NamedBufferStorage(h, size, ptr, storageFlags(flags))
	return h
}

func (d *Device) MapBufferRange(buffer uint32, offset, length int, access gpu.MapAccess) []byte {
	ptr := gl.MapNamedBufferRange(buffer, offset, length, mapAccess(access))
	if ptr == nil {
		return nil
	}
	return unsafe.Slice((*byte)(ptr), length)
}

func (d *Device) UnmapBuffer(buffer uint32) bool {
	return gl.UnmapNamedBuffer(buffer)
}

func (d *Device) BindUniformBufferRange(index, buffer uint32, offset, size int) {
	gl.BindBufferRange(gl.UNIFORM_BUFFER, index, buffer, offset, size)
}

func (d *Device) DeleteBuffer(h uint32) {
	gl.DeleteBuffers(1, &h)
}

func (d *Device) CreateVertexArray() uint32 {
	var h uint32
	gl.CreateVertexArrays(1, &h)
	return h
}

func (d *Device) VertexArrayAttrib(vao, attrib, binding uint32, size, relativeOffset int) {
	gl.EnableVertexArrayAttrib(vao, attrib)
	gl.VertexArrayAttribFormat(vao, attrib, int32(size), gl.FLOAT, false, uint32(relativeOffset))
	gl.VertexArrayAttribBinding(vao, attrib, binding)
}

func (d *Device) VertexArrayVertexBuffer(vao, binding, buffer uint32, offset, stride int) {
	gl.VertexArrayVertexBuffer(vao, binding, buffer, offset, int32(stride))
}

func (d *Device) VertexArrayElementBuffer(vao, buffer uint32) {
	gl.VertexArrayElementBuffer(vao, buffer)
}

func (d *Device) BindVertexArray(h uint32) {
	gl.BindVertexArray(h)
}

func (d *Device) DeleteVertexArray(h uint32) {
	gl.DeleteVertexArrays(1, &h)
}

// CreateTexture2D uploads img with a full mipmap chain and repeat
// wrapping.
func (d *Device) CreateTexture2D(img *image.RGBA) uint32 {
	w, h := int32(img.Rect.Dx()), int32(img.Rect.Dy())

	levels := int32(1)
	for s := max(w, h); s > 1; s >>= 1 {
		levels++
	}

	var t uint32
	gl.CreateTextures(gl.TEXTURE_2D, 1, &t)
	gl.TextureStorage2D(t, levels, gl.RGBA8, w, h)
	gl.TextureSubImage2D(t, 0, 0, 0, w, h, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))

	gl.TextureParameteri(t, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TextureParameteri(t, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.TextureParameteri(t, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TextureParameteri(t, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.GenerateTextureMipmap(t)
	return t
}

func (d *Device) BindTextureUnit(unit, texture uint32) {
	gl.BindTextureUnit(unit, texture)
}

func (d *Device) DeleteTexture(h uint32) {
	gl.DeleteTextures(1, &h)
}

func (d *Device) FenceSync() gpu.Sync {
	return gpu.Sync(gl.FenceSync(gl.SYNC_GPU_COMMANDS_COMPLETE, 0))
}

func (d *Device) ClientWaitSync(s gpu.Sync, timeout time.Duration) gpu.SyncStatus {
	switch gl.ClientWaitSync(uintptr(s), gl.SYNC_FLUSH_COMMANDS_BIT, uint64(timeout.Nanoseconds())) {
	case gl.ALREADY_SIGNALED:
		return gpu.SyncAlreadySignaled
	case gl.CONDITION_SATISFIED:
		return gpu.SyncConditionSatisfied
	case gl.TIMEOUT_EXPIRED:
		return gpu.SyncTimeoutExpired
	default:
		return gpu.SyncWaitFailed
	}
}

func (d *Device) DeleteSync(s gpu.Sync) {
	gl.DeleteSync(uintptr(s))
}

var capabilities = map[gpu.Capability]uint32{
	gpu.DepthTest: gl.DEPTH_TEST,
	gpu.Blend:     gl.BLEND,
	gpu.CullFace:  gl.CULL_FACE,
}

func (d *Device) Enable(c gpu.Capability) {
	gl.Enable(capabilities[c])
}

func (d *Device) Disable(c gpu.Capability) {
	gl.Disable(capabilities[c])
}

var compareFuncs = map[gpu.CompareFunc]uint32{
	gpu.Less:      gl.LESS,
	gpu.LessEqual: gl.LEQUAL,
	gpu.Always:    gl.ALWAYS,
}

func (d *Device) DepthFunc(f gpu.CompareFunc) {
	gl.DepthFunc(compareFuncs[f])
}

var blendFactors = map[gpu.BlendFactor]uint32{
	gpu.Zero:             gl.ZERO,
	gpu.One:              gl.ONE,
	gpu.SrcAlpha:         gl.SRC_ALPHA,
	gpu.OneMinusSrcAlpha: gl.ONE_MINUS_SRC_ALPHA,
}

func (d *Device) BlendFunc(src, dst gpu.BlendFactor) {
	gl.BlendFunc(blendFactors[src], blendFactors[dst])
}

func (d *Device) PolygonMode(m gpu.PolygonMode) {
	mode := uint32(gl.FILL)
	if m == gpu.Line {
		mode = gl.LINE
	}
	gl.PolygonMode(gl.FRONT_AND_BACK, mode)
}

func (d *Device) Viewport(x, y, width, height int) {
	gl.Viewport(int32(x), int32(y), int32(width), int32(height))
}

func (d *Device) ClearColor(c mgl32.Vec4) {
	gl.ClearNamedFramebufferfv(0, gl.COLOR, 0, &c[0])
}

func (d *Device) ClearDepth(v float32) {
	gl.ClearNamedFramebufferfv(0, gl.DEPTH, 0, &v)
}

func (d *Device) PatchVertices(n int) {
	gl.PatchParameteri(gl.PATCH_VERTICES, int32(n))
}

var primitives = map[gpu.Primitive]uint32{
	gpu.Triangles: gl.TRIANGLES,
	gpu.Lines:     gl.LINES,
	gpu.Patches:   gl.PATCHES,
}

func (d *Device) DrawArrays(p gpu.Primitive, first, count int) {
	gl.DrawArrays(primitives[p], int32(first), int32(count))
}

func (d *Device) DrawElementsInstancedBaseVertex(p gpu.Primitive, count int, t gpu.IndexType, offset, instances, baseVertex int) {
	xtype := uint32(gl.UNSIGNED_SHORT)
	if t == gpu.Uint32 {
		xtype = gl.UNSIGNED_INT
	}
	gl.DrawElementsInstancedBaseVertex(primitives[p], int32(count), xtype, gl.PtrOffset(offset), int32(instances), int32(baseVertex))
}
