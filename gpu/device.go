/*
	gpu wraps the subset of OpenGL 4.5 used by the labs.

	Resources are created through a Device so that everything above the
	driver (shader stages, programs, pipelines, buffers, the transform
	block) can be exercised without a graphics context, see gputest.

	Handles are the raw GL object names; zero means "none".
*/
package gpu

import (
	"image"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// Device is implemented by glcore on top of a current GL context.
// All methods must be called from the thread owning the context.
type Device interface {
	Renderer() string
	Version() string
	UniformBufferOffsetAlignment() int

	// CreateShader compiles src and returns the handle, the info log and
	// whether compilation succeeded. A failed shader is already deleted.
	CreateShader(stage Stage, src string) (handle uint32, log string, ok bool)
	DeleteShader(handle uint32)

	// CreateProgram attaches, links and detaches shaders. A failed program
	// is already deleted.
	CreateProgram(shaders []uint32, separable bool) (handle uint32, log string, ok bool)
	DeleteProgram(handle uint32)
	UseProgram(handle uint32)
	UniformLocation(program uint32, name string) int32
	ProgramUniformMat4(program uint32, location int32, m mgl32.Mat4)
	ProgramUniformVec3(program uint32, location int32, v mgl32.Vec3)
	ProgramUniformFloat(program uint32, location int32, v float32)
	ProgramUniformInt(program uint32, location int32, v int32)

	CreatePipeline() uint32
	UseProgramStages(pipeline uint32, stages StageMask, program uint32)
	BindPipeline(pipeline uint32)
	DeletePipeline(pipeline uint32)

	// CreateBuffer allocates immutable storage of size bytes, initialized
	// from data when data is not nil.
	CreateBuffer(size int, data []byte, flags StorageFlags) uint32
	// MapBufferRange returns a CPU view of length bytes at offset.
	MapBufferRange(buffer uint32, offset, length int, access MapAccess) []byte
	UnmapBuffer(buffer uint32) bool
	BindUniformBufferRange(index, buffer uint32, offset, size int)
	DeleteBuffer(buffer uint32)

	CreateVertexArray() uint32
	// VertexArrayAttrib enables a float attribute of size components
	// sourced from the given binding.
	VertexArrayAttrib(vao, attrib, binding uint32, size, relativeOffset int)
	VertexArrayVertexBuffer(vao, binding, buffer uint32, offset, stride int)
	VertexArrayElementBuffer(vao, buffer uint32)
	BindVertexArray(vao uint32)
	DeleteVertexArray(vao uint32)

	CreateTexture2D(img *image.RGBA) uint32
	BindTextureUnit(unit, texture uint32)
	DeleteTexture(texture uint32)

	FenceSync() Sync
	ClientWaitSync(s Sync, timeout time.Duration) SyncStatus
	DeleteSync(s Sync)

	Enable(c Capability)
	Disable(c Capability)
	DepthFunc(f CompareFunc)
	BlendFunc(src, dst BlendFactor)
	PolygonMode(m PolygonMode)
	Viewport(x, y, width, height int)
	// ClearColor and ClearDepth clear the default framebuffer's color and
	// depth buffer to the given value.
	ClearColor(c mgl32.Vec4)
	ClearDepth(d float32)

	PatchVertices(n int)
	DrawArrays(p Primitive, first, count int)
	DrawElementsInstancedBaseVertex(p Primitive, count int, t IndexType, offset, instances, baseVertex int)
}

type Stage int

const (
	VertexStage Stage = iota
	TessControlStage
	TessEvaluationStage
	GeometryStage
	FragmentStage
)

var stageNames = map[Stage]string{
	VertexStage:         "vertex",
	TessControlStage:    "tessellation control",
	TessEvaluationStage: "tessellation evaluation",
	GeometryStage:       "geometry",
	FragmentStage:       "fragment",
}

func (s Stage) String() string {
	if n, ok := stageNames[s]; ok {
		return n
	}
	return "unknown"
}

// Mask returns the pipeline slot bit of the stage.
func (s Stage) Mask() StageMask {
	return 1 << StageMask(s)
}

// StageMask selects pipeline slots.
type StageMask uint32

func Stages(stages ...Stage) StageMask {
	var m StageMask
	for _, s := range stages {
		m |= s.Mask()
	}
	return m
}

func (m StageMask) Has(s Stage) bool {
	return m&s.Mask() != 0
}

// Each returns the stages contained in the mask in pipeline order.
func (m StageMask) Each() []Stage {
	var r []Stage
	for s := VertexStage; s <= FragmentStage; s++ {
		if m.Has(s) {
			r = append(r, s)
		}
	}
	return r
}

type StorageFlags uint32

const (
	StorageDynamic StorageFlags = 1 << iota
	StorageMapRead
	StorageMapWrite
	StoragePersistent
	StorageCoherent
)

type MapAccess uint32

const (
	MapRead MapAccess = 1 << iota
	MapWrite
	MapPersistent
	MapCoherent
	MapInvalidateRange
	MapInvalidateBuffer
	MapUnsynchronized
)

type Sync uintptr

type SyncStatus int

const (
	SyncAlreadySignaled SyncStatus = iota
	SyncConditionSatisfied
	SyncTimeoutExpired
	SyncWaitFailed
)

type Capability int

const (
	DepthTest Capability = iota
	Blend
	CullFace
)

type CompareFunc int

const (
	Less CompareFunc = iota
	LessEqual
	Always
)

type BlendFactor int

const (
	Zero BlendFactor = iota
	One
	SrcAlpha
	OneMinusSrcAlpha
)

type PolygonMode int

const (
	Fill PolygonMode = iota
	Line
)

type Primitive int

const (
	Triangles Primitive = iota
	Lines
	Patches
)

type IndexType int

const (
	Uint16 IndexType = iota
	Uint32
)
