package gpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// Transform is the uniform block read by the shaders, std140 layout.
type Transform struct {
	MVP mgl32.Mat4
}

var TransformSize = int(unsafe.Sizeof(Transform{}))

// Put writes the column-major matrix into dst in native byte order.
func (t Transform) Put(dst []byte) {
	for i, v := range t.MVP {
		binary.NativeEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
}

// BlockSize is the size of one uniform block holding size bytes: binding
// smaller ranges than the offset alignment is undefined on some drivers.
func BlockSize(size, alignment int) int {
	return max(size, alignment)
}

// AlignUp rounds n up to the next multiple of alignment.
func AlignUp(n, alignment int) int {
	if alignment <= 1 {
		return n
	}
	return (n + alignment - 1) / alignment * alignment
}

// TransformBlock delivers one Transform per frame to uniform binding
// points.
type TransformBlock interface {
	// Write stores t in the block used by the current frame.
	Write(t Transform) error
	// Bind attaches the current block to binding point index.
	Bind(index uint32)
	// Retire is called after the last draw reading the current block.
	Retire()
	Dispose()
}

var ErrMapFailed = errors.New("could not map transform buffer")

// TransformRing keeps n blocks in one persistently and coherently mapped
// buffer. Every frame writes the next block, blocks still read by the
// GPU are waited for with a fence.
type TransformRing struct {
	dev    Device
	buffer *Buffer
	mapped []byte

	block, stride int
	fences        []Sync
	current, next int

	// WaitTimeout bounds a single fence wait, waiting continues while
	// the fence reports a timeout.
	WaitTimeout time.Duration
}

func NewTransformRing(dev Device, n int) (*TransformRing, error) {
	if n < 1 {
		return nil, fmt.Errorf("transform ring needs at least one block, got %v", n)
	}

	alignment := dev.UniformBufferOffsetAlignment()
	block := BlockSize(TransformSize, alignment)
	stride := AlignUp(block, alignment)

	buffer := NewStorage(dev, stride*n, StorageMapWrite|StoragePersistent|StorageCoherent)
	mapped := dev.MapBufferRange(buffer.Handle(), 0, stride*n, MapWrite|MapPersistent|MapCoherent)
	if len(mapped) < stride*n {
		buffer.Dispose()
		return nil, ErrMapFailed
	}

	return &TransformRing{
		dev:         dev,
		buffer:      buffer,
		mapped:      mapped,
		block:       block,
		stride:      stride,
		fences:      make([]Sync, n),
		WaitTimeout: time.Second,
	}, nil
}

func (r *TransformRing) Write(t Transform) error {
	slot := r.next
	if f := r.fences[slot]; f != 0 {
		if err := r.wait(f); err != nil {
			return err
		}
		r.dev.DeleteSync(f)
		r.fences[slot] = 0
	}

	t.Put(r.mapped[slot*r.stride:])
	r.current = slot
	return nil
}

func (r *TransformRing) wait(f Sync) error {
	for {
		switch r.dev.ClientWaitSync(f, r.WaitTimeout) {
		case SyncAlreadySignaled, SyncConditionSatisfied:
			return nil
		case SyncWaitFailed:
			return errors.New("waiting for transform block fence failed")
		}
	}
}

func (r *TransformRing) Bind(index uint32) {
	r.dev.BindUniformBufferRange(index, r.buffer.Handle(), r.Offset(), r.block)
}

func (r *TransformRing) Retire() {
	r.fences[r.current] = r.dev.FenceSync()
	r.next = (r.current + 1) % len(r.fences)
}

// Offset of the current block.
func (r *TransformRing) Offset() int {
	return r.current * r.stride
}

func (r *TransformRing) BlockSize() int {
	return r.block
}

func (r *TransformRing) Buffer() *Buffer {
	return r.buffer
}

func (r *TransformRing) Dispose() {
	for i, f := range r.fences {
		if f != 0 {
			r.dev.DeleteSync(f)
			r.fences[i] = 0
		}
	}
	if r.buffer.Handle() != 0 {
		r.dev.UnmapBuffer(r.buffer.Handle())
		r.buffer.Dispose()
	}
	r.mapped = nil
}

// InvalidatingTransform is a single block mapped every frame with the
// invalidate hint, so the driver can hand out fresh memory instead of
// stalling on pending reads.
type InvalidatingTransform struct {
	dev    Device
	buffer *Buffer
	block  int
}

func NewInvalidatingTransform(dev Device) *InvalidatingTransform {
	block := BlockSize(TransformSize, dev.UniformBufferOffsetAlignment())
	return &InvalidatingTransform{
		dev:    dev,
		buffer: NewStorage(dev, block, StorageMapWrite|StoragePersistent|StorageCoherent),
		block:  block,
	}
}

func (b *InvalidatingTransform) Write(t Transform) error {
	mapped := b.dev.MapBufferRange(b.buffer.Handle(), 0, b.block, MapWrite|MapInvalidateBuffer)
	if len(mapped) < TransformSize {
		return ErrMapFailed
	}
	t.Put(mapped)

	if !b.dev.UnmapBuffer(b.buffer.Handle()) {
		return errors.New("transform buffer contents were lost while mapped")
	}
	return nil
}

func (b *InvalidatingTransform) Bind(index uint32) {
	b.dev.BindUniformBufferRange(index, b.buffer.Handle(), 0, b.block)
}

func (b *InvalidatingTransform) Retire() {}

func (b *InvalidatingTransform) BlockSize() int {
	return b.block
}

func (b *InvalidatingTransform) Buffer() *Buffer {
	return b.buffer
}

func (b *InvalidatingTransform) Dispose() {
	b.buffer.Dispose()
}
