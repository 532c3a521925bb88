package gpu

import (
	"image"
	"unsafe"
)

// Buffer is a buffer object with immutable storage.
type Buffer struct {
	dev    Device
	handle uint32
	size   int
}

// NewBuffer uploads data once. Without flags the contents can never be
// changed by the CPU again.
func NewBuffer(dev Device, data []byte, flags StorageFlags) *Buffer {
	return &Buffer{
		dev:    dev,
		handle: dev.CreateBuffer(len(data), data, flags),
		size:   len(data),
	}
}

// NewStorage allocates size uninitialized bytes.
func NewStorage(dev Device, size int, flags StorageFlags) *Buffer {
	return &Buffer{
		dev:    dev,
		handle: dev.CreateBuffer(size, nil, flags),
		size:   size,
	}
}

func (b *Buffer) Handle() uint32 {
	return b.handle
}

func (b *Buffer) Size() int {
	return b.size
}

func (b *Buffer) Dispose() {
	if b.handle == 0 {
		return
	}
	b.dev.DeleteBuffer(b.handle)
	b.handle = 0
}

// Bytes reinterprets a slice of plain values (floats, vectors, indices)
// as its raw memory.
func Bytes[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(zero)))
}

// VertexArray holds the attribute layout and the buffers feeding it.
type VertexArray struct {
	dev    Device
	handle uint32
}

func NewVertexArray(dev Device) *VertexArray {
	return &VertexArray{
		dev:    dev,
		handle: dev.CreateVertexArray(),
	}
}

func (v *VertexArray) Handle() uint32 {
	return v.handle
}

// Attrib declares float attribute attrib with size components at
// relativeOffset inside each element of binding.
func (v *VertexArray) Attrib(attrib, binding uint32, size, relativeOffset int) *VertexArray {
	v.dev.VertexArrayAttrib(v.handle, attrib, binding, size, relativeOffset)
	return v
}

func (v *VertexArray) VertexBuffer(binding uint32, b *Buffer, offset, stride int) *VertexArray {
	v.dev.VertexArrayVertexBuffer(v.handle, binding, b.Handle(), offset, stride)
	return v
}

func (v *VertexArray) ElementBuffer(b *Buffer) *VertexArray {
	v.dev.VertexArrayElementBuffer(v.handle, b.Handle())
	return v
}

func (v *VertexArray) Bind() {
	v.dev.BindVertexArray(v.handle)
}

func (v *VertexArray) Dispose() {
	if v.handle == 0 {
		return
	}
	v.dev.DeleteVertexArray(v.handle)
	v.handle = 0
}

type Texture struct {
	dev           Device
	handle        uint32
	Width, Height int
}

func NewTexture(dev Device, img *image.RGBA) *Texture {
	return &Texture{
		dev:    dev,
		handle: dev.CreateTexture2D(img),
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
	}
}

func (t *Texture) Handle() uint32 {
	return t.handle
}

func (t *Texture) Bind(unit uint32) {
	t.dev.BindTextureUnit(unit, t.handle)
}

func (t *Texture) Dispose() {
	if t.handle == 0 {
		return
	}
	t.dev.DeleteTexture(t.handle)
	t.handle = 0
}
