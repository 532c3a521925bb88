package camera

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/der-antikeks/glabs/input"
)

const (
	// cursor pixels per degree of rotation
	OrbitDivisor = 10
	// scroll notches per unit of distance
	ZoomDivisor = 8

	FieldOfView = 45.0
	Near        = 0.1
	Far         = 1000.0
)

// Orbit rotates the model in front of the viewer by dragging with the
// left mouse button and moves it away with the scroll wheel.
// Angles are in degrees.
type Orbit struct {
	Yaw, Pitch float32
	Zoom       float32

	Captured         bool
	CursorX, CursorY float64
}

func NewOrbit() Orbit {
	return Orbit{Zoom: 4}
}

// Apply returns the state after handling m.
func (o Orbit) Apply(m input.Message) Orbit {
	switch e := m.(type) {
	case input.MessageMouseButton:
		if e.Button != input.MouseLeft {
			break
		}
		switch e.Action {
		case input.Press:
			o.Captured = true
			o.CursorX, o.CursorY = e.X, e.Y
		case input.Release:
			o.Captured = false
		}

	case input.MessageMouseMove:
		if !o.Captured {
			break
		}
		o.Yaw += float32(e.X-o.CursorX) / OrbitDivisor
		o.Pitch += float32(e.Y-o.CursorY) / OrbitDivisor
		o.CursorX, o.CursorY = e.X, e.Y

	case input.MessageMouseScroll:
		o.Zoom -= float32(e.Y) / ZoomDivisor
		if o.Zoom < 0 {
			o.Zoom = 0
		}
	}
	return o
}

// View returns Translate(0,0,-zoom) * RotateX(pitch) * RotateY(yaw).
func (o Orbit) View() mgl32.Mat4 {
	return mgl32.Translate3D(0, 0, -o.Zoom).
		Mul4(mgl32.HomogRotate3DX(mgl32.DegToRad(o.Pitch))).
		Mul4(mgl32.HomogRotate3DY(mgl32.DegToRad(o.Yaw)))
}

// MVP combines projection, view and an identity model matrix.
func (o Orbit) MVP(aspect float32) mgl32.Mat4 {
	return Perspective(aspect, Far).Mul4(o.View()).Mul4(mgl32.Ident4())
}

// Perspective uses the fixed 45 degree field of view of all labs.
func Perspective(aspect, far float32) mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(FieldOfView), aspect, Near, far)
}

// Aspect guards against zero sized framebuffers (minimized windows).
func Aspect(width, height int) float32 {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return float32(width) / float32(height)
}
