package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/der-antikeks/glabs/input"
)

// Keys reports held keys, see input.KeyState.
type Keys interface {
	IsDown(input.Key) bool
}

const (
	FlySensitivity = 0.1
	FlySpeed       = 0.05
	FlyTimeStep    = 0.1
	FlyMaxPitch    = 89.0
)

// Fly is a first person camera, WASD moves and the mouse looks around.
type Fly struct {
	Position, Front, Up mgl32.Vec3
	Yaw, Pitch          float32

	Tracking         bool
	CursorX, CursorY float64
}

func NewFly() Fly {
	return Fly{
		Position: mgl32.Vec3{0, 0, 3},
		Front:    mgl32.Vec3{0, 0, -1},
		Up:       mgl32.Vec3{0, 1, 0},
		Yaw:      -90,
	}
}

// Apply turns the camera by the cursor movement. The first movement
// only establishes the reference position.
func (c Fly) Apply(m input.Message) Fly {
	e, ok := m.(input.MessageMouseMove)
	if !ok {
		return c
	}
	if !c.Tracking {
		c.Tracking = true
		c.CursorX, c.CursorY = e.X, e.Y
		return c
	}

	xoff := float32(e.X-c.CursorX) * FlySensitivity
	yoff := float32(c.CursorY-e.Y) * FlySensitivity
	c.CursorX, c.CursorY = e.X, e.Y

	c.Yaw += xoff
	c.Pitch = mgl32.Clamp(c.Pitch+yoff, -FlyMaxPitch, FlyMaxPitch)

	yaw, pitch := float64(mgl32.DegToRad(c.Yaw)), float64(mgl32.DegToRad(c.Pitch))
	c.Front = mgl32.Vec3{
		float32(math.Cos(yaw) * math.Cos(pitch)),
		float32(math.Sin(pitch)),
		float32(math.Sin(yaw) * math.Cos(pitch)),
	}.Normalize()
	return c
}

// Step moves the camera once per frame according to the held keys.
func (c Fly) Step(keys Keys) Fly {
	d := float32(FlySpeed * FlyTimeStep)
	right := c.Front.Cross(c.Up).Normalize()

	if keys.IsDown(input.KeyW) {
		c.Position = c.Position.Add(c.Front.Mul(d))
	}
	if keys.IsDown(input.KeyS) {
		c.Position = c.Position.Sub(c.Front.Mul(d))
	}
	if keys.IsDown(input.KeyA) {
		c.Position = c.Position.Sub(right.Mul(d))
	}
	if keys.IsDown(input.KeyD) {
		c.Position = c.Position.Add(right.Mul(d))
	}
	return c
}

func (c Fly) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Position.Add(c.Front), c.Up)
}
