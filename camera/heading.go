package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/der-antikeks/glabs/input"
)

const (
	HeadingSpeed         = 0.005
	HeadingRotationSpeed = 0.005
	HeadingFar           = 100.0

	halfPi = 3.14 / 2
)

// Heading is steered by keyboard only: W/S move along the view
// direction, A/D turn left and right, E/Q look up and down.
// Angles are in radians.
type Heading struct {
	Position             mgl32.Vec3
	Horizontal, Vertical float32
}

func NewHeading() Heading {
	return Heading{
		Position:   mgl32.Vec3{0, 0, 3},
		Horizontal: 3.14,
	}
}

func (c Heading) Direction() mgl32.Vec3 {
	h, v := float64(c.Horizontal), float64(c.Vertical)
	return mgl32.Vec3{
		float32(math.Cos(v) * math.Sin(h)),
		float32(math.Sin(v)),
		float32(math.Cos(v) * math.Cos(h)),
	}
}

func (c Heading) Step(keys Keys) Heading {
	if keys.IsDown(input.KeyW) {
		c.Position = c.Position.Add(c.Direction().Normalize().Mul(HeadingSpeed))
	}
	if keys.IsDown(input.KeyS) {
		c.Position = c.Position.Sub(c.Direction().Normalize().Mul(HeadingSpeed))
	}
	if keys.IsDown(input.KeyD) {
		c.Horizontal -= HeadingRotationSpeed
	}
	if keys.IsDown(input.KeyA) {
		c.Horizontal += HeadingRotationSpeed
	}
	if keys.IsDown(input.KeyE) {
		c.Vertical += HeadingRotationSpeed
	}
	if keys.IsDown(input.KeyQ) {
		c.Vertical -= HeadingRotationSpeed
	}
	return c
}

func (c Heading) View() mgl32.Mat4 {
	dir := c.Direction()
	h := float64(c.Horizontal) - halfPi
	right := mgl32.Vec3{float32(math.Sin(h)), 0, float32(math.Cos(h))}
	up := right.Cross(dir)

	return mgl32.LookAtV(c.Position, c.Position.Add(dir), up)
}
