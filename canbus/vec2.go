package canbus

import "fmt"

// Vec2 holds a normalized joystick deflection in x and y terms. Components
// are clamped to [-1.0, 1.0] at construction; treat values as immutable.
type Vec2 struct {
	X float64
	Y float64
}

// NewVec2 builds a Vec2 with both components clamped to [-1.0, 1.0].
func NewVec2(x, y float64) Vec2 {
	return Vec2{X: clampUnit(x), Y: clampUnit(y)}
}

func clampUnit(v float64) float64 {
	if v < -1.0 {
		return -1.0
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}

func (v Vec2) String() string {
	return fmt.Sprintf("(%0.2f, %0.2f)", v.X, v.Y)
}
