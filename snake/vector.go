package snake

import (
	"fmt"
	"math"
)

// Vector is a grid position or a unit direction
type Vector struct {
	X int
	Y int
}

func (v Vector) Add(o Vector) Vector {
	return Vector{v.X + o.X, v.Y + o.Y}
}

func (v Vector) Sub(o Vector) Vector {
	return Vector{v.X - o.X, v.Y - o.Y}
}

func (v Vector) Inverted() Vector {
	return Vector{-v.X, -v.Y}
}

// Rotated turns the vector by quarters multiples of +90 degrees.
// With y growing downwards a positive quarter turns clockwise.
func (v Vector) Rotated(quarters int) Vector {
	r := v
	for i := 0; i < ((quarters%4)+4)%4; i++ {
		r = Vector{-r.Y, r.X}
	}
	return r
}

// Angle in radians
func (v Vector) Angle() float64 {
	return math.Atan2(float64(v.Y), float64(v.X))
}

func (v Vector) Distance(o Vector) float64 {
	return math.Hypot(float64(v.X-o.X), float64(v.Y-o.Y))
}

// IsDirection reports if v is one of the four unit directions
func (v Vector) IsDirection() bool {
	return (v.X == 0) != (v.Y == 0) && v.X*v.X+v.Y*v.Y == 1
}

func (v Vector) String() string {
	return fmt.Sprintf("(%d, %d)", v.X, v.Y)
}

// AngleDifference returns beta - alpha normalized to (-pi, pi]
func AngleDifference(alpha, beta float64) float64 {
	a := beta - alpha
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
