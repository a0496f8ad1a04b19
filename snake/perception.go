package snake

import (
	"math"

	"github.com/zeu5/snake-rl/types"
)

// distanceBucket discretizes a distance into 0..3
func distanceBucket(d float64) int {
	return min(int(math.Floor(math.RoundToEven(d)/2)), 3)
}

// Observe encodes the world as seen from the snake head: what the left,
// forward and right rays hit and how far, then the heading to the goal.
func Observe(w *World) types.State {
	head := w.Head()
	components := make([]types.Component, 0, 4)

	dir := w.Direction().Inverted()
	for i := 0; i < 3; i++ {
		dir = dir.Rotated(1)
		kind, hit := w.Raycast(head, dir)
		components = append(components, types.Component{
			Kind:     kind,
			Distance: distanceBucket(head.Distance(hit)),
		})
	}

	delta := w.Goal().Sub(head)
	degrees := AngleDifference(w.Direction().Angle(), delta.Angle()) * 180 / math.Pi
	angle := int(math.RoundToEven(degrees/45)) * 45
	if angle == -180 {
		angle = 180
	}
	components = append(components, types.Component{
		Kind:     angle,
		Distance: distanceBucket(head.Distance(w.Goal())),
	})
	return types.NewState(components...)
}
