// Package counter turns track trajectories into directional crossing events
// over a virtual line and maintains enter/exit/occupancy counts.
package counter

import "math"

// Direction labels the two sides of the counting line and the direction of
// a crossing event.
type Direction string

const (
	// DirectionEnter is the side with negative signed distance.
	DirectionEnter Direction = "enter"
	// DirectionExit is the side with non-negative signed distance.
	DirectionExit Direction = "exit"
)

// Orientation is descriptive metadata for how a line was placed. Side
// classification does not depend on it; swapping the two endpoints is the
// way to flip the enter/exit convention.
type Orientation string

const (
	// OrientationHorizontal marks a line spanning the frame width.
	OrientationHorizontal Orientation = "horizontal"
	// OrientationVertical marks a line spanning the frame height.
	OrientationVertical Orientation = "vertical"
)

// Line is a counting line defined by two endpoints.
type Line struct {
	X1, Y1      float64
	X2, Y2      float64
	Orientation Orientation
}

// PlaceLine builds a counting line across a frame of the given dimensions:
// a horizontal line at the fractional height pos, or a vertical line at the
// fractional width pos.
func PlaceLine(frameWidth, frameHeight int, orientation Orientation, pos float64) Line {
	if orientation == OrientationVertical {
		x := float64(frameWidth) * pos
		return Line{X1: x, Y1: 0, X2: x, Y2: float64(frameHeight), Orientation: orientation}
	}
	y := float64(frameHeight) * pos
	return Line{X1: 0, Y1: y, X2: float64(frameWidth), Y2: y, Orientation: OrientationHorizontal}
}

// coefficients returns the implicit form a*x + b*y + c = 0 of the line.
func (l Line) coefficients() (a, b, c float64) {
	a = l.Y2 - l.Y1
	b = -(l.X2 - l.X1)
	c = (l.X2-l.X1)*l.Y1 - (l.Y2-l.Y1)*l.X1
	return a, b, c
}

// SignedDistance returns the perpendicular distance from a point to the
// line. The sign identifies the side. A degenerate line (coincident
// endpoints) yields 0 for every point.
func (l Line) SignedDistance(x, y float64) float64 {
	a, b, c := l.coefficients()
	norm := a*a + b*b
	if norm == 0 {
		return 0
	}
	return (a*x + b*y + c) / math.Sqrt(norm)
}

// Side classifies which side of the line a point is on. The convention is
// fixed: negative distance is the enter side, zero or positive the exit
// side, regardless of the line's declared orientation.
func (l Line) Side(x, y float64) Direction {
	if l.SignedDistance(x, y) < 0 {
		return DirectionEnter
	}
	return DirectionExit
}
