// Package polygon models the 2D footprint that a stage's tool projects onto
// the chip plane, and the geometric predicates the path planners need to keep
// footprints apart.
package polygon

import (
	"math"
	"strings"
)

// Point is a 2D point in chip-frame XY.
type Point struct {
	X, Y float64
}

// Sub returns the vector from o to p.
func (p Point) Sub(o Point) Point {
	return Point{p.X - o.X, p.Y - o.Y}
}

// Add returns the component-wise sum.
func (p Point) Add(o Point) Point {
	return Point{p.X + o.X, p.Y + o.Y}
}

// Scale returns the point multiplied by a scalar.
func (p Point) Scale(f float64) Point {
	return Point{p.X * f, p.Y * f}
}

// Norm returns the euclidean length of the point as a vector.
func (p Point) Norm() float64 {
	return math.Hypot(p.X, p.Y)
}

// Orientation is the side of the chip a stage's tool approaches from. The
// tool arm extends away from the chip toward its own side.
type Orientation int

const (
	Left Orientation = iota
	Right
	Top
	Bottom
)

// String returns the capitalized orientation name.
func (o Orientation) String() string {
	switch o {
	case Left:
		return "Left"
	case Right:
		return "Right"
	case Top:
		return "Top"
	case Bottom:
		return "Bottom"
	default:
		return "Unknown"
	}
}

// ParseOrientation parses an orientation name, case-insensitively.
func ParseOrientation(s string) (Orientation, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left":
		return Left, true
	case "right":
		return Right, true
	case "top":
		return Top, true
	case "bottom":
		return Bottom, true
	default:
		return 0, false
	}
}

// Shape is a static tool outline in the tool's local frame: the tool tip sits
// at the origin and the arm extends toward +X. Outlines must be convex and
// wound counter-clockwise.
type Shape interface {
	// Name returns the shape's registry key.
	Name() string

	// Outline returns the local-frame outline vertices.
	Outline() []Point
}

// StagePolygon binds a static shape to a stage's orientation. The footprint
// is recomputed for every position update; the polygon itself holds no
// position state.
type StagePolygon struct {
	shape       Shape
	orientation Orientation
}

// New creates a stage polygon for a tool shape approaching from the given
// side of the chip.
func New(shape Shape, orientation Orientation) *StagePolygon {
	return &StagePolygon{shape: shape, orientation: orientation}
}

// Shape returns the static shape definition.
func (p *StagePolygon) Shape() Shape {
	return p.shape
}

// Orientation returns the configured approach side.
func (p *StagePolygon) Orientation() Orientation {
	return p.orientation
}

// FootprintAt returns the chip-frame outline of the tool with its tip at pos.
// The local +X arm direction is rotated to point toward the configured side
// so the arm never protrudes over the sample past the tip.
func (p *StagePolygon) FootprintAt(pos Point) []Point {
	local := p.shape.Outline()
	out := make([]Point, len(local))
	for i, v := range local {
		r := rotateToSide(v, p.orientation)
		out[i] = Point{X: r.X + pos.X, Y: r.Y + pos.Y}
	}
	return out
}

// rotateToSide rotates a local-frame point (arm toward +X) so the arm points
// toward the given chip side. Quarter-turn rotations preserve winding.
func rotateToSide(v Point, o Orientation) Point {
	switch o {
	case Right:
		return v
	case Left:
		return Point{-v.X, -v.Y}
	case Top:
		return Point{-v.Y, v.X}
	case Bottom:
		return Point{v.Y, -v.X}
	default:
		return v
	}
}
