package polygon

import (
	"math"
)

// Default physical parameters in micrometers. The arm length only needs to
// exceed the real arm length; the planner treats everything under it as
// occupied.
const (
	DefaultFiberDiameter   = 125.0
	DefaultArmDiameter     = 5e3
	DefaultArmLength       = 8e4
	defaultCircleSegments  = 16
)

// FiberShape is an optical fiber tip: a circular cross-section approximated
// as a regular polygon, followed by the fiber arm extending toward +X.
type FiberShape struct {
	Diameter    float64
	ArmDiameter float64
	ArmLength   float64
}

// NewFiberShape creates a fiber shape with the default physical dimensions.
func NewFiberShape() *FiberShape {
	return &FiberShape{
		Diameter:    DefaultFiberDiameter,
		ArmDiameter: DefaultArmDiameter,
		ArmLength:   DefaultArmLength,
	}
}

// Name returns the shape's registry key.
func (s *FiberShape) Name() string { return "fiber" }

// Outline returns the convex hull of the tip circle and the arm rectangle:
// a half circle around the origin closed by the arm sides.
func (s *FiberShape) Outline() []Point {
	r := s.Diameter / 2
	half := s.ArmDiameter / 2

	// Counter-clockwise: arm top edge, half circle on the -X side of the
	// tip, arm bottom edge.
	pts := []Point{
		{s.ArmLength, half},
	}
	n := defaultCircleSegments / 2
	for i := 0; i <= n; i++ {
		// from +90° to +270° through 180° (the -X side)
		a := math.Pi/2 + math.Pi*float64(i)/float64(n)
		pts = append(pts, Point{r * math.Cos(a), r * math.Sin(a)})
	}
	pts = append(pts, Point{s.ArmLength, -half})
	// Already counter-clockwise: top edge runs right to left, the arc
	// descends the -X side, the closing edge ascends at +X.
	return pts
}

// ProbeShape is an electrical probe: a tapered tip widening into the probe
// arm, matching the five-point outline of the physical probe holder.
type ProbeShape struct {
	TipLength   float64
	ArmDiameter float64
	ArmLength   float64
}

// NewProbeShape creates a probe shape with the default physical dimensions.
func NewProbeShape() *ProbeShape {
	return &ProbeShape{
		TipLength:   DefaultArmDiameter / 2,
		ArmDiameter: DefaultArmDiameter,
		ArmLength:   DefaultArmLength,
	}
}

// Name returns the shape's registry key.
func (s *ProbeShape) Name() string { return "probe" }

// Outline returns the probe outline: tip at the origin, tapering out to the
// arm width over TipLength, then the arm rectangle toward +X.
func (s *ProbeShape) Outline() []Point {
	half := s.ArmDiameter / 2
	pts := []Point{
		{0, 0},
		{s.TipLength, half},
		{s.ArmLength, half},
		{s.ArmLength, -half},
		{s.TipLength, -half},
	}
	return reverse(pts)
}

// reverse flips vertex order so clockwise definitions become counter-clockwise.
func reverse(pts []Point) []Point {
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}

// shapeFactories maps shape names to constructors. The planner and
// calibration core only ever see the Shape interface.
var shapeFactories = map[string]func() Shape{
	"fiber": func() Shape { return NewFiberShape() },
	"probe": func() Shape { return NewProbeShape() },
}

// NewShape creates a shape by registry key.
func NewShape(name string) (Shape, bool) {
	f, ok := shapeFactories[name]
	if !ok {
		return nil, false
	}
	return f(), true
}

// RegisterShape adds a shape constructor under a registry key, replacing any
// existing registration.
func RegisterShape(name string, factory func() Shape) {
	shapeFactories[name] = factory
}

// SupportedShapes returns the registered shape names.
func SupportedShapes() []string {
	names := make([]string, 0, len(shapeFactories))
	for n := range shapeFactories {
		names = append(names, n)
	}
	return names
}
