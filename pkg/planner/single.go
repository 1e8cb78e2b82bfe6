package planner

import (
	"mover-go/pkg/coordinate"
	"mover-go/pkg/errors"
)

// Default single-stage parameters in micrometers.
const (
	// DefaultClearanceHeight is the chip-frame Z every XY traverse happens
	// at when the move would otherwise intersect the sample plane.
	DefaultClearanceHeight = 20.0

	// xyTolerance below which no XY traverse is considered necessary.
	xyTolerance = 1e-9
)

// SingleStage plans for exactly one stage. If both endpoints sit at or above
// the clearance height a direct move is safe; otherwise the stage lifts to
// the clearance height, traverses in XY, and descends to the target.
type SingleStage struct {
	ClearanceHeight float64
}

// NewSingleStage creates a single-stage planner with the default clearance.
func NewSingleStage() *SingleStage {
	return &SingleStage{ClearanceHeight: DefaultClearanceHeight}
}

// Name returns the strategy name.
func (p *SingleStage) Name() string { return "single-stage" }

// Plan produces between one and three waypoints for the single stage in the
// request.
func (p *SingleStage) Plan(req Request) (map[string][]coordinate.ChipCoordinate, error) {
	if len(req.States) != 1 {
		return nil, errors.PathPlanningError("single-stage planner requires exactly one stage")
	}

	var id string
	var st StageState
	for k, v := range req.States {
		id, st = k, v
	}

	xyDistance := st.Target.Sub(st.Current).NormXY()

	// No XY traverse, or both endpoints safely above the sample plane:
	// one direct 3D move suffices.
	if xyDistance < xyTolerance ||
		(st.Current.Z >= p.ClearanceHeight && st.Target.Z >= p.ClearanceHeight) {
		return map[string][]coordinate.ChipCoordinate{id: {st.Target}}, nil
	}

	// Lift, traverse at the clearance height, descend.
	height := p.ClearanceHeight
	if st.Current.Z > height {
		height = st.Current.Z
	}
	if st.Target.Z > height {
		height = st.Target.Z
	}

	waypoints := make([]coordinate.ChipCoordinate, 0, 3)
	if st.Current.Z < height {
		waypoints = append(waypoints, coordinate.ChipCoordinate{X: st.Current.X, Y: st.Current.Y, Z: height})
	}
	waypoints = append(waypoints, coordinate.ChipCoordinate{X: st.Target.X, Y: st.Target.Y, Z: height})
	if st.Target.Z != height {
		waypoints = append(waypoints, st.Target)
	}

	return map[string][]coordinate.ChipCoordinate{id: waypoints}, nil
}
