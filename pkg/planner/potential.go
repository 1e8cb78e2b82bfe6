package planner

import (
	"math"

	"mover-go/pkg/coordinate"
	"mover-go/pkg/errors"
	"mover-go/pkg/log"
	"mover-go/pkg/polygon"
)

// Default potential-field parameters in micrometers.
const (
	// DefaultStepSize is the candidate advance per field update.
	DefaultStepSize = 10.0

	// DefaultMinClearance is the minimum allowed distance between two
	// stage polygons at any time during the move.
	DefaultMinClearance = 150.0

	// DefaultRepulsionRange is the polygon separation below which
	// repulsion starts acting.
	DefaultRepulsionRange = 600.0

	// DefaultRepulsionGain scales the repulsive term relative to the unit
	// attraction.
	DefaultRepulsionGain = 2.0

	// DefaultTolerance is the arrival distance to the target.
	DefaultTolerance = 1.0

	// DefaultMaxSteps bounds the iteration count outright.
	DefaultMaxSteps = 20000

	// DefaultProgressWindow is the number of consecutive steps without
	// aggregate progress after which the planner gives up.
	DefaultProgressWindow = 50

	// DefaultMaxWaypoints bounds the downsampled trajectory length.
	DefaultMaxWaypoints = 32

	// minImprovement is the aggregate distance reduction that counts as
	// progress.
	minImprovement = 1e-6
)

// PotentialField plans trajectories for two or more stages by iterative
// local optimization: every stage is attracted toward its target and
// repelled by the instantaneous distance to every other stage's polygon.
// Candidates advance simultaneously in discrete steps, in stable
// lexicographic stage order, and the field is re-evaluated after each step.
type PotentialField struct {
	StepSize       float64
	MinClearance   float64
	RepulsionRange float64
	RepulsionGain  float64
	Tolerance      float64
	MaxSteps       int
	ProgressWindow int
	MaxWaypoints   int

	logger *log.Logger
}

// NewPotentialField creates a potential-field planner with default
// parameters.
func NewPotentialField() *PotentialField {
	return &PotentialField{
		StepSize:       DefaultStepSize,
		MinClearance:   DefaultMinClearance,
		RepulsionRange: DefaultRepulsionRange,
		RepulsionGain:  DefaultRepulsionGain,
		Tolerance:      DefaultTolerance,
		MaxSteps:       DefaultMaxSteps,
		ProgressWindow: DefaultProgressWindow,
		MaxWaypoints:   DefaultMaxWaypoints,
		logger:         log.GetLogger("planner.potential-field"),
	}
}

// Name returns the strategy name.
func (p *PotentialField) Name() string { return "collision-avoidance" }

// Plan computes index-synchronized waypoint sequences for all stages. All
// returned sequences have equal length; stages that arrive early hold their
// final position.
func (p *PotentialField) Plan(req Request) (map[string][]coordinate.ChipCoordinate, error) {
	ids := req.stageIDs()
	if len(ids) < 2 {
		return nil, errors.PathPlanningError("collision-avoidance planner requires at least two stages")
	}
	for _, id := range ids {
		if req.Polygons[id] == nil {
			return nil, errors.PathPlanningError("no stage polygon configured for stage " + id)
		}
	}

	if err := p.checkEndpoints(req, ids); err != nil {
		return nil, err
	}

	// If the straight-line paths already keep every polygon pair clear,
	// the move decomposes into independent direct moves.
	if p.straightPathsClear(req, ids) {
		out := make(map[string][]coordinate.ChipCoordinate, len(ids))
		for _, id := range ids {
			out[id] = []coordinate.ChipCoordinate{req.States[id].Target}
		}
		return out, nil
	}

	return p.iterate(req, ids)
}

// checkEndpoints rejects plans that are impossible before iteration starts:
// overlapping polygons at the start or targets violating the clearance.
func (p *PotentialField) checkEndpoints(req Request, ids []string) error {
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			a, b := ids[i], ids[j]
			startA := req.Polygons[a].FootprintAt(xy(req.States[a].Current))
			startB := req.Polygons[b].FootprintAt(xy(req.States[b].Current))
			if polygon.Intersects(startA, startB) {
				return errors.PathPlanningError("stage polygons of " + a + " and " + b + " overlap at the start position")
			}
			endA := req.Polygons[a].FootprintAt(xy(req.States[a].Target))
			endB := req.Polygons[b].FootprintAt(xy(req.States[b].Target))
			if polygon.Separation(endA, endB) < p.MinClearance {
				return errors.PathPlanningError("target positions of " + a + " and " + b + " violate the minimum clearance")
			}
		}
	}
	return nil
}

// straightPathsClear samples the simultaneous linear interpolation of all
// stages and reports whether every polygon pair keeps the minimum clearance
// throughout.
func (p *PotentialField) straightPathsClear(req Request, ids []string) bool {
	var maxDist float64
	for _, id := range ids {
		if d := req.States[id].Target.Sub(req.States[id].Current).Norm(); d > maxDist {
			maxDist = d
		}
	}
	samples := int(math.Ceil(maxDist/p.StepSize)) + 1

	for s := 0; s <= samples; s++ {
		f := float64(s) / float64(samples)
		footprints := make([][]polygon.Point, len(ids))
		for i, id := range ids {
			st := req.States[id]
			pos := st.Current.Add(st.Target.Sub(st.Current).Scale(f))
			footprints[i] = req.Polygons[id].FootprintAt(xy(pos))
		}
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				if polygon.Separation(footprints[i], footprints[j]) < p.MinClearance {
					return false
				}
			}
		}
	}
	return true
}

// iterate runs the potential-field loop.
func (p *PotentialField) iterate(req Request, ids []string) (map[string][]coordinate.ChipCoordinate, error) {
	candidates := make(map[string]coordinate.ChipCoordinate, len(ids))
	trajectories := make(map[string][]coordinate.ChipCoordinate, len(ids))
	for _, id := range ids {
		candidates[id] = req.States[id].Current
	}

	bestAggregate := math.Inf(1)
	stall := 0

	for step := 0; step < p.MaxSteps; step++ {
		if p.allArrived(req, ids, candidates) {
			return p.finish(req, ids, trajectories), nil
		}

		for _, id := range ids {
			st := req.States[id]
			cand := candidates[id]
			remaining := st.Target.Sub(cand)
			if remaining.Norm() <= p.Tolerance {
				continue
			}

			force, repelled := p.fieldForce(req, ids, candidates, id)
			stepLen := p.StepSize
			if !repelled && remaining.Norm() < stepLen {
				stepLen = remaining.Norm()
			}
			norm := force.Norm()
			if norm < 1e-12 {
				continue
			}
			proposed := cand.Add(force.Scale(stepLen / norm))

			if p.violatesClearance(req, ids, candidates, id, proposed) {
				continue
			}
			candidates[id] = proposed
			trajectories[id] = append(trajectories[id], proposed)
		}

		aggregate := 0.0
		for _, id := range ids {
			aggregate += req.States[id].Target.Sub(candidates[id]).Norm()
		}
		if aggregate < bestAggregate-minImprovement {
			bestAggregate = aggregate
			stall = 0
		} else {
			stall++
			if stall >= p.ProgressWindow {
				p.logger.Warn("no aggregate progress for %d steps at step %d", stall, step)
				return nil, errors.NoProgressError(step + 1)
			}
		}
	}

	return nil, errors.NoProgressError(p.MaxSteps)
}

// fieldForce evaluates the attractive-plus-repulsive field for one stage at
// its current candidate position. The boolean reports whether any repulsion
// acted.
func (p *PotentialField) fieldForce(req Request, ids []string, candidates map[string]coordinate.ChipCoordinate, id string) (coordinate.ChipCoordinate, bool) {
	st := req.States[id]
	cand := candidates[id]

	remaining := st.Target.Sub(cand)
	norm := remaining.Norm()
	force := coordinate.ChipCoordinate{}
	if norm > 1e-12 {
		force = remaining.Scale(1 / norm)
	}

	own := req.Polygons[id].FootprintAt(xy(cand))
	ownCenter := polygon.Centroid(own)

	repelled := false
	for _, other := range ids {
		if other == id {
			continue
		}
		otherFoot := req.Polygons[other].FootprintAt(xy(candidates[other]))
		d := polygon.Separation(own, otherFoot)
		if d >= p.RepulsionRange {
			continue
		}
		repelled = true

		// Repulsion grows sharply as the separation approaches the
		// minimum clearance.
		gap := d - p.MinClearance
		if gap < 1.0 {
			gap = 1.0
		}
		magnitude := p.RepulsionGain * (p.RepulsionRange - d) / (p.RepulsionRange * gap) * p.MinClearance

		away := polygon.Point{
			X: ownCenter.X - polygon.Centroid(otherFoot).X,
			Y: ownCenter.Y - polygon.Centroid(otherFoot).Y,
		}
		awayNorm := away.Norm()
		if awayNorm < 1e-12 {
			continue
		}
		force.X += away.X / awayNorm * magnitude
		force.Y += away.Y / awayNorm * magnitude
	}
	return force, repelled
}

// violatesClearance tests a proposed candidate against the latest positions
// of all other stages.
func (p *PotentialField) violatesClearance(req Request, ids []string, candidates map[string]coordinate.ChipCoordinate, id string, proposed coordinate.ChipCoordinate) bool {
	own := req.Polygons[id].FootprintAt(xy(proposed))
	for _, other := range ids {
		if other == id {
			continue
		}
		otherFoot := req.Polygons[other].FootprintAt(xy(candidates[other]))
		if polygon.Separation(own, otherFoot) < p.MinClearance {
			return true
		}
	}
	return false
}

// allArrived reports whether every candidate is within tolerance of its
// target.
func (p *PotentialField) allArrived(req Request, ids []string, candidates map[string]coordinate.ChipCoordinate) bool {
	for _, id := range ids {
		if req.States[id].Target.Sub(candidates[id]).Norm() > p.Tolerance {
			return false
		}
	}
	return true
}

// finish downsamples the trajectories to the waypoint budget, pads them to
// equal length and pins the final waypoint to the exact target.
func (p *PotentialField) finish(req Request, ids []string, trajectories map[string][]coordinate.ChipCoordinate) map[string][]coordinate.ChipCoordinate {
	out := make(map[string][]coordinate.ChipCoordinate, len(ids))
	maxLen := 0
	for _, id := range ids {
		wps := downsample(trajectories[id], p.MaxWaypoints-1)
		wps = append(wps, req.States[id].Target)
		out[id] = wps
		if len(wps) > maxLen {
			maxLen = len(wps)
		}
	}
	// Pad shorter sequences by holding the final position, keeping
	// waypoint indices synchronized across stages.
	for _, id := range ids {
		for len(out[id]) < maxLen {
			out[id] = append(out[id], out[id][len(out[id])-1])
		}
	}
	return out
}

// downsample keeps at most max evenly spaced points of a trajectory.
func downsample(traj []coordinate.ChipCoordinate, max int) []coordinate.ChipCoordinate {
	if max <= 0 || len(traj) == 0 {
		return nil
	}
	if len(traj) <= max {
		out := make([]coordinate.ChipCoordinate, len(traj))
		copy(out, traj)
		return out
	}
	out := make([]coordinate.ChipCoordinate, 0, max)
	stride := float64(len(traj)) / float64(max)
	for i := 0; i < max; i++ {
		out = append(out, traj[int(float64(i)*stride)])
	}
	return out
}

// xy projects a chip coordinate onto the planning plane.
func xy(c coordinate.ChipCoordinate) polygon.Point {
	return polygon.Point{X: c.X, Y: c.Y}
}
