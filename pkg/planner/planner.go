// Package planner computes collision-free waypoint sequences for one or more
// stages moving concurrently over the same chip surface.
//
// Two strategies are provided: a single-stage planner that lifts over the
// sample plane when needed, and a potential-field planner that treats every
// other stage's polygon as a moving obstacle. The mover selects the strategy
// by the number of stages involved in a move.
package planner

import (
	"sort"

	"mover-go/pkg/coordinate"
	"mover-go/pkg/polygon"
)

// StageState is the current and target chip-frame position of one stage.
type StageState struct {
	Current coordinate.ChipCoordinate
	Target  coordinate.ChipCoordinate
}

// Request is the planning input: per-stage states and footprints, keyed by
// stage identifier.
type Request struct {
	States   map[string]StageState
	Polygons map[string]*polygon.StagePolygon
}

// stageIDs returns the stage identifiers in lexicographic order. All
// planners iterate stages in this order so results are deterministic for
// identical inputs.
func (r Request) stageIDs() []string {
	ids := make([]string, 0, len(r.States))
	for id := range r.States {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Planner computes an ordered waypoint sequence per stage. Waypoint indices
// are synchronized across stages: the mover completes index i on every stage
// before advancing to i+1.
type Planner interface {
	// Name returns the strategy name.
	Name() string

	// Plan computes the waypoint sequences.
	Plan(req Request) (map[string][]coordinate.ChipCoordinate, error)
}

// Select returns the planning strategy for the given number of stages.
func Select(stageCount int) Planner {
	if stageCount <= 1 {
		return NewSingleStage()
	}
	return NewPotentialField()
}
