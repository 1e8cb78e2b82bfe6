package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mover-go/pkg/coordinate"
	"mover-go/pkg/errors"
	"mover-go/pkg/polygon"
)

// twoStageRequest builds a request for a left and a right fiber stage with
// the given current and target positions.
func twoStageRequest(leftCur, leftTgt, rightCur, rightTgt coordinate.ChipCoordinate) Request {
	return Request{
		States: map[string]StageState{
			"left":  {Current: leftCur, Target: leftTgt},
			"right": {Current: rightCur, Target: rightTgt},
		},
		Polygons: map[string]*polygon.StagePolygon{
			"left":  polygon.New(polygon.NewFiberShape(), polygon.Left),
			"right": polygon.New(polygon.NewFiberShape(), polygon.Right),
		},
	}
}

func TestPotentialFieldRequiresTwoStages(t *testing.T) {
	p := NewPotentialField()
	_, err := p.Plan(Request{States: map[string]StageState{"a": {}}})
	assert.Error(t, err)
}

func TestPotentialFieldRequiresPolygons(t *testing.T) {
	p := NewPotentialField()
	req := Request{States: map[string]StageState{"a": {}, "b": {}}}
	_, err := p.Plan(req)
	assert.Error(t, err)
}

// Stages that never come close decompose into independent direct moves.
func TestPotentialFieldDirectWhenPathsClear(t *testing.T) {
	req := twoStageRequest(
		coordinate.ChipCoordinate{X: -2000, Y: 0},
		coordinate.ChipCoordinate{X: -2000, Y: 800},
		coordinate.ChipCoordinate{X: 2000, Y: 0},
		coordinate.ChipCoordinate{X: 2000, Y: 800},
	)

	p := NewPotentialField()
	wps, err := p.Plan(req)
	require.NoError(t, err)

	require.Len(t, wps["left"], 1)
	require.Len(t, wps["right"], 1)
	assert.Equal(t, req.States["left"].Target, wps["left"][0])
	assert.Equal(t, req.States["right"].Target, wps["right"][0])
}

func TestPotentialFieldDeterministic(t *testing.T) {
	req := twoStageRequest(
		coordinate.ChipCoordinate{X: -2000, Y: 0},
		coordinate.ChipCoordinate{X: -2000, Y: 800},
		coordinate.ChipCoordinate{X: 2000, Y: 0},
		coordinate.ChipCoordinate{X: 2000, Y: 800},
	)

	a, err := NewPotentialField().Plan(req)
	require.NoError(t, err)
	b, err := NewPotentialField().Plan(req)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

// squareShape is a compact test footprint without a tool arm, so endpoint
// swaps stay geometrically valid.
type squareShape struct {
	half float64
}

func (s squareShape) Name() string { return "square" }

func (s squareShape) Outline() []polygon.Point {
	h := s.half
	return []polygon.Point{{X: -h, Y: -h}, {X: h, Y: -h}, {X: h, Y: h}, {X: -h, Y: h}}
}

// Two stages facing each other and asked to swap positions have no sideways
// escape in a symmetric field; the planner must detect the deadlock instead
// of iterating forever.
func TestPotentialFieldHeadOnSwapReportsNoProgress(t *testing.T) {
	req := Request{
		States: map[string]StageState{
			"left":  {Current: coordinate.ChipCoordinate{X: -500}, Target: coordinate.ChipCoordinate{X: 500}},
			"right": {Current: coordinate.ChipCoordinate{X: 500}, Target: coordinate.ChipCoordinate{X: -500}},
		},
		Polygons: map[string]*polygon.StagePolygon{
			"left":  polygon.New(squareShape{half: 10}, polygon.Left),
			"right": polygon.New(squareShape{half: 10}, polygon.Right),
		},
	}

	p := NewPotentialField()
	_, err := p.Plan(req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNoProgress), "got %v", err)
}

func TestPotentialFieldRejectsOverlapAtStart(t *testing.T) {
	// Tips 10um apart: the footprints overlap before the move begins.
	req := twoStageRequest(
		coordinate.ChipCoordinate{X: -5, Y: 0},
		coordinate.ChipCoordinate{X: -1000, Y: 0},
		coordinate.ChipCoordinate{X: 5, Y: 0},
		coordinate.ChipCoordinate{X: 1000, Y: 0},
	)

	p := NewPotentialField()
	_, err := p.Plan(req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrPathPlanning), "got %v", err)
}

func TestPotentialFieldRejectsTargetsTooClose(t *testing.T) {
	// Start far apart but targets within the minimum clearance.
	req := twoStageRequest(
		coordinate.ChipCoordinate{X: -2000, Y: 0},
		coordinate.ChipCoordinate{X: -100, Y: 0},
		coordinate.ChipCoordinate{X: 2000, Y: 0},
		coordinate.ChipCoordinate{X: 100, Y: 0},
	)

	p := NewPotentialField()
	_, err := p.Plan(req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrPathPlanning), "got %v", err)
}

func TestDownsampleBoundsWaypoints(t *testing.T) {
	traj := make([]coordinate.ChipCoordinate, 500)
	for i := range traj {
		traj[i] = coordinate.ChipCoordinate{X: float64(i)}
	}

	out := downsample(traj, 31)
	require.Len(t, out, 31)
	// Order preserved.
	for i := 1; i < len(out); i++ {
		assert.Greater(t, out[i].X, out[i-1].X)
	}

	short := downsample(traj[:10], 31)
	assert.Len(t, short, 10)
}
