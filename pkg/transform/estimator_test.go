package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"mover-go/pkg/coordinate"
)

func identityMapping() coordinate.AxesMapping {
	return coordinate.DefaultAxesMapping()
}

func flippedYMapping() coordinate.AxesMapping {
	return coordinate.AxesMapping{
		{Axis: coordinate.AxisX, Direction: coordinate.Positive},
		{Axis: coordinate.AxisY, Direction: coordinate.Negative},
		{Axis: coordinate.AxisZ, Direction: coordinate.Positive},
	}
}

func TestEstimateAxes(t *testing.T) {
	tr, err := EstimateAxes(flippedYMapping())
	require.NoError(t, err)
	assert.Equal(t, TierAxes, tr.Tier())
	assert.Equal(t, coordinate.ChipCoordinate{}, tr.Translation())

	d := tr.StageDeltaToChip(coordinate.StageCoordinate{X: 1, Y: 2, Z: 3})
	assert.InDelta(t, 1, d.X, 1e-12)
	assert.InDelta(t, -2, d.Y, 1e-12)
	assert.InDelta(t, 3, d.Z, 1e-12)

	back := tr.ChipDeltaToStage(d)
	assert.InDelta(t, 1, back.X, 1e-12)
	assert.InDelta(t, 2, back.Y, 1e-12)
	assert.InDelta(t, 3, back.Z, 1e-12)
}

func TestEstimateAxesInvalidMapping(t *testing.T) {
	bad := coordinate.AxesMapping{
		{Axis: coordinate.AxisX, Direction: coordinate.Positive},
		{Axis: coordinate.AxisX, Direction: coordinate.Negative},
		{Axis: coordinate.AxisZ, Direction: coordinate.Positive},
	}
	_, err := EstimateAxes(bad)
	assert.Error(t, err)
}

func TestEstimateEmpty(t *testing.T) {
	_, err := Estimate(nil, identityMapping())
	assert.Error(t, err)
}

func TestEstimateSinglePoint(t *testing.T) {
	pair := Pairing{
		Stage: coordinate.StageCoordinate{X: 1, Y: 2, Z: 3},
		Chip:  coordinate.ChipCoordinate{X: 10, Y: 20, Z: 30},
	}
	tr, err := Estimate([]Pairing{pair}, identityMapping())
	require.NoError(t, err)
	assert.Equal(t, TierSinglePoint, tr.Tier())

	got := tr.StageToChip(pair.Stage)
	assert.InDelta(t, pair.Chip.X, got.X, 1e-12)
	assert.InDelta(t, pair.Chip.Y, got.Y, 1e-12)
	assert.InDelta(t, pair.Chip.Z, got.Z, 1e-12)

	back := tr.ChipToStage(pair.Chip)
	assert.InDelta(t, pair.Stage.X, back.X, 1e-12)
	assert.InDelta(t, pair.Stage.Y, back.Y, 1e-12)
	assert.InDelta(t, pair.Stage.Z, back.Z, 1e-12)
}

// Two pairings cannot resolve rotation about the line through them, so the
// estimator must treat them like one.
func TestEstimateTwoPairingsStaySinglePoint(t *testing.T) {
	pairs := []Pairing{
		{Stage: coordinate.StageCoordinate{}, Chip: coordinate.ChipCoordinate{X: 5}},
		{Stage: coordinate.StageCoordinate{X: 1}, Chip: coordinate.ChipCoordinate{X: 6}},
	}
	tr, err := Estimate(pairs, identityMapping())
	require.NoError(t, err)
	assert.Equal(t, TierSinglePoint, tr.Tier())

	// The first pairing maps exactly.
	got := tr.StageToChip(pairs[0].Stage)
	assert.InDelta(t, 5, got.X, 1e-12)
}

func TestEstimateFullKabsch(t *testing.T) {
	// Ground truth: 90 degree rotation about Z plus a translation.
	rotate := func(s coordinate.StageCoordinate) coordinate.ChipCoordinate {
		return coordinate.ChipCoordinate{X: -s.Y + 5, Y: s.X - 3, Z: s.Z + 2}
	}

	stagePoints := []coordinate.StageCoordinate{
		{X: 0, Y: 0, Z: 0},
		{X: 100, Y: 0, Z: 0},
		{X: 0, Y: 100, Z: 0},
		{X: 30, Y: 40, Z: 50},
	}
	pairs := make([]Pairing, len(stagePoints))
	for i, s := range stagePoints {
		pairs[i] = Pairing{Stage: s, Chip: rotate(s)}
	}

	tr, err := Estimate(pairs, identityMapping())
	require.NoError(t, err)
	assert.Equal(t, TierFull, tr.Tier())

	// The mapping ignores the axes mapping entirely at this tier.
	for _, p := range pairs {
		got := tr.StageToChip(p.Stage)
		assert.InDelta(t, p.Chip.X, got.X, 1e-9)
		assert.InDelta(t, p.Chip.Y, got.Y, 1e-9)
		assert.InDelta(t, p.Chip.Z, got.Z, 1e-9)
	}

	// Proper rotation, no reflection.
	assert.InDelta(t, 1.0, mat.Det(tr.Rotation()), 1e-9)

	assert.InDelta(t, 0, RMSError(tr, pairs), 1e-9)
}

// A reflection would fit mirrored data better, but stages are rigid bodies;
// the determinant correction must keep det(R) = +1 even for noisy input.
func TestEstimateFullProperRotationOnNoisyData(t *testing.T) {
	pairs := []Pairing{
		{Stage: coordinate.StageCoordinate{X: 0, Y: 0, Z: 0}, Chip: coordinate.ChipCoordinate{X: 0.3, Y: -0.1, Z: 0}},
		{Stage: coordinate.StageCoordinate{X: 100, Y: 0, Z: 0}, Chip: coordinate.ChipCoordinate{X: 100.2, Y: 0.4, Z: -0.2}},
		{Stage: coordinate.StageCoordinate{X: 0, Y: 100, Z: 0}, Chip: coordinate.ChipCoordinate{X: -0.3, Y: 99.8, Z: 0.1}},
		{Stage: coordinate.StageCoordinate{X: 0, Y: 0, Z: 100}, Chip: coordinate.ChipCoordinate{X: 0.1, Y: 0.2, Z: 100.3}},
	}
	tr, err := Estimate(pairs, identityMapping())
	require.NoError(t, err)
	assert.InDelta(t, 1.0, mat.Det(tr.Rotation()), 1e-9)
	assert.Less(t, RMSError(tr, pairs), 1.0)
}

func TestEstimateFullCollinear(t *testing.T) {
	pairs := []Pairing{
		{Stage: coordinate.StageCoordinate{X: 0}, Chip: coordinate.ChipCoordinate{X: 0}},
		{Stage: coordinate.StageCoordinate{X: 10}, Chip: coordinate.ChipCoordinate{X: 10}},
		{Stage: coordinate.StageCoordinate{X: 20}, Chip: coordinate.ChipCoordinate{X: 20}},
	}
	_, err := Estimate(pairs, identityMapping())
	assert.Error(t, err)
}

func TestRMSErrorReportsResidual(t *testing.T) {
	tr, err := EstimateAxes(identityMapping())
	require.NoError(t, err)

	pairs := []Pairing{
		{Stage: coordinate.StageCoordinate{X: 0}, Chip: coordinate.ChipCoordinate{X: 3, Y: 4}},
	}
	assert.InDelta(t, 5.0, RMSError(tr, pairs), 1e-12)
}

func TestChipToStageRoundTrip(t *testing.T) {
	pair := Pairing{
		Stage: coordinate.StageCoordinate{X: -7, Y: 11, Z: 2},
		Chip:  coordinate.ChipCoordinate{X: 4, Y: -9, Z: 6},
	}
	tr, err := Estimate([]Pairing{pair}, flippedYMapping())
	require.NoError(t, err)

	p := coordinate.ChipCoordinate{X: 123.4, Y: -56.7, Z: 8.9}
	back := tr.StageToChip(tr.ChipToStage(p))
	assert.InDelta(t, p.X, back.X, 1e-9)
	assert.InDelta(t, p.Y, back.Y, 1e-9)
	assert.InDelta(t, p.Z, back.Z, 1e-9)
}

func TestTierString(t *testing.T) {
	assert.Equal(t, "axes", TierAxes.String())
	assert.Equal(t, "single-point", TierSinglePoint.String())
	assert.Equal(t, "full", TierFull.String())
}
