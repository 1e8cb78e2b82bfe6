// Package transform estimates and applies the rigid transform between a
// stage's native coordinate frame and the shared chip coordinate frame.
//
// The forward transform maps stage to chip: chip = R*stage + t, with R an
// orthonormal proper rotation (det +1, scale 1). The inverse direction uses
// the transpose of R.
package transform

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"mover-go/pkg/coordinate"
)

// Tier describes how much information the transform was estimated from.
type Tier int

const (
	// TierAxes: rotation from the axes mapping only, zero translation.
	// Good for relative chip-frame moves, not for absolute positions.
	TierAxes Tier = iota

	// TierSinglePoint: axes-mapping rotation plus a translation fixed by
	// one coordinate pairing. Approximate absolute transform.
	TierSinglePoint

	// TierFull: least-squares rigid fit over three or more pairings.
	TierFull
)

func (t Tier) String() string {
	switch t {
	case TierAxes:
		return "axes"
	case TierSinglePoint:
		return "single-point"
	case TierFull:
		return "full"
	default:
		return "unknown"
	}
}

// Pairing is one matched observation of the same physical location in both
// frames. Immutable once created.
type Pairing struct {
	Stage coordinate.StageCoordinate `json:"stage"`
	Chip  coordinate.ChipCoordinate  `json:"chip"`
}

func (p Pairing) String() string {
	return fmt.Sprintf("stage=%s chip=%s", p.Stage, p.Chip)
}

// Transform is a rigid stage-to-chip transform.
type Transform struct {
	rotation    *mat.Dense // 3x3 orthonormal
	translation coordinate.ChipCoordinate
	tier        Tier
}

// Tier returns the estimation tier of the transform.
func (t *Transform) Tier() Tier {
	return t.tier
}

// Rotation returns a copy of the 3x3 rotation matrix.
func (t *Transform) Rotation() *mat.Dense {
	r := mat.NewDense(3, 3, nil)
	r.Copy(t.rotation)
	return r
}

// Translation returns the translation component in chip frame.
func (t *Transform) Translation() coordinate.ChipCoordinate {
	return t.translation
}

// StageToChip maps a stage-frame point into chip frame.
func (t *Transform) StageToChip(s coordinate.StageCoordinate) coordinate.ChipCoordinate {
	v := t.apply(t.rotation, s.ToSlice())
	return coordinate.ChipCoordinate{X: v[0] + t.translation.X, Y: v[1] + t.translation.Y, Z: v[2] + t.translation.Z}
}

// ChipToStage maps a chip-frame point into stage frame using the inverse of
// the forward transform. The rotation is orthonormal, so its inverse is its
// transpose.
func (t *Transform) ChipToStage(c coordinate.ChipCoordinate) coordinate.StageCoordinate {
	d := c.Sub(t.translation)
	v := t.apply(t.rotation.T(), d.ToSlice())
	return coordinate.StageCoordinate{X: v[0], Y: v[1], Z: v[2]}
}

// ChipDeltaToStage converts a chip-frame displacement into a stage-frame
// displacement, applying rotation only.
func (t *Transform) ChipDeltaToStage(d coordinate.ChipCoordinate) coordinate.StageCoordinate {
	v := t.apply(t.rotation.T(), d.ToSlice())
	return coordinate.StageCoordinate{X: v[0], Y: v[1], Z: v[2]}
}

// StageDeltaToChip converts a stage-frame displacement into a chip-frame
// displacement, applying rotation only.
func (t *Transform) StageDeltaToChip(d coordinate.StageCoordinate) coordinate.ChipCoordinate {
	v := t.apply(t.rotation, d.ToSlice())
	return coordinate.ChipCoordinate{X: v[0], Y: v[1], Z: v[2]}
}

func (t *Transform) apply(r mat.Matrix, v []float64) []float64 {
	var out mat.VecDense
	out.MulVec(r, mat.NewVecDense(3, v))
	return []float64{out.AtVec(0), out.AtVec(1), out.AtVec(2)}
}

func (t *Transform) String() string {
	return fmt.Sprintf("Transform(tier=%s, t=%s)", t.tier, t.translation)
}
