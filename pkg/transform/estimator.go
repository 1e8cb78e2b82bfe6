package transform

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"mover-go/pkg/coordinate"
	"mover-go/pkg/errors"
)

// Relative singular value spread below which a pairing set is considered
// collinear and therefore unable to determine a rotation.
const degenerateSpread = 1e-9

// EstimateAxes builds a rotation-only transform from a signed axes mapping.
// The result has zero translation and is only usable for relative moves.
func EstimateAxes(mapping coordinate.AxesMapping) (*Transform, error) {
	if !mapping.Valid() {
		return nil, errors.InvalidAxesMappingError("", mapping.String())
	}
	return &Transform{
		rotation: mapping.Matrix(),
		tier:     TierAxes,
	}, nil
}

// Estimate computes the best-fit rigid transform for a set of coordinate
// pairings, tiered by pairing count:
//
//   - 1 or 2 pairings: rotation from the axes mapping, translation fixed so
//     the first pairing maps exactly. Two pairings are insufficient to
//     resolve rotation about the line through them, so they are treated the
//     same as one.
//   - 3 or more pairings: Kabsch fit. Both point sets are centered on their
//     centroids, the cross-covariance matrix is decomposed by SVD and the
//     rotation is reassembled with a determinant correction that forbids
//     reflections. Translation maps the stage centroid onto the chip
//     centroid.
//
// No scale is fitted (rigidity assumption) and all pairings are weighted
// equally. Returns InsufficientData for an empty pairing set and
// DegenerateConfiguration when three or more pairings are collinear.
func Estimate(pairs []Pairing, mapping coordinate.AxesMapping) (*Transform, error) {
	if len(pairs) == 0 {
		return nil, errors.InsufficientDataError(0)
	}
	if len(pairs) < 3 {
		return estimateSinglePoint(pairs[0], mapping)
	}
	return estimateFull(pairs)
}

// estimateSinglePoint keeps the axes-mapping rotation and solves the
// translation so that the given pairing maps exactly.
func estimateSinglePoint(pair Pairing, mapping coordinate.AxesMapping) (*Transform, error) {
	if !mapping.Valid() {
		return nil, errors.InvalidAxesMappingError("", mapping.String())
	}
	r := mapping.Matrix()

	// t = chip - R*stage
	var rs mat.VecDense
	rs.MulVec(r, mat.NewVecDense(3, pair.Stage.ToSlice()))

	return &Transform{
		rotation: r,
		translation: coordinate.ChipCoordinate{
			X: pair.Chip.X - rs.AtVec(0),
			Y: pair.Chip.Y - rs.AtVec(1),
			Z: pair.Chip.Z - rs.AtVec(2),
		},
		tier: TierSinglePoint,
	}, nil
}

// estimateFull performs the Kabsch fit over all pairings.
func estimateFull(pairs []Pairing) (*Transform, error) {
	n := float64(len(pairs))

	var stageCentroid coordinate.StageCoordinate
	var chipCentroid coordinate.ChipCoordinate
	for _, p := range pairs {
		stageCentroid = stageCentroid.Add(p.Stage)
		chipCentroid = chipCentroid.Add(p.Chip)
	}
	stageCentroid = stageCentroid.Scale(1 / n)
	chipCentroid = chipCentroid.Scale(1 / n)

	// Cross-covariance H = sum (stage_i - s̄)(chip_i - c̄)^T
	h := mat.NewDense(3, 3, nil)
	for _, p := range pairs {
		s := p.Stage.Sub(stageCentroid).ToSlice()
		c := p.Chip.Sub(chipCentroid).ToSlice()
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				h.Set(i, j, h.At(i, j)+s[i]*c[j])
			}
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(h, mat.SVDFull); !ok {
		return nil, errors.DegenerateConfigurationError("SVD of cross-covariance failed")
	}

	// A rank-deficient cross-covariance means the pairings are collinear
	// (or coincident) and the rotation is underdetermined.
	values := svd.Values(nil)
	if values[0] < 1e-12 || values[1] < degenerateSpread*values[0] {
		return nil, errors.DegenerateConfigurationError("pairings are collinear")
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	// R = V * diag(1, 1, det(V*U^T)) * U^T ensures det(R) = +1.
	var vut mat.Dense
	vut.Mul(&v, u.T())
	d := mat.Det(&vut)

	sign := 1.0
	if d < 0 {
		sign = -1.0
	}
	diag := mat.NewDiagDense(3, []float64{1, 1, sign})

	var r mat.Dense
	r.Mul(&v, diag)
	r.Mul(&r, u.T())

	// t = chip centroid - R * stage centroid
	var rs mat.VecDense
	rs.MulVec(&r, mat.NewVecDense(3, stageCentroid.ToSlice()))

	return &Transform{
		rotation: mat.DenseCopyOf(&r),
		translation: coordinate.ChipCoordinate{
			X: chipCentroid.X - rs.AtVec(0),
			Y: chipCentroid.Y - rs.AtVec(1),
			Z: chipCentroid.Z - rs.AtVec(2),
		},
		tier: TierFull,
	}, nil
}

// RMSError returns the root-mean-square residual of the transform over a set
// of pairings. The fit is best-effort: residual error after fitting is
// reported, never corrected.
func RMSError(t *Transform, pairs []Pairing) float64 {
	if len(pairs) == 0 {
		return 0
	}
	var sum float64
	for _, p := range pairs {
		d := t.StageToChip(p.Stage).Sub(p.Chip)
		sum += d.X*d.X + d.Y*d.Y + d.Z*d.Z
	}
	return math.Sqrt(sum / float64(len(pairs)))
}
