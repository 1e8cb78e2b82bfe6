// Package coordinate provides the coordinate types shared by the calibration
// and planning packages: chip-frame and stage-frame points plus the signed
// axes mapping between the two frames.
package coordinate

import (
	"fmt"
	"math"
)

// ChipCoordinate is a point in the coordinate system of the chip layout.
type ChipCoordinate struct {
	X, Y, Z float64
}

// StageCoordinate is a point in the native coordinate system of a stage.
type StageCoordinate struct {
	X, Y, Z float64
}

// Add returns the component-wise sum of two chip coordinates.
func (c ChipCoordinate) Add(o ChipCoordinate) ChipCoordinate {
	return ChipCoordinate{c.X + o.X, c.Y + o.Y, c.Z + o.Z}
}

// Sub returns the component-wise difference of two chip coordinates.
func (c ChipCoordinate) Sub(o ChipCoordinate) ChipCoordinate {
	return ChipCoordinate{c.X - o.X, c.Y - o.Y, c.Z - o.Z}
}

// Scale returns the coordinate multiplied by a scalar.
func (c ChipCoordinate) Scale(f float64) ChipCoordinate {
	return ChipCoordinate{c.X * f, c.Y * f, c.Z * f}
}

// Norm returns the euclidean length of the coordinate vector.
func (c ChipCoordinate) Norm() float64 {
	return norm3(c.X, c.Y, c.Z)
}

// NormXY returns the euclidean length of the XY projection.
func (c ChipCoordinate) NormXY() float64 {
	return norm3(c.X, c.Y, 0)
}

// ToSlice returns the coordinate as [x, y, z].
func (c ChipCoordinate) ToSlice() []float64 {
	return []float64{c.X, c.Y, c.Z}
}

func (c ChipCoordinate) String() string {
	return fmt.Sprintf("[%.2f, %.2f, %.2f]", c.X, c.Y, c.Z)
}

// ChipFromSlice creates a chip coordinate from the first three values of v.
// Missing values default to zero.
func ChipFromSlice(v []float64) ChipCoordinate {
	var c ChipCoordinate
	if len(v) > 0 {
		c.X = v[0]
	}
	if len(v) > 1 {
		c.Y = v[1]
	}
	if len(v) > 2 {
		c.Z = v[2]
	}
	return c
}

// Add returns the component-wise sum of two stage coordinates.
func (s StageCoordinate) Add(o StageCoordinate) StageCoordinate {
	return StageCoordinate{s.X + o.X, s.Y + o.Y, s.Z + o.Z}
}

// Sub returns the component-wise difference of two stage coordinates.
func (s StageCoordinate) Sub(o StageCoordinate) StageCoordinate {
	return StageCoordinate{s.X - o.X, s.Y - o.Y, s.Z - o.Z}
}

// Scale returns the coordinate multiplied by a scalar.
func (s StageCoordinate) Scale(f float64) StageCoordinate {
	return StageCoordinate{s.X * f, s.Y * f, s.Z * f}
}

// Norm returns the euclidean length of the coordinate vector.
func (s StageCoordinate) Norm() float64 {
	return norm3(s.X, s.Y, s.Z)
}

// ToSlice returns the coordinate as [x, y, z].
func (s StageCoordinate) ToSlice() []float64 {
	return []float64{s.X, s.Y, s.Z}
}

func (s StageCoordinate) String() string {
	return fmt.Sprintf("[%.2f, %.2f, %.2f]", s.X, s.Y, s.Z)
}

// StageFromSlice creates a stage coordinate from the first three values of v.
// Missing values default to zero.
func StageFromSlice(v []float64) StageCoordinate {
	var s StageCoordinate
	if len(v) > 0 {
		s.X = v[0]
	}
	if len(v) > 1 {
		s.Y = v[1]
	}
	if len(v) > 2 {
		s.Z = v[2]
	}
	return s
}

func norm3(x, y, z float64) float64 {
	return math.Sqrt(x*x + y*y + z*z)
}
