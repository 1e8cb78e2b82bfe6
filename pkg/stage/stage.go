// Package stage defines the driver boundary to physical positioner hardware
// and a registry of driver implementations keyed by stage type.
package stage

import (
	"context"

	"mover-go/pkg/coordinate"
)

// Status describes the motion state reported by a driver.
type Status string

const (
	StatusStopped Status = "stopped"
	StatusMoving  Status = "moving"
	StatusError   Status = "error"
)

// MotionSettings are the driver-level speed and acceleration values in
// micrometers per second (squared). Zero values mean "driver default".
type MotionSettings struct {
	SpeedXY      float64
	SpeedZ       float64
	Acceleration float64
}

// Stage is the boundary to a vendor stage driver. Implementations execute
// commanded moves in stage-native coordinates and report raw positions.
// Motion commands block until the driver signals completion or the context
// is done. All failures surface as driver-specific errors which the
// calibration layer wraps as stage communication errors.
type Stage interface {
	// Identifier returns the hardware serial of the physical stage.
	Identifier() string

	// Address returns the transport address the driver talks to.
	Address() string

	// Connect opens the connection to the stage hardware.
	Connect() error

	// Disconnect closes the connection.
	Disconnect() error

	// Connected reports whether the driver holds an open connection.
	Connected() bool

	// MoveRelative moves by a stage-frame displacement.
	MoveRelative(ctx context.Context, delta coordinate.StageCoordinate) error

	// MoveAbsolute moves to a stage-frame position.
	MoveAbsolute(ctx context.Context, pos coordinate.StageCoordinate) error

	// CurrentPosition returns the raw stage-frame position.
	CurrentPosition() (coordinate.StageCoordinate, error)

	// SetMotionSettings applies speed and acceleration values.
	SetMotionSettings(s MotionSettings) error

	// MotionSettings returns the currently applied settings.
	MotionSettings() (MotionSettings, error)

	// Status returns the driver's motion status.
	Status() (Status, error)
}
