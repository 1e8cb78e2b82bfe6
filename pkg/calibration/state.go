// Package calibration implements the per-stage calibration state machine.
// Each calibration incrementally builds a rigid transform between its
// stage's native frame and the shared chip frame; the operations it exposes
// are gated by how much of that transform is known.
package calibration

// State is the calibration level of a stage. States are ordered: each level
// requires all preconditions of the levels below it.
type State int

const (
	// Uninitialized: no connection to the stage hardware.
	Uninitialized State = iota

	// Connected: the stage driver holds an open connection.
	Connected

	// CoordinateSystemFixed: a valid signed axes mapping is set; relative
	// chip-frame moves are possible.
	CoordinateSystemFixed

	// SinglePointFixed: at least one coordinate pairing fixes an
	// approximate absolute transform.
	SinglePointFixed

	// FullyCalibrated: three or more non-degenerate pairings determine the
	// rigid transform by least squares.
	FullyCalibrated
)

// String returns a human readable state name.
func (s State) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case Connected:
		return "Connected"
	case CoordinateSystemFixed:
		return "Coordinate system fixed"
	case SinglePointFixed:
		return "Single point fixed"
	case FullyCalibrated:
		return "Fully calibrated"
	default:
		return "Unknown"
	}
}

// DevicePort is the role a stage plays at a device.
type DevicePort int

const (
	// Input: the stage couples to the device input.
	Input DevicePort = iota

	// Output: the stage couples to the device output.
	Output
)

// String returns the capitalized port name.
func (p DevicePort) String() string {
	switch p {
	case Input:
		return "Input"
	case Output:
		return "Output"
	default:
		return "Unknown"
	}
}
