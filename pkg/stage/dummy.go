package stage

import (
	"context"
	"errors"
	"sync"

	"mover-go/pkg/coordinate"
)

// ErrNotConnected is returned by dummy stage operations before Connect.
var ErrNotConnected = errors.New("stage: not connected")

// DummyStage is an in-memory stage driver for development and tests. Moves
// complete instantly and every commanded position is recorded.
type DummyStage struct {
	mu         sync.Mutex
	identifier string
	address    string
	connected  bool
	position   coordinate.StageCoordinate
	settings   MotionSettings

	// CommandLog records every absolute position commanded, in order.
	commandLog []coordinate.StageCoordinate

	// MoveErr, when set, is returned by the next motion command.
	MoveErr error
}

// NewDummyStage creates a dummy stage at the origin.
func NewDummyStage(identifier, address string) *DummyStage {
	return &DummyStage{identifier: identifier, address: address}
}

func init() {
	Register("dummy", func(identifier, address string) (Stage, error) {
		return NewDummyStage(identifier, address), nil
	})
}

// Identifier returns the configured hardware serial.
func (d *DummyStage) Identifier() string { return d.identifier }

// Address returns the configured transport address.
func (d *DummyStage) Address() string { return d.address }

// Connect marks the stage connected.
func (d *DummyStage) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = true
	return nil
}

// Disconnect marks the stage disconnected.
func (d *DummyStage) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = false
	return nil
}

// Connected reports the connection flag.
func (d *DummyStage) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

// MoveRelative moves by a stage-frame displacement.
func (d *DummyStage) MoveRelative(ctx context.Context, delta coordinate.StageCoordinate) error {
	d.mu.Lock()
	target := d.position.Add(delta)
	d.mu.Unlock()
	return d.MoveAbsolute(ctx, target)
}

// MoveAbsolute moves to a stage-frame position and records the command.
func (d *DummyStage) MoveAbsolute(ctx context.Context, pos coordinate.StageCoordinate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return ErrNotConnected
	}
	if d.MoveErr != nil {
		err := d.MoveErr
		d.MoveErr = nil
		return err
	}
	d.position = pos
	d.commandLog = append(d.commandLog, pos)
	return nil
}

// CurrentPosition returns the simulated stage-frame position.
func (d *DummyStage) CurrentPosition() (coordinate.StageCoordinate, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return coordinate.StageCoordinate{}, ErrNotConnected
	}
	return d.position, nil
}

// SetPosition overrides the simulated position without recording a command.
func (d *DummyStage) SetPosition(pos coordinate.StageCoordinate) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.position = pos
}

// SetMotionSettings stores the settings.
func (d *DummyStage) SetMotionSettings(s MotionSettings) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return ErrNotConnected
	}
	d.settings = s
	return nil
}

// MotionSettings returns the stored settings.
func (d *DummyStage) MotionSettings() (MotionSettings, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return MotionSettings{}, ErrNotConnected
	}
	return d.settings, nil
}

// Status always reports stopped.
func (d *DummyStage) Status() (Status, error) {
	return StatusStopped, nil
}

// CommandLog returns a copy of all commanded absolute positions.
func (d *DummyStage) CommandLog() []coordinate.StageCoordinate {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]coordinate.StageCoordinate, len(d.commandLog))
	copy(out, d.commandLog)
	return out
}
