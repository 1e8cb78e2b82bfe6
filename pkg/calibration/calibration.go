package calibration

import (
	"context"
	"sync"
	"time"

	"mover-go/pkg/coordinate"
	"mover-go/pkg/errors"
	"mover-go/pkg/log"
	"mover-go/pkg/polygon"
	"mover-go/pkg/stage"
	"mover-go/pkg/transform"
)

// Calibration wraps one stage driver with the state machine that builds and
// applies the stage-to-chip transform. All operations on a calibration are
// serialized: pairings are never mutated while a move is in flight.
type Calibration struct {
	mu     sync.Mutex
	logger *log.Logger

	stage       stage.Stage
	orientation polygon.Orientation
	port        DevicePort

	mapping    coordinate.AxesMapping
	hasMapping bool
	pairings   []transform.Pairing

	trans *transform.Transform
	state State
}

// New creates a calibration for a stage. The stage handle is referenced, not
// owned; teardown is the caller's responsibility.
func New(s stage.Stage, orientation polygon.Orientation, port DevicePort) *Calibration {
	c := &Calibration{
		logger:      log.GetLogger("calibration." + s.Identifier()),
		stage:       s,
		orientation: orientation,
		port:        port,
	}
	c.recomputeLocked()
	return c
}

// StageID returns the hardware serial of the underlying stage.
func (c *Calibration) StageID() string {
	return c.stage.Identifier()
}

// Stage returns the underlying stage driver.
func (c *Calibration) Stage() stage.Stage {
	return c.stage
}

// Orientation returns the side of the chip the stage approaches from.
func (c *Calibration) Orientation() polygon.Orientation {
	return c.orientation
}

// Port returns the device port role of the stage.
func (c *Calibration) Port() DevicePort {
	return c.port
}

// IsInputStage returns true if the stage moves to device inputs.
func (c *Calibration) IsInputStage() bool {
	return c.port == Input
}

// IsOutputStage returns true if the stage moves to device outputs.
func (c *Calibration) IsOutputStage() bool {
	return c.port == Output
}

// State returns the current calibration state.
func (c *Calibration) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// AxesMapping returns the fixed axes mapping, if any.
func (c *Calibration) AxesMapping() (coordinate.AxesMapping, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mapping, c.hasMapping
}

// Pairings returns a copy of the coordinate pairings in creation order.
func (c *Calibration) Pairings() []transform.Pairing {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]transform.Pairing, len(c.pairings))
	copy(out, c.pairings)
	return out
}

// Transform returns the current transform, or nil below
// CoordinateSystemFixed.
func (c *Calibration) Transform() *transform.Transform {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trans
}

//
// Setup operations
//

// Connect opens the connection to the stage hardware.
func (c *Calibration) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.stage.Connect(); err != nil {
		c.recomputeLocked()
		return errors.StageCommunicationError(c.stage.Identifier(), "connect", err)
	}
	c.recomputeLocked()
	c.logger.Info("connected, state is now %s", c.state)
	return nil
}

// Disconnect closes the connection. The axes mapping and pairings are kept,
// but the state drops to Uninitialized until reconnected.
func (c *Calibration) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.stage.Disconnect(); err != nil {
		return errors.StageCommunicationError(c.stage.Identifier(), "disconnect", err)
	}
	c.recomputeLocked()
	return nil
}

// FixCoordinateSystem sets the signed axes mapping between chip and stage
// axes. Requires Connected. Fails if the mapping is not a valid signed
// bijection.
func (c *Calibration) FixCoordinateSystem(m coordinate.AxesMapping) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireLocked("fix_coordinate_system", Connected); err != nil {
		return err
	}
	if !m.Valid() {
		return errors.InvalidAxesMappingError(c.stage.Identifier(), m.String())
	}
	c.mapping = m
	c.hasMapping = true
	c.recomputeLocked()
	c.logger.Info("coordinate system fixed with %s", m)
	return nil
}

// ClearCoordinateSystem removes the axes mapping. The state is recomputed
// and drops accordingly.
func (c *Calibration) ClearCoordinateSystem() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hasMapping = false
	c.recomputeLocked()
}

// AddPairing appends a coordinate pairing and re-estimates the transform.
// Requires CoordinateSystemFixed. Pairings are identified by creation order.
func (c *Calibration) AddPairing(p transform.Pairing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireLocked("add_pairing", CoordinateSystemFixed); err != nil {
		return err
	}
	c.pairings = append(c.pairings, p)
	c.recomputeLocked()
	c.logger.Info("pairing %d added (%v), state is now %s", len(c.pairings), p, c.state)
	return nil
}

// RemovePairing removes the pairing at the given creation index. The state
// is recomputed and may decrease.
func (c *Calibration) RemovePairing(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.pairings) {
		return errors.RuntimeError("pairing index out of range").SetStage(c.stage.Identifier())
	}
	c.pairings = append(c.pairings[:index], c.pairings[index+1:]...)
	c.recomputeLocked()
	return nil
}

// ClearPairings removes all pairings.
func (c *Calibration) ClearPairings() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pairings = nil
	c.recomputeLocked()
}

// RestorePairings replaces the pairing set wholesale, used when restoring a
// persisted calibration. Requires CoordinateSystemFixed.
func (c *Calibration) RestorePairings(pairings []transform.Pairing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireLocked("restore_pairings", CoordinateSystemFixed); err != nil {
		return err
	}
	c.pairings = make([]transform.Pairing, len(pairings))
	copy(c.pairings, pairings)
	c.recomputeLocked()
	c.logger.Info("restored %d pairings, state is now %s", len(c.pairings), c.state)
	return nil
}

//
// Movement operations
//

// MoveRelative moves by a stage-frame displacement. Requires Connected.
func (c *Calibration) MoveRelative(ctx context.Context, delta coordinate.StageCoordinate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireLocked("move_relative", Connected); err != nil {
		return err
	}
	if err := c.stage.MoveRelative(ctx, delta); err != nil {
		return errors.StageCommunicationError(c.stage.Identifier(), "move_relative", err)
	}
	return nil
}

// MoveRelativeChip moves by a chip-frame displacement, converted through the
// rotation only. Requires CoordinateSystemFixed.
func (c *Calibration) MoveRelativeChip(ctx context.Context, delta coordinate.ChipCoordinate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireLocked("move_relative_chip", CoordinateSystemFixed); err != nil {
		return err
	}
	stageDelta := c.trans.ChipDeltaToStage(delta)
	if err := c.stage.MoveRelative(ctx, stageDelta); err != nil {
		return errors.StageCommunicationError(c.stage.Identifier(), "move_relative_chip", err)
	}
	return nil
}

// MoveAbsoluteChip moves to an absolute chip-frame position through the
// inverse of the stored forward transform. Requires SinglePointFixed.
func (c *Calibration) MoveAbsoluteChip(ctx context.Context, target coordinate.ChipCoordinate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireLocked("move_absolute_chip", SinglePointFixed); err != nil {
		return err
	}
	stageTarget := c.trans.ChipToStage(target)
	if err := c.stage.MoveAbsolute(ctx, stageTarget); err != nil {
		return errors.StageCommunicationError(c.stage.Identifier(), "move_absolute_chip", err)
	}
	return nil
}

// CurrentPositionChip returns the driver-reported position mapped into chip
// frame. Requires SinglePointFixed.
func (c *Calibration) CurrentPositionChip() (coordinate.ChipCoordinate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireLocked("current_position_chip", SinglePointFixed); err != nil {
		return coordinate.ChipCoordinate{}, err
	}
	pos, err := c.stage.CurrentPosition()
	if err != nil {
		return coordinate.ChipCoordinate{}, errors.StageCommunicationError(c.stage.Identifier(), "current_position", err)
	}
	return c.trans.StageToChip(pos), nil
}

// WiggleAxis moves the stage along one chip axis and back at reduced speed so
// an operator can verify the axes mapping before trusting it. Requires
// CoordinateSystemFixed. The previous motion settings are restored afterward.
func (c *Calibration) WiggleAxis(ctx context.Context, axis coordinate.Axis, distance, speed float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireLocked("wiggle_axis", CoordinateSystemFixed); err != nil {
		return err
	}

	var chipDelta coordinate.ChipCoordinate
	switch axis {
	case coordinate.AxisX:
		chipDelta.X = distance
	case coordinate.AxisY:
		chipDelta.Y = distance
	case coordinate.AxisZ:
		chipDelta.Z = distance
	}
	stageDelta := c.trans.ChipDeltaToStage(chipDelta)

	prev, err := c.stage.MotionSettings()
	if err != nil {
		return errors.StageCommunicationError(c.stage.Identifier(), "wiggle_axis", err)
	}
	if err := c.stage.SetMotionSettings(stage.MotionSettings{SpeedXY: speed, SpeedZ: speed, Acceleration: prev.Acceleration}); err != nil {
		return errors.StageCommunicationError(c.stage.Identifier(), "wiggle_axis", err)
	}
	defer func() {
		if err := c.stage.SetMotionSettings(prev); err != nil {
			c.logger.Error("restoring motion settings after wiggle failed: %v", err)
		}
	}()

	if err := c.stage.MoveRelative(ctx, stageDelta); err != nil {
		return errors.StageCommunicationError(c.stage.Identifier(), "wiggle_axis", err)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wigglePause):
	}
	if err := c.stage.MoveRelative(ctx, stageDelta.Scale(-1)); err != nil {
		return errors.StageCommunicationError(c.stage.Identifier(), "wiggle_axis", err)
	}
	return nil
}

// ApplyMotionSettings forwards speed and acceleration values to the driver.
// Requires Connected.
func (c *Calibration) ApplyMotionSettings(s stage.MotionSettings) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireLocked("apply_motion_settings", Connected); err != nil {
		return err
	}
	if err := c.stage.SetMotionSettings(s); err != nil {
		return errors.StageCommunicationError(c.stage.Identifier(), "set_motion_settings", err)
	}
	return nil
}

// wigglePause separates the forward and return wiggle moves so the operator
// can see the direction.
const wigglePause = 2 * time.Second

//
// Internals
//

// requireLocked checks that the current state is at least the required one.
func (c *Calibration) requireLocked(operation string, required State) error {
	if c.state < required {
		return errors.CalibrationStateError(c.stage.Identifier(), operation, c.state.String(), required.String())
	}
	return nil
}

// recomputeLocked derives the state as the maximum level whose preconditions
// currently hold, and re-estimates the transform. It is called on every
// change to the connection, the axes mapping or the pairing set; the state
// may decrease.
func (c *Calibration) recomputeLocked() {
	c.state = Uninitialized
	c.trans = nil

	if !c.stage.Connected() {
		return
	}
	c.state = Connected

	if !c.hasMapping || !c.mapping.Valid() {
		return
	}
	axesTrans, err := transform.EstimateAxes(c.mapping)
	if err != nil {
		return
	}
	c.state = CoordinateSystemFixed
	c.trans = axesTrans

	if len(c.pairings) == 0 {
		return
	}

	if len(c.pairings) >= 3 {
		full, err := transform.Estimate(c.pairings, c.mapping)
		if err == nil {
			c.state = FullyCalibrated
			c.trans = full
			return
		}
		c.logger.Warn("full estimation failed, falling back to single point: %v", err)
	}

	// One or two pairings, or a degenerate full fit: only the first
	// pairing's translation is usable.
	single, err := transform.Estimate(c.pairings[:1], c.mapping)
	if err != nil {
		c.logger.Error("single point estimation failed: %v", err)
		return
	}
	c.state = SinglePointFixed
	c.trans = single
}
