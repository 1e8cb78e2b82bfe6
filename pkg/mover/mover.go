// Package mover orchestrates all connected stages: registration,
// chip-frame movement with collision-avoidance planning, shared motion
// settings and calibration persistence.
package mover

import (
	"context"
	"sort"
	"sync"

	"mover-go/pkg/calibration"
	"mover-go/pkg/coordinate"
	"mover-go/pkg/errors"
	"mover-go/pkg/log"
	"mover-go/pkg/planner"
	"mover-go/pkg/polygon"
	"mover-go/pkg/stage"
	"mover-go/pkg/store"
	"mover-go/pkg/transform"
)

// Default motion settings in micrometers per second.
const (
	DefaultSpeedXY      = 200.0
	DefaultSpeedZ       = 20.0
	DefaultAcceleration = 0.0
	DefaultZLift        = 20.0
)

// Settings are the motion parameters shared by all stages. ZLift is the
// chip-frame clearance height used by the single-stage planner.
type Settings struct {
	SpeedXY      float64
	SpeedZ       float64
	Acceleration float64
	ZLift        float64
}

// DefaultSettings returns the stock motion settings.
func DefaultSettings() Settings {
	return Settings{
		SpeedXY:      DefaultSpeedXY,
		SpeedZ:       DefaultSpeedZ,
		Acceleration: DefaultAcceleration,
		ZLift:        DefaultZLift,
	}
}

func (s Settings) motion() stage.MotionSettings {
	return stage.MotionSettings{SpeedXY: s.SpeedXY, SpeedZ: s.SpeedZ, Acceleration: s.Acceleration}
}

// Mover owns every registered stage calibration and coordinates multi-stage
// movement. Registration and settings changes take the mover lock; the
// per-stage calibration locks serialize the actual motion.
type Mover struct {
	mu     sync.RWMutex
	logger *log.Logger

	calibrations map[string]*calibration.Calibration
	polygons     map[string]*polygon.StagePolygon
	settings     Settings

	store  *store.Store
	chipID string
}

// New creates a mover with default settings. The store may be nil, in which
// case calibrations are not persisted.
func New(st *store.Store) *Mover {
	return &Mover{
		logger:       log.GetLogger("mover"),
		calibrations: map[string]*calibration.Calibration{},
		polygons:     map[string]*polygon.StagePolygon{},
		settings:     DefaultSettings(),
		store:        st,
	}
}

//
// Registration
//

// AddStage registers a stage with its chip-side orientation, device port and
// footprint shape. Stage identifiers, orientations and port roles must each
// be unique across the mover.
func (m *Mover) AddStage(s stage.Stage, orientation polygon.Orientation, port calibration.DevicePort, shapeName string) (*calibration.Calibration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := s.Identifier()
	if _, ok := m.calibrations[id]; ok {
		return nil, errors.RuntimeError("stage already registered").SetStage(id)
	}
	for _, cal := range m.calibrations {
		if cal.Orientation() == orientation {
			return nil, errors.RuntimeError("orientation " + orientation.String() + " already taken").SetStage(id)
		}
		if cal.Port() == port {
			return nil, errors.RuntimeError("device port " + port.String() + " already taken").SetStage(id)
		}
	}

	shape, ok := polygon.NewShape(shapeName)
	if !ok {
		return nil, errors.RuntimeError("unknown stage shape " + shapeName).SetStage(id)
	}

	cal := calibration.New(s, orientation, port)
	m.calibrations[id] = cal
	m.polygons[id] = polygon.New(shape, orientation)
	m.logger.Info("registered stage %s (%s, %s, shape %s)", id, orientation, port, shapeName)
	return cal, nil
}

// RemoveStage unregisters a stage. The stage is disconnected first.
func (m *Mover) RemoveStage(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cal, ok := m.calibrations[id]
	if !ok {
		return errors.RuntimeError("no such stage").SetStage(id)
	}
	if cal.State() >= calibration.Connected {
		if err := cal.Disconnect(); err != nil {
			return err
		}
	}
	delete(m.calibrations, id)
	delete(m.polygons, id)
	return nil
}

// Calibration returns the calibration for a stage identifier.
func (m *Mover) Calibration(id string) (*calibration.Calibration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cal, ok := m.calibrations[id]
	if !ok {
		return nil, errors.RuntimeError("no such stage").SetStage(id)
	}
	return cal, nil
}

// Calibrations returns all calibrations ordered by stage identifier.
func (m *Mover) Calibrations() []*calibration.Calibration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedLocked()
}

// ConnectedCalibrations returns the calibrations whose stage is connected,
// ordered by stage identifier.
func (m *Mover) ConnectedCalibrations() []*calibration.Calibration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*calibration.Calibration
	for _, cal := range m.sortedLocked() {
		if cal.State() >= calibration.Connected {
			out = append(out, cal)
		}
	}
	return out
}

// AllConnected reports whether every registered stage is connected. A mover
// without stages is not considered connected.
func (m *Mover) AllConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.calibrations) == 0 {
		return false
	}
	for _, cal := range m.calibrations {
		if cal.State() < calibration.Connected {
			return false
		}
	}
	return true
}

// HasStages reports whether any stage is registered.
func (m *Mover) HasStages() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.calibrations) > 0
}

// State returns the mover state: the minimum state over all calibrations,
// or Uninitialized with no stages registered.
func (m *Mover) State() calibration.State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.calibrations) == 0 {
		return calibration.Uninitialized
	}
	min := calibration.FullyCalibrated
	for _, cal := range m.calibrations {
		if s := cal.State(); s < min {
			min = s
		}
	}
	return min
}

//
// Connection and settings
//

// ConnectAll connects every registered stage and pushes the shared motion
// settings to each driver. It stops at the first failure.
func (m *Mover) ConnectAll() error {
	m.mu.RLock()
	cals := m.sortedLocked()
	settings := m.settings
	m.mu.RUnlock()

	for _, cal := range cals {
		if err := cal.Connect(); err != nil {
			return err
		}
		if err := cal.ApplyMotionSettings(settings.motion()); err != nil {
			return err
		}
	}
	return nil
}

// DisconnectAll disconnects every registered stage, continuing past failures
// and returning the first error encountered.
func (m *Mover) DisconnectAll() error {
	m.mu.RLock()
	cals := m.sortedLocked()
	m.mu.RUnlock()

	var first error
	for _, cal := range cals {
		if cal.State() < calibration.Connected {
			continue
		}
		if err := cal.Disconnect(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Settings returns the shared motion settings.
func (m *Mover) Settings() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// UpdateSettings stores new shared settings and pushes them to every
// connected stage.
func (m *Mover) UpdateSettings(s Settings) error {
	m.mu.Lock()
	m.settings = s
	cals := m.sortedLocked()
	m.mu.Unlock()

	for _, cal := range cals {
		if cal.State() < calibration.Connected {
			continue
		}
		if err := cal.ApplyMotionSettings(s.motion()); err != nil {
			return err
		}
	}
	return nil
}

//
// Calibration with persistence
//

// SetChip declares the chip currently loaded. Persisted pairing sets are
// only restored for this chip.
func (m *Mover) SetChip(chipID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chipID = chipID
}

// ChipID returns the declared chip identifier.
func (m *Mover) ChipID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.chipID
}

// FixCoordinateSystem fixes a stage's axes mapping and persists it.
func (m *Mover) FixCoordinateSystem(id string, mapping coordinate.AxesMapping) error {
	cal, err := m.Calibration(id)
	if err != nil {
		return err
	}
	if err := cal.FixCoordinateSystem(mapping); err != nil {
		return err
	}
	if m.store != nil {
		if err := m.store.SaveAxesMapping(id, mapping); err != nil {
			return err
		}
	}
	return nil
}

// AddPairing appends a coordinate pairing for a stage and persists the whole
// pairing set under the current chip.
func (m *Mover) AddPairing(id string, p transform.Pairing) error {
	cal, err := m.Calibration(id)
	if err != nil {
		return err
	}
	if err := cal.AddPairing(p); err != nil {
		return err
	}
	return m.persistPairings(id, cal)
}

// RemovePairing removes a pairing by creation index and persists the rest.
func (m *Mover) RemovePairing(id string, index int) error {
	cal, err := m.Calibration(id)
	if err != nil {
		return err
	}
	if err := cal.RemovePairing(index); err != nil {
		return err
	}
	return m.persistPairings(id, cal)
}

func (m *Mover) persistPairings(id string, cal *calibration.Calibration) error {
	if m.store == nil {
		return nil
	}
	return m.store.SavePairings(id, m.ChipID(), cal.Pairings())
}

// RestoreCalibrations loads the persisted axes mapping for every connected
// stage and, when the stored pairing set belongs to the current chip, the
// pairings too. Stages without stored data are skipped.
func (m *Mover) RestoreCalibrations() error {
	if m.store == nil {
		return nil
	}
	chipID := m.ChipID()

	for _, cal := range m.Calibrations() {
		id := cal.StageID()
		if cal.State() < calibration.Connected {
			continue
		}

		mapping, ok, err := m.store.LoadAxesMapping(id)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := cal.FixCoordinateSystem(mapping); err != nil {
			return err
		}

		pairings, ok := m.store.LoadPairings(id, chipID)
		if !ok {
			continue
		}
		if err := cal.RestorePairings(pairings); err != nil {
			return err
		}
		m.logger.Info("restored calibration for stage %s, state is now %s", id, cal.State())
	}
	return nil
}

//
// Movement
//

// MoveToDevice moves the named stages to their chip-frame targets along
// collision-free trajectories. Every involved stage must be at least
// SinglePointFixed. Waypoints are executed in lockstep: all stages complete
// waypoint i before any advances to i+1, and the whole move aborts on the
// first stage error.
func (m *Mover) MoveToDevice(ctx context.Context, targets map[string]coordinate.ChipCoordinate) error {
	if len(targets) == 0 {
		return errors.PathPlanningError("no target positions given")
	}

	req := planner.Request{
		States:   map[string]planner.StageState{},
		Polygons: map[string]*polygon.StagePolygon{},
	}
	cals := make(map[string]*calibration.Calibration, len(targets))

	for id, target := range targets {
		cal, err := m.Calibration(id)
		if err != nil {
			return err
		}
		if s := cal.State(); s < calibration.SinglePointFixed {
			return errors.CalibrationStateError(id, "move_to_device", s.String(), calibration.SinglePointFixed.String())
		}
		current, err := cal.CurrentPositionChip()
		if err != nil {
			return err
		}
		cals[id] = cal
		req.States[id] = planner.StageState{Current: current, Target: target}

		m.mu.RLock()
		req.Polygons[id] = m.polygons[id]
		m.mu.RUnlock()
	}

	p := m.selectPlanner(len(targets))
	waypoints, err := p.Plan(req)
	if err != nil {
		return err
	}
	m.logger.Info("moving %d stage(s) with %s planner", len(targets), p.Name())

	return m.executeWaypoints(ctx, cals, waypoints)
}

// selectPlanner picks the strategy and feeds it the mover's z-lift setting.
func (m *Mover) selectPlanner(stageCount int) planner.Planner {
	p := planner.Select(stageCount)
	if sp, ok := p.(*planner.SingleStage); ok {
		m.mu.RLock()
		sp.ClearanceHeight = m.settings.ZLift
		m.mu.RUnlock()
	}
	return p
}

// executeWaypoints walks the synchronized waypoint sequences. For each index
// the stages move concurrently; a barrier waits for all of them before the
// next index. Any failure cancels the in-flight moves and aborts the rest of
// the sequence.
func (m *Mover) executeWaypoints(ctx context.Context, cals map[string]*calibration.Calibration, waypoints map[string][]coordinate.ChipCoordinate) error {
	maxLen := 0
	for _, wps := range waypoints {
		if len(wps) > maxLen {
			maxLen = len(wps)
		}
	}

	for i := 0; i < maxLen; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		stepCtx, cancel := context.WithCancel(ctx)
		var wg sync.WaitGroup
		errCh := make(chan error, len(cals))

		for id, cal := range cals {
			wps := waypoints[id]
			if i >= len(wps) {
				continue
			}
			wg.Add(1)
			go func(cal *calibration.Calibration, target coordinate.ChipCoordinate) {
				defer wg.Done()
				if err := cal.MoveAbsoluteChip(stepCtx, target); err != nil {
					errCh <- err
					cancel()
				}
			}(cal, wps[i])
		}

		wg.Wait()
		cancel()
		close(errCh)
		if err := <-errCh; err != nil {
			m.logger.Error("move aborted at waypoint %d: %v", i, err)
			return err
		}
	}
	return nil
}

// MoveRelativeChipAll applies the same chip-frame displacement to every
// registered stage, in identifier order. Requires CoordinateSystemFixed on
// each stage.
func (m *Mover) MoveRelativeChipAll(ctx context.Context, delta coordinate.ChipCoordinate) error {
	for _, cal := range m.Calibrations() {
		if err := cal.MoveRelativeChip(ctx, delta); err != nil {
			return err
		}
	}
	return nil
}

// sortedLocked returns the calibrations in stage identifier order. The
// caller holds the mover lock.
func (m *Mover) sortedLocked() []*calibration.Calibration {
	ids := make([]string, 0, len(m.calibrations))
	for id := range m.calibrations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*calibration.Calibration, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.calibrations[id])
	}
	return out
}
