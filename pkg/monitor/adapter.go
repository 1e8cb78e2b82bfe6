package monitor

import (
	"time"

	"mover-go/pkg/calibration"
	"mover-go/pkg/mover"
)

// MoverAdapter implements Provider on top of a Mover.
type MoverAdapter struct {
	mover *mover.Mover
}

// NewMoverAdapter wraps a mover for status reporting.
func NewMoverAdapter(m *mover.Mover) *MoverAdapter {
	return &MoverAdapter{mover: m}
}

// Snapshot collects the current state of every registered stage. Position
// queries are skipped for stages below SinglePointFixed.
func (a *MoverAdapter) Snapshot() StationStatus {
	status := StationStatus{
		Time:   time.Now().UTC(),
		State:  a.mover.State().String(),
		ChipID: a.mover.ChipID(),
	}

	for _, cal := range a.mover.Calibrations() {
		ss := StageStatus{
			ID:          cal.StageID(),
			State:       cal.State().String(),
			Orientation: cal.Orientation().String(),
			Port:        cal.Port().String(),
			Pairings:    len(cal.Pairings()),
		}
		if cal.State() >= calibration.SinglePointFixed {
			if pos, err := cal.CurrentPositionChip(); err == nil {
				ss.ChipX, ss.ChipY, ss.ChipZ = &pos.X, &pos.Y, &pos.Z
			}
		}
		status.Stages = append(status.Stages, ss)
	}
	return status
}
