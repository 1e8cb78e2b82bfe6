package monitor

import (
	"testing"

	"mover-go/pkg/calibration"
	"mover-go/pkg/coordinate"
	"mover-go/pkg/mover"
	"mover-go/pkg/polygon"
	"mover-go/pkg/stage"
	"mover-go/pkg/transform"
)

func TestMoverAdapterSnapshot(t *testing.T) {
	m := mover.New(nil)
	m.SetChip("chip-A")

	d := stage.NewDummyStage("left", "")
	if _, err := m.AddStage(d, polygon.Left, calibration.Input, "fiber"); err != nil {
		t.Fatalf("AddStage: %v", err)
	}
	if err := m.ConnectAll(); err != nil {
		t.Fatalf("ConnectAll: %v", err)
	}
	if err := m.FixCoordinateSystem("left", coordinate.DefaultAxesMapping()); err != nil {
		t.Fatalf("FixCoordinateSystem: %v", err)
	}
	if err := m.AddPairing("left", transform.Pairing{
		Stage: coordinate.StageCoordinate{},
		Chip:  coordinate.ChipCoordinate{X: 10, Y: 20},
	}); err != nil {
		t.Fatalf("AddPairing: %v", err)
	}

	status := NewMoverAdapter(m).Snapshot()
	if status.ChipID != "chip-A" {
		t.Errorf("chip = %q", status.ChipID)
	}
	if status.State != calibration.SinglePointFixed.String() {
		t.Errorf("state = %q", status.State)
	}
	if len(status.Stages) != 1 {
		t.Fatalf("stage count = %d", len(status.Stages))
	}

	ss := status.Stages[0]
	if ss.ID != "left" || ss.Pairings != 1 {
		t.Errorf("stage status = %+v", ss)
	}
	if ss.ChipX == nil || *ss.ChipX != 10 || *ss.ChipY != 20 {
		t.Errorf("chip position = %+v", ss)
	}
}

func TestMoverAdapterSkipsPositionBelowSinglePoint(t *testing.T) {
	m := mover.New(nil)
	d := stage.NewDummyStage("left", "")
	m.AddStage(d, polygon.Left, calibration.Input, "fiber")
	m.ConnectAll()

	status := NewMoverAdapter(m).Snapshot()
	if status.Stages[0].ChipX != nil {
		t.Error("position reported below SinglePointFixed")
	}
}
