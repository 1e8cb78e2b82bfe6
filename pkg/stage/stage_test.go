package stage

import (
	"context"
	"errors"
	"testing"

	"mover-go/pkg/coordinate"
)

func TestRegistryDummyRegistered(t *testing.T) {
	if !IsSupported("dummy") {
		t.Fatal("dummy driver not registered")
	}
	s, err := New("DUMMY", "id-1", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.Identifier() != "id-1" {
		t.Errorf("Identifier() = %q, want %q", s.Identifier(), "id-1")
	}
}

func TestRegistryUnsupportedType(t *testing.T) {
	if _, err := New("hexapod", "id", ""); err == nil {
		t.Fatal("expected error for unsupported stage type")
	}
}

func TestSupportedTypesSorted(t *testing.T) {
	types := SupportedTypes()
	for i := 1; i < len(types); i++ {
		if types[i-1] > types[i] {
			t.Fatalf("SupportedTypes not sorted: %v", types)
		}
	}
}

func TestDummyStageRequiresConnection(t *testing.T) {
	d := NewDummyStage("d1", "")
	ctx := context.Background()

	if err := d.MoveAbsolute(ctx, coordinate.StageCoordinate{X: 1}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("MoveAbsolute before connect: got %v, want ErrNotConnected", err)
	}
	if _, err := d.CurrentPosition(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("CurrentPosition before connect: got %v, want ErrNotConnected", err)
	}
}

func TestDummyStageMoves(t *testing.T) {
	d := NewDummyStage("d1", "")
	if err := d.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	ctx := context.Background()

	if err := d.MoveAbsolute(ctx, coordinate.StageCoordinate{X: 10, Y: 20}); err != nil {
		t.Fatalf("MoveAbsolute: %v", err)
	}
	if err := d.MoveRelative(ctx, coordinate.StageCoordinate{X: -4, Z: 3}); err != nil {
		t.Fatalf("MoveRelative: %v", err)
	}

	pos, err := d.CurrentPosition()
	if err != nil {
		t.Fatalf("CurrentPosition: %v", err)
	}
	want := coordinate.StageCoordinate{X: 6, Y: 20, Z: 3}
	if pos != want {
		t.Errorf("position = %v, want %v", pos, want)
	}

	log := d.CommandLog()
	if len(log) != 2 {
		t.Fatalf("command log has %d entries, want 2", len(log))
	}
	if log[1] != want {
		t.Errorf("last command = %v, want %v", log[1], want)
	}
}

func TestDummyStageInjectedError(t *testing.T) {
	d := NewDummyStage("d1", "")
	d.Connect()
	d.MoveErr = errors.New("axis jam")

	if err := d.MoveAbsolute(context.Background(), coordinate.StageCoordinate{X: 1}); err == nil {
		t.Fatal("expected injected error")
	}
	// The error fires once.
	if err := d.MoveAbsolute(context.Background(), coordinate.StageCoordinate{X: 1}); err != nil {
		t.Fatalf("second move: %v", err)
	}
}

func TestDummyStageContextCancelled(t *testing.T) {
	d := NewDummyStage("d1", "")
	d.Connect()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := d.MoveAbsolute(ctx, coordinate.StageCoordinate{X: 1}); err == nil {
		t.Fatal("expected context error")
	}
	if len(d.CommandLog()) != 0 {
		t.Error("cancelled move must not be recorded")
	}
}
