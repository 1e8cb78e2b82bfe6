package coordinate

import (
	"testing"
)

func TestParseSignedAxis(t *testing.T) {
	tests := []struct {
		in      string
		want    SignedAxis
		wantErr bool
	}{
		{"+x", SignedAxis{AxisX, Positive}, false},
		{"-y", SignedAxis{AxisY, Negative}, false},
		{"z", SignedAxis{AxisZ, Positive}, false},
		{" -Z ", SignedAxis{AxisZ, Negative}, false},
		{"+w", SignedAxis{}, true},
		{"", SignedAxis{}, true},
		{"--x", SignedAxis{}, true},
	}
	for _, tt := range tests {
		got, err := ParseSignedAxis(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSignedAxis(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseSignedAxis(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestAxesMappingValid(t *testing.T) {
	tests := []struct {
		name    string
		mapping AxesMapping
		want    bool
	}{
		{"identity", DefaultAxesMapping(), true},
		{"permutation with signs", AxesMapping{
			{AxisY, Negative}, {AxisZ, Positive}, {AxisX, Negative},
		}, true},
		{"duplicate stage axis", AxesMapping{
			{AxisX, Positive}, {AxisX, Negative}, {AxisZ, Positive},
		}, false},
		{"zero direction", AxesMapping{
			{AxisX, Positive}, {AxisY, 0}, {AxisZ, Positive},
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.mapping.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAxesMappingMatrix(t *testing.T) {
	// chip_x <- -y, chip_y <- +z, chip_z <- -x
	m := AxesMapping{
		{AxisY, Negative},
		{AxisZ, Positive},
		{AxisX, Negative},
	}
	r := m.Matrix()

	stage := []float64{1, 2, 3}
	want := []float64{-2, 3, -1}
	for chipAxis := 0; chipAxis < 3; chipAxis++ {
		got := 0.0
		for stageAxis := 0; stageAxis < 3; stageAxis++ {
			got += r.At(chipAxis, stageAxis) * stage[stageAxis]
		}
		if got != want[chipAxis] {
			t.Errorf("chip axis %d: got %v, want %v", chipAxis, got, want[chipAxis])
		}
	}
}

func TestAxesMappingString(t *testing.T) {
	m := AxesMapping{
		{AxisX, Positive},
		{AxisY, Negative},
		{AxisZ, Positive},
	}
	want := "{chip_x: +x, chip_y: -y, chip_z: +z}"
	if got := m.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestChipCoordinateMath(t *testing.T) {
	a := ChipCoordinate{X: 1, Y: 2, Z: 3}
	b := ChipCoordinate{X: 4, Y: -2, Z: 1}

	if got := a.Add(b); got != (ChipCoordinate{X: 5, Y: 0, Z: 4}) {
		t.Errorf("Add = %v", got)
	}
	if got := a.Sub(b); got != (ChipCoordinate{X: -3, Y: 4, Z: 2}) {
		t.Errorf("Sub = %v", got)
	}
	if got := (ChipCoordinate{X: 3, Y: 4}).Norm(); got != 5 {
		t.Errorf("Norm = %v", got)
	}
	if got := (ChipCoordinate{X: 3, Y: 4, Z: 12}).NormXY(); got != 5 {
		t.Errorf("NormXY = %v", got)
	}
}

func TestFromSlice(t *testing.T) {
	if got := ChipFromSlice([]float64{1, 2}); got != (ChipCoordinate{X: 1, Y: 2}) {
		t.Errorf("ChipFromSlice = %v", got)
	}
	if got := StageFromSlice(nil); got != (StageCoordinate{}) {
		t.Errorf("StageFromSlice = %v", got)
	}
}
