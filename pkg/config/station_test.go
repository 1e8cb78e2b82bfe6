package config

import (
	"testing"
	"time"

	"mover-go/pkg/calibration"
	"mover-go/pkg/coordinate"
	"mover-go/pkg/polygon"
)

const stationConfig = `
[mover]
speed_xy: 250
speed_z: 25
z_lift: 30
data_dir: /var/lib/mover

[stage left]
type: dummy
orientation: left
port: input
shape: fiber
axes_mapping: +x, -y, +z

[stage right]
type: dummy
orientation: right
port: output
shape: probe

[monitor]
enabled: yes
listen: localhost:9000
update_interval_ms: 250
`

func TestParseStation(t *testing.T) {
	c, err := LoadString(stationConfig)
	if err != nil {
		t.Fatalf("LoadString: %v", err)
	}
	station, err := ParseStation(c)
	if err != nil {
		t.Fatalf("ParseStation: %v", err)
	}

	if station.Mover.SpeedXY != 250 || station.Mover.SpeedZ != 25 || station.Mover.ZLift != 30 {
		t.Errorf("mover config = %+v", station.Mover)
	}
	if station.Mover.DataDir != "/var/lib/mover" {
		t.Errorf("data_dir = %q", station.Mover.DataDir)
	}

	if !station.Monitor.Enabled || station.Monitor.Listen != "localhost:9000" {
		t.Errorf("monitor config = %+v", station.Monitor)
	}
	if station.Monitor.UpdateInterval != 250*time.Millisecond {
		t.Errorf("update interval = %v", station.Monitor.UpdateInterval)
	}

	if len(station.Stages) != 2 {
		t.Fatalf("stage count = %d", len(station.Stages))
	}

	left := station.Stages[0]
	if left.ID != "left" || left.Type != "dummy" || left.Shape != "fiber" {
		t.Errorf("left stage = %+v", left)
	}
	if left.Orientation != polygon.Left || left.Port != calibration.Input {
		t.Errorf("left stage placement = %+v", left)
	}
	if left.AxesMapping == nil {
		t.Fatal("left stage mapping not parsed")
	}
	want := coordinate.AxesMapping{
		{Axis: coordinate.AxisX, Direction: coordinate.Positive},
		{Axis: coordinate.AxisY, Direction: coordinate.Negative},
		{Axis: coordinate.AxisZ, Direction: coordinate.Positive},
	}
	if *left.AxesMapping != want {
		t.Errorf("left mapping = %v, want %v", *left.AxesMapping, want)
	}

	right := station.Stages[1]
	if right.AxesMapping != nil {
		t.Error("right stage has no mapping option, got one")
	}
	if right.Shape != "probe" {
		t.Errorf("right shape = %q", right.Shape)
	}

	// Everything the station parser consumes must count as accessed.
	if err := c.CheckUnused(); err != nil {
		t.Errorf("CheckUnused: %v", err)
	}
}

func TestParseStationDefaults(t *testing.T) {
	c, _ := LoadString("")
	station, err := ParseStation(c)
	if err != nil {
		t.Fatalf("ParseStation: %v", err)
	}
	if station.Mover.SpeedXY != 200 || station.Mover.SpeedZ != 20 || station.Mover.ZLift != 20 {
		t.Errorf("defaults = %+v", station.Mover)
	}
	if station.Monitor.Enabled {
		t.Error("monitor enabled without a [monitor] section")
	}
	if len(station.Stages) != 0 {
		t.Errorf("stages = %v", station.Stages)
	}
}

func TestParseStationErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  string
	}{
		{"missing orientation", "[stage left]\ntype: dummy\nport: input\n"},
		{"unknown stage type", "[stage left]\ntype: hexapod\norientation: left\nport: input\n"},
		{"bad orientation", "[stage left]\norientation: diagonal\nport: input\n"},
		{"bad port", "[stage left]\norientation: left\nport: sideways\n"},
		{"bad mapping arity", "[stage left]\norientation: left\nport: input\naxes_mapping: +x, -y\n"},
		{"mapping not bijective", "[stage left]\norientation: left\nport: input\naxes_mapping: +x, -x, +z\n"},
		{"negative speed", "[mover]\nspeed_xy: -1\n"},
		{"interval too small", "[monitor]\nupdate_interval_ms: 10\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := LoadString(tt.cfg)
			if err != nil {
				t.Fatalf("LoadString: %v", err)
			}
			if _, err := ParseStation(c); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}
