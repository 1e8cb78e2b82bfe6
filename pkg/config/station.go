package config

import (
	"time"

	"mover-go/pkg/calibration"
	"mover-go/pkg/coordinate"
	"mover-go/pkg/polygon"
	"mover-go/pkg/stage"
)

// StageConfig describes one [stage <id>] section.
type StageConfig struct {
	ID          string
	Type        string
	Address     string
	Orientation polygon.Orientation
	Port        calibration.DevicePort
	Shape       string

	// AxesMapping is an optional preset mapping, one signed stage axis per
	// chip axis ("+x, -y, +z"). Nil when the option is absent.
	AxesMapping *coordinate.AxesMapping
}

// MoverConfig describes the [mover] section.
type MoverConfig struct {
	SpeedXY      float64
	SpeedZ       float64
	Acceleration float64
	ZLift        float64
	DataDir      string
}

// MonitorConfig describes the [monitor] section.
type MonitorConfig struct {
	Enabled        bool
	Listen         string
	UpdateInterval time.Duration
}

// StationConfig is the fully parsed station file.
type StationConfig struct {
	Mover   MoverConfig
	Monitor MonitorConfig
	Stages  []StageConfig
}

// ParseStation extracts the typed station configuration. Section and option
// names not consumed here are reported by CheckUnused.
func ParseStation(c *Config) (*StationConfig, error) {
	station := &StationConfig{}

	if err := parseMover(c, &station.Mover); err != nil {
		return nil, err
	}
	if err := parseMonitor(c, &station.Monitor); err != nil {
		return nil, err
	}
	for _, sec := range c.GetPrefixSections("stage ") {
		sc, err := parseStage(sec)
		if err != nil {
			return nil, err
		}
		station.Stages = append(station.Stages, sc)
	}
	return station, nil
}

func parseMover(c *Config, out *MoverConfig) error {
	sec := c.GetSectionOptional("mover")
	if sec == nil {
		sec = newSection("mover", nil)
	}

	zero := 0.0
	var err error
	if out.SpeedXY, err = sec.GetFloatWithBounds("speed_xy", FloatBounds{Above: &zero}, 200.0); err != nil {
		return err
	}
	if out.SpeedZ, err = sec.GetFloatWithBounds("speed_z", FloatBounds{Above: &zero}, 20.0); err != nil {
		return err
	}
	if out.Acceleration, err = sec.GetFloatWithBounds("acceleration", FloatBounds{MinVal: &zero}, 0.0); err != nil {
		return err
	}
	if out.ZLift, err = sec.GetFloatWithBounds("z_lift", FloatBounds{MinVal: &zero}, 20.0); err != nil {
		return err
	}
	if out.DataDir, err = sec.Get("data_dir", ""); err != nil {
		return err
	}
	return nil
}

func parseMonitor(c *Config, out *MonitorConfig) error {
	sec := c.GetSectionOptional("monitor")
	if sec == nil {
		out.Enabled = false
		return nil
	}

	var err error
	if out.Enabled, err = sec.GetBool("enabled", true); err != nil {
		return err
	}
	if out.Listen, err = sec.Get("listen", "localhost:8765"); err != nil {
		return err
	}
	intervalMS, err := sec.GetInt("update_interval_ms", 500)
	if err != nil {
		return err
	}
	if intervalMS < 50 {
		return ErrOutOfRange(sec.GetName(), "update_interval_ms", float64(intervalMS), "must have minimum of 50")
	}
	out.UpdateInterval = time.Duration(intervalMS) * time.Millisecond
	return nil
}

func parseStage(sec *Section) (StageConfig, error) {
	sc := StageConfig{ID: sec.Suffix()}
	if sc.ID == "" {
		return sc, NewConfigError(sec.GetName(), "", "stage section needs an identifier, e.g. [stage left]")
	}

	var err error
	if sc.Type, err = sec.Get("type", "dummy"); err != nil {
		return sc, err
	}
	if !stage.IsSupported(sc.Type) {
		return sc, ErrInvalidChoice(sec.GetName(), "type", sc.Type, stage.SupportedTypes())
	}
	if sc.Address, err = sec.Get("address", ""); err != nil {
		return sc, err
	}

	orientation, err := sec.GetChoice("orientation", []string{"left", "right", "top", "bottom"})
	if err != nil {
		return sc, err
	}
	o, ok := polygon.ParseOrientation(orientation)
	if !ok {
		return sc, ErrInvalidValue(sec.GetName(), "orientation", orientation, "left, right, top or bottom")
	}
	sc.Orientation = o

	port, err := sec.GetChoice("port", []string{"input", "output"})
	if err != nil {
		return sc, err
	}
	if port == "input" {
		sc.Port = calibration.Input
	} else {
		sc.Port = calibration.Output
	}

	if sc.Shape, err = sec.GetChoice("shape", polygon.SupportedShapes(), "fiber"); err != nil {
		return sc, err
	}

	if sec.HasOption("axes_mapping") {
		parts, err := sec.GetList("axes_mapping", ",")
		if err != nil {
			return sc, err
		}
		if len(parts) != 3 {
			return sc, ErrInvalidValue(sec.GetName(), "axes_mapping", "", "three signed axes, e.g. +x, -y, +z")
		}
		var m coordinate.AxesMapping
		for i, p := range parts {
			sa, err := coordinate.ParseSignedAxis(p)
			if err != nil {
				return sc, WrapError(sec.GetName(), "axes_mapping", err)
			}
			m[i] = sa
		}
		if !m.Valid() {
			return sc, ErrInvalidValue(sec.GetName(), "axes_mapping", "", "a signed permutation of x, y, z")
		}
		sc.AxesMapping = &m
	}

	return sc, nil
}
