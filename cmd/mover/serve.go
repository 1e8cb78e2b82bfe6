package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"mover-go/pkg/calibration"
	"mover-go/pkg/config"
	"mover-go/pkg/log"
	"mover-go/pkg/monitor"
	"mover-go/pkg/mover"
	"mover-go/pkg/stage"
	"mover-go/pkg/store"
)

// buildStation loads the configuration, opens the calibration store and
// registers every configured stage with a fresh mover. Stages are not yet
// connected.
func buildStation(cfgPath string) (*mover.Mover, *config.StationConfig, *config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, nil, err
	}
	station, err := config.ParseStation(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	var st *store.Store
	if station.Mover.DataDir != "" {
		st, err = store.New(filepath.Join(station.Mover.DataDir, store.DefaultFileName))
		if err != nil {
			return nil, nil, nil, err
		}
	}

	m := mover.New(st)
	if err := m.UpdateSettings(mover.Settings{
		SpeedXY:      station.Mover.SpeedXY,
		SpeedZ:       station.Mover.SpeedZ,
		Acceleration: station.Mover.Acceleration,
		ZLift:        station.Mover.ZLift,
	}); err != nil {
		return nil, nil, nil, err
	}

	for _, sc := range station.Stages {
		drv, err := stage.New(sc.Type, sc.ID, sc.Address)
		if err != nil {
			return nil, nil, nil, err
		}
		if _, err := m.AddStage(drv, sc.Orientation, sc.Port, sc.Shape); err != nil {
			return nil, nil, nil, err
		}
	}
	return m, station, cfg, nil
}

// startStation connects all stages, applies configured axes mappings and
// restores persisted calibrations for the given chip.
func startStation(m *mover.Mover, station *config.StationConfig, chipID string) error {
	m.SetChip(chipID)
	if err := m.ConnectAll(); err != nil {
		return err
	}

	for _, sc := range station.Stages {
		if sc.AxesMapping == nil {
			continue
		}
		if err := m.FixCoordinateSystem(sc.ID, *sc.AxesMapping); err != nil {
			return err
		}
	}

	// Stored calibrations take precedence over configured presets.
	return m.RestoreCalibrations()
}

func newServeCommand() *cobra.Command {
	var flagChip string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Connect all stages and run the station",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.GetLogger("serve")

			m, station, cfg, err := buildStation(flagConfig)
			if err != nil {
				return err
			}
			if err := startStation(m, station, flagChip); err != nil {
				return err
			}
			defer func() {
				if err := m.DisconnectAll(); err != nil {
					logger.Error("disconnect failed: %v", err)
				}
			}()

			if err := cfg.CheckUnused(); err != nil {
				logger.Warn("%v", err)
			}
			logger.Info("station up with %d stage(s), state %s",
				len(m.Calibrations()), m.State())

			var srv *monitor.Server
			if station.Monitor.Enabled {
				srv = monitor.NewServer(monitor.NewMoverAdapter(m),
					station.Monitor.Listen, station.Monitor.UpdateInterval)
				go func() {
					if err := srv.Start(); err != nil {
						logger.Error("monitor server failed: %v", err)
					}
				}()
			}

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			s := <-sig
			logger.Info("received %s, shutting down", s)

			if srv != nil {
				if err := srv.Stop(); err != nil {
					logger.Error("stopping monitor failed: %v", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flagChip, "chip", "", "identifier of the loaded chip")
	return cmd
}

// requireState is a CLI-side guard with a friendlier message than the raw
// state error.
func requireState(m *mover.Mover, id string, required calibration.State) error {
	cal, err := m.Calibration(id)
	if err != nil {
		return err
	}
	if s := cal.State(); s < required {
		return &stateError{stage: id, current: s, required: required}
	}
	return nil
}

type stateError struct {
	stage    string
	current  calibration.State
	required calibration.State
}

func (e *stateError) Error() string {
	return "stage " + e.stage + " is in state \"" + e.current.String() +
		"\" but \"" + e.required.String() + "\" is required; calibrate it first"
}
