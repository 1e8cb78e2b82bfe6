package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mover-go/pkg/calibration"
	"mover-go/pkg/coordinate"
)

func newWiggleCommand() *cobra.Command {
	var (
		flagChip     string
		flagStage    string
		flagAxis     string
		flagDistance float64
		flagSpeed    float64
	)

	cmd := &cobra.Command{
		Use:   "wiggle",
		Short: "Move a stage along one chip axis and back to verify its axes mapping",
		RunE: func(cmd *cobra.Command, args []string) error {
			axis, err := coordinate.ParseAxis(flagAxis)
			if err != nil {
				return err
			}

			m, station, _, err := buildStation(flagConfig)
			if err != nil {
				return err
			}
			if err := startStation(m, station, flagChip); err != nil {
				return err
			}
			defer m.DisconnectAll()

			if err := requireState(m, flagStage, calibration.CoordinateSystemFixed); err != nil {
				return err
			}
			cal, err := m.Calibration(flagStage)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return cal.WiggleAxis(ctx, axis, flagDistance, flagSpeed)
		},
	}

	cmd.Flags().StringVar(&flagChip, "chip", "", "identifier of the loaded chip")
	cmd.Flags().StringVar(&flagStage, "stage", "", "stage identifier")
	cmd.Flags().StringVar(&flagAxis, "axis", "x", "chip axis to wiggle (x, y, z)")
	cmd.Flags().Float64Var(&flagDistance, "distance", 1000, "wiggle distance in micrometers")
	cmd.Flags().Float64Var(&flagSpeed, "speed", 50, "wiggle speed in micrometers per second")
	cmd.MarkFlagRequired("stage")
	return cmd
}
