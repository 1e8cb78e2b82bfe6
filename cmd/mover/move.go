package main

import (
	"fmt"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"mover-go/pkg/calibration"
	"mover-go/pkg/coordinate"
)

// parseTarget parses "id=x,y,z" into a stage identifier and chip position.
func parseTarget(arg string) (string, coordinate.ChipCoordinate, error) {
	var pos coordinate.ChipCoordinate
	idx := strings.IndexByte(arg, '=')
	if idx <= 0 {
		return "", pos, fmt.Errorf("target %q must have the form id=x,y,z", arg)
	}
	id := arg[:idx]
	parts := strings.Split(arg[idx+1:], ",")
	if len(parts) != 3 {
		return "", pos, fmt.Errorf("target %q must have three coordinates", arg)
	}
	vals := make([]float64, 3)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return "", pos, fmt.Errorf("target %q: %w", arg, err)
		}
		vals[i] = v
	}
	pos = coordinate.ChipCoordinate{X: vals[0], Y: vals[1], Z: vals[2]}
	return id, pos, nil
}

func newMoveCommand() *cobra.Command {
	var flagChip string

	cmd := &cobra.Command{
		Use:   "move id=x,y,z [id=x,y,z ...]",
		Short: "Move stages to chip-frame positions (micrometers)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targets := make(map[string]coordinate.ChipCoordinate, len(args))
			for _, arg := range args {
				id, pos, err := parseTarget(arg)
				if err != nil {
					return err
				}
				targets[id] = pos
			}

			m, station, _, err := buildStation(flagConfig)
			if err != nil {
				return err
			}
			if err := startStation(m, station, flagChip); err != nil {
				return err
			}
			defer m.DisconnectAll()

			for id := range targets {
				if err := requireState(m, id, calibration.SinglePointFixed); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return m.MoveToDevice(ctx, targets)
		},
	}

	cmd.Flags().StringVar(&flagChip, "chip", "", "identifier of the loaded chip")
	return cmd
}
