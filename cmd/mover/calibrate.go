package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mover-go/pkg/calibration"
	"mover-go/pkg/coordinate"
	"mover-go/pkg/transform"
)

// parseMapping parses "+x, -y, +z" into an axes mapping.
func parseMapping(arg string) (coordinate.AxesMapping, error) {
	var m coordinate.AxesMapping
	parts := strings.Split(arg, ",")
	if len(parts) != 3 {
		return m, fmt.Errorf("mapping %q must list three signed axes, e.g. +x,-y,+z", arg)
	}
	for i, p := range parts {
		sa, err := coordinate.ParseSignedAxis(p)
		if err != nil {
			return m, fmt.Errorf("mapping %q: %w", arg, err)
		}
		m[i] = sa
	}
	if !m.Valid() {
		return m, fmt.Errorf("mapping %q is not a signed permutation of x, y, z", arg)
	}
	return m, nil
}

// parsePairing parses "sx,sy,sz=cx,cy,cz" into a coordinate pairing.
func parsePairing(arg string) (transform.Pairing, error) {
	var p transform.Pairing
	halves := strings.SplitN(arg, "=", 2)
	if len(halves) != 2 {
		return p, fmt.Errorf("pairing %q must have the form sx,sy,sz=cx,cy,cz", arg)
	}
	stageVals, err := parseTriple(halves[0])
	if err != nil {
		return p, fmt.Errorf("pairing %q: %w", arg, err)
	}
	chipVals, err := parseTriple(halves[1])
	if err != nil {
		return p, fmt.Errorf("pairing %q: %w", arg, err)
	}
	p.Stage = coordinate.StageFromSlice(stageVals)
	p.Chip = coordinate.ChipFromSlice(chipVals)
	return p, nil
}

func parseTriple(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%q must have three coordinates", s)
	}
	vals := make([]float64, 3)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

func newCalibrateCommand() *cobra.Command {
	var (
		flagChip     string
		flagStage    string
		flagMapping  string
		flagPairings []string
		flagClear    bool
	)

	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Fix a stage's axes mapping and record coordinate pairings",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, station, _, err := buildStation(flagConfig)
			if err != nil {
				return err
			}
			if err := startStation(m, station, flagChip); err != nil {
				return err
			}
			defer m.DisconnectAll()

			cal, err := m.Calibration(flagStage)
			if err != nil {
				return err
			}

			if flagClear {
				for len(cal.Pairings()) > 0 {
					if err := m.RemovePairing(flagStage, 0); err != nil {
						return err
					}
				}
			}

			if flagMapping != "" {
				mapping, err := parseMapping(flagMapping)
				if err != nil {
					return err
				}
				if err := m.FixCoordinateSystem(flagStage, mapping); err != nil {
					return err
				}
				fmt.Printf("Axes mapping fixed: %s\n", mapping)
			}

			for _, arg := range flagPairings {
				p, err := parsePairing(arg)
				if err != nil {
					return err
				}
				if err := m.AddPairing(flagStage, p); err != nil {
					return err
				}
			}

			fmt.Printf("Stage %s: state %q, %d pairing(s)\n",
				flagStage, cal.State(), len(cal.Pairings()))
			if tr := cal.Transform(); tr != nil && cal.State() >= calibration.SinglePointFixed {
				fmt.Printf("RMS residual: %.3f um\n", transform.RMSError(tr, cal.Pairings()))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flagChip, "chip", "", "identifier of the loaded chip")
	cmd.Flags().StringVar(&flagStage, "stage", "", "stage identifier")
	cmd.Flags().StringVar(&flagMapping, "mapping", "", "signed axes mapping, e.g. +x,-y,+z")
	cmd.Flags().StringArrayVar(&flagPairings, "pairing", nil, "coordinate pairing sx,sy,sz=cx,cy,cz (repeatable)")
	cmd.Flags().BoolVar(&flagClear, "clear-pairings", false, "remove all stored pairings first")
	cmd.MarkFlagRequired("stage")
	return cmd
}
