// Command mover runs the motion host for a photonic probing station: it
// loads the station configuration, connects the stages and serves the
// status monitor.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mover-go/pkg/log"
)

var (
	flagConfig   string
	flagLogLevel string
)

func main() {
	root := &cobra.Command{
		Use:           "mover",
		Short:         "Motion host for chip probing stations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagLogLevel == "" {
				return
			}
			logger := log.New("mover")
			log.ConfigureFromEnv(logger)
			logger.SetLevel(log.ParseLevel(flagLogLevel))
			log.SetDefaultLogger(logger)
		},
	}

	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "station.cfg", "station configuration file")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warning, error)")

	root.AddCommand(
		newServeCommand(),
		newStatusCommand(),
		newCalibrateCommand(),
		newMoveCommand(),
		newWiggleCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
