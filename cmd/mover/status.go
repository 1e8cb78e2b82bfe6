package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"mover-go/pkg/monitor"
)

func newStatusCommand() *cobra.Command {
	var flagAddr string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Query a running station for its current status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &http.Client{Timeout: 5 * time.Second}
			resp, err := client.Get("http://" + flagAddr + "/status")
			if err != nil {
				return fmt.Errorf("is the station running? %w", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("station returned %s", resp.Status)
			}

			var status monitor.StationStatus
			if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
				return err
			}

			fmt.Printf("Station state: %s\n", status.State)
			if status.ChipID != "" {
				fmt.Printf("Chip:          %s\n", status.ChipID)
			}
			for _, st := range status.Stages {
				fmt.Printf("\nStage %s (%s, %s)\n", st.ID, st.Orientation, st.Port)
				fmt.Printf("  State:    %s\n", st.State)
				fmt.Printf("  Pairings: %d\n", st.Pairings)
				if st.ChipX != nil && st.ChipY != nil && st.ChipZ != nil {
					fmt.Printf("  Position: (%.2f, %.2f, %.2f) um\n", *st.ChipX, *st.ChipY, *st.ChipZ)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flagAddr, "addr", "localhost:8765", "monitor address of the running station")
	return cmd
}
