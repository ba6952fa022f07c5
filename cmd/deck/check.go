package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/crewdeck/internal/syncer"
)

func newCheckCmd() *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:     "check",
		Aliases: []string{"status"},
		Short:   "Print the fleet view once and exit",
		Long:  "Polls the aggregation server a single time and prints the current fleet view. Exits non-zero when the server is unreachable.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, server)
		},
	}

	cmd.Flags().StringVarP(&server, "server", "s", "http://localhost:8080", "aggregation server base URL")
	return cmd
}

func runCheck(cmd *cobra.Command, server string) error {
	client := syncer.NewHTTPClient(server)
	snap, err := client.GetSnapshot(cmd.Context())
	if err != nil {
		return fmt.Errorf("check %s: %w", server, err)
	}
	if snap.Error != "" {
		return fmt.Errorf("check %s: server reported: %s", server, snap.Error)
	}

	trail := snap.Activities
	if len(trail) > syncer.TrailLimit {
		trail = trail[:syncer.TrailLimit]
	}
	fmt.Fprint(cmd.OutOrStdout(), syncer.FormatView(snap, trail, nil, ""))
	return nil
}
