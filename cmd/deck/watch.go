package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/crewdeck/internal/syncer"
)

func newWatchCmd() *cobra.Command {
	var (
		server     string
		configPath string
		interval   int
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the dashboard in the terminal",
		Long:  "Polls the aggregation server and redraws the fleet view on every refresh. A failed poll keeps the last good view on screen with an error banner. Ctrl+C to stop.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, server, configPath, interval)
		},
	}

	cmd.Flags().StringVarP(&server, "server", "s", "http://localhost:8080", "aggregation server base URL")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "optional Crewdeck config file (supplies chat alert tokens)")
	cmd.Flags().IntVar(&interval, "interval", 30, "poll interval in seconds")
	return cmd
}

func runWatch(cmd *cobra.Command, server, configPath string, interval int) error {
	var alerts syncer.AlertSink
	if configPath != "" {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		router, err := buildRouter(cmd.Context(), cfg.Notify)
		if err != nil {
			log.Printf("deck: notify: %v", err)
		} else if router != nil {
			alerts = router
			defer router.Close()
		}
	}

	sync, err := syncer.New(syncer.Opts{
		Client:   syncer.NewHTTPClient(server),
		Interval: time.Duration(interval) * time.Second,
		Alerts:   alerts,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go sync.Run(ctx)

	out := cmd.OutOrStdout()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			view, ok := sync.View()
			// Clear screen.
			fmt.Fprint(out, "\033[2J\033[H")
			if !ok {
				if msg := sync.LastError(); msg != "" {
					fmt.Fprintf(out, "%s (server: %s)\n", msg, server)
				} else {
					fmt.Fprintf(out, "Connecting to %s...\n", server)
				}
				continue
			}
			fmt.Fprint(out, syncer.FormatView(view, sync.Trail(), sync.Notifications(), sync.LastError()))
		}
	}
}
