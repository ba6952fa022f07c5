package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/crewdeck/internal/aggregate"
	"github.com/zulandar/crewdeck/internal/archive"
	"github.com/zulandar/crewdeck/internal/config"
	"github.com/zulandar/crewdeck/internal/dashboard"
	"github.com/zulandar/crewdeck/internal/notify"
	"github.com/zulandar/crewdeck/internal/source"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the aggregation server",
		Long:  "Fetches the upstream status and activity feeds, merges them, and serves the dashboard API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "crewdeck.yaml", "path to Crewdeck config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if port != 0 {
		cfg.Server.Port = port
	}

	statusSrc, err := source.New("status", cfg.Sources.Status)
	if err != nil {
		return err
	}
	activitySrc, err := source.New("activity", cfg.Sources.Activity)
	if err != nil {
		return err
	}

	cache := source.NewCache(cfg.Poll.CacheTTL(), nil)
	agg, err := aggregate.New(aggregate.Opts{
		Status:   statusSrc,
		Activity: activitySrc,
		Cache:    cache,
	})
	if err != nil {
		return err
	}

	store, err := archive.Open(cfg.Archive)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	// File-backed sources refresh on write instead of waiting out the TTL.
	watchFileSource(ctx, statusSrc, cache)
	watchFileSource(ctx, activitySrc, cache)

	startDigests(ctx, cfg, store)
	startPruning(ctx, store, cfg.Archive.Keep)

	return dashboard.Start(ctx, dashboard.StartOpts{
		Aggregator: agg,
		Archive:    store,
		Port:       cfg.Server.Port,
		Out:        cmd.OutOrStdout(),
	})
}

// watchFileSource starts a background fsnotify watcher for file-backed
// sources. Other providers are left alone.
func watchFileSource(ctx context.Context, src source.Source, cache *source.Cache) {
	fs, ok := src.(*source.FileSource)
	if !ok {
		return
	}
	go func() {
		if err := fs.Watch(ctx, cache); err != nil && ctx.Err() == nil {
			log.Printf("deck: watch %s: %v", src.Name(), err)
		}
	}()
}

// startDigests runs the scheduled fleet digest when both a cron expression
// and an archive are configured.
func startDigests(ctx context.Context, cfg *config.Config, store *archive.Store) {
	if cfg.Notify.DigestCron == "" || store == nil {
		return
	}
	router, err := buildRouter(ctx, cfg.Notify)
	if err != nil {
		log.Printf("deck: notify: %v", err)
		return
	}
	if router == nil {
		return
	}
	go notify.NewDigester(store).RunDigests(ctx, router, cfg.Notify.DigestCron)
}

// startPruning trims the archive to its retention limit once an hour.
func startPruning(ctx context.Context, store *archive.Store, keep int) {
	if store == nil || keep <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := store.Prune(keep); err != nil {
					log.Printf("deck: prune: %v", err)
				} else if n > 0 {
					log.Printf("deck: pruned %d archived snapshots", n)
				}
			}
		}
	}()
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	env, err := config.LoadEnv()
	if err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	env.Apply(cfg)
	return cfg, nil
}
