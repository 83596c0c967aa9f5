package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mercator-hq/riskctl/pkg/assessment"
	"mercator-hq/riskctl/pkg/cli"
	"mercator-hq/riskctl/pkg/config"
	"mercator-hq/riskctl/pkg/history/retention"
	"mercator-hq/riskctl/pkg/server"
	"mercator-hq/riskctl/pkg/telemetry"
	"mercator-hq/riskctl/pkg/telemetry/health"
	"mercator-hq/riskctl/pkg/watch"
)

type serveOptions struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

func newServeCmd(a *app) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the riskctl HTTP API server",
		Long: `Start the HTTP API over the configured workspace and model.

The server exposes evaluation, diff, validation, system management,
portfolio and history endpoints under /api, plus health, version and
Prometheus metrics endpoints.

Examples:
  # Start with the default config file
  riskctl serve

  # Override the listen address
  riskctl serve --listen 0.0.0.0:9090

  # Validate config without starting the server
  riskctl serve --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), a, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.listenAddress, "listen", "l", "", "override listen address")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "validate config without starting the server")
	return cmd
}

func runServe(ctx context.Context, a *app, opts serveOptions) error {
	cfg := a.cfg
	if opts.listenAddress != "" {
		cfg.Server.ListenAddress = opts.listenAddress
	}
	if opts.logLevel != "" {
		cfg.Telemetry.Logging.Level = opts.logLevel
	}
	if a.verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	if opts.dryRun {
		fmt.Fprintln(a.stdout, "Configuration valid")
		return nil
	}

	tel, err := telemetry.New(&cfg.Telemetry, a.stderr, Version)
	if err != nil {
		return cli.NewConfigError("telemetry", err.Error())
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			tel.Logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()
	logger := tel.Logger
	a.logger = logger

	ctx, stop := cli.SignalContext(ctx)
	defer stop()

	store, err := a.openHistory()
	if err != nil {
		return cli.NewCommandError("serve", err)
	}
	if store != nil {
		defer store.Close()
	}

	ws := a.workspace()
	svc := assessment.New(assessment.Options{
		Sources:     a.resolver(),
		Workspace:   ws,
		History:     store,
		Metrics:     tel.Metrics,
		Tracer:      tel.Tracer,
		Logger:      logger,
		Concurrency: cfg.Workspace.Concurrency,
	})

	tel.Health.RegisterCheck("workspace", health.DirCheck(ws.Root()))
	tel.Health.RegisterCheck("model", func(ctx context.Context) error {
		_, err := svc.Model(ctx, "")
		return err
	})
	if store != nil {
		tel.Health.RegisterCheck("history", health.PingCheck(store))

		scheduler := retention.NewScheduler(retention.NewPruner(store, retention.FromConfig(cfg.History), logger))
		if err := scheduler.Start(ctx); err != nil {
			logger.Warn("failed to start retention scheduler", "error", err)
		} else if next := scheduler.NextRun(); next != nil {
			logger.Debug("history retention scheduler started", "next_run", next)
		}
		defer scheduler.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Model.Watch {
		if dir := localModelDir("", cfg.Model.Dir); dir != "" {
			g.Go(func() error {
				err := svc.WatchModels(gctx, watch.Config{Path: dir, Debounce: cfg.Model.Debounce})
				if err != nil {
					logger.Warn("model watcher stopped", "error", err)
				}
				return nil
			})
		}
	}

	levelOverride := opts.logLevel
	if a.verbose {
		levelOverride = "debug"
	}
	hangups, stopHangups := cli.NotifyReload()
	defer stopHangups()
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-hangups:
				if err := reloadConfig(a.cfgFile, levelOverride, tel, svc); err != nil {
					logger.Warn("configuration reload failed", "error", err)
				}
			}
		}
	})

	srv := server.New(cfg, svc, tel, health.NewVersionInfo(Version, GitCommit, BuildDate))
	g.Go(func() error {
		return srv.Start(gctx)
	})

	fmt.Fprintf(a.stderr, "riskctl %s listening on %s (Ctrl+C to stop)\n", Version, cfg.Server.ListenAddress)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return cli.NewCommandError("serve", err)
	}
	logger.Info("riskctl stopped")
	return nil
}

// reloadConfig re-reads the config file and applies the settings a running
// server can change: the log level and the cached models. The listener,
// security and history settings take effect on restart.
func reloadConfig(path, levelOverride string, tel *telemetry.Telemetry, svc *assessment.Service) error {
	if _, err := config.ReloadConfig(path); err != nil {
		return err
	}
	cfg := config.GetConfig()

	level := cfg.Telemetry.Logging.Level
	if levelOverride != "" {
		level = levelOverride
	}
	if err := tel.SetLogLevel(level); err != nil {
		return err
	}
	svc.Invalidate()

	tel.Logger.Info("configuration reloaded", "path", path, "log_level", level)
	return nil
}
