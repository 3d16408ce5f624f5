package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/veilmq/veil/internal/api"
	"github.com/veilmq/veil/internal/config"
	"github.com/veilmq/veil/internal/journal"
	"github.com/veilmq/veil/internal/metrics"
	"github.com/veilmq/veil/internal/runtime"
	"github.com/veilmq/veil/internal/task"
)

func main() {
	cmd := &cli.Command{
		Name:    "veild",
		Usage:   "veil messaging daemon",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to TOML config file",
				Value:   "veil.toml",
			},
			&cli.StringFlag{
				Name:  "listen",
				Usage: "admin listen address (overrides config)",
			},
			&cli.StringFlag{
				Name:  "journal",
				Usage: "journal database path (overrides config)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn, or error (overrides config)",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("veild: %v", err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfgPath := cmd.String("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if v := cmd.String("listen"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := cmd.String("journal"); v != "" {
		cfg.Journal.Path = v
	}
	if v := cmd.String("log-level"); v != "" {
		cfg.Log.Level = v
	}

	var level slog.LevelVar
	level.Set(cfg.LogLevel())
	logger := config.NewLogger(os.Stdout, &level)

	logger.Info("veild starting",
		"listen_addr", cfg.Server.ListenAddr,
		"journal_path", cfg.Journal.Path,
		"drain_timeout_ms", cfg.Tasks.DrainTimeoutMS,
	)

	j, err := journal.Open(cfg.Journal.Path, logger)
	if err != nil {
		return err
	}
	defer j.Close()

	rt := runtime.New("veild", logger)
	ctrl := task.New(rt, logger, metrics.NewTaskMetrics(), j)

	if err := ctrl.Spawn("config-watcher", config.Watch(cfgPath, &level, logger)); err != nil {
		return err
	}
	if err := ctrl.SpawnPeriodic("journal-pruner", cfg.PruneInterval(), j.PruneFunc(cfg.Retention())); err != nil {
		return err
	}

	srv := api.NewServer(cfg.Server.ListenAddr, ctrl, rt, j, logger,
		cfg.Server.RateLimit, cfg.Server.RateBurst)

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srvErr := make(chan error, 1)
	go func() { srvErr <- srv.Run(sigCtx) }()

	var runErr error
	select {
	case <-sigCtx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-srvErr:
		// Server failed on its own; tracked tasks are still drained below.
		srvErr = nil
	}

	teardown(cfg, ctrl, rt, logger)

	if srvErr != nil {
		if err := <-srvErr; err != nil && runErr == nil {
			runErr = err
		}
	}

	logger.Info("veild stopped")
	return runErr
}

// teardown drains tracked tasks within the configured budget, then shuts the
// runtime down. A drain timeout is logged with the stragglers and teardown
// proceeds anyway; blocking forever on a non-cooperative task would turn a
// known risk into a hung shutdown.
func teardown(cfg config.Config, ctrl *task.Controller, rt *runtime.Runtime, logger *slog.Logger) {
	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.DrainTimeout())
	defer cancel()

	if err := ctrl.TerminateAll(drainCtx); err != nil {
		var drainErr *task.DrainTimeoutError
		if errors.As(err, &drainErr) {
			for _, info := range drainErr.Remaining {
				logger.Warn("task did not drain",
					"task", info.Name,
					"task_id", info.ID,
					"started_at", info.StartedAt,
				)
			}
		} else {
			logger.Error("terminate tasks", "error", err)
		}
	}

	rtCtx, cancelRT := context.WithTimeout(context.Background(), cfg.DrainTimeout())
	defer cancelRT()
	if err := rt.Shutdown(rtCtx); err != nil {
		logger.Warn("runtime did not drain", "error", err)
	}
}
