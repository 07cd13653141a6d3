package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"sailperf/internal/config"
	"sailperf/internal/web"
)

func newRunCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Ingest the configured sources until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runService(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "./sailperf.yaml", "Path to YAML config")
	return cmd
}

func runService(ctx context.Context, cfg config.Config) error {
	var logs *web.LogBuffer
	var extra io.Writer
	if cfg.Web.Enable {
		logs = web.NewLogBuffer(2000)
		extra = logs
	}
	logger, err := newLogger(cfg.Log.Level, cfg.Log.Development, extra)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	rt, err := newRuntime(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	logger.Info("sailperf starting",
		zap.Int("sources", len(rt.runner.Workers())),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("trigger", cfg.Decoders.Trigger),
	)

	runCtx, stopSources := context.WithCancel(ctx)
	defer stopSources()
	webCtx, stopWeb := context.WithCancel(ctx)
	defer stopWeb()

	var g errgroup.Group
	g.Go(func() error {
		err := rt.runner.Run(runCtx)
		if err == nil {
			logger.Info("all sources stopped")
			return nil
		}
		// The web surface keeps reporting as long as one source came up.
		if !cfg.Web.Enable || rt.runner.Started() == 0 {
			stopWeb()
			return err
		}
		logger.Warn("sources stopped with errors", zap.Error(err))
		return nil
	})
	if cfg.Web.Enable {
		// The web surface outlives finite sources until interrupted.
		g.Go(func() error {
			logger.Info("web listening", zap.String("listen", cfg.Web.Listen))
			err := web.Serve(webCtx, cfg.Web.Listen, rt.webDeps(logs))
			stopSources()
			return err
		})
	}

	err = g.Wait()
	logger.Info("sailperf stopping")
	return err
}
