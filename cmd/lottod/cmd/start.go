package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/cometbft/cometbft/abci/server"
	"github.com/spf13/cobra"

	"onchainlotto/internal/app"
	"onchainlotto/internal/config"
	"onchainlotto/internal/metrics"
	"onchainlotto/internal/recorder"
)

func newStartCmd() *cobra.Command {
	d := config.Default()
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Run the lottery ABCI server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runStart(cmd, cfg)
		},
	}
	f := cmd.Flags()
	f.String("abci.addr", d.ABCI.Addr, "ABCI listen address")
	f.String("abci.transport", d.ABCI.Transport, "ABCI transport (socket|grpc)")
	f.String("db.backend", d.DB.Backend, "state database backend (goleveldb|pebbledb|memdb)")
	f.String("log.level", d.Log.Level, "log level")
	f.String("log.format", d.Log.Format, "log format (plain|json)")
	f.Bool("metrics.enabled", d.Metrics.Enabled, "serve prometheus metrics")
	f.String("metrics.addr", d.Metrics.Addr, "prometheus listen address")
	return cmd
}

func runStart(cmd *cobra.Command, cfg *config.Config) error {
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	params, err := cfg.LotteryParams()
	if err != nil {
		return err
	}

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if path := cfg.SQLitePath(); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("history dir: %w", err)
		}
		sqlRec, err := recorder.NewSQLiteRecorder(path, logger)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		rec = sqlRec
	}

	a, err := app.New(cfg.Home, app.Options{
		Logger:     logger,
		DBBackend:  cfg.DB.Backend,
		PoolParams: params,
		Recorder:   rec,
	})
	if err != nil {
		_ = rec.Close()
		return fmt.Errorf("init app: %w", err)
	}
	defer func() { _ = a.Close() }()

	srv, err := server.NewServer(cfg.ABCI.Addr, cfg.ABCI.Transport, a)
	if err != nil {
		return fmt.Errorf("start abci server: %w", err)
	}
	if err := srv.Start(); err != nil {
		return fmt.Errorf("abci server start: %w", err)
	}
	defer func() { _ = srv.Stop() }()
	logger.Info("abci server listening", "addr", cfg.ABCI.Addr, "transport", cfg.ABCI.Transport)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	if cfg.Metrics.Enabled {
		go func() {
			logger.Info("metrics listening", "addr", cfg.Metrics.Addr)
			errCh <- metrics.Serve(ctx, cfg.Metrics.Addr)
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	}
}
