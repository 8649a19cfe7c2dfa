package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"bankapi/internal/shared/config"
	"bankapi/internal/shared/logger"
	"bankapi/internal/shared/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(cfg.Log.Level)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName:  cfg.Telemetry.ServiceName,
			Environment:  cfg.Telemetry.Environment,
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			MetricsPort:  cfg.Telemetry.MetricsPort,
			SampleRatio:  cfg.Telemetry.SampleRatio,
		}, log)
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdownTelemetry(context.Background()); err != nil {
				log.Error("telemetry shutdown failed", zap.Error(err))
			}
		}()
	}

	deps, err := NewDependencies(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.Close()

	if cfg.Seed.DemoAccounts {
		if err := deps.SeedDemoAccounts(ctx, log); err != nil {
			return err
		}
	}

	sched, err := deps.StartReconcileScheduler(cfg, log)
	if err != nil {
		return err
	}
	if sched != nil {
		defer sched.Shutdown(cfg.Server.ShutdownTimeout)
	}

	handler := SetupRoutes(deps, cfg, log)
	srv, redirectSrv, errCh := StartServers(NewServerConfigFromConfig(handler, cfg), log)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		GracefulShutdown(srv, redirectSrv, cfg.Server.ShutdownTimeout, log)
		return fmt.Errorf("server error: %w", err)
	}

	GracefulShutdown(srv, redirectSrv, cfg.Server.ShutdownTimeout, log)
	return nil
}
