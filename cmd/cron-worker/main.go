package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/harvestlink/market-backend/internal/cron"
	"github.com/harvestlink/market-backend/internal/ledger"
	"github.com/harvestlink/market-backend/internal/orders"
	"github.com/harvestlink/market-backend/pkg/bootstrap"
	"github.com/harvestlink/market-backend/pkg/config"
	"github.com/harvestlink/market-backend/pkg/db"
	"github.com/harvestlink/market-backend/pkg/logger"
	"github.com/harvestlink/market-backend/pkg/metrics"
	"github.com/harvestlink/market-backend/pkg/outbox"
)

const serviceName = "cron-worker"

func main() {
	cfg, logg, err := bootstrap.Load(serviceName)
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})

	infra, err := bootstrap.Open(ctx, cfg, logg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := infra.Close(); closeErr != nil {
			logg.Error(ctx, "error releasing cron worker resources", closeErr)
		}
	}()

	jobMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(infra.Redis, lockName(cfg.App.Env), 2*cfg.Cron.Interval)
	if err != nil {
		return fmt.Errorf("cron lock: %w", err)
	}
	jobs, err := buildRegistry(cfg, logg, infra.DB, jobMetrics)
	if err != nil {
		return fmt.Errorf("register cron jobs: %w", err)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: jobs,
		Lock:     lock,
		Metrics:  jobMetrics,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return fmt.Errorf("cron service: %w", err)
	}

	logg.Info(ctx, "starting cron worker")
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return service.Run(groupCtx) })
	group.Go(func() error { return metrics.Serve(groupCtx, cfg.App.MetricsAddr, prometheus.DefaultGatherer) })
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
	return nil
}

// buildRegistry constructs every scheduled job against one database handle.
func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, jobMetrics *metrics.CronJobMetrics) (*cron.Registry, error) {
	constructors := []func() (cron.Job, error){
		func() (cron.Job, error) {
			return cron.NewLedgerReconcileJob(cron.LedgerReconcileJobParams{
				Logger:    logg,
				Orders:    orders.NewRepository(dbClient.DB()),
				Journal:   ledger.NewRepository(dbClient.DB()),
				Metrics:   jobMetrics,
				BatchSize: cfg.Cron.ReconcileBatchSize,
			})
		},
		func() (cron.Job, error) {
			return cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
				Logger:           logg,
				DB:               dbClient,
				Repository:       outbox.NewRepository(dbClient.DB()),
				RetentionDays:    cfg.Cron.OutboxRetentionDays,
				TerminalAttempts: cfg.Outbox.MaxAttempts,
			})
		},
	}

	registry := cron.NewRegistry()
	for _, build := range constructors {
		job, err := build()
		if err != nil {
			return nil, err
		}
		if err := registry.Register(job); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return "cron-worker:" + env
}
