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

	"github.com/harvestlink/market-backend/pkg/bootstrap"
	"github.com/harvestlink/market-backend/pkg/config"
	"github.com/harvestlink/market-backend/pkg/kafka"
	"github.com/harvestlink/market-backend/pkg/logger"
	"github.com/harvestlink/market-backend/pkg/metrics"
	"github.com/harvestlink/market-backend/pkg/outbox"
	"github.com/harvestlink/market-backend/pkg/outbox/idempotency"
	"github.com/harvestlink/market-backend/pkg/outbox/registry"
	"github.com/harvestlink/market-backend/pkg/pubsub"
)

const serviceName = "outbox-publisher"

func main() {
	cfg, logg, err := bootstrap.Load(serviceName)
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "outbox publisher stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	infra, err := bootstrap.Open(ctx, cfg, logg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := infra.Close(); closeErr != nil {
			logg.Error(ctx, "error releasing publisher resources", closeErr)
		}
	}()

	tr, topic, err := openTransport(ctx, cfg, logg, infra)
	if err != nil {
		return err
	}
	events, err := registry.NewEventRegistry(topic)
	if err != nil {
		return fmt.Errorf("event registry: %w", err)
	}
	guard, err := idempotency.NewDeliveryGuard(infra.Redis, cfg.Outbox.DeliveryGuardTTL)
	if err != nil {
		return fmt.Errorf("delivery guard: %w", err)
	}

	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            infra.DB,
		Transport:     tr,
		Repository:    outbox.NewRepository(infra.DB.DB()),
		Registry:      events,
		DLQRepository: outbox.NewDLQRepository(infra.DB.DB()),
		Guard:         guard,
		Metrics:       metrics.NewOutboxPublisherMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return fmt.Errorf("outbox publisher: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"transport":   tr.Name(),
	})
	logg.Info(ctx, "starting outbox publisher")

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return service.Run(groupCtx) })
	group.Go(func() error { return metrics.Serve(groupCtx, cfg.App.MetricsAddr, prometheus.DefaultGatherer) })
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logg.Info(ctx, "outbox publisher shutting down gracefully")
	return nil
}

// openTransport connects the configured broker and registers it for release with infra.
// It returns the transport with the topic order events go to.
func openTransport(ctx context.Context, cfg *config.Config, logg *logger.Logger, infra *bootstrap.Infra) (transport, string, error) {
	if cfg.Outbox.UsesKafka() {
		producer, err := kafka.NewProducer(cfg.Kafka, logg)
		if err != nil {
			return nil, "", fmt.Errorf("bootstrap kafka: %w", err)
		}
		infra.Defer(producer.Close)
		return &kafkaTransport{producer: producer}, cfg.Kafka.OrdersTopic, nil
	}

	client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return nil, "", fmt.Errorf("bootstrap pubsub: %w", err)
	}
	infra.Defer(client.Close)
	return newPubSubTransport(client, nil), cfg.PubSub.OrdersTopic, nil
}
