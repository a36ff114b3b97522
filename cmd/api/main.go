package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/harvestlink/market-backend/api/routes"
	"github.com/harvestlink/market-backend/internal/accounts"
	"github.com/harvestlink/market-backend/internal/ledger"
	"github.com/harvestlink/market-backend/internal/orders"
	"github.com/harvestlink/market-backend/internal/products"
	"github.com/harvestlink/market-backend/internal/users"
	"github.com/harvestlink/market-backend/pkg/bootstrap"
	"github.com/harvestlink/market-backend/pkg/config"
	"github.com/harvestlink/market-backend/pkg/db"
	"github.com/harvestlink/market-backend/pkg/logger"
	"github.com/harvestlink/market-backend/pkg/metrics"
	"github.com/harvestlink/market-backend/pkg/outbox"
)

const (
	serviceName       = "api"
	shutdownTimeout   = 15 * time.Second
	readHeaderTimeout = 10 * time.Second
)

func main() {
	cfg, logg, err := bootstrap.Load(serviceName)
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	infra, err := bootstrap.Open(sigCtx, cfg, logg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := infra.Close(); closeErr != nil {
			logg.Error(context.Background(), "error releasing api resources", closeErr)
		}
	}()

	ordersService, err := newOrdersService(infra.DB, logg)
	if err != nil {
		return err
	}

	addr := listenAddr(cfg.App.Port)
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instanceID(),
	})
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, infra.DB, infra.Redis, ordersService, prometheus.DefaultGatherer),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-sigCtx.Done():
	}

	logg.Info(ctx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// newOrdersService wires the order lifecycle against one database handle.
func newOrdersService(dbClient *db.Client, logg *logger.Logger) (orders.Service, error) {
	conn := dbClient.DB()
	ledgerService, err := ledger.NewService(ledger.NewRepository(conn))
	if err != nil {
		return nil, fmt.Errorf("ledger service: %w", err)
	}
	svc, err := orders.NewService(orders.ServiceParams{
		Repo:      orders.NewRepository(conn),
		TxRunner:  dbClient,
		Accounts:  accounts.NewRepository(conn),
		Inventory: products.NewRepository(conn),
		Ledger:    ledgerService,
		Outbox:    outbox.NewService(outbox.NewRepository(conn), logg),
		Identity:  users.NewRepository(conn),
		Logger:    logg,
		Metrics:   metrics.NewOrderLifecycleMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return nil, fmt.Errorf("orders service: %w", err)
	}
	return svc, nil
}

// listenAddr prefers the platform-assigned PORT over the configured one.
func listenAddr(configured string) string {
	if port := os.Getenv("PORT"); port != "" {
		return ":" + port
	}
	return ":" + configured
}

func instanceID() string {
	if id := os.Getenv("DYNO"); id != "" {
		return id
	}
	return "local"
}
