// Package bootstrap holds the process wiring shared by the api, cron-worker and
// outbox-publisher binaries: env loading, logger construction and the database and redis
// handles every one of them needs.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/harvestlink/market-backend/pkg/config"
	"github.com/harvestlink/market-backend/pkg/db"
	"github.com/harvestlink/market-backend/pkg/logger"
	"github.com/harvestlink/market-backend/pkg/migrate"
	"github.com/harvestlink/market-backend/pkg/redis"
)

// Load reads .env (when present) and the process config, then builds the service logger
// from the app settings. The returned logger is usable even when err is non-nil.
func Load(service string) (*config.Config, *logger.Logger, error) {
	logg := logger.New(logger.Options{ServiceName: service})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, logg, err
	}
	cfg.Service.Kind = service

	return cfg, NewLogger(service, cfg.App), nil
}

// NewLogger builds the structured logger for service from the app settings. Production
// always logs JSON lines.
func NewLogger(service string, app config.AppConfig) *logger.Logger {
	return logger.New(logger.Options{
		ServiceName: service,
		Level:       logger.ParseLevel(app.LogLevel),
		WarnStack:   app.LogWarnStack,
		Console:     app.LogConsole() && !app.IsProd(),
	})
}

// Infra owns the connections opened for a process. Close releases them newest first.
type Infra struct {
	DB    *db.Client
	Redis *redis.Client

	closers []func() error
}

// Open connects to postgres, applies dev migrations when enabled and connects to redis.
// Anything opened before a failure is released before returning.
func Open(ctx context.Context, cfg *config.Config, logg *logger.Logger) (_ *Infra, err error) {
	infra := &Infra{}
	defer func() {
		if err != nil {
			err = multierr.Append(err, infra.Close())
		}
	}()

	if infra.DB, err = db.New(ctx, cfg.DB, logg); err != nil {
		return nil, fmt.Errorf("bootstrap database: %w", err)
	}
	infra.Defer(infra.DB.Close)

	if err = migrate.MaybeRunDev(ctx, cfg, logg, infra.DB); err != nil {
		return nil, fmt.Errorf("dev migrations: %w", err)
	}

	if infra.Redis, err = redis.New(ctx, cfg.Redis, logg); err != nil {
		return nil, fmt.Errorf("bootstrap redis: %w", err)
	}
	infra.Defer(infra.Redis.Close)

	return infra, nil
}

// Defer registers an extra resource to release on Close.
func (i *Infra) Defer(closer func() error) {
	if closer != nil {
		i.closers = append(i.closers, closer)
	}
}

// Close runs every registered closer in reverse order and combines their errors.
func (i *Infra) Close() error {
	if i == nil {
		return nil
	}
	var err error
	for idx := len(i.closers) - 1; idx >= 0; idx-- {
		err = multierr.Append(err, i.closers[idx]())
	}
	i.closers = nil
	return err
}
