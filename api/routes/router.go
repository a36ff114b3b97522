package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/harvestlink/market-backend/api/controllers"
	ordercontrollers "github.com/harvestlink/market-backend/api/controllers/orders"
	"github.com/harvestlink/market-backend/api/middleware"
	"github.com/harvestlink/market-backend/internal/orders"
	"github.com/harvestlink/market-backend/pkg/config"
	"github.com/harvestlink/market-backend/pkg/logger"
	"github.com/harvestlink/market-backend/pkg/metrics"
	pkgredis "github.com/harvestlink/market-backend/pkg/redis"
)

const createRateLimitPolicy = "orders-create"

// RedisStore is the part of the redis client the HTTP layer needs.
type RedisStore interface {
	pkgredis.IdempotencyStore
	controllers.Pinger
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient RedisStore,
	ordersSvc orders.Service,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": dbP,
			"redis":    redisClient,
		}))
	})
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(gatherer))
	}

	idempotent := middleware.Idempotency(redisClient, cfg.Orders.IdempotencyTTL, logg)
	createLimit := middleware.PhoneRateLimit(middleware.RateLimitPolicy{
		Name:   createRateLimitPolicy,
		Limit:  cfg.Orders.CreateRateLimit,
		Window: cfg.Orders.CreateRateLimitEvery,
	}, redisClient, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ActorPhone(logg))

		r.Route("/orders", func(r chi.Router) {
			r.With(idempotent, createLimit).Post("/", ordercontrollers.Create(ordersSvc, logg))
			r.Get("/", ordercontrollers.List(ordersSvc, logg))
			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", ordercontrollers.Detail(ordersSvc, logg))
				r.Patch("/", ordercontrollers.Update(ordersSvc, logg))
				r.With(idempotent).Post("/confirm-receipt", ordercontrollers.ConfirmReceipt(ordersSvc, logg))
				r.With(idempotent).Post("/refund", ordercontrollers.Refund(ordersSvc, logg))
				r.With(idempotent).Post("/cancel", ordercontrollers.Cancel(ordersSvc, logg))
			})
		})

		r.Route("/farmer/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.FarmerList(ordersSvc, logg))
			r.Get("/{orderId}", ordercontrollers.FarmerDetail(ordersSvc, logg))
		})
	})

	return r
}
