package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App     AppConfig
	Service ServiceConfig
	DB      DBConfig
	Redis   RedisConfig
	Orders  OrdersConfig
	Outbox  OutboxConfig
	GCP     GCPConfig
	PubSub  PubSubConfig
	Kafka   KafkaConfig
	Cron    CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Outbox.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"HARVESTLINK_APP_ENV" required:"true"`
	Port         string `envconfig:"HARVESTLINK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"HARVESTLINK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"HARVESTLINK_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"HARVESTLINK_LOG_FORMAT" default:"json"`
	// MetricsAddr is where the background workers expose /metrics. Blank disables it; the
	// api serves /metrics on its own router.
	MetricsAddr string `envconfig:"HARVESTLINK_METRICS_ADDR"`
}

// LogConsole reports whether logs should use the human-readable console writer.
func (a AppConfig) LogConsole() bool {
	return strings.EqualFold(strings.TrimSpace(a.LogFormat), "console")
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"HARVESTLINK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"HARVESTLINK_DB_DSN"`
	Driver string `envconfig:"HARVESTLINK_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"HARVESTLINK_DB_HOST"`
	Port     int    `envconfig:"HARVESTLINK_DB_PORT" default:"5432"`
	User     string `envconfig:"HARVESTLINK_DB_USER"`
	Password string `envconfig:"HARVESTLINK_DB_PASSWORD"`
	Name     string `envconfig:"HARVESTLINK_DB_NAME"`
	SSLMode  string `envconfig:"HARVESTLINK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"HARVESTLINK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"HARVESTLINK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"HARVESTLINK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"HARVESTLINK_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"HARVESTLINK_DB_SLOW_QUERY_THRESHOLD" default:"200ms"`
	TxMaxRetries       int           `envconfig:"HARVESTLINK_DB_TX_MAX_RETRIES" default:"3"`

	RunMigrations bool `envconfig:"HARVESTLINK_DB_RUN_MIGRATIONS" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"HARVESTLINK_REDIS_URL"`
	Address      string        `envconfig:"HARVESTLINK_REDIS_ADDR"`
	Password     string        `envconfig:"HARVESTLINK_REDIS_PASSWORD"`
	DB           int           `envconfig:"HARVESTLINK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"HARVESTLINK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"HARVESTLINK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"HARVESTLINK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"HARVESTLINK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"HARVESTLINK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// OrdersConfig tunes the buyer-facing order surface.
type OrdersConfig struct {
	IdempotencyTTL       time.Duration `envconfig:"HARVESTLINK_ORDERS_IDEMPOTENCY_TTL" default:"24h"`
	CreateRateLimit      int           `envconfig:"HARVESTLINK_ORDERS_CREATE_RATE_LIMIT" default:"10"`
	CreateRateLimitEvery time.Duration `envconfig:"HARVESTLINK_ORDERS_CREATE_RATE_WINDOW" default:"1m"`
}

type OutboxConfig struct {
	BatchSize      int    `envconfig:"HARVESTLINK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"HARVESTLINK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"HARVESTLINK_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Transport      string `envconfig:"HARVESTLINK_OUTBOX_TRANSPORT" default:"pubsub"`
	// DeliveryGuardTTL bounds how long redis remembers an acknowledged event id.
	DeliveryGuardTTL time.Duration `envconfig:"HARVESTLINK_OUTBOX_DELIVERY_GUARD_TTL" default:"72h"`
}

// UsesKafka reports whether outbox events are shipped to Kafka instead of Pub/Sub.
func (o OutboxConfig) UsesKafka() bool {
	return strings.EqualFold(strings.TrimSpace(o.Transport), OutboxTransportKafka)
}

func (o OutboxConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(o.Transport)) {
	case OutboxTransportPubSub, OutboxTransportKafka:
		return nil
	}
	return fmt.Errorf("%s must be %q or %q", EnvOutboxTransport, OutboxTransportPubSub, OutboxTransportKafka)
}

type GCPConfig struct {
	ProjectID string `envconfig:"HARVESTLINK_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"HARVESTLINK_PUBSUB_ORDERS_TOPIC" default:"harvestlink-order-events"`
}

type KafkaConfig struct {
	Brokers     []string `envconfig:"HARVESTLINK_KAFKA_BROKERS" default:"localhost:9092"`
	OrdersTopic string   `envconfig:"HARVESTLINK_KAFKA_ORDERS_TOPIC" default:"harvestlink.order-events"`
}

type CronConfig struct {
	Interval            time.Duration `envconfig:"HARVESTLINK_CRON_INTERVAL" default:"1h"`
	OutboxRetentionDays int           `envconfig:"HARVESTLINK_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
	ReconcileBatchSize  int           `envconfig:"HARVESTLINK_CRON_RECONCILE_BATCH_SIZE" default:"500"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}
	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}
	db.DSN = u.String()
	return nil
}
