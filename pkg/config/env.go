package config

const (
	EnvPrefix = "HARVESTLINK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	OutboxTransportPubSub = "pubsub"
	OutboxTransportKafka  = "kafka"
)

const (
	EnvAppEnv          = "HARVESTLINK_APP_ENV"
	EnvPort            = "HARVESTLINK_APP_PORT"
	EnvLogLevel        = "HARVESTLINK_LOG_LEVEL"
	EnvDBDSN           = "HARVESTLINK_DB_DSN"
	EnvDBHost          = "HARVESTLINK_DB_HOST"
	EnvDBPort          = "HARVESTLINK_DB_PORT"
	EnvDBUser          = "HARVESTLINK_DB_USER"
	EnvDBPassword      = "HARVESTLINK_DB_PASSWORD"
	EnvDBName          = "HARVESTLINK_DB_NAME"
	EnvDBSSLMode       = "HARVESTLINK_DB_SSLMODE"
	EnvRedisURL        = "HARVESTLINK_REDIS_URL"
	EnvOutboxTransport = "HARVESTLINK_OUTBOX_TRANSPORT"
	EnvGCPProjectID    = "HARVESTLINK_GCP_PROJECT_ID"
	EnvKafkaBrokers    = "HARVESTLINK_KAFKA_BROKERS"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
