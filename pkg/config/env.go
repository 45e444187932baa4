package config

const (
	EnvPrefix = "DELIVERY"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "DELIVERY_APP_ENV"
	EnvPort     = "DELIVERY_APP_PORT"
	EnvLogLevel = "DELIVERY_LOG_LEVEL"

	EnvDBDSN  = "DELIVERY_DB_DSN"
	EnvDBHost = "DELIVERY_DB_HOST"
	EnvDBUser = "DELIVERY_DB_USER"
	EnvDBName = "DELIVERY_DB_NAME"

	EnvRedisURL = "DELIVERY_REDIS_URL"

	EnvJWTSecret  = "DELIVERY_JWT_SECRET"
	EnvJWTIssuer  = "DELIVERY_JWT_ISSUER"
	EnvJWTExpMins = "DELIVERY_JWT_EXPIRATION_MINUTES"

	EnvKafkaBrokers       = "DELIVERY_KAFKA_BROKERS"
	EnvKafkaTrackingTopic = "DELIVERY_KAFKA_TRACKING_TOPIC"

	EnvPlatformMarkupRate    = "DELIVERY_PLATFORM_MARKUP_RATE"
	EnvRefundSettlementBatch = "DELIVERY_REFUND_SETTLEMENT_BATCH_SIZE"
	EnvRefundSettlementLease = "DELIVERY_REFUND_SETTLEMENT_LEASE"
	EnvCronLockTTL           = "DELIVERY_CRON_LOCK_TTL"

	EnvTrackingLatestTTL = "DELIVERY_TRACKING_LATEST_TTL"
)

var dbPartEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
