package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App        AppConfig
	Service    ServiceConfig
	DB         DBConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Features   FeatureFlagsConfig
	Eventing   EventingConfig
	GCP        GCPConfig
	PubSub     PubSubConfig
	Kafka      KafkaConfig
	Outbox     OutboxConfig
	Tracking   TrackingConfig
	Settlement SettlementConfig
	Cron       CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Settlement.validate(cfg.Cron); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"DELIVERY_APP_ENV" required:"true"`
	Port         string   `envconfig:"DELIVERY_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"DELIVERY_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"DELIVERY_LOG_WARN_STACK" default:"false"`
	LogFormat    string   `envconfig:"DELIVERY_LOG_FORMAT" default:"json"`
	CORSOrigins  []string `envconfig:"DELIVERY_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// ConsoleLogs reports whether DELIVERY_LOG_FORMAT asks for console output.
func (a AppConfig) ConsoleLogs() bool {
	return strings.EqualFold(strings.TrimSpace(a.LogFormat), "console")
}

type ServiceConfig struct {
	Kind string `envconfig:"DELIVERY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"DELIVERY_DB_DSN"`
	Driver string `envconfig:"DELIVERY_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"DELIVERY_DB_HOST"`
	Port     int    `envconfig:"DELIVERY_DB_PORT" default:"5432"`
	User     string `envconfig:"DELIVERY_DB_USER"`
	Password string `envconfig:"DELIVERY_DB_PASSWORD"`
	Name     string `envconfig:"DELIVERY_DB_NAME"`
	SSLMode  string `envconfig:"DELIVERY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DELIVERY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DELIVERY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DELIVERY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DELIVERY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"DELIVERY_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DELIVERY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"DELIVERY_REDIS_ADDR"`
	Password     string        `envconfig:"DELIVERY_REDIS_PASSWORD"`
	DB           int           `envconfig:"DELIVERY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DELIVERY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DELIVERY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DELIVERY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DELIVERY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DELIVERY_REDIS_WRITE_TIMEOUT" default:"5s"`
	KeyPrefix    string        `envconfig:"DELIVERY_REDIS_KEY_PREFIX" default:"cl"`
}

type JWTConfig struct {
	Secret            string `envconfig:"DELIVERY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"DELIVERY_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"DELIVERY_JWT_EXPIRATION_MINUTES" default:"60"`
	LeewaySeconds     int    `envconfig:"DELIVERY_JWT_LEEWAY_SECONDS" default:"30"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// Leeway is the clock skew tolerated when checking token times.
func (j JWTConfig) Leeway() time.Duration {
	if j.LeewaySeconds < 0 {
		return 0
	}
	return time.Duration(j.LeewaySeconds) * time.Second
}

type FeatureFlagsConfig struct {
	AutoMigrate   bool `envconfig:"DELIVERY_AUTO_MIGRATE" default:"false"`
	KafkaTracking bool `envconfig:"DELIVERY_FEATURE_KAFKA_TRACKING" default:"false"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"DELIVERY_EVENTING_IDEMPOTENCY_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"DELIVERY_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"DELIVERY_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"DELIVERY_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic              string `envconfig:"DELIVERY_PUBSUB_ORDERS_TOPIC" default:"delivery-order-events"`
	RefundsTopic             string `envconfig:"DELIVERY_PUBSUB_REFUNDS_TOPIC" default:"delivery-refund-events"`
	NotificationTopic        string `envconfig:"DELIVERY_PUBSUB_NOTIFICATION_TOPIC" default:"delivery-notification-events"`
	NotificationSubscription string `envconfig:"DELIVERY_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"delivery-notification-inbox"`
}

type KafkaConfig struct {
	Brokers       []string      `envconfig:"DELIVERY_KAFKA_BROKERS" default:"localhost:9092"`
	TrackingTopic string        `envconfig:"DELIVERY_KAFKA_TRACKING_TOPIC" default:"delivery.tracking"`
	BatchTimeout  time.Duration `envconfig:"DELIVERY_KAFKA_BATCH_TIMEOUT" default:"50ms"`
	WriteTimeout  time.Duration `envconfig:"DELIVERY_KAFKA_WRITE_TIMEOUT" default:"5s"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"DELIVERY_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"DELIVERY_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"DELIVERY_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"DELIVERY_OUTBOX_RETENTION" default:"720h"`
	DLQRetention   time.Duration `envconfig:"DELIVERY_OUTBOX_DLQ_RETENTION" default:"2160h"`
	PublishTimeout time.Duration `envconfig:"DELIVERY_OUTBOX_PUBLISH_TIMEOUT" default:"15s"`
}

type TrackingConfig struct {
	LatestTTL      time.Duration `envconfig:"DELIVERY_TRACKING_LATEST_TTL" default:"24h"`
	PublishTimeout time.Duration `envconfig:"DELIVERY_TRACKING_PUBLISH_TIMEOUT" default:"2s"`
	StreamPing     time.Duration `envconfig:"DELIVERY_TRACKING_STREAM_PING" default:"25s"`
}

type SettlementConfig struct {
	// PlatformMarkupRate is the default fraction of the subtotal retained by the platform.
	PlatformMarkupRate string `envconfig:"DELIVERY_PLATFORM_MARKUP_RATE" default:"0.15"`
	BatchSize          int    `envconfig:"DELIVERY_REFUND_SETTLEMENT_BATCH_SIZE" default:"25"`

	// Lease is how long a processing refund stays claimed before another run
	// may retry it. It must outlast a cron job run.
	Lease time.Duration `envconfig:"DELIVERY_REFUND_SETTLEMENT_LEASE" default:"15m"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"DELIVERY_CRON_INTERVAL" default:"1m"`
	LockTTL  time.Duration `envconfig:"DELIVERY_CRON_LOCK_TTL" default:"5m"`

	NotificationReadRetention time.Duration `envconfig:"DELIVERY_NOTIFICATION_READ_RETENTION" default:"720h"`
	NotificationMaxAge        time.Duration `envconfig:"DELIVERY_NOTIFICATION_MAX_AGE" default:"4320h"`
}

func (s SettlementConfig) validate(cron CronConfig) error {
	if s.BatchSize <= 0 {
		return fmt.Errorf("%s must be positive", EnvRefundSettlementBatch)
	}
	if s.Lease <= cron.LockTTL {
		return fmt.Errorf("%s (%s) must exceed the cron lock ttl (%s)", EnvRefundSettlementLease, s.Lease, cron.LockTTL)
	}
	return nil
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	parts := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range dbPartEnvVars {
		if parts[env] == "" {
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
