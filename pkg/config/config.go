package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	AI           AIConfig
	Resilience   ResilienceConfig
	GoogleMaps   GoogleMapsConfig
	FreightQuote FreightQuoteConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	CORS         CORSConfig
	HTTP         HTTPConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FROSTLINE_APP_ENV" required:"true"`
	Port         string `envconfig:"FROSTLINE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FROSTLINE_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"FROSTLINE_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"FROSTLINE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"FROSTLINE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"FROSTLINE_DB_DSN"`
	Driver string `envconfig:"FROSTLINE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FROSTLINE_DB_HOST"`
	LegacyPort     int    `envconfig:"FROSTLINE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FROSTLINE_DB_USER"`
	LegacyPassword string `envconfig:"FROSTLINE_DB_PASSWORD"`
	LegacyName     string `envconfig:"FROSTLINE_DB_NAME"`
	LegacySSLMode  string `envconfig:"FROSTLINE_DB_SSLMODE" default:"require"`

	MaxOpenConns    int           `envconfig:"FROSTLINE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FROSTLINE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FROSTLINE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FROSTLINE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"FROSTLINE_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FROSTLINE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FROSTLINE_REDIS_ADDR"`
	Password     string        `envconfig:"FROSTLINE_REDIS_PASSWORD"`
	DB           int           `envconfig:"FROSTLINE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FROSTLINE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FROSTLINE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FROSTLINE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FROSTLINE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FROSTLINE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig holds the shared secret of the hosted auth provider. Tokens are
// minted there; this service only verifies them.
type JWTConfig struct {
	Secret   string `envconfig:"FROSTLINE_JWT_SECRET" required:"true"`
	Issuer   string `envconfig:"FROSTLINE_JWT_ISSUER" required:"true"`
	Audience string `envconfig:"FROSTLINE_JWT_AUDIENCE" default:"authenticated"`
	// Leeway tolerates small clock drift between the provider and this service.
	Leeway time.Duration `envconfig:"FROSTLINE_JWT_LEEWAY" default:"30s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"FROSTLINE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"FROSTLINE_AUTO_MIGRATE" default:"false"`
	AIAssist    bool `envconfig:"FROSTLINE_FEATURE_AI_ASSIST" default:"true"`
}

type AIConfig struct {
	APIKey    string        `envconfig:"FROSTLINE_AI_API_KEY"`
	BaseURL   string        `envconfig:"FROSTLINE_AI_BASE_URL" default:"https://api.anthropic.com"`
	Model     string        `envconfig:"FROSTLINE_AI_MODEL" default:"claude-3-5-haiku-20241022"`
	MaxTokens int           `envconfig:"FROSTLINE_AI_MAX_TOKENS" default:"1024"`
	Timeout   time.Duration `envconfig:"FROSTLINE_AI_TIMEOUT" default:"20s"`
}

// Enabled reports whether an AI provider can be used at all.
func (a AIConfig) Enabled() bool {
	return strings.TrimSpace(a.APIKey) != ""
}

type ResilienceConfig struct {
	// RateLimitBackend selects the per-user limiter store: memory, redis or database.
	RateLimitBackend  string        `envconfig:"FROSTLINE_AI_RATE_LIMIT_BACKEND" default:"redis"`
	RateLimitRequests int           `envconfig:"FROSTLINE_AI_RATE_LIMIT_REQUESTS" default:"20"`
	RateLimitWindow   time.Duration `envconfig:"FROSTLINE_AI_RATE_LIMIT_WINDOW" default:"1m"`
	// BreakerBackend selects where circuit state lives: memory or database.
	BreakerBackend   string        `envconfig:"FROSTLINE_AI_BREAKER_BACKEND" default:"database"`
	BreakerThreshold int           `envconfig:"FROSTLINE_AI_BREAKER_THRESHOLD" default:"5"`
	BreakerCooldown  time.Duration `envconfig:"FROSTLINE_AI_BREAKER_COOLDOWN" default:"60s"`
}

type GoogleMapsConfig struct {
	APIKey string `envconfig:"FROSTLINE_GOOGLE_MAPS_API_KEY"`
}

type FreightQuoteConfig struct {
	// Provider selects the dry LTL estimator: http or static.
	Provider string        `envconfig:"FROSTLINE_FREIGHT_PROVIDER" default:"static"`
	BaseURL  string        `envconfig:"FROSTLINE_FREIGHT_BASE_URL"`
	APIKey   string        `envconfig:"FROSTLINE_FREIGHT_API_KEY"`
	Timeout  time.Duration `envconfig:"FROSTLINE_FREIGHT_TIMEOUT" default:"15s"`
	// RateValidity is how long a quote saved as a lane rate stays active.
	RateValidity time.Duration `envconfig:"FROSTLINE_FREIGHT_RATE_VALIDITY" default:"168h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"FROSTLINE_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"FROSTLINE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"FROSTLINE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic string `envconfig:"FROSTLINE_PUBSUB_DOMAIN_TOPIC" default:"frostline-domain-events"`
	// CreateTopic creates a missing topic on boot instead of failing. Meant for the emulator.
	CreateTopic  bool          `envconfig:"FROSTLINE_PUBSUB_CREATE_TOPIC" default:"false"`
	BatchDelay   time.Duration `envconfig:"FROSTLINE_PUBSUB_BATCH_DELAY" default:"10ms"`
	BatchMaxSize int           `envconfig:"FROSTLINE_PUBSUB_BATCH_MAX_SIZE" default:"100"`
}

type BigQueryConfig struct {
	Dataset           string `envconfig:"FROSTLINE_BIGQUERY_DATASET" default:"frostline"`
	FreightQuoteTable string `envconfig:"FROSTLINE_BIGQUERY_FREIGHT_QUOTE_TABLE" default:"freight_quotes"`
}

// Enabled reports whether quote analytics should be shipped to BigQuery.
func (b BigQueryConfig) Enabled(gcp GCPConfig) bool {
	return strings.TrimSpace(gcp.ProjectID) != "" && strings.TrimSpace(b.Dataset) != ""
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"FROSTLINE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"FROSTLINE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"FROSTLINE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	// MetricsAddr serves /metrics from the publisher when set, e.g. ":9091".
	MetricsAddr string `envconfig:"FROSTLINE_OUTBOX_METRICS_ADDR"`
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"FROSTLINE_CRON_INTERVAL" default:"1h"`
	LockTTL         time.Duration `envconfig:"FROSTLINE_CRON_LOCK_TTL" default:"10m"`
	OutboxRetention time.Duration `envconfig:"FROSTLINE_CRON_OUTBOX_RETENTION" default:"720h"`
	RateLimitTTL    time.Duration `envconfig:"FROSTLINE_CRON_RATE_LIMIT_TTL" default:"24h"`
	RateExpiryAhead time.Duration `envconfig:"FROSTLINE_CRON_RATE_EXPIRY_AHEAD" default:"72h"`
	JobTimeout      time.Duration `envconfig:"FROSTLINE_CRON_JOB_TIMEOUT" default:"5m"`
	MetricsAddr     string        `envconfig:"FROSTLINE_CRON_METRICS_ADDR"`
}

// HTTPConfig throttles the expensive per-org endpoints.
type HTTPConfig struct {
	UploadRateLimit int           `envconfig:"FROSTLINE_HTTP_UPLOAD_RATE_LIMIT" default:"10"`
	ExportRateLimit int           `envconfig:"FROSTLINE_HTTP_EXPORT_RATE_LIMIT" default:"30"`
	RateLimitWindow time.Duration `envconfig:"FROSTLINE_HTTP_RATE_LIMIT_WINDOW" default:"1m"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"FROSTLINE_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
