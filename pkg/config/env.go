package config

// EnvPrefix is handed to envconfig; every field carries its full name in the tag.
const EnvPrefix = "FROSTLINE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv = "FROSTLINE_APP_ENV"
	EnvPort   = "FROSTLINE_APP_PORT"

	EnvDBDSN  = "FROSTLINE_DB_DSN"
	EnvDBHost = "FROSTLINE_DB_HOST"
	EnvDBUser = "FROSTLINE_DB_USER"
	EnvDBName = "FROSTLINE_DB_NAME"

	EnvRedisURL = "FROSTLINE_REDIS_URL"

	EnvJWTSecret = "FROSTLINE_JWT_SECRET"
	EnvJWTIssuer = "FROSTLINE_JWT_ISSUER"

	EnvAIAPIKey            = "FROSTLINE_AI_API_KEY"
	EnvAITimeout           = "FROSTLINE_AI_TIMEOUT"
	EnvAIRateLimitBackend  = "FROSTLINE_AI_RATE_LIMIT_BACKEND"
	EnvAIRateLimitRequests = "FROSTLINE_AI_RATE_LIMIT_REQUESTS"
	EnvAIBreakerThreshold  = "FROSTLINE_AI_BREAKER_THRESHOLD"

	EnvGCPProjectID      = "FROSTLINE_GCP_PROJECT_ID"
	EnvPubSubDomainTopic = "FROSTLINE_PUBSUB_DOMAIN_TOPIC"
	EnvFreightProvider   = "FROSTLINE_FREIGHT_PROVIDER"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
