package config

const (
	EnvPrefix = "DISHDASH"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	EnvAppEnv            = "DISHDASH_APP_ENV"
	EnvPort              = "DISHDASH_APP_PORT"
	EnvDBDSN             = "DISHDASH_DB_DSN"
	EnvDBHost            = "DISHDASH_DB_HOST"
	EnvDBUser            = "DISHDASH_DB_USER"
	EnvDBName            = "DISHDASH_DB_NAME"
	EnvRedisURL          = "DISHDASH_REDIS_URL"
	EnvJWTSecret         = "DISHDASH_JWT_SECRET"
	EnvJWTIssuer         = "DISHDASH_JWT_ISSUER"
	EnvInternalSecret    = "DISHDASH_INTERNAL_TOKEN_SECRET"
	EnvUseSQLite         = "DISHDASH_USE_SQLITE"
	EnvBillingTimezone   = "DISHDASH_BILLING_TIMEZONE"
	EnvSquareAccessToken = "DISHDASH_SQUARE_ACCESS_TOKEN"
	EnvSquareWebhook     = "DISHDASH_SQUARE_WEBHOOK_SECRET"
	EnvCronInterval      = "DISHDASH_CRON_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
