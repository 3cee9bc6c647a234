package config

const (
	EnvPrefix = "ASSETINV"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv       = "ASSETINV_APP_ENV"
	EnvPort         = "ASSETINV_APP_PORT"
	EnvLogLevel     = "ASSETINV_LOG_LEVEL"
	EnvLogWarnStack = "ASSETINV_LOG_WARN_STACK"

	EnvDBDSN      = "ASSETINV_DB_DSN"
	EnvDBHost     = "ASSETINV_DB_HOST"
	EnvDBPort     = "ASSETINV_DB_PORT"
	EnvDBUser     = "ASSETINV_DB_USER"
	EnvDBPassword = "ASSETINV_DB_PASSWORD"
	EnvDBName     = "ASSETINV_DB_NAME"

	EnvReferenceDBDSN = "ASSETINV_REFERENCE_DB_DSN"

	EnvRedisURL  = "ASSETINV_REDIS_URL"
	EnvRedisAddr = "ASSETINV_REDIS_ADDR"

	EnvCacheEnabled  = "ASSETINV_CACHE_ENABLED"
	EnvCacheTTL      = "ASSETINV_CACHE_TTL"
	EnvCacheMaxScans = "ASSETINV_CACHE_MAX_SCAN_ITERATIONS"

	EnvJWTSecret = "ASSETINV_JWT_SECRET"
	EnvJWTIssuer = "ASSETINV_JWT_ISSUER"

	EnvUseSQLite   = "ASSETINV_USE_SQLITE"
	EnvAutoMigrate = "ASSETINV_AUTO_MIGRATE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
