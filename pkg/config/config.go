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
	DB           DBConfig
	ReferenceDB  ReferenceDBConfig
	Redis        RedisConfig
	Cache        CacheConfig
	JWT          JWTConfig
	CORS         CORSConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"ASSETINV_APP_ENV" required:"true"`
	Port         string `envconfig:"ASSETINV_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ASSETINV_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ASSETINV_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ASSETINV_DB_DSN"`
	Driver string `envconfig:"ASSETINV_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ASSETINV_DB_HOST"`
	LegacyPort     int    `envconfig:"ASSETINV_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ASSETINV_DB_USER"`
	LegacyPassword string `envconfig:"ASSETINV_DB_PASSWORD"`
	LegacyName     string `envconfig:"ASSETINV_DB_NAME"`
	LegacySSLMode  string `envconfig:"ASSETINV_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ASSETINV_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ASSETINV_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ASSETINV_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ASSETINV_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// ReferenceDBConfig points at the registry database holding clinics, dentists
// and the other reference entities. An empty DSN reuses the primary database.
type ReferenceDBConfig struct {
	DSN          string `envconfig:"ASSETINV_REFERENCE_DB_DSN"`
	MaxOpenConns int    `envconfig:"ASSETINV_REFERENCE_DB_MAX_OPEN_CONNS" default:"5"`
	MaxIdleConns int    `envconfig:"ASSETINV_REFERENCE_DB_MAX_IDLE_CONNS" default:"2"`
}

// Enabled reports whether a dedicated reference database is configured.
func (r ReferenceDBConfig) Enabled() bool {
	return strings.TrimSpace(r.DSN) != ""
}

// DBConfig converts the reference settings into a pool config for pkg/db.
func (r ReferenceDBConfig) DBConfig(primary DBConfig) DBConfig {
	out := primary
	out.DSN = r.DSN
	if r.MaxOpenConns > 0 {
		out.MaxOpenConns = r.MaxOpenConns
	}
	if r.MaxIdleConns > 0 {
		out.MaxIdleConns = r.MaxIdleConns
	}
	return out
}

type RedisConfig struct {
	URL          string        `envconfig:"ASSETINV_REDIS_URL"`
	Address      string        `envconfig:"ASSETINV_REDIS_ADDR"`
	Password     string        `envconfig:"ASSETINV_REDIS_PASSWORD"`
	DB           int           `envconfig:"ASSETINV_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ASSETINV_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ASSETINV_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ASSETINV_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ASSETINV_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ASSETINV_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Configured reports whether any redis endpoint was supplied.
func (r RedisConfig) Configured() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type CacheConfig struct {
	Enabled           bool          `envconfig:"ASSETINV_CACHE_ENABLED" default:"true"`
	TTL               time.Duration `envconfig:"ASSETINV_CACHE_TTL" default:"1h"`
	ScanCount         int64         `envconfig:"ASSETINV_CACHE_SCAN_COUNT" default:"100"`
	MaxScanIterations int           `envconfig:"ASSETINV_CACHE_MAX_SCAN_ITERATIONS" default:"200"`
	IdempotencyTTL    time.Duration `envconfig:"ASSETINV_IDEMPOTENCY_TTL" default:"24h"`
}

type JWTConfig struct {
	Secret string `envconfig:"ASSETINV_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"ASSETINV_JWT_ISSUER" required:"true"`
	// Leeway tolerates small clock skew between the issuer and this service.
	Leeway time.Duration `envconfig:"ASSETINV_JWT_LEEWAY" default:"30s"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"ASSETINV_CORS_ALLOWED_ORIGINS" default:"*"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ASSETINV_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ASSETINV_AUTO_MIGRATE" default:"false"`
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
