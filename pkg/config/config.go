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
	AccessToken  AccessTokenConfig
	InternalAuth InternalAuthConfig
	FeatureFlags FeatureFlagsConfig
	Billing      BillingConfig
	Cron         CronConfig
	Square       SquareConfig
	Webhooks     WebhooksConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if _, err := cfg.Billing.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"DISHDASH_APP_ENV" required:"true"`
	Port         string `envconfig:"DISHDASH_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"DISHDASH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DISHDASH_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"DISHDASH_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"DISHDASH_DB_DSN"`
	Driver string `envconfig:"DISHDASH_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"DISHDASH_DB_HOST"`
	LegacyPort     int    `envconfig:"DISHDASH_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"DISHDASH_DB_USER"`
	LegacyPassword string `envconfig:"DISHDASH_DB_PASSWORD"`
	LegacyName     string `envconfig:"DISHDASH_DB_NAME"`
	LegacySSLMode  string `envconfig:"DISHDASH_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"DISHDASH_SQLITE_PATH" default:"dishdash.db"`

	MaxOpenConns    int           `envconfig:"DISHDASH_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DISHDASH_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DISHDASH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DISHDASH_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is the embedded SQLite one.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"DISHDASH_REDIS_URL" required:"true"`
	Address      string        `envconfig:"DISHDASH_REDIS_ADDR"`
	Password     string        `envconfig:"DISHDASH_REDIS_PASSWORD"`
	DB           int           `envconfig:"DISHDASH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DISHDASH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DISHDASH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DISHDASH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DISHDASH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DISHDASH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// AccessTokenConfig validates restaurant-facing bearer tokens minted by the auth service.
type AccessTokenConfig struct {
	Secret string        `envconfig:"DISHDASH_JWT_SECRET" required:"true"`
	Issuer string        `envconfig:"DISHDASH_JWT_ISSUER" required:"true"`
	TTL    time.Duration `envconfig:"DISHDASH_JWT_TTL" default:"15m"`
}

// InternalAuthConfig validates tokens presented by the scheduler and other trusted services.
type InternalAuthConfig struct {
	Secret   string        `envconfig:"DISHDASH_INTERNAL_TOKEN_SECRET" required:"true"`
	Issuer   string        `envconfig:"DISHDASH_INTERNAL_TOKEN_ISSUER" default:"dishdash-internal"`
	TokenTTL time.Duration `envconfig:"DISHDASH_INTERNAL_TOKEN_TTL" default:"5m"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"DISHDASH_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"DISHDASH_AUTO_MIGRATE" default:"false"`
}

// BillingConfig tunes the commission engine. The commission rate itself is not configurable.
type BillingConfig struct {
	Timezone         string        `envconfig:"DISHDASH_BILLING_TIMEZONE" default:"UTC"`
	RecordTimeout    time.Duration `envconfig:"DISHDASH_BILLING_RECORD_TIMEOUT" default:"10s"`
	SweepBatchSize   int           `envconfig:"DISHDASH_BILLING_SWEEP_BATCH_SIZE" default:"500"`
	CloseLookbackWks int           `envconfig:"DISHDASH_BILLING_CLOSE_LOOKBACK_WEEKS" default:"1"`
}

// Location resolves the billing timezone used for week boundaries.
func (b BillingConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(b.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", EnvBillingTimezone, name, err)
	}
	return loc, nil
}

type CronConfig struct {
	Interval time.Duration `envconfig:"DISHDASH_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"DISHDASH_CRON_LOCK_TTL" default:"55m"`
}

type SquareConfig struct {
	AccessToken    string        `envconfig:"DISHDASH_SQUARE_ACCESS_TOKEN"`
	WebhookSecret  string        `envconfig:"DISHDASH_SQUARE_WEBHOOK_SECRET"`
	Env            string        `envconfig:"DISHDASH_SQUARE_ENV" default:"sandbox"`
	LocationID     string        `envconfig:"DISHDASH_SQUARE_LOCATION_ID"`
	RedirectURL    string        `envconfig:"DISHDASH_SQUARE_REDIRECT_URL"`
	WebhookURL     string        `envconfig:"DISHDASH_SQUARE_WEBHOOK_URL"`
	RequestTimeout time.Duration `envconfig:"DISHDASH_SQUARE_REQUEST_TIMEOUT" default:"15s"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

// Enabled reports whether enough credentials are present to talk to Square.
func (s SquareConfig) Enabled() bool {
	return strings.TrimSpace(s.AccessToken) != "" && strings.TrimSpace(s.WebhookSecret) != ""
}

type WebhooksConfig struct {
	IdempotencyTTL time.Duration `envconfig:"DISHDASH_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"DISHDASH_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	BillingTopic string `envconfig:"DISHDASH_PUBSUB_BILLING_TOPIC" default:"dishdash-billing-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"DISHDASH_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"DISHDASH_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"DISHDASH_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DriverSQLite
	}
	if db.IsSQLite() {
		if db.DSN == "" {
			db.DSN = db.SQLitePath
		}
		return nil
	}
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
