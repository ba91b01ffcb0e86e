package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "worklane"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "WORKLANE_DB_DSN"
	EnvDBHost = "WORKLANE_DB_HOST"
	EnvDBUser = "WORKLANE_DB_USER"
	EnvDBName = "WORKLANE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Webhooks     WebhooksConfig
	Checkout     CheckoutConfig
	Licensing    LicensingConfig
	Authz        AuthzConfig
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
	Env          string `envconfig:"WORKLANE_APP_ENV" required:"true"`
	Port         string `envconfig:"WORKLANE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"WORKLANE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"WORKLANE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"WORKLANE_DB_DSN"`
	Driver string `envconfig:"WORKLANE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"WORKLANE_DB_HOST"`
	LegacyPort     int    `envconfig:"WORKLANE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"WORKLANE_DB_USER"`
	LegacyPassword string `envconfig:"WORKLANE_DB_PASSWORD"`
	LegacyName     string `envconfig:"WORKLANE_DB_NAME"`
	LegacySSLMode  string `envconfig:"WORKLANE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"WORKLANE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"WORKLANE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"WORKLANE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"WORKLANE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"WORKLANE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"WORKLANE_REDIS_ADDR"`
	Password     string        `envconfig:"WORKLANE_REDIS_PASSWORD"`
	DB           int           `envconfig:"WORKLANE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"WORKLANE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"WORKLANE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"WORKLANE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"WORKLANE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WORKLANE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"WORKLANE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"WORKLANE_AUTO_MIGRATE" default:"false"`
}

type WebhooksConfig struct {
	// TTL on the redis idempotency keys guarding provider event re-delivery.
	EventIdempotencyTTL time.Duration `envconfig:"WORKLANE_WEBHOOK_EVENT_IDEMPOTENCY_TTL" default:"72h"`
}

type CheckoutConfig struct {
	OrderIDPrefix        string `envconfig:"WORKLANE_CHECKOUT_ORDER_ID_PREFIX" default:"ORD"`
	DigitalOrderIDPrefix string `envconfig:"WORKLANE_CHECKOUT_DIGITAL_ORDER_ID_PREFIX" default:"DIG"`
	DefaultCurrency      string `envconfig:"WORKLANE_CHECKOUT_DEFAULT_CURRENCY" default:"IDR"`
}

type LicensingConfig struct {
	// Interval for the scheduled sweep that expires overdue licenses.
	ExpirySweepInterval time.Duration `envconfig:"WORKLANE_LICENSE_EXPIRY_SWEEP_INTERVAL" default:"1h"`
}

type AuthzConfig struct {
	// Comma-separated list of emails granted admin capabilities.
	AdminEmails []string `envconfig:"WORKLANE_ADMIN_EMAILS"`
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
