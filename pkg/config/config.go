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
	Billing      BillingConfig
	MercadoPago  MercadoPagoConfig
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
	Env          string `envconfig:"AGENDALI_APP_ENV" required:"true"`
	Port         string `envconfig:"AGENDALI_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"AGENDALI_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"AGENDALI_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"AGENDALI_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"AGENDALI_DB_DSN"`
	Driver string `envconfig:"AGENDALI_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"AGENDALI_DB_HOST"`
	LegacyPort     int    `envconfig:"AGENDALI_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"AGENDALI_DB_USER"`
	LegacyPassword string `envconfig:"AGENDALI_DB_PASSWORD"`
	LegacyName     string `envconfig:"AGENDALI_DB_NAME"`
	LegacySSLMode  string `envconfig:"AGENDALI_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"AGENDALI_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"AGENDALI_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"AGENDALI_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AGENDALI_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"AGENDALI_REDIS_URL" required:"true"`
	Address      string        `envconfig:"AGENDALI_REDIS_ADDR"`
	Password     string        `envconfig:"AGENDALI_REDIS_PASSWORD"`
	DB           int           `envconfig:"AGENDALI_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AGENDALI_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AGENDALI_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AGENDALI_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AGENDALI_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AGENDALI_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// BillingConfig tunes the charge lifecycle and the retry/suspension policy.
type BillingConfig struct {
	ChargeTTL          time.Duration `envconfig:"AGENDALI_BILLING_CHARGE_TTL" default:"24h"`
	RetryChargeTTL     time.Duration `envconfig:"AGENDALI_BILLING_RETRY_CHARGE_TTL" default:"48h"`
	MaxPaymentAttempts int           `envconfig:"AGENDALI_BILLING_MAX_PAYMENT_ATTEMPTS" default:"3"`
	ReminderWindow     time.Duration `envconfig:"AGENDALI_BILLING_REMINDER_WINDOW" default:"6h"`
	MaxReminders       int           `envconfig:"AGENDALI_BILLING_MAX_REMINDERS" default:"2"`
	CronInterval       time.Duration `envconfig:"AGENDALI_BILLING_CRON_INTERVAL" default:"1h"`
	WebhookReplayTTL   time.Duration `envconfig:"AGENDALI_BILLING_WEBHOOK_REPLAY_TTL" default:"72h"`
	IdempotencyTTL     time.Duration `envconfig:"AGENDALI_BILLING_IDEMPOTENCY_TTL" default:"24h"`
}

type MercadoPagoConfig struct {
	AccessToken string        `envconfig:"AGENDALI_MP_ACCESS_TOKEN" required:"true"`
	BaseURL     string        `envconfig:"AGENDALI_MP_BASE_URL" default:"https://api.mercadopago.com"`
	Timeout     time.Duration `envconfig:"AGENDALI_MP_TIMEOUT" default:"10s"`
	MaxRetries  int           `envconfig:"AGENDALI_MP_MAX_RETRIES" default:"3"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"AGENDALI_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"AGENDALI_AUTO_MIGRATE" default:"false"`
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
