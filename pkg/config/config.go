package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every environment variable the app reads.
	EnvPrefix = "SEWAKIT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "SEWAKIT_DB_DSN"
	EnvDBHost = "SEWAKIT_DB_HOST"
	EnvDBUser = "SEWAKIT_DB_USER"
	EnvDBName = "SEWAKIT_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	FeatureFlags FeatureFlagsConfig
	Sweep        SweepConfig
	Booking      BookingConfig
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
	Env          string `envconfig:"SEWAKIT_APP_ENV" required:"true"`
	Port         string `envconfig:"SEWAKIT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SEWAKIT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SEWAKIT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SEWAKIT_DB_DSN"`
	Driver string `envconfig:"SEWAKIT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SEWAKIT_DB_HOST"`
	LegacyPort     int    `envconfig:"SEWAKIT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SEWAKIT_DB_USER"`
	LegacyPassword string `envconfig:"SEWAKIT_DB_PASSWORD"`
	LegacyName     string `envconfig:"SEWAKIT_DB_NAME"`
	LegacySSLMode  string `envconfig:"SEWAKIT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SEWAKIT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SEWAKIT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SEWAKIT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SEWAKIT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SEWAKIT_REDIS_URL"`
	Address      string        `envconfig:"SEWAKIT_REDIS_ADDR"`
	Password     string        `envconfig:"SEWAKIT_REDIS_PASSWORD"`
	DB           int           `envconfig:"SEWAKIT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SEWAKIT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SEWAKIT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SEWAKIT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SEWAKIT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SEWAKIT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SEWAKIT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SEWAKIT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SEWAKIT_JWT_EXPIRATION_MINUTES" default:"720"`
	RefreshTTLHours   int    `envconfig:"SEWAKIT_JWT_REFRESH_TTL_HOURS" default:"168"`
}

// RefreshTokenTTL returns the refresh token lifetime as a duration.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(j.RefreshTTLHours) * time.Hour
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SEWAKIT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SEWAKIT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SEWAKIT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SEWAKIT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SEWAKIT_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SEWAKIT_AUTO_MIGRATE" default:"false"`
}

// SweepConfig tunes the expired-order sweeper.
type SweepConfig struct {
	PendingPaymentTTL time.Duration `envconfig:"SEWAKIT_SWEEP_PENDING_PAYMENT_TTL" default:"2h"`
	Interval          time.Duration `envconfig:"SEWAKIT_SWEEP_INTERVAL" default:"10m"`
}

// BookingConfig tunes booking defaults.
type BookingConfig struct {
	DefaultRentalDays int `envconfig:"SEWAKIT_BOOKING_DEFAULT_RENTAL_DAYS" default:"1"`
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
