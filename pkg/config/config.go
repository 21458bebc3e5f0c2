package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix is the envconfig namespace for every variable we read.
	EnvPrefix = "SUNR"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "SUNR_DB_DSN"
	EnvDBHost = "SUNR_DB_HOST"
	EnvDBUser = "SUNR_DB_USER"
	EnvDBName = "SUNR_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	Paystack     PaystackConfig
	Resend       ResendConfig
	GCP          GCPConfig
	GCS          GCSConfig
	Event        EventConfig
	Admin        AdminConfig
	RateLimit    RateLimitConfig
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
	Env          string `envconfig:"SUNR_APP_ENV" required:"true"`
	Port         string `envconfig:"SUNR_APP_PORT" required:"true"`
	PublicURL    string `envconfig:"SUNR_APP_PUBLIC_URL" required:"true"`
	LogLevel     string `envconfig:"SUNR_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SUNR_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SUNR_DB_DSN"`
	Driver string `envconfig:"SUNR_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SUNR_DB_HOST"`
	LegacyPort     int    `envconfig:"SUNR_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SUNR_DB_USER"`
	LegacyPassword string `envconfig:"SUNR_DB_PASSWORD"`
	LegacyName     string `envconfig:"SUNR_DB_NAME"`
	LegacySSLMode  string `envconfig:"SUNR_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SUNR_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SUNR_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SUNR_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SUNR_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SUNR_REDIS_URL"`
	Address      string        `envconfig:"SUNR_REDIS_ADDR"`
	Password     string        `envconfig:"SUNR_REDIS_PASSWORD"`
	DB           int           `envconfig:"SUNR_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SUNR_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SUNR_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SUNR_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SUNR_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SUNR_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"SUNR_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"SUNR_JWT_ISSUER" default:"shutupnraveee"`
	ExpirationMinutes      int    `envconfig:"SUNR_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"SUNR_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SUNR_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SUNR_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SUNR_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SUNR_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SUNR_ARGON_KEY_LEN" default:"32"`
}

type PaystackConfig struct {
	SecretKey   string        `envconfig:"SUNR_PAYSTACK_SECRET_KEY" required:"true"`
	BaseURL     string        `envconfig:"SUNR_PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	CallbackURL string        `envconfig:"SUNR_PAYSTACK_CALLBACK_URL"`
	Timeout     time.Duration `envconfig:"SUNR_PAYSTACK_TIMEOUT" default:"15s"`
	Currency    string        `envconfig:"SUNR_PAYSTACK_CURRENCY" default:"NGN"`
}

type ResendConfig struct {
	APIKey     string        `envconfig:"SUNR_RESEND_API_KEY" required:"true"`
	BaseURL    string        `envconfig:"SUNR_RESEND_BASE_URL" default:"https://api.resend.com"`
	FromEmail  string        `envconfig:"SUNR_RESEND_FROM_EMAIL" required:"true"`
	AdminEmail string        `envconfig:"SUNR_ADMIN_NOTIFY_EMAIL" required:"true"`
	Timeout    time.Duration `envconfig:"SUNR_RESEND_TIMEOUT" default:"15s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SUNR_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"SUNR_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SUNR_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName string `envconfig:"SUNR_GCS_BUCKET_NAME"`
	Prefix     string `envconfig:"SUNR_GCS_OBJECT_PREFIX" default:"tickets"`
}

// EventConfig carries the event metadata denormalized onto each order.
type EventConfig struct {
	Name     string `envconfig:"SUNR_EVENT_NAME" default:"shutupnraveee"`
	Date     string `envconfig:"SUNR_EVENT_DATE" required:"true"`
	Time     string `envconfig:"SUNR_EVENT_TIME" required:"true"`
	Location string `envconfig:"SUNR_EVENT_LOCATION" required:"true"`
}

// AdminConfig bootstraps the back-office login. The hash is an argon2id
// string produced by pkg/security.
type AdminConfig struct {
	Email        string `envconfig:"SUNR_ADMIN_EMAIL" required:"true"`
	PasswordHash string `envconfig:"SUNR_ADMIN_PASSWORD_HASH" required:"true"`
}

// RateLimitConfig throttles the public write surfaces per client IP. A zero
// window or limit disables the corresponding policy.
type RateLimitConfig struct {
	CheckoutWindow time.Duration `envconfig:"SUNR_RATE_LIMIT_CHECKOUT_WINDOW" default:"1m"`
	CheckoutLimit  int           `envconfig:"SUNR_RATE_LIMIT_CHECKOUT_LIMIT" default:"10"`
	LoginWindow    time.Duration `envconfig:"SUNR_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginLimit     int           `envconfig:"SUNR_RATE_LIMIT_LOGIN_LIMIT" default:"5"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SUNR_AUTO_MIGRATE" default:"false"`
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
