package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config is the full runtime configuration of the back-office auth service.
// Values come from environment variables, optionally seeded from a .env file.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Security SecurityConfig
	MFA      MFAConfig
	Captcha  CaptchaConfig
	Events   EventsConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
}

type ServerConfig struct {
	Port            int           `env:"SERVER_PORT" env-default:"8080"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"15s"`
	// Origins allowed to call the API from the browser (the SPA front end).
	AllowedOrigins []string `env:"SERVER_ALLOWED_ORIGINS" env-default:"https://healthyimc.com"`
}

type DatabaseConfig struct {
	Host        string `env:"DB_HOST" env-default:"localhost"`
	Port        int    `env:"DB_PORT" env-default:"5432"`
	User        string `env:"DB_USER" env-default:"backoffice"`
	Password    string `env:"DB_PASSWORD"`
	DBName      string `env:"DB_NAME" env-default:"backoffice"`
	SSLMode     string `env:"DB_SSLMODE" env-default:"disable"`
	AutoMigrate bool   `env:"DB_AUTO_MIGRATE" env-default:"false"`
}

// DSN renders the postgres connection string for pgx and golang-migrate.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}

type SecurityConfig struct {
	// SessionTTL is the fixed lifetime of an issued session token.
	// There is no sliding expiration.
	SessionTTL time.Duration `env:"SECURITY_SESSION_TTL" env-default:"24h"`
	// FailureThreshold is the number of consecutive failed attempts after
	// which a login requires a solved bot challenge.
	FailureThreshold int `env:"SECURITY_FAILURE_THRESHOLD" env-default:"5"`
	// AnonWindow bounds the per-IP failure bucket used when the username
	// is unknown.
	AnonWindow time.Duration `env:"SECURITY_ANON_WINDOW" env-default:"15m"`
	// StoreTimeout bounds every credential/session store round trip.
	StoreTimeout time.Duration `env:"SECURITY_STORE_TIMEOUT" env-default:"5s"`
	// JanitorInterval is how often expired sessions are swept.
	JanitorInterval time.Duration `env:"SECURITY_JANITOR_INTERVAL" env-default:"1h"`

	PasswordHash PasswordHashConfig
}

type PasswordHashConfig struct {
	Memory      uint32 `env:"PASSWORD_HASH_MEMORY" env-default:"65536"`
	Iterations  uint32 `env:"PASSWORD_HASH_ITERATIONS" env-default:"3"`
	Parallelism uint8  `env:"PASSWORD_HASH_PARALLELISM" env-default:"2"`
	SaltLength  uint32 `env:"PASSWORD_HASH_SALT_LENGTH" env-default:"16"`
	KeyLength   uint32 `env:"PASSWORD_HASH_KEY_LENGTH" env-default:"32"`
}

type MFAConfig struct {
	// Issuer is the service name shown in authenticator apps.
	Issuer string `env:"MFA_ISSUER" env-default:"HealthyIMC"`
	// EncryptionKey is the hex-encoded 32-byte key protecting TOTP secrets
	// at rest.
	EncryptionKey string `env:"MFA_ENCRYPTION_KEY"`
	// Skew is how many 30s time steps of clock drift are tolerated on
	// either side when validating a code.
	Skew uint `env:"MFA_SKEW" env-default:"1"`
}

type CaptchaConfig struct {
	Enabled   bool          `env:"CAPTCHA_ENABLED" env-default:"true"`
	SecretKey string        `env:"CAPTCHA_SECRET_KEY"`
	VerifyURL string        `env:"CAPTCHA_VERIFY_URL" env-default:"https://www.google.com/recaptcha/api/siteverify"`
	Timeout   time.Duration `env:"CAPTCHA_TIMEOUT" env-default:"5s"`
}

type EventsConfig struct {
	Enabled bool     `env:"EVENTS_ENABLED" env-default:"false"`
	Brokers []string `env:"EVENTS_BROKERS" env-default:"localhost:9092"`
	Topic   string   `env:"EVENTS_TOPIC" env-default:"backoffice.auth.events"`
}

type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" env-default:"info"`
	Format string `env:"LOG_FORMAT" env-default:"json"`
}

type MetricsConfig struct {
	Enabled bool `env:"METRICS_ENABLED" env-default:"true"`
	Port    int  `env:"METRICS_PORT" env-default:"9090"`
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present, matching local development setups.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment config: %w", err)
	}
	return &cfg, nil
}
