package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

const (
	ModeOTP  = "otp"
	ModeLink = "link"

	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort      string `env:"HTTP_PORT" envDefault:"3000"`
	AppEnv        string `env:"APP_ENV" envDefault:"production"`
	AppBaseURL    string `env:"APP_BASE_URL" envDefault:"http://localhost:3000"`
	DatabaseURL   string `env:"DATABASE_URL,required,notEmpty"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" envDefault:"true"`

	DBMaxConns          int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns          int32         `env:"DB_MIN_CONNS" envDefault:"1"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"30m"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"5m"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"30s"`
	DBConnectTimeout    time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"5s"`

	VerificationMode  string        `env:"VERIFICATION_MODE" envDefault:"otp"`
	VerificationStore string        `env:"VERIFICATION_STORE" envDefault:"postgres"`
	LinkTTL           time.Duration `env:"LINK_TTL" envDefault:"6h"`
	OTPTTL            time.Duration `env:"OTP_TTL" envDefault:"1h"`
	PurgeOnLinkExpiry bool          `env:"PURGE_ACCOUNT_ON_LINK_EXPIRY" envDefault:"true"`
	PurgeOnOTPExpiry  bool          `env:"PURGE_ACCOUNT_ON_OTP_EXPIRY" envDefault:"false"`
	BcryptCost        int           `env:"BCRYPT_COST" envDefault:"10"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPass     string `env:"SMTP_PASS"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`
	EmailLogOnly bool   `env:"EMAIL_LOG_ONLY" envDefault:"false"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"15m"`
	CleanupGrace    time.Duration `env:"CLEANUP_GRACE" envDefault:"24h"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	cfg.VerificationMode = strings.ToLower(strings.TrimSpace(cfg.VerificationMode))
	cfg.VerificationStore = strings.ToLower(strings.TrimSpace(cfg.VerificationStore))
	cfg.AppBaseURL = strings.TrimRight(strings.TrimSpace(cfg.AppBaseURL), "/")
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate revisa combinaciones que env no puede expresar con tags.
func (c *Config) Validate() error {
	switch c.VerificationMode {
	case ModeOTP, ModeLink:
	default:
		return fmt.Errorf("config: unknown VERIFICATION_MODE %q", c.VerificationMode)
	}
	switch c.VerificationStore {
	case StorePostgres:
	case StoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("config: VERIFICATION_STORE=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("config: unknown VERIFICATION_STORE %q", c.VerificationStore)
	}
	if c.LinkTTL <= 0 || c.OTPTTL <= 0 {
		return fmt.Errorf("config: LINK_TTL and OTP_TTL must be positive")
	}
	if c.DBMaxConns < 1 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("config: DB_MIN_CONNS must be between 0 and DB_MAX_CONNS (%d), and DB_MAX_CONNS at least 1", c.DBMaxConns)
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("config: BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}
	return nil
}

// IsDevelopment indica si el servicio corre en modo desarrollo.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, "development")
}
