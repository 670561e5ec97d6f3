// Package config loads runtime settings from the environment (and an optional .env file).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" env-default:"development"`
	Port      string `env:"PORT" env-default:"5000"`
	SentryDSN string `env:"SENTRY_DSN"`
	Release   string `env:"SENTRY_RELEASE"`

	DB   DBConfig
	Auth AuthConfig

	CronSecret             string `env:"CRON_SECRET"`
	CleanupBatchSize       int    `env:"REVOCATION_CLEANUP_BATCH_SIZE" env-default:"500"`
	RunMigrationsOnStartup bool   `env:"RUN_MIGRATIONS_ON_STARTUP" env-default:"false"`
}

type DBConfig struct {
	URL             string        `env:"DATABASE_URL" env-required:"true"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" env-default:"10"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" env-default:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"30m"`
	ConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" env-default:"10m"`
}

// AuthConfig holds token signing and login throttling settings.
type AuthConfig struct {
	AccessSecret       string        `env:"JWT_SECRET" env-required:"true"`
	RefreshSecret      string        `env:"JWT_REFRESH_SECRET" env-required:"true"`
	AccessTokenTTL     time.Duration `env:"ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTokenTTL    time.Duration `env:"REFRESH_TOKEN_TTL" env-default:"168h"`
	RefreshRevocation  bool          `env:"REFRESH_TOKEN_REVOCATION" env-default:"false"`
	LoginRateLimitMax  int           `env:"LOGIN_RATE_LIMIT_MAX" env-default:"10"`
	LoginRateLimitSpan time.Duration `env:"LOGIN_RATE_LIMIT_WINDOW" env-default:"1m"`
}

var ErrSharedSecret = errors.New("JWT_SECRET and JWT_REFRESH_SECRET must differ")

// Load reads the process environment. When loadDotEnv is set, a .env file in the
// working directory is applied first; existing variables win over the file.
func Load(loadDotEnv bool) (Config, error) {
	if loadDotEnv {
		_ = godotenv.Load()
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.DB.URL) == "" {
		return fmt.Errorf("missing required env: DATABASE_URL")
	}
	if strings.TrimSpace(c.Auth.AccessSecret) == "" || strings.TrimSpace(c.Auth.RefreshSecret) == "" {
		return fmt.Errorf("missing required env: JWT_SECRET and JWT_REFRESH_SECRET")
	}
	if c.Auth.AccessSecret == c.Auth.RefreshSecret {
		return ErrSharedSecret
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token ttl must be positive")
	}
	if c.Auth.RefreshTokenTTL < c.Auth.AccessTokenTTL {
		return fmt.Errorf("REFRESH_TOKEN_TTL must not be shorter than ACCESS_TOKEN_TTL")
	}
	return nil
}

func (c Config) Addr() string {
	return ":" + c.Port
}

func (c Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}
