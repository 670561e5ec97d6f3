package cli

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"medicare-pro/internal/session"
)

type Config struct {
	APIURL      string        `env:"CLINIC_API_URL" env-default:"http://localhost:5000"`
	SessionFile string        `env:"CLINIC_SESSION_FILE"`
	Timeout     time.Duration `env:"CLINIC_TIMEOUT" env-default:"15s"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}
	if cfg.SessionFile == "" {
		path, err := session.DefaultSessionPath()
		if err != nil {
			return Config{}, err
		}
		cfg.SessionFile = path
	}
	return cfg, nil
}
