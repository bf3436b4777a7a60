package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr       string        `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath         string        `env:"DB_PATH" envDefault:"data/pacer.db"`
	LogLevel       slog.Level    `env:"LOG_LEVEL" envDefault:"INFO"`
	RedisURL       string        `env:"REDIS_URL"`
	SnapshotTTL    time.Duration `env:"SNAPSHOT_TTL" envDefault:"1h"`
	HypeCooldown   time.Duration `env:"HYPE_COOLDOWN" envDefault:"180s"`
	CooldownPolicy string        `env:"COOLDOWN_POLICY" envDefault:"fixed"`
	SeedDemo       bool          `env:"SEED_DEMO" envDefault:"true"`
	MemoBaseURL    string        `env:"MEMO_BASE_URL"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	switch c.CooldownPolicy {
	case "fixed", "intensity":
	default:
		errs = append(errs, fmt.Errorf("COOLDOWN_POLICY: unknown policy %q", c.CooldownPolicy))
	}
	if c.HypeCooldown <= 0 {
		errs = append(errs, errors.New("HYPE_COOLDOWN must be positive"))
	}
	if c.SnapshotTTL <= 0 {
		errs = append(errs, errors.New("SNAPSHOT_TTL must be positive"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("DB_PATH is required"))
	}
	return errors.Join(errs...)
}
