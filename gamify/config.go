package gamify

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/slimcircle/gamification/gamify/database"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log    LogConfig         `toml:"log"`
	DB     database.DBConfig `toml:"db"`
	Engine EngineConfig      `toml:"engine"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

// EngineConfig tunes the reward policies and the recompute trigger. All
// limits are enforced against the durable store; these are policy knobs, not
// per-process limiter state.
type EngineConfig struct {
	CrisisDailyCap       int `toml:"crisis_daily_cap"`
	CrisisCooldownMin    int `toml:"crisis_cooldown_minutes"`
	RecomputeIntervalMin int `toml:"recompute_interval_minutes"`
	RecomputeParallelism int `toml:"recompute_parallelism"`
}

// CrisisCooldown returns the configured cooldown, defaulting to an hour.
func (c EngineConfig) CrisisCooldown() time.Duration {
	if c.CrisisCooldownMin <= 0 {
		return time.Hour
	}
	return time.Duration(c.CrisisCooldownMin) * time.Minute
}

// RecomputeInterval returns the scheduler cadence, defaulting to an hour.
func (c EngineConfig) RecomputeInterval() time.Duration {
	if c.RecomputeIntervalMin <= 0 {
		return time.Hour
	}
	return time.Duration(c.RecomputeIntervalMin) * time.Minute
}
