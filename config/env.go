package config

import (
	"github.com/caarlos0/env/v11"
)

// loadFromEnv overlays SCOREKEEPER_* environment variables onto cfg. Unset
// variables leave the current value in place.
func loadFromEnv(cfg *Config) error {
	return env.Parse(cfg)
}
