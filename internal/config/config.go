// Package config loads the harness configuration from a YAML file with
// documented defaults for the sandbox gateway.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/acquirelab/threedsflow/pkg/domain"
)

// DefaultFile is the config file looked up when no path is given.
const DefaultFile = "threedsflow.yaml"

// Config is the full harness configuration.
type Config struct {
	Server  ServerConfig         `koanf:"server"`
	Store   StoreConfig          `koanf:"store"`
	Backend BackendConfig        `koanf:"backend"`
	Gateway domain.SessionConfig `koanf:"gateway"`
	Card    domain.TestCard      `koanf:"card"`
	Log     LogConfig            `koanf:"log"`
}

type ServerConfig struct {
	Listen string `koanf:"listen"`
}

// StoreConfig selects the session store backend.
type StoreConfig struct {
	Backend string      `koanf:"backend"` // "memory" or "redis"
	Redis   RedisConfig `koanf:"redis"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// BackendConfig points at the backend executor that signs and forwards
// gateway calls.
type BackendConfig struct {
	URL string `koanf:"url"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

// Default returns the documented defaults: the sandbox gateway host, USD,
// MCC 1242, and the standard test card.
func Default() Config {
	return Config{
		Server: ServerConfig{Listen: ":8080"},
		Store:  StoreConfig{Backend: "memory", Redis: RedisConfig{Addr: "localhost:6379"}},
		Backend: BackendConfig{
			URL: "http://localhost:3005",
		},
		Gateway: domain.SessionConfig{
			APIBaseURL: "https://mtf.gateway.mastercard.com",
			APIVersion: "100",
			Currency:   "USD",
			MCC:        "1242",
		},
		Card: domain.TestCard{
			Number:      "5123450000000008",
			ExpiryMonth: "12",
			ExpiryYear:  "39",
			CVV:         "100",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads the YAML file at path, overlaying the defaults. An empty path
// falls back to DefaultFile in the working directory; a missing default
// file yields the defaults alone.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if _, err := os.Stat(path); err != nil {
		if explicit {
			return cfg, fmt.Errorf("config file %s: %w", path, err)
		}
		return cfg, nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return cfg, nil
}

// SlogLevel parses the configured log level, defaulting to info.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
