package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if CFDUEL_CONFIG is set
//  3. env (prefix CFDUEL_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("CFDUEL_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, ErrLoadConfig)
		}
	}

	// Environment variables: CFDUEL_ADDR, CFDUEL_MAX_ACTIVE_DUELS, ...
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("CFDUEL_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "cfduel_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("env: %w", ErrLoadConfig)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", ErrLoadConfig)
	}

	switch {
	case cfg.Addr == "":
		return nil, fmt.Errorf("addr must not be empty: %w", ErrInvalidConfig)
	case cfg.MaxActiveDuels <= 0:
		return nil, fmt.Errorf("max_active_duels must be positive: %w", ErrInvalidConfig)
	case cfg.MaxRecent <= 0:
		return nil, fmt.Errorf("max_recent must be positive: %w", ErrInvalidConfig)
	case cfg.ArchiveDriver != "file" && cfg.ArchiveDriver != "postgres":
		return nil, fmt.Errorf("archive_driver must be file or postgres: %w", ErrInvalidConfig)
	case cfg.ArchiveDriver == "postgres" && cfg.PostgresDSN == "":
		return nil, fmt.Errorf("postgres_dsn required for postgres archive: %w", ErrInvalidConfig)
	}
	return &cfg, nil
}
