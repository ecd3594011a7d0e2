package config

import (
	"errors"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, an optional YAML file, and
// environment variables. Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if NHLBETS_CONFIG is set
//  3. env (prefix NHLBETS_)
//
// DATABASE_URL is also honored without the prefix, matching the original
// deployment convention.
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("NHLBETS_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// Environment variables: NHLBETS_DATABASE_URL, NHLBETS_ADDR, ...
	// Mapped to flat lowercase keys matching the koanf struct tags.
	envProvider := env.Provider("NHLBETS_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "nhlbets_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("database_url must be set (NHLBETS_DATABASE_URL or DATABASE_URL)")
	}
	return &cfg, nil
}
