package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variable names.
const (
	envPrefix     = "SLOTMATCH_"
	envConfigPath = "SLOTMATCH_CONFIG"
)

// Load builds a Config from the file named by SLOTMATCH_CONFIG, if any.
// See LoadFrom.
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, os.Getenv(envConfigPath))
}

// LoadFrom builds a Config by layering defaults, an optional file and env
// vars. Order of precedence (low -> high):
//  1. defaults (New)
//  2. file at path, if non-empty (JSON for .json, YAML otherwise)
//  3. env (prefix SLOTMATCH_)
func LoadFrom(_ context.Context, path string) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path != "" {
		var parser koanf.Parser = yaml.Parser()
		if strings.EqualFold(filepath.Ext(path), ".json") {
			parser = json.Parser()
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// SLOTMATCH_QUEUE_SIZE -> queue_size (flat keys, underscores kept).
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
