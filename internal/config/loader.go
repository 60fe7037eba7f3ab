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

const envPrefix = "FIRECASTER_"

// LoadOptions picks the profile and optional YAML file. Empty fields fall back
// to FIRECASTER_PROFILE and FIRECASTER_CONFIG.
type LoadOptions struct {
	Profile string
	File    string
}

// Load builds the active Config by layering (low -> high precedence):
//  1. profile defaults
//  2. YAML file, if any
//  3. FIRECASTER_* environment variables
//
// The result is validated before it is returned.
func Load(_ context.Context, opts LoadOptions) (*Config, error) {
	profile := opts.Profile
	if profile == "" {
		profile = os.Getenv(envPrefix + "PROFILE")
	}
	base, err := Profile(profile)
	if err != nil {
		return nil, err
	}

	k := koanf.New(".")

	path := opts.File
	if path == "" {
		path = os.Getenv(envPrefix + "CONFIG")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// FIRECASTER_API_BASE_URL -> api_base_url
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	// The profile is chosen before the file is read; keep its name.
	cfg.Profile = base.Profile

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
