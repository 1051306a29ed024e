// Package config provides configuration loading, defaults, and validation for
// the smartscanon services.
package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all settings.
const envPrefix = "SMARTSCANON"

// newViper builds a pre-configured Viper instance with the standard settings:
// YAML file type, SMARTSCANON_ env prefix, automatic env binding, and a key
// replacer that maps "." → "_" so that nested keys like "canon.max_atoms"
// resolve to "SMARTSCANON_CANON_MAX_ATOMS".
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Booleans whose default is true cannot be recovered from a zero value,
	// and AutomaticEnv only sees keys viper already knows about.
	v.SetDefault("canon.remap", true)
	v.SetDefault("canon.mapping", false)
	v.SetDefault("canon.verbose", false)
	v.SetDefault("canon.default_embedding", DefaultEmbedding)
	v.SetDefault("canon.max_atoms", DefaultMaxAtoms)
	v.SetDefault("database.enabled", false)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
	v.SetDefault("server.port", DefaultServerPort)
	return v
}

// Load reads the YAML file at configPath, merges any SMARTSCANON_* environment
// variable overrides, applies defaults for unset fields, and validates the
// result.  It returns a fully-populated *Config or a descriptive error.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from SMARTSCANON_* environment
// variables, with no config file required.
//
// Environment variable naming convention:
//
//	SMARTSCANON_<SECTION>_<FIELD>   e.g.  SMARTSCANON_CANON_MAX_ATOMS, SMARTSCANON_REDIS_ADDR
func LoadFromEnv() (*Config, error) {
	v := newViper()
	return unmarshalAndFinalize(v)
}

// LoadOrEnv loads configPath when it is set and falls back to LoadFromEnv.
func LoadOrEnv(configPath string) (*Config, error) {
	if configPath == "" {
		return LoadFromEnv()
	}
	return Load(configPath)
}

// unmarshalAndFinalize unmarshals viper state into a Config struct, applies
// defaults, and validates the result.
func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch monitors configPath for changes and invokes onChange with the newly
// parsed canon section whenever the file is modified on disk.  Only the canon
// section is hot-reloaded; connection settings need a restart.
//
// Watch is non-blocking; it starts a background goroutine managed by viper.
// If the changed file fails to parse or validate, onChange is not called and
// onError, when non-nil, receives the error.
func Watch(configPath string, onChange func(CanonConfig), onError func(error)) {
	v := newViper()
	v.SetConfigFile(configPath)

	// Errors surface through Load, which callers run first.
	_ = v.ReadInConfig()

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg.Canon)
	})
	v.WatchConfig()
}

// MustLoad is a convenience wrapper around Load that panics on any error.
// It is intended for use in main() where a config-load failure is always fatal.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}

//Personal.AI order the ending
