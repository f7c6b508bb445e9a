// Package config provides configuration management for templit using Viper
// for flexible loading from files, environment variables, and command-line
// flags.
//
// The configuration system supports YAML files (.templit.yml), environment
// variable overrides with a TEMPLIT_ prefix, and validation. It manages the
// clone cache location and TTL, logging options, and template alias maps
// (current `defaults.templates` and the legacy `defaults.registries` shape).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Defaults DefaultsConfig `yaml:"defaults" mapstructure:"defaults"`
}

type CacheConfig struct {
	Dir      string  `yaml:"dir" mapstructure:"dir"`
	TTLHours float64 `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultsConfig holds template alias maps. Leaves are kept untyped because
// the legacy registries shape mixes string aliases with object-valued
// registry descriptors owned by the external registry subsystem; AliasLookup
// is the only sanctioned accessor and filters to string leaves.
type DefaultsConfig struct {
	Templates  map[string]map[string]interface{} `yaml:"templates" mapstructure:"templates"`
	Registries map[string]map[string]interface{} `yaml:"registries" mapstructure:"registries"`
}

// DefaultTTLHours is the cache TTL applied when no configuration overrides it.
const DefaultTTLHours = 24

// DefaultCacheDir returns the default cache root under the user's home
// directory, falling back to a relative directory when home is unknown.
func DefaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".templit", "cache")
	}
	return filepath.Join(home, ".templit", "cache")
}

// SetDefaults registers configuration defaults with viper. Called once from
// command initialization before Load.
func SetDefaults() {
	viper.SetDefault("cache.dir", DefaultCacheDir())
	viper.SetDefault("cache.ttl_hours", DefaultTTLHours)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
}

// Load unmarshals the current viper state into a validated Config.
func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.Cache.Dir == "" {
		config.Cache.Dir = DefaultCacheDir()
	}
	if config.Cache.TTLHours == 0 {
		config.Cache.TTLHours = DefaultTTLHours
	}
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// AliasLookup resolves a registry alias to its configured source URL.
// Current-shape `defaults.templates` entries win over legacy
// `defaults.registries` entries. Only string-valued leaves count as aliases;
// object-shaped registry descriptors are ignored here.
func (c *Config) AliasLookup(namespace, name string) (string, bool) {
	if alias, ok := stringLeaf(c.Defaults.Templates, namespace, name); ok {
		return alias, true
	}
	return stringLeaf(c.Defaults.Registries, namespace, name)
}

func stringLeaf(m map[string]map[string]interface{}, namespace, name string) (string, bool) {
	ns, ok := m[namespace]
	if !ok {
		return "", false
	}
	leaf, ok := ns[name]
	if !ok {
		return "", false
	}
	s, ok := leaf.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}

func validate(config *Config) error {
	if config.Cache.TTLHours < 0 {
		return fmt.Errorf("cache.ttl_hours must not be negative, got %v", config.Cache.TTLHours)
	}

	switch config.Log.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", config.Log.Level)
	}

	switch config.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", config.Log.Format)
	}

	return nil
}
