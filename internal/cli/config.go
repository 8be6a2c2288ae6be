package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/roach88/cyfilter/internal/compiler"
	"github.com/roach88/cyfilter/internal/predicate"
)

const (
	maxWalkDepth = 25
)

// Config represents the configuration from cyfilter.yaml.
type Config struct {
	// Schema is the schema file or CUE package directory.
	Schema string `mapstructure:"schema"`

	// Strategy is auto, general or optimized.
	Strategy string `mapstructure:"strategy"`

	// MaxDepth limits filter nesting.
	MaxDepth int `mapstructure:"max_depth"`

	Features FeaturesConfig `mapstructure:"features"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Store    StoreConfig    `mapstructure:"store"`
}

// FeaturesConfig toggles optional filter operators.
type FeaturesConfig struct {
	StringComparison bool `mapstructure:"string_comparison"`
	StringMatches    bool `mapstructure:"string_matches"`
	IDMatches        bool `mapstructure:"id_matches"`
}

// CacheConfig sizes the compilation cache. Zero disables it.
type CacheConfig struct {
	Size int `mapstructure:"size"`
}

// StoreConfig locates the compilation history database.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// LoadConfig discovers and loads configuration with proper precedence:
// flags > env > config file > defaults.
//
// Returns the loaded config, the path to the config file (empty if none found),
// and any error encountered.
func LoadConfig(explicitConfigPath string) (*Config, string, error) {
	v := viper.New()

	// 1. Set defaults first (lowest precedence)
	setDefaults(v)

	// 2. Set up environment variable binding
	v.SetEnvPrefix("CYFILTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 3. Find and load config file
	configPath, err := findConfigFile(explicitConfigPath)
	if err != nil {
		return nil, "", err
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, configPath, fmt.Errorf("reading config file: %w", err)
		}
	}

	// 4. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, configPath, fmt.Errorf("unmarshaling config: %w", err)
	}

	if _, err := compiler.ParseStrategy(cfg.Strategy); err != nil {
		return nil, configPath, err
	}
	if cfg.MaxDepth < 1 {
		return nil, configPath, fmt.Errorf("max_depth must be at least 1, got %d", cfg.MaxDepth)
	}

	return &cfg, configPath, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("schema", "")
	v.SetDefault("strategy", string(compiler.StrategyAuto))
	v.SetDefault("max_depth", predicate.DefaultMaxDepth)

	defaults := predicate.DefaultFeatures()
	v.SetDefault("features.string_comparison", defaults.StringComparison)
	v.SetDefault("features.string_matches", defaults.StringMatches)
	v.SetDefault("features.id_matches", defaults.IDMatches)

	v.SetDefault("cache.size", 0)
	v.SetDefault("store.path", "")
}

// findConfigFile finds the config file to use.
// If explicitPath is provided, it validates the file exists.
// Otherwise, it walks up from cwd looking for cyfilter.yaml or cyfilter.yml,
// stopping at a .git directory or after maxWalkDepth levels.
func findConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting cwd: %w", err)
	}

	dir := cwd
	for i := 0; i < maxWalkDepth; i++ {
		for _, name := range []string{"cyfilter.yaml", "cyfilter.yml"} {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}

		// Stop at the repo boundary (.git file or directory)
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", nil // No config found, use defaults
}

// PredicateFeatures converts the features section.
func (c *Config) PredicateFeatures() predicate.Features {
	return predicate.Features{
		StringComparison: c.Features.StringComparison,
		StringMatches:    c.Features.StringMatches,
		IDMatches:        c.Features.IDMatches,
	}
}

// ResolvedSchema returns the schema path for a command, with the command's
// flag taking precedence over the configured one.
func (c *Config) ResolvedSchema(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return c.Schema
}

// ResolvedStorePath returns the history database path, with the command's
// flag taking precedence over the configured one.
func (c *Config) ResolvedStorePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return c.Store.Path
}
