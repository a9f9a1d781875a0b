package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the complete hintcheck configuration
type Config struct {
	Version int    `json:"version" mapstructure:"version"`
	Root    string `json:"root" mapstructure:"root"`

	Checking CheckingConfig `json:"checking" mapstructure:"checking"`
	Registry RegistryConfig `json:"registry" mapstructure:"registry"`
	Cache    CacheConfig    `json:"cache" mapstructure:"cache"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging"`
}

// CheckingConfig controls how checkers are built
type CheckingConfig struct {
	// Strategy is "O0" (shallow) or "O1" (constant-time sampling)
	Strategy string `json:"strategy" mapstructure:"strategy"`
	// WarnDeprecated emits warnings when deprecated aliases are reduced
	WarnDeprecated bool `json:"warnDeprecated" mapstructure:"warnDeprecated"`
	// OverridesPath points at a TOML table of hint overrides, empty for none
	OverridesPath string `json:"overridesPath" mapstructure:"overridesPath"`
}

// RegistryConfig lists declaration files loaded into the class registry
type RegistryConfig struct {
	DeclFiles []string `json:"declFiles" mapstructure:"declFiles"`
}

// CacheConfig controls the persistent code cache
type CacheConfig struct {
	Persist bool `json:"persist" mapstructure:"persist"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Root:    ".",
		Checking: CheckingConfig{
			Strategy:       "O1",
			WarnDeprecated: true,
		},
		Registry: RegistryConfig{
			DeclFiles: []string{},
		},
		Cache: CacheConfig{
			Persist: true,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from .hintcheck/config.json
func LoadConfig(root string) (*Config, error) {
	v := viper.New()

	v.SetDefault("version", 1)
	v.SetDefault("root", ".")
	v.SetDefault("checking.strategy", "O1")
	v.SetDefault("checking.warnDeprecated", true)
	v.SetDefault("cache.persist", true)
	v.SetDefault("logging.format", "human")
	v.SetDefault("logging.level", "info")

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(root, ".hintcheck"))

	if err := v.ReadInConfig(); err != nil {
		// If config doesn't exist, return default config
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to .hintcheck/config.json
func (c *Config) Save(root string) error {
	dir := filepath.Join(root, ".hintcheck")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	switch c.Checking.Strategy {
	case "O0", "O1":
	default:
		return &ConfigError{Field: "checking.strategy", Message: "strategy must be O0 or O1"}
	}
	switch c.Logging.Format {
	case "", "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "format must be human or json"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
