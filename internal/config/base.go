package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type BaseConfig struct {
	ShutdownTimeout string `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	Log       LogConfig       `mapstructure:"log"       yaml:"log"`
	WordPress WordPressConfig `mapstructure:"wordpress" yaml:"wordpress"`
	State     StateConfig     `mapstructure:"state"     yaml:"state"`
	Cache     CacheConfig     `mapstructure:"cache"     yaml:"cache"`
	Storage   StorageConfig   `mapstructure:"storage"   yaml:"storage"`
	Scanner   ScannerConfig   `mapstructure:"scanner"   yaml:"scanner"`
	Agent     AgentConfig     `mapstructure:"agent"     yaml:"agent"`
	API       APIConfig       `mapstructure:"api"       yaml:"api"`
}

func LoadConfig() (*BaseConfig, error) {
	cfg := &BaseConfig{}

	setDefaults()

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Duration parses value and falls back when it is empty or malformed.
func Duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
