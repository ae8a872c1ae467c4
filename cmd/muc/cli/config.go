package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var envFiles = []string{".env", ".env.local"}

// MUC_WORDPRESS_DSN maps to wordpress.dsn
var envKeyReplacer = strings.NewReplacer(".", "_")

func initConfig(path string) error {
	for _, envFile := range envFiles {
		// Missing .env files are fine
		_ = godotenv.Load(envFile)
	}

	if path != "" {
		viper.SetConfigFile(path)

		configDir := filepath.Dir(path)
		for _, envFile := range envFiles {
			_ = godotenv.Load(filepath.Join(configDir, envFile))
		}
	} else {
		configPaths := []string{".", "./config", "/etc/muc", "$HOME/.muc"}

		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		for _, configPath := range configPaths {
			viper.AddConfigPath(configPath)
			for _, envFile := range envFiles {
				_ = godotenv.Load(filepath.Join(configPath, envFile))
			}
		}
	}

	viper.SetEnvPrefix("MUC")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}
