// Package config loads crewvault's configuration: one connection string
// plus logging settings.
//
// Precedence, lowest to highest: built-in defaults, an optional
// crewvault.yaml config file, CREWVAULT_* environment variables
// (CREWVAULT_DB_URL being the one most deployments set). CLI flags
// override on top of this in cmd/cv.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	defaultDBURL        = "crewvault.db"
	defaultLogLevel     = "info"
	defaultLogMaxSizeMB = 10
	defaultLogMaxFiles  = 5
)

// Config is the full configuration surface.
type Config struct {
	DB      DBConfig      `mapstructure:"db"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// DBConfig holds the relational endpoint settings.
type DBConfig struct {
	// URL is either a postgres:// connection URL or a SQLite file path.
	URL string `mapstructure:"url"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	File      string `mapstructure:"file"`
	MaxSizeMB int    `mapstructure:"max_size_mb"`
	MaxFiles  int    `mapstructure:"max_files"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DB: DBConfig{URL: defaultDBURL},
		Logging: LoggingConfig{
			Level:     defaultLogLevel,
			MaxSizeMB: defaultLogMaxSizeMB,
			MaxFiles:  defaultLogMaxFiles,
		},
	}
}

// Load reads configuration from defaults, an optional config file, and the
// environment. An empty path searches the working directory for
// crewvault.yaml; a missing file is not an error, a malformed one is.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("db.url", defaultDBURL)
	v.SetDefault("logging.level", defaultLogLevel)
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", defaultLogMaxSizeMB)
	v.SetDefault("logging.max_files", defaultLogMaxFiles)

	v.SetEnvPrefix("CREWVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("crewvault")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
