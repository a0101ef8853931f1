// Package config provides configuration loading and validation for the
// unicov command.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidWindowSize    = errors.New("window size must be positive")
	ErrInvalidAbundance     = errors.New("abundance threshold must be positive")
	ErrInvalidLogLevel      = errors.New("invalid log level")
	ErrInvalidLogFormat     = errors.New("invalid log format")
	ErrInvalidMetricsListen = errors.New("metrics listen address must not be empty when metrics are enabled")
)

// Default configuration values.
const (
	defaultWindowSize    = 31
	defaultAbundance     = 8
	defaultLogLevel      = "info"
	defaultLogFormat     = "text"
	defaultMetricsListen = "127.0.0.1:9464"
)

// Config holds all configuration for the unicov command.
type Config struct {
	Build   BuildConfig   `mapstructure:"build"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// BuildConfig holds index-construction configuration.
type BuildConfig struct {
	WindowSize         int  `mapstructure:"window_size"`
	AbundanceThreshold int  `mapstructure:"abundance_threshold"`
	SplitUnconfirmed   bool `mapstructure:"split_unconfirmed"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig holds the Prometheus exposition settings.
type MetricsConfig struct {
	Listen  string `mapstructure:"listen"`
	Enabled bool   `mapstructure:"enabled"`
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("unicov")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("/etc/unicov")
	}

	viperCfg.SetEnvPrefix("UNICOV")
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := validateConfig(&config)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("build.window_size", defaultWindowSize)
	viperCfg.SetDefault("build.abundance_threshold", defaultAbundance)
	viperCfg.SetDefault("build.split_unconfirmed", true)

	viperCfg.SetDefault("logging.level", defaultLogLevel)
	viperCfg.SetDefault("logging.format", defaultLogFormat)

	viperCfg.SetDefault("metrics.enabled", false)
	viperCfg.SetDefault("metrics.listen", defaultMetricsListen)
}

// validateConfig validates the configuration.
func validateConfig(config *Config) error {
	if config.Build.WindowSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWindowSize, config.Build.WindowSize)
	}

	if config.Build.AbundanceThreshold <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAbundance, config.Build.AbundanceThreshold)
	}

	switch config.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, config.Logging.Level)
	}

	switch config.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, config.Logging.Format)
	}

	if config.Metrics.Enabled && config.Metrics.Listen == "" {
		return ErrInvalidMetricsListen
	}

	return nil
}
