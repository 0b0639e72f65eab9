package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Compare   CompareConfig
	Export    ExportConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// CompareConfig holds comparison pipeline configuration
type CompareConfig struct {
	MaxParseWorkers int  `mapstructure:"max_parse_workers"`
	Debug           bool `mapstructure:"debug"`
	MaxUploadMB     int  `mapstructure:"max_upload_mb"`
}

// ExportConfig holds workbook export configuration
type ExportConfig struct {
	Currency string `mapstructure:"currency"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/bidlens/")

	// Environment variable settings
	v.SetEnvPrefix("BIDLENS")
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Compare defaults
	v.SetDefault("compare.max_parse_workers", 4)
	v.SetDefault("compare.debug", false)
	v.SetDefault("compare.max_upload_mb", 32)

	// Export defaults
	v.SetDefault("export.currency", "kr")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Compare.MaxParseWorkers < 1 {
		return fmt.Errorf("compare.max_parse_workers must be at least 1, got: %d", config.Compare.MaxParseWorkers)
	}

	if config.Compare.MaxUploadMB < 1 {
		return fmt.Errorf("compare.max_upload_mb must be at least 1, got: %d", config.Compare.MaxUploadMB)
	}

	if config.Export.Currency == "" {
		return fmt.Errorf("export.currency must not be empty")
	}

	if config.RateLimit.PerIP < 1 {
		return fmt.Errorf("ratelimit.per_ip must be at least 1, got: %d", config.RateLimit.PerIP)
	}

	return nil
}
