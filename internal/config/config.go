package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"invoicer/internal/logger"
)

type Config struct {
	// Storage Configuration
	DBPath string

	// Numbering Configuration
	NumberPrefix string

	// Invoice Defaults
	DefaultVATRate     string
	DefaultCurrency    string
	ServicePeriodDays  int
	DefaultPaymentDays int

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// Load reads configuration from INVOICER_* environment variables.
// A .env file, if present, is loaded by main before this runs.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("INVOICER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("db_path", defaultDBPath())
	v.SetDefault("number_prefix", "CORE")
	v.SetDefault("default_vat_rate", "19")
	v.SetDefault("default_currency", "EUR")
	v.SetDefault("service_period_days", 30)
	v.SetDefault("default_payment_days", 14)
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "console")
	v.SetDefault("log_time_format", "2006-01-02T15:04:05Z07:00")
	v.SetDefault("log_output", "stderr")

	config := &Config{
		DBPath:             v.GetString("db_path"),
		NumberPrefix:       v.GetString("number_prefix"),
		DefaultVATRate:     v.GetString("default_vat_rate"),
		DefaultCurrency:    v.GetString("default_currency"),
		ServicePeriodDays:  v.GetInt("service_period_days"),
		DefaultPaymentDays: v.GetInt("default_payment_days"),
		LogLevel:           v.GetString("log_level"),
		LogFormat:          v.GetString("log_format"),
		LogTimeFormat:      v.GetString("log_time_format"),
		LogOutput:          v.GetString("log_output"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("INVOICER_DB_PATH is required")
	}
	if c.NumberPrefix == "" {
		return fmt.Errorf("INVOICER_NUMBER_PREFIX is required")
	}
	if strings.ContainsAny(c.NumberPrefix, " \t") {
		return fmt.Errorf("INVOICER_NUMBER_PREFIX must not contain whitespace")
	}
	if c.ServicePeriodDays < 0 {
		return fmt.Errorf("INVOICER_SERVICE_PERIOD_DAYS must not be negative")
	}
	if c.DefaultPaymentDays < 0 {
		return fmt.Errorf("INVOICER_DEFAULT_PAYMENT_DAYS must not be negative")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

// Default returns the configuration Load would produce with no environment set.
func Default() *Config {
	return &Config{
		DBPath:             defaultDBPath(),
		NumberPrefix:       "CORE",
		DefaultVATRate:     "19",
		DefaultCurrency:    "EUR",
		ServicePeriodDays:  30,
		DefaultPaymentDays: 14,
		LogLevel:           "warn",
		LogFormat:          "console",
		LogTimeFormat:      "2006-01-02T15:04:05Z07:00",
		LogOutput:          "stderr",
	}
}

func defaultDBPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "invoicer", "invoicer.db")
	}
	return "invoicer.db"
}
