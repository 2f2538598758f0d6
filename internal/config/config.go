package config

import (
	"os"
	"strconv"
	"time"

	"xceldash/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	AI       AIConfig
	Server   ServerConfig
	Storage  StorageConfig
	Ops      OpsConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver string // "postgres" or "sqlite3" (dev sandbox)
	URL    string
}

// AIConfig holds AI/LLM related settings
type AIConfig struct {
	APIKey        string
	Model         string
	BaseURL       string
	SystemContext string
	MaxTokens     int
	Temperature   float64
	PromptsDir    string
	Timeout       time.Duration
	MaxConcurrent int // cap on in-flight AI calls
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// StorageConfig holds upload storage settings
type StorageConfig struct {
	BasePath    string
	MaxFileSize int64
	SampleRows  int // rows sampled into metadata and AI prompts
}

// OpsConfig holds the health/pprof side server settings
type OpsConfig struct {
	Port    string
	Enabled bool
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database: DatabaseConfig{
			Driver: getEnvOrDefault("DB_DRIVER", "postgres"),
			URL:    os.Getenv("DATABASE_URL"),
		},
		AI: AIConfig{
			APIKey:        os.Getenv("OPENAI_API_KEY"),
			Model:         getEnvOrDefault("LLM_MODEL", "gpt-4o-mini"),
			BaseURL:       getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			SystemContext: getEnvOrDefault("AI_SYSTEM_CONTEXT", "You are a data analytics assistant that designs dashboard widgets from spreadsheet data. Respond with valid JSON."),
			MaxTokens:     getEnvIntOrDefault("MAX_TOKENS", 4000),
			Temperature:   getEnvFloatOrDefault("TEMPERATURE", 0.2),
			PromptsDir:    getEnvOrDefault("PROMPTS_DIR", "./prompts"),
			Timeout:       getEnvDurationOrDefault("AI_TIMEOUT", 45*time.Second),
			MaxConcurrent: getEnvIntOrDefault("AI_MAX_CONCURRENT", 4),
		},
		Server: ServerConfig{
			Port:    getEnvOrDefault("PORT", "8080"),
			GinMode: getEnvOrDefault("GIN_MODE", "debug"),
		},
		Storage: StorageConfig{
			BasePath:    getEnvOrDefault("UPLOAD_DIR", "uploads/files"),
			MaxFileSize: int64(getEnvIntOrDefault("MAX_FILE_SIZE_MB", 50)) * 1024 * 1024,
			SampleRows:  getEnvIntOrDefault("SAMPLE_ROWS", 5),
		},
		Ops: OpsConfig{
			Port:    getEnvOrDefault("OPS_PORT", "6060"),
			Enabled: getEnvBoolOrDefault("OPS_ENABLED", true),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func validateConfig(config *Config) error {
	if config.Database.URL == "" {
		return errors.ConfigInvalid("DATABASE_URL is required")
	}
	switch config.Database.Driver {
	case "postgres", "sqlite3":
	default:
		return errors.ConfigInvalid("DB_DRIVER must be postgres or sqlite3")
	}
	if config.AI.APIKey == "" {
		return errors.ConfigInvalid("OPENAI_API_KEY is required")
	}
	if config.AI.MaxConcurrent < 1 {
		return errors.ConfigInvalid("AI_MAX_CONCURRENT must be at least 1")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
