package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	apperrors "socialnet/pkg/errors"
)

// Export modes accepted by EXPORT_MODE
const (
	ExportModeSnapshot = "snapshot"
	ExportModeDrain    = "drain"
)

// Config holds all application configuration
type Config struct {
	// App
	Port     string
	Env      string
	LogLevel string // Overrides the environment default when set

	// Command log
	CommandLogPath  string // Replayed at startup when set
	ExportPath      string // Default destination for exported commands
	ExportMode      string // snapshot keeps the queue, drain clears it
	WatchCommandLog bool   // Reload the network when CommandLogPath changes
	MaxLogLineBytes int

	// Neo4j mirror
	Neo4jEnabled  bool
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("ENV", "development"),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", "")),
		CommandLogPath:  getEnv("COMMAND_LOG_PATH", ""),
		ExportPath:      getEnv("EXPORT_PATH", "network.txt"),
		ExportMode:      strings.ToLower(getEnv("EXPORT_MODE", ExportModeSnapshot)),
		WatchCommandLog: getEnvBool("WATCH_COMMAND_LOG", false),
		MaxLogLineBytes: getEnvInt("MAX_LOG_LINE_BYTES", 1<<20),
		Neo4jEnabled:    getEnvBool("NEO4J_ENABLED", false),
		Neo4jURI:        getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:       getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:   getEnv("NEO4J_PASSWORD", "password"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.Port == "" {
		return apperrors.NewConfigMissingRequired("PORT")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return apperrors.NewConfigValidationFailed("PORT", "must be numeric")
	}
	if c.ExportMode != ExportModeSnapshot && c.ExportMode != ExportModeDrain {
		return apperrors.NewConfigValidationFailed("EXPORT_MODE", "must be snapshot or drain")
	}
	if c.MaxLogLineBytes <= 0 {
		return apperrors.NewConfigValidationFailed("MAX_LOG_LINE_BYTES", "must be positive")
	}
	if c.WatchCommandLog && c.CommandLogPath == "" {
		return apperrors.NewConfigMissingRequired("COMMAND_LOG_PATH")
	}
	if c.Neo4jEnabled {
		if c.Neo4jURI == "" {
			return apperrors.NewConfigMissingRequired("NEO4J_URI")
		}
		if c.Neo4jUser == "" {
			return apperrors.NewConfigMissingRequired("NEO4J_USER")
		}
		if c.Neo4jPassword == "" {
			return apperrors.NewConfigMissingRequired("NEO4J_PASSWORD")
		}
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// DrainOnExport reports whether exports should clear the command queue
func (c *Config) DrainOnExport() bool {
	return c.ExportMode == ExportModeDrain
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
