package logger

import (
	"os"
	"strings"
)

// DefaultConfig builds a Config from LOG_LEVEL, DEBUG, LOG_OUTPUT,
// LOG_TIME_FORMAT and LOG_CONSOLE.
func DefaultConfig() Config {
	return Config{
		Level:      getEnvOrDefault("LOG_LEVEL", "info"),
		Debug:      getEnvBoolOrDefault("DEBUG", false),
		Output:     getEnvOrDefault("LOG_OUTPUT", OutputStderr),
		TimeFormat: getEnvOrDefault("LOG_TIME_FORMAT", ""),
		Console:    getEnvBoolOrDefault("LOG_CONSOLE", false),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	value = strings.ToLower(value)

	return value == "true" || value == "1" || value == "yes" || value == "on"
}
