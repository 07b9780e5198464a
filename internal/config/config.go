package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Port        string
	MongoURI    string
	RedisURL    string
	Environment string

	// Interpreter (natural-language boundary) configuration
	InterpreterURL     string
	InterpreterTimeout time.Duration
	InterpreterRPS     float64 // outbound requests per second

	// Scheduling policy file (hot-reloaded)
	SchedulingConfigPath string

	// SessionTTLDays bounds how long an idle conversation survives in Redis.
	SessionTTLDays int

	// JWT secret for local auth
	JWTSecret string

	// CORS
	AllowedOrigins string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "3001"),
		MongoURI:    getEnv("MONGODB_URI", "mongodb://localhost:27017/dayflow"),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379"),
		Environment: strings.ToLower(getEnv("ENVIRONMENT", "development")),

		InterpreterURL:     getEnv("INTERPRETER_URL", ""),
		InterpreterTimeout: getDurationEnv("INTERPRETER_TIMEOUT", 60*time.Second),
		InterpreterRPS:     getFloatEnv("INTERPRETER_RPS", 2),

		SchedulingConfigPath: getEnv("SCHEDULING_CONFIG", "scheduling.yaml"),

		SessionTTLDays: getIntEnv("SESSION_TTL_DAYS", 7),

		JWTSecret: getEnv("JWT_SECRET", ""),

		AllowedOrigins: getEnv("ALLOWED_ORIGINS", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
