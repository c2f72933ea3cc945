package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Addr         string
	Env          string
	DBDriver     string
	DBDataSource string
	RedisURL     string
	CookieSecret string
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Addr:         getEnv("ADDR", ":8080"),
		Env:          getEnv("ENV", "development"),
		DBDriver:     getEnv("DB_DRIVER", "sqlite3"),
		DBDataSource: getEnv("DB_DSN", "parley.db"),
		RedisURL:     os.Getenv("REDIS_URL"),
		CookieSecret: getEnv("COOKIE_SECRET", "dev-secret-change-me"),
	}

	if cfg.Env == "production" && cfg.CookieSecret == "dev-secret-change-me" {
		panic("COOKIE_SECRET is required in production")
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
