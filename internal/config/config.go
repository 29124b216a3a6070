package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Environment name: "production", "development" or "test"
	Env string

	// Server
	Port       string
	CORSOrigin string

	// Database
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBPath     string

	// JWT
	JWTSecret        string
	JWTExpirationDur time.Duration

	// Redis backs token revocation on logout. Empty disables revocation.
	RedisURL string

	// MetricsAPIKey guards /metrics. Empty disables the endpoint.
	MetricsAPIKey string

	// MaxPageSize caps the page size of every list endpoint.
	MaxPageSize int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if present
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		Env: getEnv("ENV", "development"),

		// Server
		Port:       getEnv("PORT", "4500"),
		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost:5173"),

		// Database
		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "tally"),
		DBPassword: getEnv("DB_PASSWORD", "tally"),
		DBName:     getEnv("DB_NAME", "tally"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		DBPath:     getEnv("DB_PATH", "tally.db"),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "fallback-secret-key-for-dev-only"),

		RedisURL:      getEnv("REDIS_URL", ""),
		MetricsAPIKey: getEnv("METRICS_API_KEY", ""),
	}

	expStr := getEnv("JWT_EXPIRES_IN", "24h")
	expDur, err := time.ParseDuration(expStr)
	if err != nil || expDur <= 0 {
		log.Printf("Warning: invalid JWT_EXPIRES_IN value '%s', falling back to 24h\n", expStr)
		expDur = 24 * time.Hour
	}
	config.JWTExpirationDur = expDur

	maxStr := getEnv("MAX_PAGE_SIZE", "100")
	maxPageSize, err := strconv.Atoi(maxStr)
	if err != nil || maxPageSize < 1 {
		log.Printf("Warning: invalid MAX_PAGE_SIZE value '%s', falling back to 100\n", maxStr)
		maxPageSize = 100
	}
	config.MaxPageSize = maxPageSize

	return config, nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
