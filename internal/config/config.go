package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// JWT
	JWTSecret string

	// Gemini AI
	GeminiAPIKey          string
	GeminiModel           string
	GeminiTemperature     float64
	GeminiMaxOutputTokens int
	GeminiConcurrentReqs  int

	// Federated sign-in
	GoogleClientID string

	// Courses
	DefaultCurrency string

	// Workers
	WorkerCount int

	// Frontend
	FrontendURL string

	missing []string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                  getEnvOrDefault("PORT", "8080"),
		Env:                   getEnvOrDefault("ENV", "development"),
		GeminiModel:           getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiTemperature:     getEnvAsFloatOrDefault("GEMINI_TEMPERATURE", 0.7),
		GeminiMaxOutputTokens: getEnvAsIntOrDefault("GEMINI_MAX_OUTPUT_TOKENS", 4000),
		GeminiConcurrentReqs:  getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		GoogleClientID:        getEnvOrDefault("GOOGLE_CLIENT_ID", ""),
		DefaultCurrency:       getEnvOrDefault("DEFAULT_CURRENCY", "USD"),
		WorkerCount:           getEnvAsIntOrDefault("WORKER_COUNT", 2),
		FrontendURL:           getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	// Missing credentials are reported, not fatal; dependent calls fail later.
	cfg.DatabaseURL = cfg.expectEnv("DATABASE_URL")
	cfg.RedisURL = cfg.expectEnv("REDIS_URL")
	cfg.JWTSecret = cfg.expectEnv("JWT_SECRET")
	cfg.GeminiAPIKey = cfg.expectEnv("GEMINI_API_KEY")

	return cfg
}

// Missing lists expected environment variables that were not set.
func (c *Config) Missing() []string {
	return c.missing
}

func (c *Config) expectEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		c.missing = append(c.missing, key)
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsFloatOrDefault(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}
	return f
}
