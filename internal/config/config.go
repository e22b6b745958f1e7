package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func init() {
	// Money goes out as JSON numbers, the way the UI client reads them.
	decimal.MarshalJSONWithoutQuotes = true
}

type Config struct {
	HTTPPort          string
	DBDriver          string // "sqlite" or "mysql"
	DBDSN             string
	JWTSecret         string
	CORSOrigins       []string
	RedisAddress      string
	GeminiAPIKey      string
	AllowRegistration bool
	AdminUsername     string
	AdminPassword     string
	LogLevel          string
	BaseURL           string
}

// Load reads .env (if present) and then the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found")
	}

	cfg := &Config{
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		DBDriver:          strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBDSN:             getEnv("DB_DSN", "smart_pos.db"),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		CORSOrigins:       splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
		RedisAddress:      getEnv("REDIS_ADDRESS", ""),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		AllowRegistration: getEnv("ALLOW_REGISTRATION", "") == "true",
		AdminUsername:     getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:     getEnv("ADMIN_PASSWORD", "admin123"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		BaseURL:           getEnv("BASE_URL", "http://localhost:8080"),
	}

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-key-change-me-before-deploying"
		log.Println("[WARN] JWT_SECRET not set, using the development secret")
	}
	if cfg.DBDriver != "sqlite" && cfg.DBDriver != "mysql" {
		log.Fatalf("[FATAL] unsupported DB_DRIVER %q (use sqlite or mysql)", cfg.DBDriver)
	}

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
