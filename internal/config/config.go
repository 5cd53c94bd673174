package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port            string
	Environment     string
	SupabaseURL     string
	SupabaseDBURL   string
	SupabaseJWKSURL string // Constructed from SupabaseURL + /auth/v1/.well-known/jwks.json
	SupabaseKey     string // Service role key; only the seed command uses it
	CORSOrigins     string
	TablePrefix     string
	// Storage
	StorageBackend string // "postgres" or "badger"
	BadgerPath     string
	RedisURL       string // Empty = in-process event broker
	// Generation
	GenerationProvider  string // "lorem" or "anthropic"
	AnthropicAPIKey     string
	DefaultModel        string
	GenerationRate      float64 // Model calls per second
	GenerationRateBurst int
	// Auth
	AuthDisabled bool   // Local development only: every request runs as TestUserID
	TestUserID   string // User assumed when auth is disabled
	// Logging
	LogDir      string
	LogMaxFiles int
	// Editor session timings
	Editor EditorConfig
	// Debug flags
	Debug bool // Enables DEBUG features like SSE event IDs
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")
	tablePrefix := getTablePrefix(env)
	supabaseURL := getEnv("SUPABASE_URL", "")

	// Construct JWKS URL from Supabase URL
	jwksURL := supabaseURL + "/auth/v1/.well-known/jwks.json"

	return &Config{
		Port:                getEnv("PORT", "8080"),
		Environment:         env,
		SupabaseURL:         supabaseURL,
		SupabaseDBURL:       getEnv("SUPABASE_DB_URL", ""),
		SupabaseJWKSURL:     jwksURL,
		SupabaseKey:         getEnv("SUPABASE_SERVICE_KEY", ""),
		CORSOrigins:         getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix:         tablePrefix,
		StorageBackend:      getEnv("STORAGE_BACKEND", "postgres"),
		BadgerPath:          getEnv("BADGER_PATH", "./data/badger"),
		RedisURL:            getEnv("REDIS_URL", ""),
		GenerationProvider:  getEnv("GENERATION_PROVIDER", "lorem"),
		AnthropicAPIKey:     getEnv("ANTHROPIC_API_KEY", ""),
		DefaultModel:        getEnv("DEFAULT_MODEL", ""),
		GenerationRate:      getFloatEnv("GENERATION_RATE", 2),
		GenerationRateBurst: getIntEnv("GENERATION_RATE_BURST", 4),
		AuthDisabled:        env != "prod" && getEnv("AUTH_DISABLED", "false") == "true",
		TestUserID:          getEnv("TEST_USER_ID", "00000000-0000-0000-0000-000000000001"),
		LogDir:              getEnv("LOG_DIR", ""),
		LogMaxFiles:         getIntEnv("LOG_MAX_FILES", 10),
		Editor:              LoadEditorConfig(),
		// Debug flags - default to true in dev/test, false in production
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// GenerationModel returns the model used for document generation. Without
// DEFAULT_MODEL each provider gets its own default.
func (c *Config) GenerationModel() string {
	if c.DefaultModel != "" {
		return c.DefaultModel
	}
	if c.GenerationProvider == "anthropic" {
		return "claude-haiku-4-5"
	}
	return "lorem-fast"
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true" // Enable DEBUG in dev/test by default
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
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
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
