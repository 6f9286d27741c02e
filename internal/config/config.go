package config

import (
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Config stores runtime configuration loaded from environment variables.
type Config struct {
	OpenAIKey      string
	OpenAIEndpoint string
	OpenAIModel    string
	CommandKey     string
	CommandBaseURL string
	CommandModel   string
	Database       string
	Port           string
}

// Load reads configuration from the environment, providing sensible defaults.
// Provider selection happens in main: OpenAI when its key is present,
// otherwise the command backend.
func Load() Config {
	// Load .env file if it exists (useful for development)
	_ = godotenv.Load()
	cfg := Config{
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIEndpoint: getEnv("OPENAI_API_ENDPOINT", "https://api.openai.com/v1"),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		CommandKey:     os.Getenv("COMMAND_API_KEY"),
		CommandBaseURL: getEnv("COMMAND_BASE_URL", ""),
		CommandModel:   getEnv("COMMAND_MODEL", ""),
		Database:       getEnv("DATABASE_PATH", "./data/cardforge.db"),
		Port:           getEnv("PORT", "8080"),
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database), 0o755); err != nil {
		log.Fatalf("failed to ensure database dir %s: %v", cfg.Database, err)
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}
