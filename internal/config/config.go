package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	Discussion  time.Duration
	MaxPlayers  int
	SessionFile string
	LogLevel    string
	LogFormat   string
}

// Load reads the environment, after merging a .env file from the working
// directory when one exists. Variables already set win over .env entries.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Discussion:  time.Duration(getEnvInt("DISCUSSION_SECONDS", 120)) * time.Second,
		MaxPlayers:  getEnvInt("MAX_PLAYERS", 8),
		SessionFile: getEnv("SESSION_FILE", defaultSessionFile()),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "console"),
	}
	return cfg
}

// defaultSessionFile is empty when the platform has no config directory,
// which keeps the session in memory.
func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "bugfind", "session")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return fallback
}
