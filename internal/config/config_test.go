package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PORT", "DATABASE_URL", "DISCUSSION_SECONDS", "MAX_PLAYERS", "SESSION_FILE", "LOG_LEVEL", "LOG_FORMAT"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	// Load looks for .env in the working directory.
	t.Chdir(t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("DatabaseURL = %q, want %q", cfg.DatabaseURL, "")
	}
	if cfg.Discussion != 120*time.Second {
		t.Errorf("Discussion = %v, want %v", cfg.Discussion, 120*time.Second)
	}
	if cfg.MaxPlayers != 8 {
		t.Errorf("MaxPlayers = %d, want %d", cfg.MaxPlayers, 8)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "console" {
		t.Errorf("log = %q/%q, want info/console", cfg.LogLevel, cfg.LogFormat)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		want := filepath.Join(dir, "bugfind", "session")
		if cfg.SessionFile != want {
			t.Errorf("SessionFile = %q, want %q", cfg.SessionFile, want)
		}
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "3000")
	t.Setenv("DATABASE_URL", "postgres://localhost/bugfind")
	t.Setenv("DISCUSSION_SECONDS", "30")
	t.Setenv("MAX_PLAYERS", "6")
	t.Setenv("SESSION_FILE", "/tmp/bugfind-session")
	t.Setenv("LOG_FORMAT", "json")

	cfg := Load()

	if cfg.Port != "3000" {
		t.Errorf("Port = %q, want %q", cfg.Port, "3000")
	}
	if cfg.DatabaseURL != "postgres://localhost/bugfind" {
		t.Errorf("DatabaseURL = %q, want %q", cfg.DatabaseURL, "postgres://localhost/bugfind")
	}
	if cfg.Discussion != 30*time.Second {
		t.Errorf("Discussion = %v, want %v", cfg.Discussion, 30*time.Second)
	}
	if cfg.MaxPlayers != 6 {
		t.Errorf("MaxPlayers = %d, want %d", cfg.MaxPlayers, 6)
	}
	if cfg.SessionFile != "/tmp/bugfind-session" {
		t.Errorf("SessionFile = %q", cfg.SessionFile)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want json", cfg.LogFormat)
	}
}

func TestLoad_InvalidIntegers(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISCUSSION_SECONDS", "abc")
	t.Setenv("MAX_PLAYERS", "-2")

	cfg := Load()

	if cfg.Discussion != 120*time.Second {
		t.Errorf("Discussion = %v, want %v (fallback)", cfg.Discussion, 120*time.Second)
	}
	if cfg.MaxPlayers != 8 {
		t.Errorf("MaxPlayers = %d, want %d (fallback)", cfg.MaxPlayers, 8)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	if err := os.WriteFile(".env", []byte("PORT=9090\nMAX_PLAYERS=5\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MAX_PLAYERS", "4")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want %q from .env", cfg.Port, "9090")
	}
	if cfg.MaxPlayers != 4 {
		t.Errorf("MaxPlayers = %d, want environment value 4", cfg.MaxPlayers)
	}
}
