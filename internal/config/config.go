// Package config reads process settings from the environment, after loading
// an optional .env file.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	LogLevel  string
	LogFormat string // json or console

	BestStore      string // memory, file or sqlite
	BestSQLitePath string
	BestFileDir    string
}

// Load reads .env (a missing file is fine) and then the environment.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads the environment only.
func FromEnv() Config {
	return Config{
		Port:           getEnv("PORT", "8080"),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:      strings.ToLower(getEnv("LOG_FORMAT", "json")),
		BestStore:      strings.ToLower(getEnv("BEST_STORE", "sqlite")),
		BestSQLitePath: getEnv("BEST_SQLITE_PATH", "./data/best.db"),
		BestFileDir:    getEnv("BEST_FILE_DIR", "./data/best"),
	}
}

// Addr is the listen address for Port.
func (c Config) Addr() string { return ":" + strings.TrimPrefix(c.Port, ":") }

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}
