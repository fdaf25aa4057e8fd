package initializers

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LoadEnv reads .env when present. Variables already set in the environment win.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
}

// EnvDuration parses key as a Go duration, falling back to def when unset or invalid.
func EnvDuration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("Invalid %s %q, using %s", key, raw, def)
		return def
	}
	return d
}

// EnvInt parses key as a positive integer, falling back to def.
func EnvInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		log.Printf("Invalid %s %q, using %d", key, raw, def)
		return def
	}
	return n
}

// EnvString returns key or def when unset.
func EnvString(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
