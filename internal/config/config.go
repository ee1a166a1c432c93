// Package config provides runtime configuration values for the client.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the knobs read from the environment (and an optional .env file).
type Config struct {
	Port                 string
	LogLevel             string
	DocstoreDriver       string
	DatabaseURL          string
	ProductsCollection   string
	JWTSecret            string
	SessionTTL           time.Duration
	ListenerMinReconnect time.Duration
	ListenerMaxReconnect time.Duration
	ShutdownTimeout      time.Duration
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func durenv(key string, def time.Duration) time.Duration {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// Load reads .env (if present) and collects configuration with defaults.
// A missing .env file is not an error; values already in the environment win.
func Load(files ...string) Config {
	_ = godotenv.Load(files...)
	return Config{
		Port:                 getenv("APP_PORT", "8080"),
		LogLevel:             getenv("LOG_LEVEL", "info"),
		DocstoreDriver:       getenv("DOCSTORE_DRIVER", "memory"),
		DatabaseURL:          getenv("DATABASE_URL", ""),
		ProductsCollection:   getenv("PRODUCTS_COLLECTION", "products"),
		JWTSecret:            getenv("JWT_SECRET", "change-me"),
		SessionTTL:           durenv("SESSION_TTL", 24*time.Hour),
		ListenerMinReconnect: durenv("LISTENER_MIN_RECONNECT", 10*time.Second),
		ListenerMaxReconnect: durenv("LISTENER_MAX_RECONNECT", time.Minute),
		ShutdownTimeout:      time.Duration(atoienv("SHUTDOWN_TIMEOUT", 10)) * time.Second,
	}
}
