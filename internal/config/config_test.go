package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"APP_PORT", "LOG_LEVEL", "DOCSTORE_DRIVER", "DATABASE_URL", "PRODUCTS_COLLECTION",
		"JWT_SECRET", "SESSION_TTL", "LISTENER_MIN_RECONNECT", "LISTENER_MAX_RECONNECT", "SHUTDOWN_TIMEOUT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	c := Load(filepath.Join(t.TempDir(), "missing.env"))
	if c.Port != "8080" {
		t.Fatalf("Port default: %q", c.Port)
	}
	if c.DocstoreDriver != "memory" || c.ProductsCollection != "products" {
		t.Fatalf("docstore defaults: %+v", c)
	}
	if c.SessionTTL != 24*time.Hour {
		t.Fatalf("SessionTTL default: %v", c.SessionTTL)
	}
	if c.ListenerMinReconnect != 10*time.Second || c.ListenerMaxReconnect != time.Minute {
		t.Fatalf("listener defaults: %+v", c)
	}
	if c.ShutdownTimeout != 10*time.Second {
		t.Fatalf("ShutdownTimeout default: %v", c.ShutdownTimeout)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_PORT", "9090")
	t.Setenv("DOCSTORE_DRIVER", "postgres")
	t.Setenv("SESSION_TTL", "90m")
	t.Setenv("SHUTDOWN_TIMEOUT", "3")
	t.Setenv("LISTENER_MIN_RECONNECT", "not-a-duration")
	c := Load(filepath.Join(t.TempDir(), "missing.env"))
	if c.Port != "9090" || c.DocstoreDriver != "postgres" {
		t.Fatalf("string overrides: %+v", c)
	}
	if c.SessionTTL != 90*time.Minute {
		t.Fatalf("SessionTTL env: %v", c.SessionTTL)
	}
	if c.ShutdownTimeout != 3*time.Second {
		t.Fatalf("ShutdownTimeout env: %v", c.ShutdownTimeout)
	}
	if c.ListenerMinReconnect != 10*time.Second {
		t.Fatalf("bad duration should fall back to default: %v", c.ListenerMinReconnect)
	}
}

func TestLoadDotEnvFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("PRODUCTS_COLLECTION")
	os.Unsetenv("JWT_SECRET")
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("PRODUCTS_COLLECTION=items\nJWT_SECRET=s3cret\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("PRODUCTS_COLLECTION")
		os.Unsetenv("JWT_SECRET")
	})
	c := Load(path)
	if c.ProductsCollection != "items" || c.JWTSecret != "s3cret" {
		t.Fatalf("dotenv values not loaded: %+v", c)
	}
}
