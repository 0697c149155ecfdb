package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestLoad_DefaultsWithoutEnvFile(t *testing.T) {
	cfg := load(viper.New(), filepath.Join(t.TempDir(), "missing.env"))

	if cfg.App.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.App.Port)
	}
	if cfg.App.Storage != "postgres" {
		t.Fatalf("expected default storage postgres, got %q", cfg.App.Storage)
	}
	if cfg.Redis.Enabled || cfg.Kafka.Enabled {
		t.Fatalf("redis and kafka must be disabled by default: %+v %+v", cfg.Redis, cfg.Kafka)
	}
	if got := cfg.Kafka.Topic; got != "entity.events" {
		t.Fatalf("unexpected default topic %q", got)
	}
	if !cfg.Otel.LogBodies {
		t.Fatalf("expected body logging on by default")
	}
}

func TestLoad_EnvFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "APP_PORT=9090\nAPP_STORAGE=Memory\nKAFKA_BROKERS=a:9092, b:9092 ,\n"
	if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("REDIS_ENABLED", "true")

	cfg := load(viper.New(), envFile)

	if cfg.App.Port != "9090" {
		t.Fatalf("expected port from .env, got %q", cfg.App.Port)
	}
	if cfg.App.Storage != "memory" {
		t.Fatalf("expected lower-cased storage, got %q", cfg.App.Storage)
	}
	if !cfg.Redis.Enabled {
		t.Fatalf("expected REDIS_ENABLED from environment")
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[0] != "a:9092" || cfg.Kafka.Brokers[1] != "b:9092" {
		t.Fatalf("unexpected brokers: %#v", cfg.Kafka.Brokers)
	}
}
