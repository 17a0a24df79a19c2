package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	m := NewManager()
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cfg, err := m.GetConfig()
	if err != nil {
		t.Fatalf("GetConfig failed: %v", err)
	}

	if cfg.Redis.Host != "localhost" {
		t.Errorf("Expected default redis host 'localhost', got %s", cfg.Redis.Host)
	}
	if cfg.Redis.Port != 6379 {
		t.Errorf("Expected default redis port 6379, got %d", cfg.Redis.Port)
	}
	if cfg.Redis.PoolSize != 10 {
		t.Errorf("Expected default pool size 10, got %d", cfg.Redis.PoolSize)
	}
	if cfg.Redis.PoolTimeout != 4*time.Second {
		t.Errorf("Expected default pool timeout 4s, got %v", cfg.Redis.PoolTimeout)
	}
	if cfg.Redis.MaxRetries != 2 {
		t.Errorf("Expected default max retries 2, got %d", cfg.Redis.MaxRetries)
	}
	if cfg.Metrics.Enabled {
		t.Error("Expected metrics disabled by default")
	}
	if cfg.ErrorTracking.Provider != "noop" {
		t.Errorf("Expected default error tracking provider 'noop', got %s", cfg.ErrorTracking.Provider)
	}
	if cfg.ErrorTracking.SampleRate != 1.0 {
		t.Errorf("Expected default sample rate 1.0, got %f", cfg.ErrorTracking.SampleRate)
	}
}

func TestLoadFromFile(t *testing.T) {
	content := `
logger:
  dev: true

redis:
  host: redis.internal
  port: 6380
  pool_size: 25

feeds:
  notifications:
    provider: redis
    per_page: 20
    namespace: app
    max_size: 500
    op_timeout: 2s
  timeline:
    provider: memory
    batch_size: 5
`
	path := filepath.Join(t.TempDir(), "feedspec.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	m := NewManagerWithOptions(WithConfigFile(path))
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cfg, err := m.GetConfig()
	if err != nil {
		t.Fatalf("GetConfig failed: %v", err)
	}

	if !cfg.Logger.Dev {
		t.Error("Expected dev logger enabled")
	}
	if cfg.Redis.Host != "redis.internal" || cfg.Redis.Port != 6380 {
		t.Errorf("Unexpected redis connection: %s:%d", cfg.Redis.Host, cfg.Redis.Port)
	}
	if cfg.Redis.PoolSize != 25 {
		t.Errorf("Expected pool size 25, got %d", cfg.Redis.PoolSize)
	}

	if len(cfg.Feeds) != 2 {
		t.Fatalf("Expected 2 feeds, got %d", len(cfg.Feeds))
	}
	notifications := cfg.Feeds["notifications"]
	if notifications.Provider != "redis" {
		t.Errorf("Expected redis provider, got %s", notifications.Provider)
	}
	if notifications.PerPage != 20 || notifications.MaxSize != 500 {
		t.Errorf("Unexpected paging config: per_page=%d max_size=%d", notifications.PerPage, notifications.MaxSize)
	}
	if notifications.Namespace != "app" {
		t.Errorf("Expected namespace 'app', got %s", notifications.Namespace)
	}
	if notifications.OpTimeout != 2*time.Second {
		t.Errorf("Expected op timeout 2s, got %v", notifications.OpTimeout)
	}
	timeline := cfg.Feeds["timeline"]
	if timeline.Provider != "memory" || timeline.BatchSize != 5 {
		t.Errorf("Unexpected timeline config: %+v", timeline)
	}
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	m := NewManagerWithOptions(WithConfigPath(t.TempDir()), WithConfigName("absent"))
	if err := m.Load(); err != nil {
		t.Errorf("Expected missing config file to be tolerated, got %v", err)
	}
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("FEEDSPEC_REDIS_HOST", "env.redis")

	m := NewManager()
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := m.GetString("redis.host"); got != "env.redis" {
		t.Errorf("Expected env override 'env.redis', got %s", got)
	}
}

func TestSetOverridesDefaults(t *testing.T) {
	m := NewManager()
	m.Set("redis.port", 7000)

	if got := m.GetInt("redis.port"); got != 7000 {
		t.Errorf("Expected explicit set to win, got %d", got)
	}
}
