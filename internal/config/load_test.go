package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ATTN_CONFIG_PATH", "")
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" || cfg.Detector.Type != "mock" || cfg.Classifier.Mode != "canonical" {
		t.Fatalf("cfg=%+v", cfg)
	}
	if cfg.Session.MaxUsers != 1000 || cfg.Session.IdleTimeout.Duration != 600*time.Second {
		t.Fatalf("session=%+v", cfg.Session)
	}
	if cfg.Pipeline.MaxImagePixels != 4096*4096 {
		t.Fatalf("pipeline=%+v", cfg.Pipeline)
	}
}

func TestLoadJSONWithEnvOverrides(t *testing.T) {
	p := writeConfig(t, "config.json", `{
		"http": {"addr": ":9000", "shutdown_timeout": "3s"},
		"session": {"max_users": 50, "eviction_interval": 60000000000},
		"pipeline": {"max_concurrency": 2},
		"detector": {"type": "remote", "base_url": "http://mesh:7000/"}
	}`)
	t.Setenv("ATTN_CONFIG_PATH", p)
	t.Setenv("ATTN_CLASSIFIER_MODE", "Legacy")
	t.Setenv("ATTN_MAX_CONCURRENCY", "4")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":9000" || cfg.HTTP.ShutdownTimeout.Duration != 3*time.Second {
		t.Fatalf("http=%+v", cfg.HTTP)
	}
	if cfg.Session.MaxUsers != 50 || cfg.Session.EvictionInterval.Duration != time.Minute {
		t.Fatalf("session=%+v", cfg.Session)
	}
	if cfg.Session.MaxHistory != 20 {
		t.Fatalf("defaults lost: %+v", cfg.Session)
	}
	if cfg.Classifier.Mode != "legacy" || cfg.Pipeline.MaxConcurrency != 4 {
		t.Fatalf("env overrides not applied: %+v %+v", cfg.Classifier, cfg.Pipeline)
	}
	if cfg.Detector.BaseURL != "http://mesh:7000" || cfg.Detector.Path != "/v1/face" || cfg.Detector.Timeout.Duration != 5*time.Second {
		t.Fatalf("detector=%+v", cfg.Detector)
	}
}

func TestLoadYAML(t *testing.T) {
	p := writeConfig(t, "config.yaml", `
env: production
session:
  idle_timeout: 10m
  eviction_interval: 1000000000
detector:
  type: gcv
events:
  redis_addr: redis:6379
`)
	t.Setenv("ATTN_CONFIG_PATH", p)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Env != "production" || cfg.Detector.Type != "gcv" || cfg.Detector.Timeout.Duration != 10*time.Second {
		t.Fatalf("cfg=%+v", cfg)
	}
	if cfg.Session.IdleTimeout.Duration != 10*time.Minute || cfg.Session.EvictionInterval.Duration != time.Second {
		t.Fatalf("session=%+v", cfg.Session)
	}
	if cfg.Events.RedisAddr != "redis:6379" || cfg.Events.Channel != "attention" {
		t.Fatalf("events=%+v", cfg.Events)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"bad_detector": `{"detector": {"type": "opencv"}}`,
		"remote_no_url": `{"detector": {"type": "remote"}}`,
		"bad_mode":      `{"classifier": {"mode": "smoothed"}}`,
		"bad_duration":  `{"http": {"idle_timeout": "soon"}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("ATTN_CONFIG_PATH", writeConfig(t, "config.json", body))
			if _, err := Load(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestCORSOriginsFromEnv(t *testing.T) {
	t.Setenv("ATTN_CONFIG_PATH", writeConfig(t, "config.json", `{}`))
	t.Setenv("ATTN_CORS_ORIGINS", "http://a.test, http://b.test,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if strings.Join(cfg.HTTP.CORSOrigins, "|") != "http://a.test|http://b.test" {
		t.Fatalf("origins=%v", cfg.HTTP.CORSOrigins)
	}
}

func TestLoadExampleConfig(t *testing.T) {
	t.Setenv("ATTN_CONFIG_PATH", filepath.Join("..", "..", "config", "config.example.yaml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Detector.Type != "remote" || cfg.Detector.MaxRetries != 2 || cfg.Detector.RetryBackoff.Duration != 200*time.Millisecond {
		t.Fatalf("detector=%+v", cfg.Detector)
	}
	if !cfg.Observability.Metrics || cfg.Session.IdleTimeout.Duration != 10*time.Minute {
		t.Fatalf("cfg=%+v", cfg)
	}
}
