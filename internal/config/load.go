package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/rtc-attention/internal/platform/envutil"
)

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		d.Duration = 0
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		u, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		return d.parse(u)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("duration must be a string like \"5s\" or int nanoseconds: %w", err)
	}
	d.Duration = time.Duration(n)
	return nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	if node.Tag == "!!int" {
		n, err := strconv.ParseInt(node.Value, 10, 64)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		d.Duration = time.Duration(n)
		return nil
	}
	return d.parse(node.Value)
}

func (d *Duration) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		d.Duration = 0
		return nil
	}
	dd, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = dd
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration.String())
}

func Default() *Config {
	return &Config{
		Env: "development",
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: Dur(5 * time.Second),
			IdleTimeout:       Dur(2 * time.Minute),
			ShutdownTimeout:   Dur(15 * time.Second),
			MaxRequestBytes:   16 << 20,
			CORSOrigins:       []string{"*"},
		},
		Session: SessionConfig{
			MaxUsers:         1000,
			MaxHistory:       20,
			MaxMeasurements:  5,
			IdleTimeout:      Dur(600 * time.Second),
			EvictionInterval: Dur(300 * time.Second),
		},
		Pipeline: PipelineConfig{
			MaxConcurrency: 8,
			AcquireTimeout: Dur(2 * time.Second),
			MaxImageSide:   640,
			MaxImagePixels: 4096 * 4096,
		},
		Classifier: ClassifierConfig{Mode: "canonical"},
		Detector:   DetectorConfig{Type: "mock", MockProfile: "attentive"},
		Events:     EventsConfig{Channel: "attention"},
		Observability: ObservabilityConfig{
			MetricsAddr: ":9090",
			ServiceName: "rtc-attention",
		},
	}
}

// Load reads the config file named by ATTN_CONFIG_PATH (or ./config/config.json
// when present) over the defaults, applies env overrides and validates.
func Load() (*Config, error) {
	cfg := Default()

	path := strings.TrimSpace(os.Getenv("ATTN_CONFIG_PATH"))
	if path == "" {
		if wd, err := os.Getwd(); err == nil {
			p := filepath.Join(wd, "config", "config.json")
			if _, err := os.Stat(p); err == nil {
				path = p
			}
		}
	}
	if path != "" {
		if err := readFile(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, cfg)
	default:
		err = json.Unmarshal(b, cfg)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", filepath.Base(path), err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Env = envutil.String("LOG_MODE", cfg.Env)
	cfg.HTTP.Addr = envutil.String("ATTN_HTTP_ADDR", cfg.HTTP.Addr)
	cfg.Detector.Type = envutil.String("ATTN_DETECTOR", cfg.Detector.Type)
	cfg.Detector.BaseURL = envutil.String("ATTN_DETECTOR_URL", cfg.Detector.BaseURL)
	cfg.Detector.MaxRetries = envutil.Int("ATTN_DETECTOR_RETRIES", cfg.Detector.MaxRetries)
	cfg.Pipeline.MaxConcurrency = envutil.Int("ATTN_MAX_CONCURRENCY", cfg.Pipeline.MaxConcurrency)
	cfg.Classifier.Mode = envutil.String("ATTN_CLASSIFIER_MODE", cfg.Classifier.Mode)
	cfg.Events.RedisAddr = envutil.String("REDIS_ADDR", cfg.Events.RedisAddr)
	cfg.Events.Channel = envutil.String("REDIS_CHANNEL", cfg.Events.Channel)
	cfg.Observability.Metrics = envutil.Bool("METRICS_ENABLED", cfg.Observability.Metrics)
	cfg.Observability.MetricsAddr = envutil.String("METRICS_ADDR", cfg.Observability.MetricsAddr)
	cfg.Observability.Tracing = envutil.Bool("OTEL_ENABLED", cfg.Observability.Tracing)
	if origins := envutil.String("ATTN_CORS_ORIGINS", ""); origins != "" {
		cfg.HTTP.CORSOrigins = splitList(origins)
	}
}

func (cfg *Config) normalize() error {
	d := Default()
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = d.Env
	}
	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		cfg.HTTP.Addr = d.HTTP.Addr
	}
	if cfg.HTTP.MaxRequestBytes <= 0 {
		cfg.HTTP.MaxRequestBytes = d.HTTP.MaxRequestBytes
	}
	if cfg.HTTP.ShutdownTimeout.Duration <= 0 {
		cfg.HTTP.ShutdownTimeout = d.HTTP.ShutdownTimeout
	}

	if cfg.Session.MaxUsers < 0 || cfg.Session.MaxHistory < 0 || cfg.Session.MaxMeasurements < 0 {
		return errors.New("session limits must not be negative")
	}
	if cfg.Pipeline.MaxConcurrency <= 0 {
		return fmt.Errorf("invalid pipeline.max_concurrency=%d", cfg.Pipeline.MaxConcurrency)
	}
	if cfg.Pipeline.MaxImageSide <= 0 {
		cfg.Pipeline.MaxImageSide = d.Pipeline.MaxImageSide
	}
	if cfg.Pipeline.MaxImagePixels <= 0 {
		cfg.Pipeline.MaxImagePixels = d.Pipeline.MaxImagePixels
	}

	cfg.Classifier.Mode = strings.ToLower(strings.TrimSpace(cfg.Classifier.Mode))
	switch cfg.Classifier.Mode {
	case "":
		cfg.Classifier.Mode = "canonical"
	case "canonical", "legacy":
	default:
		return fmt.Errorf("invalid classifier.mode=%q", cfg.Classifier.Mode)
	}

	det := &cfg.Detector
	det.Type = strings.ToLower(strings.TrimSpace(det.Type))
	det.BaseURL = strings.TrimRight(strings.TrimSpace(det.BaseURL), "/")
	switch det.Type {
	case "", "mock":
		det.Type = "mock"
	case "remote":
		if det.BaseURL == "" {
			return errors.New("detector.type=remote requires detector.base_url")
		}
		if strings.TrimSpace(det.Path) == "" {
			det.Path = "/v1/face"
		}
		if det.Timeout.Duration <= 0 {
			det.Timeout = Dur(5 * time.Second)
		}
		if det.MaxRetries < 0 {
			return fmt.Errorf("invalid detector.max_retries=%d", det.MaxRetries)
		}
		if det.RetryBackoff.Duration <= 0 {
			det.RetryBackoff = Dur(200 * time.Millisecond)
		}
	case "gcv":
		if det.Timeout.Duration <= 0 {
			det.Timeout = Dur(10 * time.Second)
		}
	default:
		return fmt.Errorf("invalid detector.type=%q", det.Type)
	}

	if strings.TrimSpace(cfg.Events.Channel) == "" {
		cfg.Events.Channel = d.Events.Channel
	}
	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = d.Observability.ServiceName
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
