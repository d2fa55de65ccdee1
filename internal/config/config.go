package config

import "time"

// Duration reads "5s"-style strings or integer nanoseconds from JSON and YAML.
type Duration struct {
	Duration time.Duration
}

func Dur(d time.Duration) Duration { return Duration{Duration: d} }

type HTTPConfig struct {
	Addr              string   `json:"addr" yaml:"addr"`
	ReadHeaderTimeout Duration `json:"read_header_timeout" yaml:"read_header_timeout"`
	IdleTimeout       Duration `json:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout   Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`

	// MaxRequestBytes bounds request bodies; frames arrive base64-encoded.
	MaxRequestBytes int64 `json:"max_request_bytes" yaml:"max_request_bytes"`

	CORSOrigins []string `json:"cors_origins,omitempty" yaml:"cors_origins,omitempty"`
}

type SessionConfig struct {
	MaxUsers         int      `json:"max_users" yaml:"max_users"`
	MaxHistory       int      `json:"max_history" yaml:"max_history"`
	MaxMeasurements  int      `json:"max_measurements" yaml:"max_measurements"`
	IdleTimeout      Duration `json:"idle_timeout" yaml:"idle_timeout"`
	EvictionInterval Duration `json:"eviction_interval" yaml:"eviction_interval"`
}

type PipelineConfig struct {
	// MaxConcurrency caps frames classified at once across all users.
	MaxConcurrency int      `json:"max_concurrency" yaml:"max_concurrency"`
	AcquireTimeout Duration `json:"acquire_timeout" yaml:"acquire_timeout"`

	// MaxImageSide is the longest side frames are reduced to before the
	// lighting statistics are taken.
	MaxImageSide int `json:"max_image_side" yaml:"max_image_side"`

	// MaxImagePixels caps width*height read from the image header; larger
	// frames are rejected before decoding.
	MaxImagePixels int `json:"max_image_pixels" yaml:"max_image_pixels"`
}

type ClassifierConfig struct {
	// Mode is "canonical" or "legacy".
	Mode string `json:"mode" yaml:"mode"`
}

type DetectorConfig struct {
	// Type is one of "mock", "remote" or "gcv".
	Type string `json:"type" yaml:"type"`

	// BaseURL and Path locate the remote face-mesh service.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
	APIKey  string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// MaxRetries bounds extra attempts on 408/429/5xx and per-attempt
	// timeouts. RetryBackoff is the base delay between them.
	MaxRetries   int      `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`
	RetryBackoff Duration `json:"retry_backoff,omitempty" yaml:"retry_backoff,omitempty"`

	// MockProfile picks the face the mock detector reports.
	MockProfile string `json:"mock_profile,omitempty" yaml:"mock_profile,omitempty"`
}

type EventsConfig struct {
	// RedisAddr enables cross-instance fan-out; empty keeps events local.
	RedisAddr string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	Channel   string `json:"channel,omitempty" yaml:"channel,omitempty"`
}

type ObservabilityConfig struct {
	Metrics     bool   `json:"metrics" yaml:"metrics"`
	MetricsAddr string `json:"metrics_addr,omitempty" yaml:"metrics_addr,omitempty"`
	Tracing     bool   `json:"tracing" yaml:"tracing"`
	ServiceName string `json:"service_name,omitempty" yaml:"service_name,omitempty"`
}

type Config struct {
	Env           string              `json:"env" yaml:"env"`
	HTTP          HTTPConfig          `json:"http" yaml:"http"`
	Session       SessionConfig       `json:"session" yaml:"session"`
	Pipeline      PipelineConfig      `json:"pipeline" yaml:"pipeline"`
	Classifier    ClassifierConfig    `json:"classifier" yaml:"classifier"`
	Detector      DetectorConfig      `json:"detector" yaml:"detector"`
	Events        EventsConfig        `json:"events" yaml:"events"`
	Observability ObservabilityConfig `json:"observability" yaml:"observability"`
}
