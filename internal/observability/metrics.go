package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/rtc-attention/internal/platform/logger"
)

type Metrics struct {
	classifications *CounterVec
	transitions     *CounterVec
	stageLatency    *HistogramVec
	sessions        *Gauge
	evictions       *CounterVec
	inflight        *Gauge
	detectorErrors  *CounterVec

	apiRequests *CounterVec
	apiLatency  *HistogramVec

	redisUp *Gauge
}

// New returns a metrics set, or nil when disabled. Every method is safe to
// call on a nil *Metrics.
func New(enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	return &Metrics{
		classifications: NewCounterVec("attention_classifications_total", "Frames classified by resulting state.", []string{"state"}),
		transitions:     NewCounterVec("attention_transitions_total", "State changes by from/to state.", []string{"from", "to"}),
		stageLatency: NewHistogramVec(
			"attention_pipeline_seconds",
			"Pipeline stage latency in seconds.",
			[]string{"stage"},
			[]float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		),
		sessions:       NewGauge("attention_sessions", "Tracked user sessions."),
		evictions:      NewCounterVec("attention_evictions_total", "Sessions evicted by reason.", []string{"reason"}),
		inflight:       NewGauge("attention_inflight", "Frames being classified."),
		detectorErrors: NewCounterVec("attention_detector_errors_total", "Face detector failures.", []string{"detector"}),
		apiRequests:    NewCounterVec("attention_http_requests_total", "HTTP requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"attention_http_request_seconds",
			"HTTP request latency in seconds.",
			[]string{"method", "route"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		),
		redisUp: NewGauge("attention_redis_up", "Whether the event bus redis answers pings."),
	}
}

func (m *Metrics) collectors() []collector {
	return []collector{
		m.classifications, m.transitions, m.stageLatency, m.sessions, m.evictions,
		m.inflight, m.detectorErrors, m.apiRequests, m.apiLatency, m.redisUp,
	}
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range m.collectors() {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

// Server returns a standalone scrape server, or nil when metrics are off or
// addr is empty.
func (m *Metrics) Server(addr string) *http.Server {
	addr = strings.TrimSpace(addr)
	if m == nil || addr == "" {
		return nil
	}
	return &http.Server{
		Addr:              addr,
		Handler:           m,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func (m *Metrics) ObserveClassification(state string) {
	if m == nil {
		return
	}
	m.classifications.Inc(state)
}

func (m *Metrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.Inc(from, to)
}

func (m *Metrics) ObserveStage(stage string, dur time.Duration) {
	if m == nil {
		return
	}
	m.stageLatency.Observe(dur.Seconds(), stage)
}

func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.sessions.Set(float64(n))
}

func (m *Metrics) AddEvictions(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.evictions.Add(float64(n), reason)
}

func (m *Metrics) InflightInc() {
	if m == nil {
		return
	}
	m.inflight.Inc()
}

func (m *Metrics) InflightDec() {
	if m == nil {
		return
	}
	m.inflight.Dec()
}

func (m *Metrics) IncDetectorError(detector string) {
	if m == nil {
		return
	}
	m.detectorErrors.Inc(detector)
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route)
}

// StartRedisCollector pings the event bus redis on every tick until ctx ends.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb redis.UniversalClient, every time.Duration) {
	if m == nil || rdb == nil {
		return
	}
	if every <= 0 {
		every = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil && ctx.Err() == nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
			}
		}
	}()
}
