package observability

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveClassification("attentive")
	m.ObserveTransition("absent", "attentive")
	m.ObserveStage("extract", time.Millisecond)
	m.SetSessions(3)
	m.AddEvictions("idle", 2)
	m.InflightInc()
	m.InflightDec()
	m.IncDetectorError("mock")
	m.ObserveAPI("GET", "/api/test", "200", time.Millisecond)
	if m.Server(":0") != nil {
		t.Fatalf("nil metrics should not build a server")
	}
	if New(false) != nil {
		t.Fatalf("disabled metrics should be nil")
	}
}

func TestWritePrometheus(t *testing.T) {
	m := New(true)
	m.ObserveClassification("attentive")
	m.ObserveClassification("attentive")
	m.ObserveClassification("drowsy")
	m.ObserveTransition("absent", "attentive")
	m.ObserveStage("extract", 3*time.Millisecond)
	m.SetSessions(7)
	m.AddEvictions("overflow", 1)
	m.ObserveAPI("POST", "/api/detect_attention", "200", 20*time.Millisecond)

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`# TYPE attention_classifications_total counter`,
		`attention_classifications_total{state="attentive"} 2`,
		`attention_classifications_total{state="drowsy"} 1`,
		`attention_transitions_total{from="absent",to="attentive"} 1`,
		`attention_pipeline_seconds_bucket{stage="extract",le="0.005"} 1`,
		`attention_pipeline_seconds_count{stage="extract"} 1`,
		`attention_sessions 7`,
		`attention_evictions_total{reason="overflow"} 1`,
		`attention_http_requests_total{method="POST",route="/api/detect_attention",status="200"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain") {
		t.Fatalf("status=%d content-type=%q", rec.Code, rec.Header().Get("Content-Type"))
	}
}

func TestLabelEscaping(t *testing.T) {
	c := NewCounterVec("x_total", "x", []string{"k"})
	c.Inc(`a"b\c`)
	c.Inc("")
	var buf bytes.Buffer
	_ = c.WritePrometheus(&buf)
	if !strings.Contains(buf.String(), `x_total{k="a\"b\\c"} 1`) {
		t.Fatalf("escaping: %s", buf.String())
	}
	if !strings.Contains(buf.String(), `x_total{k="unknown"} 1`) {
		t.Fatalf("empty label: %s", buf.String())
	}
}

func TestParseHeaders(t *testing.T) {
	h := parseHeaders("a=1, b = two ,broken,=x")
	if len(h) != 2 || h["a"] != "1" || h["b"] != "two" {
		t.Fatalf("headers=%v", h)
	}
}
