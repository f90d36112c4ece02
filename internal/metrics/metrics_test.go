package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	// None of these may panic
	m.ObserveAnalysis(PathFeatures, "low", 10, time.Millisecond)
	m.LookupFailed()
	m.ScanLogFailed()
	m.RateLimited()
	m.ObserveHTTP("GET", "/health", 200)

	if m.Handler() == nil {
		t.Error("expected a default handler")
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveAnalysis(PathKnownThreat, "high", 99, 2*time.Millisecond)
	m.ObserveAnalysis(PathFeatures, "low", 33, time.Millisecond)
	m.LookupFailed()
	m.ObserveHTTP("POST", "/api/analyze", 200)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	out := string(body)

	for _, want := range []string{
		`veritas_analyses_total{path="known_threat",verdict="high"} 1`,
		`veritas_analyses_total{path="features",verdict="low"} 1`,
		`veritas_threat_lookup_failures_total 1`,
		`veritas_http_requests_total{method="POST",route="/api/analyze",status="200"} 1`,
		`veritas_risk_score_count 2`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in metrics output", want)
		}
	}
}

func TestRegistriesAreIndependent(t *testing.T) {
	a := New()
	b := New()
	a.RateLimited()

	families, err := b.Registry().Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	for _, f := range families {
		if f.GetName() == "veritas_rate_limited_total" && f.GetMetric()[0].GetCounter().GetValue() != 0 {
			t.Error("registries share state")
		}
	}
}
