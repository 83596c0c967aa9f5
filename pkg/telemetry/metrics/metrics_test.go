package metrics

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"mercator-hq/riskctl/pkg/config"
)

func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{Enabled: true, Namespace: "test"}
}

func TestCollector_RecordEvaluation(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())

	c.RecordEvaluation(StatusSuccess, 2*time.Millisecond, 4, 1)
	c.RecordEvaluation(StatusSuccess, 3*time.Millisecond, 2, 0)
	c.RecordEvaluation(StatusError, time.Millisecond, 0, 0)

	if got := testutil.ToFloat64(c.assessment.evaluationsTotal.WithLabelValues(StatusSuccess)); got != 2 {
		t.Errorf("success evaluations = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.assessment.evaluationsTotal.WithLabelValues(StatusError)); got != 1 {
		t.Errorf("error evaluations = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(c.assessment.derivedControls); got != 1 {
		t.Errorf("derived controls histogram series = %d", got)
	}
}

func TestCollector_RecordDiff(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())
	c.RecordDiff(StatusSuccess, time.Millisecond, 3, 1)
	c.RecordDiff(StatusSuccess, time.Millisecond, 1, 0)

	if got := testutil.ToFloat64(c.assessment.controlChanges.WithLabelValues("added")); got != 4 {
		t.Errorf("added = %v, want 4", got)
	}
	if got := testutil.ToFloat64(c.assessment.controlChanges.WithLabelValues("removed")); got != 1 {
		t.Errorf("removed = %v, want 1", got)
	}
}

func TestCollector_ModelMetrics(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())
	c.RecordModelLoad("git", StatusSuccess, 10*time.Millisecond)
	c.RecordModelCache(true)
	c.RecordModelCache(true)
	c.RecordModelCache(false)
	c.RecordModelReload()
	c.RecordPortfolio(12, time.Second)

	if got := testutil.ToFloat64(c.model.loadsTotal.WithLabelValues("git", StatusSuccess)); got != 1 {
		t.Errorf("git loads = %v", got)
	}
	if got := testutil.ToFloat64(c.model.cacheHits); got != 2 {
		t.Errorf("cache hits = %v", got)
	}
	if got := testutil.ToFloat64(c.model.cacheMisses); got != 1 {
		t.Errorf("cache misses = %v", got)
	}
	if got := testutil.ToFloat64(c.model.reloads); got != 1 {
		t.Errorf("reloads = %v", got)
	}
	if got := testutil.ToFloat64(c.assessment.portfolioSystems); got != 12 {
		t.Errorf("portfolio systems = %v", got)
	}
}

func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	c := NewCollector(cfg, prometheus.NewRegistry())

	c.RecordEvaluation(StatusSuccess, time.Millisecond, 1, 1)
	c.RecordHTTPRequest("GET", "/api/model", 200, time.Millisecond)

	if got := testutil.ToFloat64(c.assessment.evaluationsTotal.WithLabelValues(StatusSuccess)); got != 0 {
		t.Errorf("disabled collector recorded %v evaluations", got)
	}

	var nilCollector *Collector
	nilCollector.RecordEvaluation(StatusSuccess, 0, 0, 0)
	nilCollector.RecordModelReload()
}

func TestCollector_HTTPRouteCardinality(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())
	c.routes = NewCardinalityLimiter(2)

	c.RecordHTTPRequest("GET", "/a", 200, time.Millisecond)
	c.RecordHTTPRequest("GET", "/b", 200, time.Millisecond)
	c.RecordHTTPRequest("GET", "/c", 404, time.Millisecond)

	if got := testutil.ToFloat64(c.http.requestsTotal.WithLabelValues("GET", "other", "404")); got != 1 {
		t.Errorf("overflow route not folded into other: %v", got)
	}
	if c.routes.Count() != 2 {
		t.Errorf("Count() = %d", c.routes.Count())
	}
}

func TestCardinalityLimiter(t *testing.T) {
	cl := NewCardinalityLimiter(3)
	for i := 0; i < 3; i++ {
		if !cl.Allow(fmt.Sprint(i)) {
			t.Fatalf("Allow(%d) = false under limit", i)
		}
	}
	if cl.Allow("3") {
		t.Error("Allow over limit = true")
	}
	if !cl.Allow("1") {
		t.Error("existing label set should stay allowed")
	}
}

func TestHandler(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())
	c.RecordEvaluation(StatusSuccess, time.Millisecond, 1, 0)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "test_evaluations_total") {
		t.Errorf("exposition missing evaluations counter:\n%s", rec.Body.String())
	}
}
