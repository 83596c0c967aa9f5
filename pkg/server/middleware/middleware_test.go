package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"mercator-hq/riskctl/pkg/config"
	"mercator-hq/riskctl/pkg/telemetry/logging"
	"mercator-hq/riskctl/pkg/telemetry/metrics"
)

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := Recovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/model", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error != "internal error" {
		t.Errorf("error = %q", body.Error)
	}
	if strings.Contains(rec.Body.String(), "boom") {
		t.Error("panic value leaked to client")
	}
	if !strings.Contains(buf.String(), "panic in handler") {
		t.Errorf("panic not logged: %s", buf.String())
	}
}

func TestRecovery_PassThrough(t *testing.T) {
	h := Recovery(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want 418", rec.Code)
	}
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		wantSame bool
	}{
		{name: "generated", header: ""},
		{name: "propagated", header: "req-123", wantSame: true},
		{name: "oversized replaced", header: strings.Repeat("x", maxRequestIDLen+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = logging.GetRequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(RequestIDHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			got := rec.Header().Get(RequestIDHeader)
			if got == "" || got != seen {
				t.Fatalf("header %q, context %q", got, seen)
			}
			if tt.wantSame && got != tt.header {
				t.Errorf("id = %q, want %q", got, tt.header)
			}
			if !tt.wantSame && len(got) != 36 {
				t.Errorf("generated id %q is not a UUID", got)
			}
		})
	}
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(&config.MetricsConfig{Enabled: true, Namespace: "test"}, reg)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	h := Logging(logger, collector)(mux)

	for _, path := range []string{"/items/a", "/items/b"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, path, nil))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unmatched status = %d", rec.Code)
	}

	want := `
# HELP test_http_requests_total Total number of API requests
# TYPE test_http_requests_total counter
test_http_requests_total{code="201",method="POST",route="POST /items/{id}"} 2
test_http_requests_total{code="404",method="GET",route="unmatched"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want), "test_http_requests_total"); err != nil {
		t.Error(err)
	}

	logs := buf.String()
	if !strings.Contains(logs, `"msg":"request completed"`) || !strings.Contains(logs, `"component":"http"`) {
		t.Errorf("missing completion log: %s", logs)
	}
	if !strings.Contains(logs, `"level":"WARN"`) {
		t.Errorf("404 should log at warn: %s", logs)
	}
}

func TestLogging_NilCollector(t *testing.T) {
	h := Logging(slog.New(slog.DiscardHandler), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Body.String() != "ok" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestCORS(t *testing.T) {
	cfg := config.CORSConfig{
		Enabled:        true,
		AllowedOrigins: []string{"http://localhost:3000"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         time.Hour,
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		cfg        config.CORSConfig
		method     string
		origin     string
		preflight  bool
		wantStatus int
		wantOrigin string
		wantMaxAge string
	}{
		{name: "allowed origin", cfg: cfg, method: http.MethodGet, origin: "http://localhost:3000", wantStatus: 200, wantOrigin: "http://localhost:3000"},
		{name: "other origin", cfg: cfg, method: http.MethodGet, origin: "https://evil.example", wantStatus: 200},
		{name: "no origin", cfg: cfg, method: http.MethodGet, wantStatus: 200},
		{name: "preflight", cfg: cfg, method: http.MethodOptions, origin: "http://localhost:3000", preflight: true, wantStatus: 204, wantOrigin: "http://localhost:3000", wantMaxAge: "3600"},
		{name: "preflight rejected", cfg: cfg, method: http.MethodOptions, origin: "https://evil.example", preflight: true, wantStatus: 403},
		{name: "disabled", cfg: config.CORSConfig{}, method: http.MethodGet, origin: "http://localhost:3000", wantStatus: 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/evaluate", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rec := httptest.NewRecorder()
			CORS(tt.cfg)(next).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("allow origin = %q, want %q", got, tt.wantOrigin)
			}
			if got := rec.Header().Get("Access-Control-Max-Age"); got != tt.wantMaxAge {
				t.Errorf("max age = %q, want %q", got, tt.wantMaxAge)
			}
		})
	}
}
