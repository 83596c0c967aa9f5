package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCheckReadiness(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]CheckFunc
		wantStatus string
	}{
		{name: "no checks", wantStatus: StatusReady},
		{
			name: "all healthy",
			checks: map[string]CheckFunc{
				"model":     func(context.Context) error { return nil },
				"workspace": func(context.Context) error { return nil },
			},
			wantStatus: StatusReady,
		},
		{
			name: "one failing",
			checks: map[string]CheckFunc{
				"model":     func(context.Context) error { return errors.New("load model: boom") },
				"workspace": func(context.Context) error { return nil },
			},
			wantStatus: StatusDegraded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(time.Second)
			for name, check := range tt.checks {
				c.RegisterCheck(name, check)
			}
			got := c.CheckReadiness(context.Background())
			if got.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", got.Status, tt.wantStatus)
			}
			if len(got.Checks) != len(tt.checks) {
				t.Errorf("got %d results, want %d", len(got.Checks), len(tt.checks))
			}
		})
	}
}

func TestCheckReadiness_Timeout(t *testing.T) {
	c := New(20 * time.Millisecond)
	c.RegisterCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		return nil
	})

	got := c.CheckReadiness(context.Background())
	if got.Checks["slow"].Status != StatusUnhealthy || got.Checks["slow"].Message != ErrCheckTimeout.Error() {
		t.Errorf("slow check = %+v", got.Checks["slow"])
	}
}

func TestRegisterAndList(t *testing.T) {
	c := New(0)
	c.RegisterCheck("b", func(context.Context) error { return nil })
	c.RegisterCheck("a", func(context.Context) error { return nil })
	if got := c.ListChecks(); len(got) != 2 || got[0] != "a" {
		t.Errorf("ListChecks() = %v", got)
	}
	c.UnregisterCheck("a")
	if got := c.ListChecks(); len(got) != 1 || got[0] != "b" {
		t.Errorf("after unregister: %v", got)
	}
}

func TestHandlers(t *testing.T) {
	c := New(time.Second)
	c.RegisterCheck("model", func(context.Context) error { return errors.New("missing catalog") })

	mux := http.NewServeMux()
	Register(mux, c, "/health", "/ready", NewVersionInfo("1.0.0", "abc", "today"))

	tests := []struct {
		method   string
		path     string
		wantCode int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodHead, "/health", http.StatusOK},
		{http.MethodGet, "/ready", http.StatusServiceUnavailable},
		{http.MethodGet, "/version", http.StatusOK},
		{http.MethodPost, "/health", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	var status HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.Checks["model"].Message != "missing catalog" {
		t.Errorf("model check = %+v", status.Checks["model"])
	}
}

func TestDirCheck(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := DirCheck(dir)(context.Background()); err != nil {
		t.Errorf("DirCheck(dir) = %v", err)
	}
	if err := DirCheck(file)(context.Background()); err == nil {
		t.Error("DirCheck(file) should fail")
	}
	if err := DirCheck(filepath.Join(dir, "missing"))(context.Background()); err == nil {
		t.Error("DirCheck(missing) should fail")
	}
}

type pingFunc func(context.Context) error

func (p pingFunc) Ping(ctx context.Context) error { return p(ctx) }

func TestPingCheck(t *testing.T) {
	want := errors.New("db closed")
	if err := PingCheck(pingFunc(func(context.Context) error { return want }))(context.Background()); !errors.Is(err, want) {
		t.Errorf("PingCheck() = %v", err)
	}
}
