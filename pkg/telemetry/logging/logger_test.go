package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"mercator-hq/riskctl/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "json", config: Config{Level: "info", Format: "json"}},
		{name: "text", config: Config{Level: "debug", Format: "text"}},
		{name: "console", config: Config{Level: "warn", Format: "console"}},
		{name: "empty uses defaults", config: Config{}},
		{name: "invalid level", config: Config{Level: "loud", Format: "json"}, wantErr: true},
		{name: "invalid format", config: Config{Level: "info", Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.Writer = &bytes.Buffer{}
			logger, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && logger == nil {
				t.Fatal("New() returned nil logger")
			}
		})
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "warn", Format: "text", Writer: buf})
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record emitted at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn record missing: %s", out)
	}
}

func TestNew_LevelVar(t *testing.T) {
	buf := &bytes.Buffer{}
	lv := new(slog.LevelVar)
	logger, err := New(Config{Level: "warn", Format: "text", Writer: buf, LevelVar: lv})
	if err != nil {
		t.Fatal(err)
	}
	if lv.Level() != slog.LevelWarn {
		t.Fatalf("LevelVar = %v, want WARN", lv.Level())
	}

	logger.Debug("before")
	if err := SetLevel(lv, "debug"); err != nil {
		t.Fatalf("SetLevel() error = %v", err)
	}
	logger.Debug("after")

	out := buf.String()
	if strings.Contains(out, "before") {
		t.Errorf("debug record emitted at warn level: %s", out)
	}
	if !strings.Contains(out, "after") {
		t.Errorf("debug record missing after level change: %s", out)
	}

	if err := SetLevel(lv, "loud"); err == nil {
		t.Error("expected error for invalid level")
	}
	if lv.Level() != slog.LevelDebug {
		t.Errorf("invalid level replaced the current one: %v", lv.Level())
	}
}

func TestNew_ContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "info", Format: "json", Writer: buf})
	if err != nil {
		t.Fatal(err)
	}

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithSystemID(ctx, "billing-api")
	ctx = WithModelRef(ctx, "git:v2")
	Component(logger, "engine").InfoContext(ctx, "evaluated", "controls", 3)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	want := map[string]any{
		"msg":        "evaluated",
		"component":  "engine",
		"request_id": "req-1",
		"system_id":  "billing-api",
		"model_ref":  "git:v2",
		"controls":   float64(3),
	}
	for k, v := range want {
		if rec[k] != v {
			t.Errorf("%s = %v, want %v", k, rec[k], v)
		}
	}
}

func TestNew_ConsoleOmitsTime(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Format: "console", Writer: buf})
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("hello")
	if strings.Contains(buf.String(), "time=") {
		t.Errorf("console output should omit time: %s", buf.String())
	}
}

func TestContextAccessors(t *testing.T) {
	ctx := context.Background()
	if GetRequestID(ctx) != "" || GetSystemID(ctx) != "" || GetModelRef(ctx) != "" {
		t.Error("empty context should yield empty fields")
	}
	if fields := extractContextFields(ctx); len(fields) != 0 {
		t.Errorf("extractContextFields() = %v", fields)
	}

	ctx = WithSystemID(ctx, "payments")
	if got := GetSystemID(ctx); got != "payments" {
		t.Errorf("GetSystemID() = %q", got)
	}
}

func TestFromConfig(t *testing.T) {
	got := FromConfig(config.LoggingConfig{Level: "debug", Format: "json", AddSource: true})
	if got.Level != "debug" || got.Format != "json" || !got.AddSource {
		t.Errorf("FromConfig() = %+v", got)
	}
}

func TestComponentNilLogger(t *testing.T) {
	if Component(nil, "x") == nil {
		t.Error("Component(nil) returned nil")
	}
	Discard().Error("dropped")
}
