package history

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"mercator-hq/riskctl/pkg/config"
	"mercator-hq/riskctl/pkg/engine"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type backend struct {
	name string
	open func(t *testing.T) Store
}

func openSQLite(driver, path string) func(t *testing.T) Store {
	return func(t *testing.T) Store {
		t.Helper()
		p := path
		if p == "" {
			p = filepath.Join(t.TempDir(), "nested", "history.db")
		}
		s, err := NewSQLiteStore(SQLiteConfig{Driver: driver, Path: p}, quietLogger())
		if err != nil {
			if strings.Contains(err.Error(), "CGO_ENABLED=0") {
				t.Skip("go-sqlite3 requires cgo")
			}
			t.Fatalf("NewSQLiteStore(%s) error = %v", driver, err)
		}
		return s
	}
}

func backends() []backend {
	return []backend{
		{"memory", func(t *testing.T) Store { return NewMemoryStore() }},
		{"sqlite-memory", openSQLite(DriverPureGo, MemoryPath)},
		{"sqlite-file", openSQLite(DriverPureGo, "")},
		{"sqlite3-file", openSQLite(DriverCGO, "")},
	}
}

func record(id, system, ref string, at time.Time, controls ...string) *Record {
	return &Record{
		ID:               id,
		SystemID:         system,
		ModelRef:         ref,
		ModelVersion:     "1.0.0",
		EvaluatedAt:      at,
		ActivatedDomains: []string{"ai"},
		DerivedControls:  append([]string{}, controls...),
		MissingAnswers:   []string{},
		Result:           []byte(`{"activated_domains":["ai"]}`),
	}
}

func ids(records []*Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func seed(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	for _, r := range []*Record{
		record("a", "billing", "model", base, "AI-GOV-001"),
		record("b", "billing", "git:v2", base.Add(time.Hour), "AI-GOV-001", "DATA-ENC-001"),
		record("c", "crm", "model", base.Add(2*time.Hour)),
		record("d", "billing", "model", base.Add(3*time.Hour), "SEC-NET-001"),
	} {
		if err := s.Store(ctx, r); err != nil {
			t.Fatalf("Store(%s) error = %v", r.ID, err)
		}
	}
}

func TestStoreQuery(t *testing.T) {
	since := base.Add(time.Hour)
	until := base.Add(2 * time.Hour)

	tests := []struct {
		name  string
		query *Query
		want  []string
	}{
		{"all newest first", &Query{}, []string{"d", "c", "b", "a"}},
		{"nil query", nil, []string{"d", "c", "b", "a"}},
		{"by system", &Query{SystemID: "billing"}, []string{"d", "b", "a"}},
		{"by model ref", &Query{ModelRef: "git:v2"}, []string{"b"}},
		{"time window inclusive", &Query{Since: &since, Until: &until}, []string{"c", "b"}},
		{"limit", &Query{Limit: 2}, []string{"d", "c"}},
		{"offset without limit", &Query{Offset: 3}, []string{"a"}},
		{"limit and offset", &Query{SystemID: "billing", Limit: 1, Offset: 1}, []string{"b"}},
		{"offset past end", &Query{Offset: 10}, []string{}},
		{"no match", &Query{SystemID: "nobody"}, []string{}},
	}

	for _, be := range backends() {
		t.Run(be.name, func(t *testing.T) {
			s := be.open(t)
			defer s.Close()
			seed(t, s)

			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					got, err := s.Query(context.Background(), tt.query)
					if err != nil {
						t.Fatalf("Query() error = %v", err)
					}
					if diff := cmp.Diff(tt.want, ids(got)); diff != "" {
						t.Errorf("Query() ids mismatch (-want +got):\n%s", diff)
					}
				})
			}
		})
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for _, be := range backends() {
		t.Run(be.name, func(t *testing.T) {
			s := be.open(t)
			defer s.Close()
			ctx := context.Background()

			want := record("x", "billing", "model", base, "AI-GOV-001", "DATA-ENC-001")
			want.MissingAnswers = []string{"ai.model_type"}
			if err := s.Store(ctx, want); err != nil {
				t.Fatalf("Store() error = %v", err)
			}

			got, err := s.Query(ctx, &Query{SystemID: "billing"})
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if len(got) != 1 {
				t.Fatalf("Query() returned %d records, want 1", len(got))
			}
			if diff := cmp.Diff(want, got[0]); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}

			got[0].DerivedControls[0] = "mutated"
			again, _ := s.Query(ctx, &Query{})
			if again[0].DerivedControls[0] != "AI-GOV-001" {
				t.Error("returned records must not alias stored state")
			}

			replaced := record("x", "billing", "model", base.Add(time.Minute))
			if err := s.Store(ctx, replaced); err != nil {
				t.Fatalf("Store(replace) error = %v", err)
			}
			n, err := s.Count(ctx, nil)
			if err != nil || n != 1 {
				t.Errorf("Count() = %d, %v; want 1 after replacing by id", n, err)
			}
		})
	}
}

func TestStoreCountAndDelete(t *testing.T) {
	for _, be := range backends() {
		t.Run(be.name, func(t *testing.T) {
			s := be.open(t)
			defer s.Close()
			ctx := context.Background()
			seed(t, s)

			n, err := s.Count(ctx, &Query{SystemID: "billing", Limit: 1})
			if err != nil {
				t.Fatalf("Count() error = %v", err)
			}
			if n != 3 {
				t.Errorf("Count(billing) = %d, want 3 (limit ignored)", n)
			}

			deleted, err := s.DeleteBefore(ctx, base.Add(2*time.Hour))
			if err != nil {
				t.Fatalf("DeleteBefore() error = %v", err)
			}
			if deleted != 2 {
				t.Errorf("DeleteBefore() = %d, want 2", deleted)
			}
			rest, err := s.Query(ctx, &Query{})
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff([]string{"d", "c"}, ids(rest)); diff != "" {
				t.Errorf("remaining ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStoreErrors(t *testing.T) {
	for _, be := range backends() {
		t.Run(be.name, func(t *testing.T) {
			s := be.open(t)
			ctx := context.Background()

			var se *StorageError
			if err := s.Store(ctx, &Record{}); !errors.As(err, &se) {
				t.Errorf("Store(empty id) error = %v, want *StorageError", err)
			}

			var qe *QueryError
			if _, err := s.Query(ctx, &Query{Limit: -1}); !errors.As(err, &qe) {
				t.Errorf("Query(limit -1) error = %v, want *QueryError", err)
			}
			early, late := base, base.Add(-time.Hour)
			if _, err := s.Query(ctx, &Query{Since: &early, Until: &late}); !errors.As(err, &qe) {
				t.Errorf("Query(inverted window) error = %v, want *QueryError", err)
			}

			if err := s.Ping(ctx); err != nil {
				t.Errorf("Ping() error = %v", err)
			}
			if err := s.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}
			if err := s.Ping(ctx); !errors.Is(err, ErrClosed) {
				t.Errorf("Ping() after Close = %v, want ErrClosed", err)
			}
			if err := s.Store(ctx, record("z", "s", "m", base)); !errors.Is(err, ErrClosed) {
				t.Errorf("Store() after Close = %v, want ErrClosed", err)
			}
		})
	}
}

func TestNewRecord(t *testing.T) {
	result := engine.Result{
		ActivatedDomains: []string{"ai", "data"},
		RequiredQuestions: []engine.RequiredQuestion{
			{ID: "base.uses_ai", Answered: true},
			{ID: "ai.model_type", Answered: false},
		},
		DerivedControls: []engine.DerivedControl{
			{ID: "SEC-NET-001", Title: "Segment"},
			{ID: "AI-GOV-001", Title: "Govern"},
		},
	}
	at := time.Date(2025, 3, 1, 13, 0, 0, 0, time.FixedZone("CET", 3600))

	r, err := NewRecord("billing", "model", "1.4.0", result, at)
	if err != nil {
		t.Fatalf("NewRecord() error = %v", err)
	}
	if len(r.ID) != 36 {
		t.Errorf("ID = %q, want a uuid", r.ID)
	}
	if r.EvaluatedAt.Location() != time.UTC || !r.EvaluatedAt.Equal(at) {
		t.Errorf("EvaluatedAt = %v, want %v in UTC", r.EvaluatedAt, at)
	}
	want := &Record{
		SystemID:         "billing",
		ModelRef:         "model",
		ModelVersion:     "1.4.0",
		ActivatedDomains: []string{"ai", "data"},
		DerivedControls:  []string{"AI-GOV-001", "SEC-NET-001"},
		MissingAnswers:   []string{"ai.model_type"},
	}
	opts := cmpopts.IgnoreFields(Record{}, "ID", "EvaluatedAt", "Result")
	if diff := cmp.Diff(want, r, opts); diff != "" {
		t.Errorf("NewRecord() mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(string(r.Result), `"derived_controls"`) {
		t.Errorf("Result JSON = %s", r.Result)
	}

	empty, err := NewRecord("x", "m", "v", engine.Result{}, at)
	if err != nil {
		t.Fatal(err)
	}
	if empty.ActivatedDomains == nil || empty.DerivedControls == nil || empty.MissingAnswers == nil {
		t.Error("summary lists must never be nil")
	}
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.HistoryConfig
		want    string
		wantErr error
	}{
		{"memory", config.HistoryConfig{Driver: "memory"}, "*history.MemoryStore", nil},
		{"pure go sqlite", config.HistoryConfig{Driver: "sqlite", Path: MemoryPath}, "*history.SQLiteStore", nil},
		{"unknown driver", config.HistoryConfig{Driver: "postgres"}, "", ErrUnknownDriver},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(tt.cfg, quietLogger())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Open() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer s.Close()
			if got := typeName(s); got != tt.want {
				t.Errorf("Open() type = %s, want %s", got, tt.want)
			}
		})
	}
}

func typeName(s Store) string {
	switch s.(type) {
	case *MemoryStore:
		return "*history.MemoryStore"
	case *SQLiteStore:
		return "*history.SQLiteStore"
	}
	return "unknown"
}

func TestSQLiteSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := NewSQLiteStore(SQLiteConfig{Driver: DriverPureGo, Path: path}, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	v, err := s.SchemaVersion(ctx)
	if err != nil || v != SchemaVersion {
		t.Fatalf("SchemaVersion() = %d, %v; want %d", v, err, SchemaVersion)
	}
	if _, err := s.db.ExecContext(ctx, insertSchemaVersion, SchemaVersion+1, 0); err != nil {
		t.Fatal(err)
	}
	s.Close()

	if _, err := NewSQLiteStore(SQLiteConfig{Driver: DriverPureGo, Path: path}, quietLogger()); err == nil {
		t.Fatal("expected error opening a database with a newer schema")
	}
}
