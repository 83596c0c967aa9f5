package workspace

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mercator-hq/riskctl/pkg/facts"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	return New(Config{Root: t.TempDir()}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSanitizeSystemID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"payments", "payments"},
		{"  Card Processing v2 ", "Card-Processing-v2"},
		{"a//b..c", "a-b-c"},
		{"--edge--", "edge"},
		{"ok_name-1", "ok_name-1"},
		{"!!!", "system"},
		{"", "system"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := SanitizeSystemID(tt.in); got != tt.want {
				t.Errorf("SanitizeSystemID(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCreateGetSave(t *testing.T) {
	s := newStore(t)

	sys, err := s.Create("Card Processing", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if sys.ID != "Card-Processing" {
		t.Errorf("ID = %q", sys.ID)
	}
	wantPath := filepath.Join(s.Root(), "systems", "Card-Processing.yaml")
	if sys.Path != wantPath {
		t.Errorf("Path = %q, want %q", sys.Path, wantPath)
	}
	if sys.Facts.Scope() != DefaultScope {
		t.Errorf("Scope = %q", sys.Facts.Scope())
	}

	m := s.Manifest()
	want := Manifest{Systems: []Entry{{Name: "Card-Processing", Path: "./systems/Card-Processing.yaml"}}}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("manifest mismatch (-want +got):\n%s", diff)
	}

	updated := sys.Facts.Set("base.uses_ai", facts.Bool(true)).Set("model_version", facts.String("1.0.0"))
	if err := s.Save(sys.ID, updated); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := s.Get(sys.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.Facts.Lookup("base.uses_ai").Equal(facts.Bool(true)) {
		t.Error("saved answer was not persisted")
	}
	if diff := cmp.Diff([]string{"scope", "model_version", "description", "base"}, got.Facts.Root().Keys()); diff != "" {
		t.Errorf("saved key order mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateReusesExistingFile(t *testing.T) {
	s := newStore(t)
	p := filepath.Join(s.Root(), "custom", "legacy.yaml")
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte("scope: legacy\nbase: {uses_ai: false}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	sys, err := s.Create("legacy", "custom/legacy.yaml")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if sys.Facts.Scope() != "legacy" {
		t.Errorf("existing file was overwritten: scope = %q", sys.Facts.Scope())
	}

	if _, err := s.Create("legacy", "custom/legacy.yaml"); err != nil {
		t.Fatalf("second Create() error = %v", err)
	}
	if n := len(s.Manifest().Systems); n != 1 {
		t.Errorf("manifest has %d entries, want 1", n)
	}
}

func TestSaveUnknownSystem(t *testing.T) {
	s := newStore(t)
	err := s.Save("ghost", facts.New("x"))
	if !errors.Is(err, ErrSystemNotFound) {
		t.Errorf("Save() error = %v, want ErrSystemNotFound", err)
	}
	if _, err := s.Get("ghost"); !errors.Is(err, ErrSystemNotFound) {
		t.Errorf("Get() error = %v, want ErrSystemNotFound", err)
	}
}

func TestAddExistingAndRemove(t *testing.T) {
	s := newStore(t)
	p := filepath.Join(s.Root(), "imports", "billing api.yaml")
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte("scope: billing\nbase: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	sys, err := s.AddExisting("imports/billing api.yaml")
	if err != nil {
		t.Fatalf("AddExisting() error = %v", err)
	}
	if sys.ID != "billing-api" {
		t.Errorf("ID = %q, want billing-api", sys.ID)
	}

	if _, err := s.AddExisting("imports/billing api.yaml"); !errors.Is(err, ErrSystemExists) {
		t.Errorf("duplicate AddExisting() error = %v, want ErrSystemExists", err)
	}

	if err := s.Remove("billing-api"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := os.Stat(p); err != nil {
		t.Errorf("Remove() should keep the file: %v", err)
	}
	if len(s.List()) != 0 {
		t.Errorf("List() = %v, want empty", s.List())
	}
	if err := s.Remove("billing-api"); !errors.Is(err, ErrSystemNotFound) {
		t.Errorf("second Remove() error = %v", err)
	}
}

func TestAddExistingInvalidFile(t *testing.T) {
	s := newStore(t)
	p := filepath.Join(s.Root(), "list.yaml")
	if err := os.WriteFile(p, []byte("- a\n- b\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddExisting(p); !errors.Is(err, ErrInvalidSystem) {
		t.Errorf("AddExisting() error = %v, want ErrInvalidSystem", err)
	}
}

func TestDelete(t *testing.T) {
	s := newStore(t)
	sys, err := s.Create("gone", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("gone"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(sys.Path); !os.IsNotExist(err) {
		t.Errorf("file should be deleted, stat error = %v", err)
	}
	if len(s.List()) != 0 {
		t.Error("manifest entry should be removed")
	}
}

func TestListSortedAndMalformedManifest(t *testing.T) {
	s := newStore(t)
	for _, id := range []string{"zeta", "alpha", "mid"} {
		if _, err := s.Create(id, ""); err != nil {
			t.Fatal(err)
		}
	}
	if diff := cmp.Diff([]string{"alpha", "mid", "zeta"}, s.List()); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}

	if err := os.WriteFile(filepath.Join(s.Root(), DefaultPortfolioFile), []byte("systems: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := s.List(); len(got) != 0 {
		t.Errorf("malformed manifest should read as empty, got %v", got)
	}
}

func TestNormalize(t *testing.T) {
	f, err := facts.Parse([]byte("zzz: 1\nbase: {}\nai: {}\nscope: s\ncustom: {}\ndescription: d\n"))
	if err != nil {
		t.Fatal(err)
	}
	got := Normalize(f).Root().Keys()
	want := []string{"scope", "description", "base", "ai", "zzz", "custom"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Normalize() order mismatch (-want +got):\n%s", diff)
	}

	out, err := facts.Encode(Normalize(f))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(out), "scope: s\n") {
		t.Errorf("encoded document should start with scope:\n%s", out)
	}
}
