package watch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func start(t *testing.T, cfg Config) (<-chan []string, func()) {
	t.Helper()
	w, err := New(cfg, quiet())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan []string, 8)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(paths []string) { changes <- paths })
	}()
	// Let Run reach its select loop before the test touches files.
	time.Sleep(50 * time.Millisecond)

	return changes, func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Run() error = %v", err)
		}
	}
}

func waitChange(t *testing.T, ch <-chan []string) []string {
	t.Helper()
	select {
	case paths := <-ch:
		return paths
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for change")
		return nil
	}
}

func TestWatcher_DebouncesDirectoryChanges(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "rules", "triggers.rules.yaml"), "triggers: []\n")

	changes, stop := start(t, Config{Path: dir, Debounce: 100 * time.Millisecond})
	defer stop()

	write(t, filepath.Join(dir, "rules", "triggers.rules.yaml"), "triggers: [a]\n")
	write(t, filepath.Join(dir, "rules", "controls.rules.yaml"), "rules: []\n")
	write(t, filepath.Join(dir, "README.md"), "ignored\n")

	paths := waitChange(t, changes)
	want := map[string]bool{
		filepath.Join(dir, "rules", "controls.rules.yaml"): true,
		filepath.Join(dir, "rules", "triggers.rules.yaml"): true,
	}
	for _, p := range paths {
		if !want[p] {
			t.Errorf("unexpected path %s", p)
		}
	}
	if len(paths) == 0 {
		t.Error("no paths reported")
	}

	select {
	case extra := <-changes:
		t.Errorf("burst reported twice: %v", extra)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_NewSubdirectory(t *testing.T) {
	dir := t.TempDir()
	changes, stop := start(t, Config{Path: dir, Debounce: 50 * time.Millisecond})
	defer stop()

	if err := os.Mkdir(filepath.Join(dir, "questions"), 0o755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	write(t, filepath.Join(dir, "questions", "ai.questions.yaml"), "questions: []\n")

	paths := waitChange(t, changes)
	found := false
	for _, p := range paths {
		if filepath.Base(p) == "ai.questions.yaml" {
			found = true
		}
	}
	if !found {
		t.Errorf("new subdirectory file not reported: %v", paths)
	}
}

func TestWatcher_SingleFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "billing.yaml")
	write(t, target, "scope: billing\n")

	changes, stop := start(t, Config{Path: target, Debounce: 50 * time.Millisecond})
	defer stop()

	write(t, filepath.Join(dir, "other.yaml"), "scope: other\n")
	write(t, target, "scope: billing\nbase: {}\n")

	paths := waitChange(t, changes)
	if len(paths) != 1 || filepath.Clean(paths[0]) != target {
		t.Errorf("paths = %v, want only %s", paths, target)
	}
}

func TestWatcher_MissingPath(t *testing.T) {
	if _, err := New(Config{Path: filepath.Join(t.TempDir(), "absent")}, quiet()); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestWatcher_RunTwice(t *testing.T) {
	w, err := New(Config{Path: t.TempDir()}, quiet())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx, func([]string) {})
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)

	if err := w.Run(ctx, func([]string) {}); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run() = %v, want ErrAlreadyRunning", err)
	}
	cancel()
	<-done
}
