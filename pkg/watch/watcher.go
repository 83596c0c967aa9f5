package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrAlreadyRunning is returned when Run is called twice on one Watcher.
var ErrAlreadyRunning = errors.New("watcher already running")

// Config contains configuration for a Watcher.
type Config struct {
	// Path is the file or directory to watch. Directories are watched
	// recursively, including subdirectories created later.
	Path string

	// Debounce is the quiet period after the last relevant event before the
	// callback runs. Default: 250ms
	Debounce time.Duration

	// Extensions lists the file extensions that count as changes.
	// Default: .yaml, .yml
	Extensions []string
}

// Watcher reports debounced changes to a knowledge model directory or a
// facts file.
type Watcher struct {
	cfg    Config
	fs     *fsnotify.Watcher
	logger *slog.Logger
	// file is set when Path names a single file rather than a directory.
	file bool

	mu      sync.Mutex
	running bool
}

// New creates a watcher for cfg.Path. The path must exist.
func New(cfg Config, logger *slog.Logger) (*Watcher, error) {
	if cfg.Debounce <= 0 {
		cfg.Debounce = 250 * time.Millisecond
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = []string{".yaml", ".yml"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{cfg: cfg, fs: fsw, logger: logger.With("component", "watch")}
	if info, err := os.Stat(cfg.Path); err == nil && !info.IsDir() {
		w.file = true
	}
	if err := w.addPath(cfg.Path); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", cfg.Path, err)
	}
	return w, nil
}

// Run processes events until ctx is cancelled, calling onChange with the
// sorted, de-duplicated paths that changed during each burst. onChange runs
// on the watcher goroutine; events arriving meanwhile are folded into the
// next burst. Run closes the underlying watcher before returning.
func (w *Watcher) Run(ctx context.Context, onChange func(paths []string)) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return ErrAlreadyRunning
	}
	w.running = true
	w.mu.Unlock()

	defer w.fs.Close()

	w.logger.Info("file watcher started",
		"path", w.cfg.Path,
		"debounce_ms", w.cfg.Debounce.Milliseconds(),
	)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	pending := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("file watcher stopped")
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addPath(event.Name); err != nil {
						w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
					}
				}
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("file event", "path", event.Name, "op", event.Op.String())
			pending[event.Name] = struct{}{}
			timer.Reset(w.cfg.Debounce)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			clear(pending)
			onChange(paths)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.logger.Error("file watcher error", "error", err)
		}
	}
}

// Close releases a watcher that will not be run. Run closes its watcher on
// return, so calling Close afterwards is harmless.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

func (w *Watcher) addPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		// Watch the parent so editors that replace the file are seen.
		return w.fs.Add(filepath.Dir(path))
	}
	return filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != path && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.fs.Add(p)
	})
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	if w.file {
		return filepath.Clean(event.Name) == filepath.Clean(w.cfg.Path)
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, e := range w.cfg.Extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}
