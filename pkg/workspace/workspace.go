// Package workspace persists facts documents and the portfolio manifest
// that lists them.
//
// A workspace is a directory holding portfolio.yaml:
//
//	systems:
//	  - name: payments
//	    path: ./systems/payments.yaml
//
// Relative paths resolve against the workspace root. A missing or malformed
// manifest reads as an empty portfolio.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"mercator-hq/riskctl/pkg/facts"
)

// Defaults for Config fields left empty.
const (
	DefaultPortfolioFile = "portfolio.yaml"
	DefaultSystemsDir    = "systems"
	// DefaultScope is the scope label of newly created systems.
	DefaultScope = "system"
)

// Config locates the workspace files.
type Config struct {
	// Root is the workspace directory.
	Root string
	// PortfolioFile is the manifest name relative to Root.
	PortfolioFile string
	// SystemsDir is where new systems are created, relative to Root.
	SystemsDir string
}

// Entry is one portfolio manifest row.
type Entry struct {
	Name string `yaml:"name" json:"name"`
	Path string `yaml:"path" json:"path"`
}

// Manifest is the portfolio document.
type Manifest struct {
	Systems []Entry `yaml:"systems" json:"systems"`
}

// System is a loaded facts document.
type System struct {
	ID string `json:"id"`
	// Path is the resolved location of the facts file.
	Path  string      `json:"factsPath"`
	Facts facts.Facts `json:"facts"`
}

// Store reads and writes systems. Its methods serialize access to the
// manifest within one process.
type Store struct {
	cfg    Config
	mu     sync.Mutex
	logger *slog.Logger
}

// New creates a store. A nil logger uses slog.Default().
func New(cfg Config, logger *slog.Logger) *Store {
	if cfg.Root == "" {
		cfg.Root = "."
	}
	if cfg.PortfolioFile == "" {
		cfg.PortfolioFile = DefaultPortfolioFile
	}
	if cfg.SystemsDir == "" {
		cfg.SystemsDir = DefaultSystemsDir
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{cfg: cfg, logger: logger.With("component", "workspace")}
}

// Root returns the workspace directory.
func (s *Store) Root() string { return s.cfg.Root }

var unsafeIDChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// SanitizeSystemID maps free text to a safe system id: runs of characters
// outside [A-Za-z0-9_-] become "-", leading and trailing dashes are trimmed,
// and an empty result becomes "system".
func SanitizeSystemID(id string) string {
	safe := unsafeIDChars.ReplaceAllString(strings.TrimSpace(id), "-")
	safe = strings.Trim(safe, "-")
	if safe == "" {
		return "system"
	}
	return safe
}

func (s *Store) manifestPath() string {
	return filepath.Join(s.cfg.Root, s.cfg.PortfolioFile)
}

func (s *Store) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.cfg.Root, filepath.FromSlash(p))
}

func (s *Store) readManifest() Manifest {
	data, err := os.ReadFile(s.manifestPath())
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read portfolio manifest", "path", s.manifestPath(), "error", err)
		}
		return Manifest{}
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		s.logger.Warn("malformed portfolio manifest; treating as empty", "path", s.manifestPath(), "error", err)
		return Manifest{}
	}
	return m
}

func (s *Store) writeManifest(m Manifest) error {
	if m.Systems == nil {
		m.Systems = []Entry{}
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode portfolio manifest: %w", err)
	}
	return writeFileAtomic(s.manifestPath(), data)
}

func (m Manifest) find(id string) (Entry, bool) {
	for _, e := range m.Systems {
		if e.Name == id {
			return e, true
		}
	}
	return Entry{}, false
}

func (m Manifest) without(id string) Manifest {
	out := Manifest{Systems: make([]Entry, 0, len(m.Systems))}
	for _, e := range m.Systems {
		if e.Name != id {
			out.Systems = append(out.Systems, e)
		}
	}
	return out
}

// Manifest returns the current portfolio manifest.
func (s *Store) Manifest() Manifest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readManifest()
}

// List returns the ids in the portfolio, sorted.
func (s *Store) List() []string {
	m := s.Manifest()
	out := make([]string, 0, len(m.Systems))
	for _, e := range m.Systems {
		out = append(out, e.Name)
	}
	sort.Strings(out)
	return out
}

// Get loads the facts of system id.
func (s *Store) Get(id string) (*System, error) {
	m := s.Manifest()
	e, ok := m.find(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSystemNotFound, id)
	}
	p := s.resolve(e.Path)
	f, err := readFacts(p)
	if err != nil {
		return nil, err
	}
	return &System{ID: id, Path: p, Facts: f}, nil
}

func readFacts(p string) (facts.Facts, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return facts.Facts{}, fmt.Errorf("read system file: %w", err)
	}
	f, err := facts.Parse(data)
	if err != nil {
		return facts.Facts{}, fmt.Errorf("%w: %s: %v", ErrInvalidSystem, p, err)
	}
	return f, nil
}

// Create registers a system under the sanitized form of id. The facts file
// defaults to ./systems/<id>.yaml. If the file already exists it is reused
// as is; otherwise a fresh document is written.
func (s *Store) Create(id, path string) (*System, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	safe := SanitizeSystemID(id)
	target := path
	if target == "" {
		target = "./" + filepath.ToSlash(filepath.Join(s.cfg.SystemsDir, safe+".yaml"))
	}
	p := s.resolve(target)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, fmt.Errorf("create systems directory: %w", err)
	}

	var f facts.Facts
	if _, err := os.Stat(p); err == nil {
		f, err = readFacts(p)
		if err != nil {
			return nil, err
		}
		s.logger.Info("reusing existing system file", "system", safe, "path", p)
	} else {
		f = facts.New(DefaultScope)
		if err := s.writeFacts(p, f); err != nil {
			return nil, err
		}
	}

	m := s.readManifest()
	if _, ok := m.find(safe); !ok {
		m.Systems = append(m.Systems, Entry{Name: safe, Path: target})
		if err := s.writeManifest(m); err != nil {
			return nil, err
		}
	}
	return &System{ID: safe, Path: p, Facts: f}, nil
}

// Save writes facts for a system already in the portfolio.
func (s *Store) Save(id string, f facts.Facts) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.readManifest().find(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrSystemNotFound, id)
	}
	return s.writeFacts(s.resolve(e.Path), f)
}

func (s *Store) writeFacts(p string, f facts.Facts) error {
	data, err := facts.Encode(Normalize(f))
	if err != nil {
		return err
	}
	return writeFileAtomic(p, data)
}

// Delete removes the facts file and the manifest entry.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.readManifest()
	e, ok := m.find(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrSystemNotFound, id)
	}
	if err := os.Remove(s.resolve(e.Path)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete system file: %w", err)
	}
	return s.writeManifest(m.without(id))
}

// AddExisting registers a facts file that already exists. The id is the
// sanitized file name without extension.
func (s *Store) AddExisting(path string) (*System, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.resolve(path)
	f, err := readFacts(p)
	if err != nil {
		return nil, err
	}
	base := filepath.Base(p)
	id := SanitizeSystemID(strings.TrimSuffix(base, filepath.Ext(base)))

	m := s.readManifest()
	if _, ok := m.find(id); ok {
		return nil, fmt.Errorf("%w: %q", ErrSystemExists, id)
	}
	m.Systems = append(m.Systems, Entry{Name: id, Path: path})
	if err := s.writeManifest(m); err != nil {
		return nil, err
	}
	return &System{ID: id, Path: p, Facts: f}, nil
}

// Remove drops the manifest entry and keeps the facts file.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.readManifest()
	if _, ok := m.find(id); !ok {
		return fmt.Errorf("%w: %q", ErrSystemNotFound, id)
	}
	return s.writeManifest(m.without(id))
}

// dumpOrder is the preferred root key order of saved facts documents.
var dumpOrder = []string{
	"scope", "model_version", "description", "base", "criticality", "security",
	"data", "ai", "integration", "operations", "cost", "exceptions",
}

// Normalize reorders root keys so saved documents diff cleanly: known
// sections first in a fixed order, then the rest in document order.
func Normalize(f facts.Facts) facts.Facts {
	root := f.Root()
	out := facts.EmptyMap()
	for _, k := range dumpOrder {
		if v, ok := root.Get(k); ok {
			out = out.With(k, v)
		}
	}
	for _, k := range root.Keys() {
		if _, done := out.Get(k); done {
			continue
		}
		v, _ := root.Get(k)
		out = out.With(k, v)
	}
	return facts.FromValue(out)
}

func writeFileAtomic(p string, data []byte) error {
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(p)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", p, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", p, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", p, err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", p, err)
	}
	return nil
}
