package model

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
)

// Reader reads model documents by slash-separated path relative to the model
// root. Missing documents must be reported with an error satisfying
// errors.Is(err, fs.ErrNotExist).
type Reader interface {
	// ReadFile returns the contents of the named document.
	ReadFile(name string) ([]byte, error)
	// ReadDir returns the names of the regular files in the named directory,
	// sorted.
	ReadDir(name string) ([]string, error)
}

// Source supplies the documents of one model version.
type Source interface {
	// Open returns a reader positioned at the model root.
	Open(ctx context.Context) (Reader, error)
	// String identifies the source in logs, errors and results.
	String() string
}

// FileSource reads a model from a directory on disk.
type FileSource struct {
	dir string
}

// NewFileSource creates a source for the model rooted at dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

// Dir returns the model directory.
func (s *FileSource) Dir() string { return s.dir }

// Open verifies the directory exists and returns a reader over it.
func (s *FileSource) Open(ctx context.Context) (Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat model directory %q: %w", s.dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("model path %q is not a directory", s.dir)
	}
	return FSReader{FS: os.DirFS(s.dir)}, nil
}

// String returns the directory path.
func (s *FileSource) String() string { return s.dir }

// FSReader adapts an fs.FS to Reader.
type FSReader struct {
	FS fs.FS
}

// ReadFile implements Reader.
func (r FSReader) ReadFile(name string) ([]byte, error) {
	return fs.ReadFile(r.FS, name)
}

// ReadDir implements Reader.
func (r FSReader) ReadDir(name string) ([]string, error) {
	entries, err := fs.ReadDir(r.FS, name)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// MemorySource serves model documents from memory. It is used by tests and
// by callers that assemble models programmatically.
type MemorySource struct {
	name string
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemorySource creates an in-memory source. Keys of docs are
// slash-separated paths relative to the model root.
func NewMemorySource(name string, docs map[string]string) *MemorySource {
	s := &MemorySource{name: name, docs: make(map[string][]byte, len(docs))}
	for k, v := range docs {
		s.docs[path.Clean(k)] = []byte(v)
	}
	return s
}

// Set replaces one document.
func (s *MemorySource) Set(name, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[path.Clean(name)] = []byte(content)
}

// Remove deletes one document.
func (s *MemorySource) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, path.Clean(name))
}

// Open returns a snapshot reader of the current documents.
func (s *MemorySource) Open(ctx context.Context) (Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make(memoryReader, len(s.docs))
	for k, v := range s.docs {
		snap[k] = v
	}
	return snap, nil
}

// String returns the source name.
func (s *MemorySource) String() string { return s.name }

type memoryReader map[string][]byte

func (r memoryReader) ReadFile(name string) ([]byte, error) {
	data, ok := r[path.Clean(name)]
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrNotExist}
	}
	return data, nil
}

func (r memoryReader) ReadDir(name string) ([]string, error) {
	prefix := path.Clean(name) + "/"
	var out []string
	for k := range r {
		rest, ok := strings.CutPrefix(k, prefix)
		if ok && !strings.Contains(rest, "/") {
			out = append(out, rest)
		}
	}
	if len(out) == 0 {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}
	sort.Strings(out)
	return out, nil
}

// Ref is a parsed model reference.
//
// Two forms are accepted:
//
//	model/v2              a directory on disk
//	git:<rev>[:<subdir>]  a revision of the configured git repository
type Ref struct {
	// Dir is set for directory references.
	Dir string
	// Revision is set for git references.
	Revision string
	// Subdir is the model directory inside the repository for git references.
	Subdir string
}

// IsGit reports whether the reference names a git revision.
func (r Ref) IsGit() bool { return r.Revision != "" }

// String renders the reference in its parseable form.
func (r Ref) String() string {
	if !r.IsGit() {
		return r.Dir
	}
	if r.Subdir == "" {
		return "git:" + r.Revision
	}
	return "git:" + r.Revision + ":" + r.Subdir
}

// ParseRef parses a model reference.
func ParseRef(ref string) (Ref, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Ref{}, fmt.Errorf("%w: empty reference", ErrInvalidRef)
	}
	rest, ok := strings.CutPrefix(ref, "git:")
	if !ok {
		return Ref{Dir: ref}, nil
	}
	rev, subdir, _ := strings.Cut(rest, ":")
	if rev == "" {
		return Ref{}, fmt.Errorf("%w: %q has no revision", ErrInvalidRef, ref)
	}
	return Ref{Revision: rev, Subdir: strings.Trim(subdir, "/")}, nil
}

// Resolver turns reference strings into sources.
type Resolver struct {
	// DefaultDir is used for empty references.
	DefaultDir string
	// Repository is the path of the git repository for git references.
	Repository string
	// Subdir is the model directory inside the repository when a git
	// reference does not name one.
	Subdir string
}

// Resolve returns the source for ref.
func (r Resolver) Resolve(ref string) (Source, error) {
	if strings.TrimSpace(ref) == "" {
		ref = r.DefaultDir
	}
	parsed, err := ParseRef(ref)
	if err != nil {
		return nil, err
	}
	if !parsed.IsGit() {
		return NewFileSource(parsed.Dir), nil
	}
	if r.Repository == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoRepository, ref)
	}
	subdir := parsed.Subdir
	if subdir == "" {
		subdir = r.Subdir
	}
	return NewGitSource(r.Repository, parsed.Revision, subdir), nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
