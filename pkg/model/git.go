package model

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// GitSource reads a model from a revision of a git repository without
// touching the working tree. This lets two model versions be diffed straight
// from history.
type GitSource struct {
	repoPath string
	repo     *gogit.Repository
	revision string
	subdir   string
}

// NewGitSource creates a source for the model stored under subdir at
// revision of the repository at repoPath. Revision accepts anything
// go-git can resolve: branch and tag names, hashes, HEAD~n.
func NewGitSource(repoPath, revision, subdir string) *GitSource {
	return &GitSource{repoPath: repoPath, revision: revision, subdir: strings.Trim(subdir, "/")}
}

// NewGitSourceFromRepository creates a source over an already opened
// repository, such as an in-memory one.
func NewGitSourceFromRepository(repo *gogit.Repository, revision, subdir string) *GitSource {
	return &GitSource{repo: repo, revision: revision, subdir: strings.Trim(subdir, "/")}
}

// String returns the reference in git:<rev>[:<subdir>] form.
func (s *GitSource) String() string {
	return Ref{Revision: s.revision, Subdir: s.subdir}.String()
}

// Open resolves the revision and returns a reader over its tree.
func (s *GitSource) Open(ctx context.Context) (Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	repo := s.repo
	if repo == nil {
		var err error
		repo, err = OpenRepository(s.repoPath)
		if err != nil {
			return nil, err
		}
	}

	commit, err := resolveCommit(repo, s.revision)
	if err != nil {
		return nil, err
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree for %s: %w", commit.Hash, err)
	}
	if s.subdir != "" {
		tree, err = tree.Tree(s.subdir)
		if err != nil {
			if errors.Is(err, object.ErrDirectoryNotFound) {
				return nil, fmt.Errorf("model directory %q not found at %s: %w", s.subdir, s.revision, fs.ErrNotExist)
			}
			return nil, fmt.Errorf("failed to get model directory %q: %w", s.subdir, err)
		}
	}
	return &treeReader{tree: tree}, nil
}

func resolveCommit(repo *gogit.Repository, revision string) (*object.Commit, error) {
	hash, err := repo.ResolveRevision(plumbing.Revision(revision))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve revision %q: %w", revision, err)
	}
	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit %s: %w", hash, err)
	}
	return commit, nil
}

type treeReader struct {
	tree *object.Tree
}

func (r *treeReader) ReadFile(name string) ([]byte, error) {
	f, err := r.tree.File(path.Clean(name))
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) || errors.Is(err, object.ErrDirectoryNotFound) {
			return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrNotExist}
		}
		return nil, err
	}
	contents, err := f.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return []byte(contents), nil
}

func (r *treeReader) ReadDir(name string) ([]string, error) {
	tree, err := r.tree.Tree(path.Clean(name))
	if err != nil {
		if errors.Is(err, object.ErrDirectoryNotFound) {
			return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
		}
		return nil, err
	}
	var out []string
	for _, e := range tree.Entries {
		if e.Mode.IsFile() {
			out = append(out, e.Name)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Revision describes one commit that changed a model.
type Revision struct {
	Hash    string    `json:"hash"`
	Short   string    `json:"short"`
	Author  string    `json:"author"`
	When    time.Time `json:"when"`
	Message string    `json:"message"`
}

// History lists the commits reachable from revision that touched files under
// subdir, newest first. A limit of zero or less returns every commit.
func History(ctx context.Context, repo *gogit.Repository, revision, subdir string, limit int) ([]Revision, error) {
	if revision == "" {
		revision = "HEAD"
	}
	start, err := resolveCommit(repo, revision)
	if err != nil {
		return nil, err
	}

	prefix := strings.Trim(subdir, "/")
	opts := &gogit.LogOptions{From: start.Hash, Order: gogit.LogOrderCommitterTime}
	if prefix != "" {
		opts.PathFilter = func(p string) bool {
			return p == prefix || strings.HasPrefix(p, prefix+"/")
		}
	}

	iter, err := repo.Log(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit log: %w", err)
	}
	defer iter.Close()

	var out []Revision
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		c, err := iter.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to walk commit log: %w", err)
		}
		hash := c.Hash.String()
		out = append(out, Revision{
			Hash:    hash,
			Short:   hash[:7],
			Author:  c.Author.Name,
			When:    c.Author.When,
			Message: strings.TrimSpace(c.Message),
		})
	}
	return out, nil
}

// OpenRepository opens the git repository at repoPath, searching parent
// directories for the .git directory.
func OpenRepository(repoPath string) (*gogit.Repository, error) {
	repo, err := gogit.PlainOpenWithOptions(repoPath, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository %q: %w", repoPath, err)
	}
	return repo, nil
}
