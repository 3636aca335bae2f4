// Package testutil builds git repositories for tests.
package testutil

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Repo is a throwaway git repository on disk.
type Repo struct {
	t    *testing.T
	Path string
	Git  *git.Repository
	seq  int
}

// InitRepo creates an empty repository in a new temporary directory.
func InitRepo(t *testing.T) *Repo {
	t.Helper()
	return InitRepoAt(t, filepath.Join(t.TempDir(), "repo"))
}

// InitRepoAt creates an empty repository at path.
func InitRepoAt(t *testing.T, path string) *Repo {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("MkdirAll(%s) error: %v", path, err)
	}
	repo, err := git.PlainInit(path, false)
	if err != nil {
		t.Fatalf("PlainInit(%s) error: %v", path, err)
	}
	return &Repo{t: t, Path: path, Git: repo}
}

// WriteFile writes content to a file in the worktree without staging it.
func (r *Repo) WriteFile(name, content string) {
	r.t.Helper()
	path := filepath.Join(r.Path, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		r.t.Fatalf("MkdirAll(%s) error: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		r.t.Fatalf("WriteFile(%s) error: %v", path, err)
	}
}

// Commit writes fresh content to every named file and commits them together
// at the given time. Missing parents default to HEAD.
func (r *Repo) Commit(when time.Time, names ...string) plumbing.Hash {
	r.t.Helper()
	return r.CommitWithParents(when, nil, names...)
}

// CommitWithParents is Commit with explicit parents, for building merges.
func (r *Repo) CommitWithParents(when time.Time, parents []plumbing.Hash, names ...string) plumbing.Hash {
	r.t.Helper()
	w, err := r.Git.Worktree()
	if err != nil {
		r.t.Fatalf("Worktree() error: %v", err)
	}

	r.seq++
	for _, name := range names {
		r.WriteFile(name, name+" revision "+strconv.Itoa(r.seq)+"\n")
		if _, err := w.Add(name); err != nil {
			r.t.Fatalf("Add(%s) error: %v", name, err)
		}
	}

	hash, err := w.Commit("change", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Test Author",
			Email: "test@example.com",
			When:  when,
		},
		Parents:           parents,
		AllowEmptyCommits: len(names) == 0,
	})
	if err != nil {
		r.t.Fatalf("Commit() error: %v", err)
	}
	return hash
}

// Remove deletes a file and commits the deletion.
func (r *Repo) Remove(when time.Time, name string) plumbing.Hash {
	r.t.Helper()
	w, err := r.Git.Worktree()
	if err != nil {
		r.t.Fatalf("Worktree() error: %v", err)
	}
	if _, err := w.Remove(name); err != nil {
		r.t.Fatalf("Remove(%s) error: %v", name, err)
	}
	hash, err := w.Commit("remove "+name, &git.CommitOptions{
		Author: &object.Signature{Name: "Test Author", Email: "test@example.com", When: when},
	})
	if err != nil {
		r.t.Fatalf("Commit() error: %v", err)
	}
	return hash
}
