// Package watch reruns analysis when a repository's branch moves.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

// ErrNoGitDir is returned when a repository's git directory cannot be found
// on disk.
var ErrNoGitDir = errors.New("git directory not found")

// Watcher monitors repository refs and triggers analysis after commits.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debounce  time.Duration
	repos     []string
	dirs      map[string]string // watched dir -> repo
	callback  func(repo string)
	out       io.Writer
	mu        sync.Mutex
	pending   map[string]time.Time
}

// NewWatcher creates a watcher over the given repositories.
func NewWatcher(repos []string, debounce time.Duration) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		debounce:  debounce,
		repos:     repos,
		dirs:      make(map[string]string),
		out:       os.Stderr,
		pending:   make(map[string]time.Time),
	}, nil
}

// SetCallback sets the function to call when a repository's history moves.
func (w *Watcher) SetCallback(cb func(repo string)) {
	w.callback = cb
}

// SetOutput redirects status messages.
func (w *Watcher) SetOutput(out io.Writer) {
	w.out = out
}

// gitDir locates the directory holding HEAD and refs for the repository
// at or above path.
func gitDir(path string) (string, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	storage, ok := repo.Storer.(*filesystem.Storage)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoGitDir, path)
	}
	return storage.Filesystem().Root(), nil
}

// add watches the git directory of repo and every directory under its
// refs/heads.
func (w *Watcher) add(repo string) error {
	dir, err := gitDir(repo)
	if err != nil {
		return err
	}
	if err := w.watchDir(dir, repo); err != nil {
		return err
	}

	return w.watchTree(filepath.Join(dir, "refs", "heads"), repo)
}

// watchTree watches root and every directory below it. A missing root is
// not an error.
func (w *Watcher) watchTree(root, repo string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return w.watchDir(path, repo)
	})
}

func (w *Watcher) watchDir(dir, repo string) error {
	if err := w.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	w.dirs[dir] = repo
	return nil
}

// Start begins watching and blocks until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	for _, repo := range w.repos {
		if err := w.add(repo); err != nil {
			return err
		}
	}

	cyan := color.New(color.FgCyan)
	cyan.Fprintf(w.out, "Watching %s for new commits...\n", strings.Join(w.repos, ", "))
	cyan.Fprintln(w.out, "Press Ctrl+C to stop")

	go w.processDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			color.New(color.FgRed).Fprintf(w.out, "Watch error: %v\n", err)
		}
	}
}

// handleEvent marks the owning repository pending when HEAD or a branch
// ref changes.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op == fsnotify.Chmod {
		return
	}

	name := filepath.Base(event.Name)
	if strings.HasSuffix(name, ".lock") {
		return
	}

	dir := filepath.Dir(event.Name)
	w.mu.Lock()
	defer w.mu.Unlock()

	repo, ok := w.dirs[dir]
	if !ok {
		return
	}
	if !isRefDir(dir) && name != "HEAD" && name != "packed-refs" {
		return
	}
	w.pending[repo] = time.Now()

	// Branches like feature/x live in subdirectories created on demand.
	if event.Has(fsnotify.Create) && isRefDir(dir) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watchTree(event.Name, repo); err != nil {
				color.New(color.FgRed).Fprintf(w.out, "Watch error: %v\n", err)
			}
		}
	}
}

func isRefDir(dir string) bool {
	return strings.Contains(filepath.ToSlash(dir), "/refs/heads")
}

// processDebounced processes pending changes after debounce period.
func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processPending()
		}
	}
}

// processPending runs the callback for repositories that have been quiet
// for the debounce period. Callbacks run one at a time.
func (w *Watcher) processPending() {
	w.mu.Lock()
	now := time.Now()
	var ready []string
	for repo, last := range w.pending {
		if now.Sub(last) >= w.debounce {
			ready = append(ready, repo)
		}
	}
	for _, repo := range ready {
		delete(w.pending, repo)
	}
	w.mu.Unlock()

	if w.callback == nil {
		return
	}
	for _, repo := range ready {
		color.New(color.FgYellow).Fprintf(w.out, "\nNew commits in %s\n", repo)
		w.callback(repo)
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

// WatchedDirs returns the directories being watched.
func (w *Watcher) WatchedDirs() []string {
	return w.fsWatcher.WatchList()
}
