// Package remote recognises repository arguments that name a remote
// repository instead of a local path, and clones them.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"
)

// Source represents a remote repository to analyze.
type Source struct {
	URL string // normalized git URL
	Ref string // branch or tag (empty = default branch)
}

// Parse detects if a path is a remote reference.
// Returns nil if path exists on filesystem (local path takes precedence).
func Parse(path string) (*Source, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, nil
	}

	// path@ref, where the @ comes after the last slash so that
	// git@host:owner/repo is left alone.
	ref := ""
	if idx := strings.LastIndex(path, "@"); idx > 0 && idx > strings.LastIndex(path, "/") {
		ref = path[idx+1:]
		path = path[:idx]
	}

	switch {
	case hasScheme(path), strings.HasPrefix(path, "git@"):
		return &Source{URL: path, Ref: ref}, nil
	case isHostPath(path):
		return &Source{URL: "https://" + path, Ref: ref}, nil
	case isGitHubShorthand(path):
		return &Source{URL: "https://github.com/" + path, Ref: ref}, nil
	}
	return nil, nil
}

func hasScheme(path string) bool {
	for _, scheme := range []string{"https://", "http://", "ssh://", "git://"} {
		if strings.HasPrefix(path, scheme) {
			return true
		}
	}
	return false
}

// isHostPath returns true for host/owner/repo, such as github.com/golang/go.
func isHostPath(path string) bool {
	parts := strings.Split(path, "/")
	if len(parts) < 3 || strings.HasPrefix(parts[0], ".") {
		return false
	}
	return strings.Contains(parts[0], ".") && parts[1] != "" && parts[2] != ""
}

// isGitHubShorthand returns true if path matches owner/repo pattern.
func isGitHubShorthand(path string) bool {
	slashIdx := strings.Index(path, "/")
	if slashIdx == -1 {
		return false
	}
	// Must have exactly one slash
	if strings.Count(path, "/") != 1 {
		return false
	}
	// No dots before the slash (would indicate a domain)
	if strings.Contains(path[:slashIdx], ".") {
		return false
	}
	// Both parts must be non-empty
	return slashIdx > 0 && slashIdx < len(path)-1
}

// Name is the repository name, used to prefix its files.
func (s *Source) Name() string {
	name := strings.TrimSuffix(strings.TrimRight(s.URL, "/"), ".git")
	if idx := strings.LastIndexAny(name, "/:"); idx != -1 {
		name = name[idx+1:]
	}
	return name
}

// Clone fetches the full history of the source into memory. Progress
// messages from the server go to progress when it is non-nil.
func (s *Source) Clone(ctx context.Context, progress io.Writer) (*git.Repository, error) {
	if s.Ref == "" {
		return git.CloneContext(ctx, memory.NewStorage(), nil, &git.CloneOptions{
			URL:      s.URL,
			Progress: progress,
		})
	}

	var errs []error
	for _, name := range []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(s.Ref),
		plumbing.NewTagReferenceName(s.Ref),
	} {
		repo, err := git.CloneContext(ctx, memory.NewStorage(), nil, &git.CloneOptions{
			URL:           s.URL,
			ReferenceName: name,
			SingleBranch:  true,
			Progress:      progress,
		})
		if err == nil {
			return repo, nil
		}
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("clone %s at %s: %w", s.URL, s.Ref, errors.Join(errs...))
}
