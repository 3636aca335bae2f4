package coupling

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/PurpleBooth/git-moves-together/internal/remote"
)

// SourceError attaches the source path to a failure reading its history.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// source is one history to read and the prefix its files get.
type source struct {
	path   string
	prefix string
}

// resolveSources makes local paths absolute, drops duplicates and sorts
// them. Remote repositories are kept as given. With more than one source each
// gets its repository name as prefix, or its full path when two sources share
// a name.
func resolveSources(paths []string) ([]source, error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}

	resolved := make([]string, 0, len(paths))
	names := make(map[string]string, len(paths))
	for _, p := range paths {
		src, err := remote.Parse(p)
		if err != nil {
			return nil, &SourceError{Source: p, Err: err}
		}
		if src != nil {
			resolved = append(resolved, p)
			names[p] = src.Name()
			continue
		}
		a, err := filepath.Abs(p)
		if err != nil {
			return nil, &SourceError{Source: p, Err: err}
		}
		resolved = append(resolved, a)
		names[a] = filepath.Base(a)
	}
	slices.Sort(resolved)
	resolved = slices.Compact(resolved)

	sources := make([]source, len(resolved))
	if len(resolved) == 1 {
		sources[0] = source{path: resolved[0]}
		return sources, nil
	}

	seen := make(map[string]int, len(resolved))
	for _, r := range resolved {
		seen[names[r]]++
	}
	for i, r := range resolved {
		prefix := names[r]
		if seen[prefix] > 1 {
			prefix = r
		}
		sources[i] = source{path: r, prefix: prefix}
	}
	return sources, nil
}
