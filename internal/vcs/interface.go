// Package vcs provides version control system abstractions.
package vcs

import (
	"context"
	"errors"
	"time"

	"github.com/PurpleBooth/git-moves-together/pkg/models"
)

// ErrUnknownSource is returned when an opener has no history for a path.
var ErrUnknownSource = errors.New("unknown source")

// ErrUnknownSnapshot is returned when a snapshot id is not part of the history.
var ErrUnknownSnapshot = errors.New("unknown snapshot")

// Snapshot is one revision of a tracked history.
type Snapshot struct {
	ID        string
	Timestamp time.Time
	Parents   []string
}

// History reads the revisions of one source.
type History interface {
	// Snapshots returns the revisions reachable from the current branch,
	// most recent first.
	Snapshots(ctx context.Context) ([]Snapshot, error)
	// CompareWithParents returns the files the snapshot changed. A root
	// snapshot changes nothing; a merge changes the union of its diffs
	// against every parent. The first failing comparison aborts.
	CompareWithParents(ctx context.Context, snapshot Snapshot) (models.ChangeDelta, error)
	// Path returns where the history was opened from.
	Path() string
}

// Opener opens histories.
type Opener interface {
	// Open opens the history rooted at, or containing, path.
	Open(path string) (History, error)
}
