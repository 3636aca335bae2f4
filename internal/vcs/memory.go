package vcs

import (
	"context"
	"fmt"
	"slices"

	"github.com/PurpleBooth/git-moves-together/pkg/models"
)

// Change records that a snapshot touched a path.
type Change struct {
	SnapshotID string
	Path       string
}

// Memory is a History built from literal snapshot and change tables.
type Memory struct {
	path      string
	snapshots []Snapshot
	changes   []Change
}

// NewMemory creates an in-memory history. Snapshots must be given in the
// order Snapshots should return them.
func NewMemory(path string, snapshots []Snapshot, changes []Change) *Memory {
	return &Memory{
		path:      path,
		snapshots: slices.Clone(snapshots),
		changes:   slices.Clone(changes),
	}
}

func (m *Memory) Path() string {
	return m.path
}

func (m *Memory) Snapshots(ctx context.Context) ([]Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(m.snapshots), nil
}

func (m *Memory) CompareWithParents(ctx context.Context, snapshot Snapshot) (models.ChangeDelta, error) {
	if err := ctx.Err(); err != nil {
		return models.ChangeDelta{}, err
	}
	if !slices.ContainsFunc(m.snapshots, func(s Snapshot) bool { return s.ID == snapshot.ID }) {
		return models.ChangeDelta{}, fmt.Errorf("%w: %s", ErrUnknownSnapshot, snapshot.ID)
	}
	if len(snapshot.Parents) == 0 {
		return models.NewChangeDelta(models.DeltaID(snapshot.ID), snapshot.Timestamp), nil
	}

	var paths []string
	for _, c := range m.changes {
		if c.SnapshotID == snapshot.ID {
			paths = append(paths, c.Path)
		}
	}
	return models.NewChangeDeltaFromPaths(models.DeltaID(snapshot.ID), snapshot.Timestamp, paths...), nil
}

// MemoryOpener serves in-memory histories by path.
type MemoryOpener struct {
	histories map[string]History
}

// NewMemoryOpener creates an opener over the given histories, keyed by Path.
func NewMemoryOpener(histories ...History) *MemoryOpener {
	o := &MemoryOpener{histories: make(map[string]History, len(histories))}
	for _, h := range histories {
		o.histories[h.Path()] = h
	}
	return o
}

// Open returns the history registered for path.
func (o *MemoryOpener) Open(path string) (History, error) {
	h, ok := o.histories[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, path)
	}
	return h, nil
}
