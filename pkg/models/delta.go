package models

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

// PrefixSeparator joins a namespace prefix and a path when a FileID is rendered.
const PrefixSeparator = "@"

// FileID identifies a changed file. Prefix optionally namespaces the path by
// the source it was read from; an empty Prefix means no namespace.
type FileID struct {
	Prefix string
	Path   string
}

// NewFileID creates an un-prefixed FileID.
func NewFileID(path string) FileID {
	return FileID{Path: path}
}

// WithPrefix returns a copy of f namespaced by prefix, replacing any prefix
// it already carried.
func (f FileID) WithPrefix(prefix string) FileID {
	return FileID{Prefix: prefix, Path: f.Path}
}

// Compare orders FileIDs by prefix, then path. Un-prefixed IDs sort first.
func (f FileID) Compare(other FileID) int {
	if c := cmp.Compare(f.Prefix, other.Prefix); c != 0 {
		return c
	}
	return cmp.Compare(f.Path, other.Path)
}

// String renders the FileID as "prefix@path", or just the path when un-prefixed.
func (f FileID) String() string {
	if f.Prefix == "" {
		return f.Path
	}
	return f.Prefix + PrefixSeparator + f.Path
}

// MarshalText implements encoding.TextMarshaler.
func (f FileID) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// DeltaID identifies a unit of change: a revision hash or a time-bucket label.
type DeltaID string

// ChangeDelta is the set of files changed by one revision, or by a merged group
// of revisions. Values are immutable; every operation returns a new delta.
type ChangeDelta struct {
	id        DeltaID
	timestamp time.Time
	changes   []FileID // sorted, unique
}

// NewChangeDelta creates a delta. Duplicate changes are collapsed.
func NewChangeDelta(id DeltaID, timestamp time.Time, changes ...FileID) ChangeDelta {
	set := slices.Clone(changes)
	slices.SortFunc(set, FileID.Compare)
	set = slices.Compact(set)
	return ChangeDelta{id: id, timestamp: timestamp, changes: set}
}

// NewChangeDeltaFromPaths creates a delta from un-prefixed paths.
func NewChangeDeltaFromPaths(id DeltaID, timestamp time.Time, paths ...string) ChangeDelta {
	changes := make([]FileID, len(paths))
	for i, p := range paths {
		changes[i] = NewFileID(p)
	}
	return NewChangeDelta(id, timestamp, changes...)
}

// ID returns the delta identifier.
func (d ChangeDelta) ID() DeltaID {
	return d.id
}

// Timestamp returns when the change happened.
func (d ChangeDelta) Timestamp() time.Time {
	return d.timestamp
}

// Changes returns the changed files in ascending order. The slice is a copy.
func (d ChangeDelta) Changes() []FileID {
	return slices.Clone(d.changes)
}

// Len returns the number of changed files.
func (d ChangeDelta) Len() int {
	return len(d.changes)
}

// Contains reports whether f changed in this delta.
func (d ChangeDelta) Contains(f FileID) bool {
	_, found := slices.BinarySearchFunc(d.changes, f, FileID.Compare)
	return found
}

// Merge returns a delta carrying d's id and timestamp and the union of both
// change sets.
func (d ChangeDelta) Merge(other ChangeDelta) ChangeDelta {
	union := make([]FileID, 0, len(d.changes)+len(other.changes))
	i, j := 0, 0
	for i < len(d.changes) && j < len(other.changes) {
		switch c := d.changes[i].Compare(other.changes[j]); {
		case c < 0:
			union = append(union, d.changes[i])
			i++
		case c > 0:
			union = append(union, other.changes[j])
			j++
		default:
			union = append(union, d.changes[i])
			i++
			j++
		}
	}
	union = append(union, d.changes[i:]...)
	union = append(union, other.changes[j:]...)
	return ChangeDelta{id: d.id, timestamp: d.timestamp, changes: union}
}

// WithPrefix returns a delta whose files are all namespaced by prefix. Any
// earlier prefix is replaced.
func (d ChangeDelta) WithPrefix(prefix string) ChangeDelta {
	changes := make([]FileID, len(d.changes))
	for i, f := range d.changes {
		changes[i] = f.WithPrefix(prefix)
	}
	// Files that differed only by prefix collapse here, and order can change.
	return NewChangeDelta(d.id, d.timestamp, changes...)
}

// WithIdentity returns the same change set under a different id and timestamp.
func (d ChangeDelta) WithIdentity(id DeltaID, timestamp time.Time) ChangeDelta {
	return ChangeDelta{id: id, timestamp: timestamp, changes: d.changes}
}

// Equal reports whether both deltas have the same id, instant and changes.
func (d ChangeDelta) Equal(other ChangeDelta) bool {
	return d.id == other.id &&
		d.timestamp.Equal(other.timestamp) &&
		slices.Equal(d.changes, other.changes)
}

func (d ChangeDelta) String() string {
	names := make([]string, len(d.changes))
	for i, f := range d.changes {
		names[i] = f.String()
	}
	return fmt.Sprintf("%s@%s{%s}", d.id, d.timestamp.UTC().Format(time.RFC3339), strings.Join(names, ", "))
}
