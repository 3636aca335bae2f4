package coupling

import (
	"slices"
	"strconv"
	"strings"

	"github.com/PurpleBooth/git-moves-together/pkg/models"
	"github.com/RoaringBitmap/roaring/v2"
)

// Index maps aggregation keys to their (possibly merged) delta and each file
// to the set of deltas that touched it.
//
// File sets hold every distinct effective delta ever added, compared by full
// value. A bucket that grew by merging keeps its earlier, smaller states in
// those sets; nothing is removed. Not safe for concurrent mutation.
type Index struct {
	byKey   map[models.DeltaID]models.ChangeDelta
	byFile  map[models.FileID]*roaring.Bitmap
	ordinal map[string]uint32
	entries []models.ChangeDelta // by ordinal
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		byKey:   make(map[models.DeltaID]models.ChangeDelta),
		byFile:  make(map[models.FileID]*roaring.Bitmap),
		ordinal: make(map[string]uint32),
	}
}

// Add folds d into the index under strategy s.
//
// With a merging strategy the delta stored for d's bucket becomes the union
// of every delta seen for that bucket, labelled with the bucket id and start.
// Without one, a repeated id replaces the stored delta.
func (ix *Index) Add(d models.ChangeDelta, s Strategy) {
	key := s.Key(d)

	effective := d
	if s.Merges() {
		if existing, seen := ix.byKey[key]; seen {
			effective = existing.Merge(d)
		} else {
			effective = d.WithIdentity(key, s.Bucket(d.Timestamp()))
		}
	}
	ix.byKey[key] = effective

	if effective.Len() == 0 {
		return
	}
	ord := ix.entry(effective)
	for _, f := range effective.Changes() {
		set, ok := ix.byFile[f]
		if !ok {
			set = roaring.New()
			ix.byFile[f] = set
		}
		set.Add(ord)
	}
}

// entry returns the ordinal of d, allocating one for a value not seen before.
func (ix *Index) entry(d models.ChangeDelta) uint32 {
	v := valueKey(d)
	if ord, ok := ix.ordinal[v]; ok {
		return ord
	}
	ord := uint32(len(ix.entries))
	ix.ordinal[v] = ord
	ix.entries = append(ix.entries, d)
	return ord
}

// valueKey identifies a delta by id, instant and changes.
func valueKey(d models.ChangeDelta) string {
	var b strings.Builder
	b.WriteString(string(d.ID()))
	b.WriteByte(0)
	b.WriteString(strconv.FormatInt(d.Timestamp().UnixNano(), 10))
	for _, f := range d.Changes() {
		b.WriteByte(0)
		b.WriteString(f.Prefix)
		b.WriteByte(1)
		b.WriteString(f.Path)
	}
	return b.String()
}

// Len returns the number of grouped units.
func (ix *Index) Len() int {
	return len(ix.byKey)
}

// Keys returns the aggregation keys in ascending order.
func (ix *Index) Keys() []models.DeltaID {
	keys := make([]models.DeltaID, 0, len(ix.byKey))
	for k := range ix.byKey {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Delta returns the unit stored under key.
func (ix *Index) Delta(key models.DeltaID) (models.ChangeDelta, bool) {
	d, ok := ix.byKey[key]
	return d, ok
}

// FilesTouched scans every unit and returns the distinct files, ascending.
func (ix *Index) FilesTouched() []models.FileID {
	seen := make(map[models.FileID]struct{})
	for _, d := range ix.byKey {
		for _, f := range d.Changes() {
			seen[f] = struct{}{}
		}
	}
	files := make([]models.FileID, 0, len(seen))
	for f := range seen {
		files = append(files, f)
	}
	slices.SortFunc(files, models.FileID.Compare)
	return files
}

// Entries returns every distinct delta held in the file sets, in the order
// they were first added.
func (ix *Index) Entries() []models.ChangeDelta {
	return slices.Clone(ix.entries)
}

// DeltasTouching returns the distinct deltas containing f, in the order they
// were first added.
func (ix *Index) DeltasTouching(f models.FileID) []models.ChangeDelta {
	set, ok := ix.byFile[f]
	if !ok {
		return nil
	}
	out := make([]models.ChangeDelta, 0, set.GetCardinality())
	it := set.Iterator()
	for it.HasNext() {
		out = append(out, ix.entries[it.Next()])
	}
	return out
}

// units returns the bitmap of delta ordinals containing f. Callers must not mutate it.
func (ix *Index) units(f models.FileID) *roaring.Bitmap {
	if set, ok := ix.byFile[f]; ok {
		return set
	}
	return roaring.New()
}
