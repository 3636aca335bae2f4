package coupling

import (
	"errors"
	"fmt"
	"time"

	"github.com/PurpleBooth/git-moves-together/pkg/models"
)

// ErrNonPositiveWindow is returned when a time window of zero or less is requested.
var ErrNonPositiveWindow = errors.New("time window must be positive")

// BucketLayout is the layout of the DeltaID given to a time-window bucket.
const BucketLayout = time.RFC3339

// Strategy decides how raw deltas collapse into the units that coupling is
// counted over. The zero value groups by identity.
type Strategy struct {
	window time.Duration
}

// ByIdentity keys every delta by its own id, so no merging happens.
func ByIdentity() Strategy {
	return Strategy{}
}

// ByTimeWindow keys deltas by their timestamp floored to a multiple of window
// since the Unix epoch. Deltas in the same bucket merge into one unit.
func ByTimeWindow(window time.Duration) (Strategy, error) {
	if window <= 0 {
		return Strategy{}, fmt.Errorf("%w: %s", ErrNonPositiveWindow, window)
	}
	return Strategy{window: window}, nil
}

// Window returns the bucket size, or zero when grouping by identity.
func (s Strategy) Window() time.Duration {
	return s.window
}

// Merges reports whether deltas sharing a key are merged.
func (s Strategy) Merges() bool {
	return s.window > 0
}

// Bucket returns the start of the window containing t, in UTC.
func (s Strategy) Bucket(t time.Time) time.Time {
	if !s.Merges() {
		return t
	}
	ns := t.UnixNano()
	w := int64(s.window)
	q := ns / w
	if ns%w != 0 && ns < 0 {
		q--
	}
	return time.Unix(0, q*w).UTC()
}

// Key returns the aggregation key for d.
func (s Strategy) Key(d models.ChangeDelta) models.DeltaID {
	if !s.Merges() {
		return d.ID()
	}
	return BucketID(s.Bucket(d.Timestamp()))
}

func (s Strategy) String() string {
	if !s.Merges() {
		return "identity"
	}
	return "time-window " + s.window.String()
}

// BucketID renders a bucket start as a DeltaID.
func BucketID(start time.Time) models.DeltaID {
	return models.DeltaID(start.UTC().Format(BucketLayout))
}
