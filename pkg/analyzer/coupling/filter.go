package coupling

import (
	"time"

	"github.com/PurpleBooth/git-moves-together/internal/vcs"
)

// WithinAge returns a predicate keeping snapshots younger than maxAge at now.
// With a maxAge of zero only snapshots dated after now are kept.
func WithinAge(maxAge time.Duration, now time.Time) func(vcs.Snapshot) bool {
	return func(s vcs.Snapshot) bool {
		return now.Sub(s.Timestamp) < maxAge
	}
}
