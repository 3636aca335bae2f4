// Package coupling finds files that change together across version history.
//
// Deltas read from one or more sources are folded into an Index under a
// Strategy, and Calculate derives a ranked statistic for every pair of files
// that shared at least one grouped unit.
package coupling

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/PurpleBooth/git-moves-together/internal/vcs"
	"github.com/PurpleBooth/git-moves-together/pkg/analyzer"
	"github.com/PurpleBooth/git-moves-together/pkg/models"
	"github.com/sourcegraph/conc/pool"
)

var _ analyzer.SourceAnalyzer[*models.CouplingReport] = (*Analyzer)(nil)

// Analyzer reads histories and reports how their files couple.
type Analyzer struct {
	strategy Strategy
	maxAge   time.Duration
	ageLimit bool
	opener   vcs.Opener
	logger   *slog.Logger
	now      func() time.Time
	progress analyzer.ProgressFunc
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithStrategy sets how deltas are grouped. Defaults to ByIdentity.
func WithStrategy(s Strategy) Option {
	return func(a *Analyzer) {
		a.strategy = s
	}
}

// WithMaxAge drops snapshots at least maxAge old. Without it every snapshot
// is read; a maxAge of zero keeps only snapshots dated in the future.
func WithMaxAge(maxAge time.Duration) Option {
	return func(a *Analyzer) {
		a.maxAge = maxAge
		a.ageLimit = true
	}
}

// WithOpener sets the VCS opener (useful for testing).
func WithOpener(opener vcs.Opener) Option {
	return func(a *Analyzer) {
		a.opener = opener
	}
}

// WithLogger sets the logger. Defaults to discarding.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// WithClock sets the source of "now" for the age filter and report.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		a.now = now
	}
}

// WithProgress sets a callback invoked after each snapshot is compared.
func WithProgress(fn analyzer.ProgressFunc) Option {
	return func(a *Analyzer) {
		a.progress = fn
	}
}

// New creates a new coupling analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		strategy: ByIdentity(),
		opener:   vcs.DefaultOpener(),
		logger:   slog.New(slog.DiscardHandler),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze reads every source concurrently, folds their deltas in source path
// order and returns the ranked couplings. The first failing source cancels
// the others and its error is returned as a *SourceError.
func (a *Analyzer) Analyze(ctx context.Context, paths []string) (*models.CouplingReport, error) {
	sources, err := resolveSources(paths)
	if err != nil {
		return nil, err
	}

	now := a.now()
	tracker := analyzer.NewTracker(a.progress)
	results := make([][]models.ChangeDelta, len(sources))

	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	for i, src := range sources {
		p.Go(func(ctx context.Context) error {
			deltas, err := a.read(ctx, src, now, tracker)
			if err != nil {
				return &SourceError{Source: src.path, Err: err}
			}
			results[i] = deltas
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	ix := NewIndex()
	for _, deltas := range results {
		for _, d := range deltas {
			ix.Add(d, a.strategy)
		}
	}

	report := &models.CouplingReport{
		GeneratedAt: now.UTC(),
		Sources:     make([]string, len(sources)),
		Grouping:    a.strategy.String(),
		Units:       ix.Len(),
		Files:       len(ix.FilesTouched()),
		Couplings:   Calculate(ix),
	}
	for i, src := range sources {
		report.Sources[i] = src.path
	}
	report.CalculateSummary()

	a.logger.Info("coupling calculated",
		"sources", len(sources),
		"grouping", report.Grouping,
		"units", report.Units,
		"files", report.Files,
		"pairs", report.Len())
	return report, nil
}

// read returns the deltas of every snapshot of src that passes the age filter.
func (a *Analyzer) read(ctx context.Context, src source, now time.Time, tracker *analyzer.Tracker) ([]models.ChangeDelta, error) {
	history, err := a.opener.Open(src.path)
	if err != nil {
		return nil, err
	}
	snapshots, err := history.Snapshots(ctx)
	if err != nil {
		return nil, err
	}

	total := len(snapshots)
	if a.ageLimit {
		keep := WithinAge(a.maxAge, now)
		snapshots = slices.DeleteFunc(snapshots, func(s vcs.Snapshot) bool { return !keep(s) })
	}
	tracker.Add(len(snapshots))

	deltas := make([]models.ChangeDelta, 0, len(snapshots))
	for _, s := range snapshots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d, err := history.CompareWithParents(ctx, s)
		if err != nil {
			return nil, err
		}
		if src.prefix != "" {
			d = d.WithPrefix(src.prefix)
		}
		deltas = append(deltas, d)
		tracker.Tick(src.path)
	}

	a.logger.Debug("source read",
		"source", src.path,
		"prefix", src.prefix,
		"snapshots", total,
		"kept", len(deltas))
	return deltas, nil
}
