// Package analysis runs coupling analysis with configuration applied.
package analysis

import (
	"context"
	"log/slog"
	"time"

	"github.com/PurpleBooth/git-moves-together/internal/vcs"
	"github.com/PurpleBooth/git-moves-together/pkg/analyzer"
	"github.com/PurpleBooth/git-moves-together/pkg/analyzer/coupling"
	"github.com/PurpleBooth/git-moves-together/pkg/config"
	"github.com/PurpleBooth/git-moves-together/pkg/models"
)

// Service orchestrates coupling analysis.
type Service struct {
	config *config.Config
	opener vcs.Opener
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithConfig sets the configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

// WithOpener sets the VCS opener (for testing).
func WithOpener(opener vcs.Opener) Option {
	return func(s *Service) {
		s.opener = opener
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock fixes the reference time used for the age filter.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates a new analysis service.
func New(opts ...Option) *Service {
	s := &Service{
		config: config.DefaultConfig(),
		opener: vcs.DefaultOpener(),
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CouplingOptions overrides configuration for a single run. Nil and empty
// fields keep the configured setting.
type CouplingOptions struct {
	// MaxDaysAgo limits history to the last N days; 0 keeps only future-dated
	// changes.
	MaxDaysAgo *int
	// TimeWindowMinutes selects time-window grouping with this window.
	TimeWindowMinutes *int
	// Grouping forces identity or time-window grouping. It wins over the
	// grouping TimeWindowMinutes implies.
	Grouping   string
	OnProgress analyzer.ProgressFunc
}

// AnalyzeCoupling reads every path's history and returns the coupling report.
func (s *Service) AnalyzeCoupling(ctx context.Context, paths []string, opts CouplingOptions) (*models.CouplingReport, error) {
	cfg := *s.config
	if opts.MaxDaysAgo != nil {
		cfg.Analysis.MaxDaysAgo = config.Days(*opts.MaxDaysAgo)
	}
	if opts.TimeWindowMinutes != nil {
		cfg.Analysis.Grouping = config.GroupingTimeWindow
		cfg.Analysis.TimeWindowMinutes = *opts.TimeWindowMinutes
	}
	if opts.Grouping != "" {
		cfg.Analysis.Grouping = opts.Grouping
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	strategy, err := cfg.Strategy()
	if err != nil {
		return nil, err
	}

	analyzerOpts := []coupling.Option{
		coupling.WithStrategy(strategy),
		coupling.WithOpener(s.opener),
		coupling.WithLogger(s.logger),
		coupling.WithClock(s.now),
		coupling.WithProgress(opts.OnProgress),
	}
	if maxAge, ok := cfg.MaxAge(); ok {
		analyzerOpts = append(analyzerOpts, coupling.WithMaxAge(maxAge))
	}
	return coupling.New(analyzerOpts...).Analyze(ctx, paths)
}
