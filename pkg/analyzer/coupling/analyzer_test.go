package coupling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PurpleBooth/git-moves-together/internal/testutil"
	"github.com/PurpleBooth/git-moves-together/internal/vcs"
	"github.com/PurpleBooth/git-moves-together/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type commit struct {
	at    time.Time
	paths []string
}

// memoryRepo builds a history whose commits all have a parent, so each one
// reports its paths as changed.
func memoryRepo(path string, commits ...commit) *vcs.Memory {
	snapshots := make([]vcs.Snapshot, len(commits))
	var changes []vcs.Change
	for i, c := range commits {
		id := fmt.Sprintf("%s#%d", path, i)
		snapshots[len(commits)-1-i] = vcs.Snapshot{ID: id, Timestamp: c.at, Parents: []string{path + "#root"}}
		for _, p := range c.paths {
			changes = append(changes, vcs.Change{SnapshotID: id, Path: p})
		}
	}
	return vcs.NewMemory(path, snapshots, changes)
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestAnalyzer_SingleSource(t *testing.T) {
	repo := memoryRepo("/work/app",
		commit{t0, []string{"file_1", "file_2"}},
		commit{t0.Add(time.Hour), []string{"file_1", "file_2"}},
		commit{t0.Add(2 * time.Hour), []string{"file_1"}},
	)
	now := t0.Add(24 * time.Hour)

	report, err := New(WithOpener(vcs.NewMemoryOpener(repo)), WithClock(fixedClock(now))).
		Analyze(context.Background(), []string{"/work/app"})
	require.NoError(t, err)

	assert.Equal(t, []string{"/work/app"}, report.Sources)
	assert.Equal(t, "identity", report.Grouping)
	assert.Equal(t, 3, report.Units)
	assert.Equal(t, 2, report.Files)
	assert.True(t, report.GeneratedAt.Equal(now))

	require.Equal(t, 1, report.Len())
	stat, ok := report.Lookup(models.NewFileID("file_2"), models.NewFileID("file_1"))
	require.True(t, ok)
	assert.Equal(t, 2, stat.Together)
	assert.Equal(t, 3, stat.Total)

	assert.Equal(t, 1, report.Summary.TotalPairs)
	assert.Equal(t, 1, report.Summary.StrongPairs)
	assert.Equal(t, 1, report.Summary.SourcesAnalyzed)
}

func TestAnalyzer_NoCouplingIsNotAnError(t *testing.T) {
	repo := memoryRepo("/work/app", commit{t0, []string{"file_1"}})

	report, err := New(WithOpener(vcs.NewMemoryOpener(repo))).
		Analyze(context.Background(), []string{"/work/app"})
	require.NoError(t, err)
	assert.True(t, report.Empty())
	assert.Equal(t, 1, report.Units)
}

func TestAnalyzer_MultipleSourcesArePrefixed(t *testing.T) {
	repo1 := memoryRepo("/work/repo1", commit{t0, []string{"file_1", "file_2"}})
	repo2 := memoryRepo("/work/repo2", commit{t0, []string{"file_1", "file_3"}})

	report, err := New(WithOpener(vcs.NewMemoryOpener(repo1, repo2))).
		Analyze(context.Background(), []string{"/work/repo2", "/work/repo1"})
	require.NoError(t, err)

	assert.Equal(t, []string{"/work/repo1", "/work/repo2"}, report.Sources)
	require.Equal(t, 2, report.Len())

	_, ok := report.Lookup(
		models.NewFileID("file_1").WithPrefix("repo1"),
		models.NewFileID("file_2").WithPrefix("repo1"))
	assert.True(t, ok)
	_, ok = report.Lookup(
		models.NewFileID("file_1").WithPrefix("repo2"),
		models.NewFileID("file_3").WithPrefix("repo2"))
	assert.True(t, ok)
	_, ok = report.Lookup(
		models.NewFileID("file_1").WithPrefix("repo1"),
		models.NewFileID("file_1").WithPrefix("repo2"))
	assert.False(t, ok)
}

func TestAnalyzer_TimeWindowAcrossSources(t *testing.T) {
	repo1 := memoryRepo("/work/api", commit{t0.Add(time.Minute), []string{"handler.go"}})
	repo2 := memoryRepo("/work/web", commit{t0.Add(3 * time.Minute), []string{"client.ts"}})
	window, err := ByTimeWindow(5 * time.Minute)
	require.NoError(t, err)

	report, err := New(WithOpener(vcs.NewMemoryOpener(repo1, repo2)), WithStrategy(window)).
		Analyze(context.Background(), []string{"/work/api", "/work/web"})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Units)
	assert.Equal(t, "time-window 5m0s", report.Grouping)
	stat, ok := report.Lookup(
		models.NewFileID("handler.go").WithPrefix("api"),
		models.NewFileID("client.ts").WithPrefix("web"))
	require.True(t, ok)
	// api is folded first, so its handler.go-only state counts too.
	assert.Equal(t, 1, stat.Together)
	assert.Equal(t, 2, stat.Total)
	assert.Equal(t, 0.5, stat.Score)
}

func TestAnalyzer_MaxAge(t *testing.T) {
	now := t0.Add(30 * 24 * time.Hour)
	repo := memoryRepo("/work/app",
		commit{now.Add(-20 * 24 * time.Hour), []string{"old_1", "old_2"}},
		commit{now.Add(-7 * 24 * time.Hour), []string{"edge_1", "edge_2"}},
		commit{now.Add(-time.Hour), []string{"new_1", "new_2"}},
	)

	report, err := New(
		WithOpener(vcs.NewMemoryOpener(repo)),
		WithClock(fixedClock(now)),
		WithMaxAge(7*24*time.Hour),
	).Analyze(context.Background(), []string{"/work/app"})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Units)
	require.Equal(t, 1, report.Len())
	assert.Equal(t, models.NewCouplingKey(models.NewFileID("new_1"), models.NewFileID("new_2")), report.Couplings[0].Key)
}

func TestAnalyzer_ZeroMaxAgeDropsPastSnapshots(t *testing.T) {
	now := t0.Add(30 * 24 * time.Hour)
	repo := memoryRepo("/work/app",
		commit{t0, []string{"old_1", "old_2"}},
		commit{now.Add(-time.Minute), []string{"new_1", "new_2"}},
		commit{now.Add(time.Hour), []string{"skewed_1", "skewed_2"}},
	)

	report, err := New(
		WithOpener(vcs.NewMemoryOpener(repo)),
		WithClock(fixedClock(now)),
		WithMaxAge(0),
	).Analyze(context.Background(), []string{"/work/app"})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Units)
	require.Equal(t, 1, report.Len())
	assert.Equal(t, models.NewCouplingKey(models.NewFileID("skewed_1"), models.NewFileID("skewed_2")), report.Couplings[0].Key)
}

func TestAnalyzer_NoMaxAgeReadsEverything(t *testing.T) {
	now := t0.Add(3650 * 24 * time.Hour)
	repo := memoryRepo("/work/app",
		commit{t0, []string{"a", "b"}},
		commit{now, []string{"a", "b"}},
	)

	report, err := New(WithOpener(vcs.NewMemoryOpener(repo)), WithClock(fixedClock(now))).
		Analyze(context.Background(), []string{"/work/app"})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Units)
}

func TestWithinAge(t *testing.T) {
	now := t0
	snap := func(age time.Duration) vcs.Snapshot { return vcs.Snapshot{Timestamp: now.Add(-age)} }

	keepFuture := WithinAge(0, now)
	assert.False(t, keepFuture(snap(30*24*time.Hour)))
	assert.False(t, keepFuture(snap(0)))
	assert.True(t, keepFuture(snap(-time.Second)))

	keep := WithinAge(time.Hour, now)
	assert.True(t, keep(snap(59*time.Minute)))
	assert.False(t, keep(snap(time.Hour)))
	assert.False(t, keep(snap(2*time.Hour)))
	assert.True(t, keep(snap(-time.Minute)), "future snapshots are kept")
}

func TestAnalyzer_UnknownSourceFails(t *testing.T) {
	repo := memoryRepo("/work/app", commit{t0, []string{"a", "b"}})

	report, err := New(WithOpener(vcs.NewMemoryOpener(repo))).
		Analyze(context.Background(), []string{"/work/app", "/work/missing"})
	require.Error(t, err)
	assert.Nil(t, report)

	var se *SourceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "/work/missing", se.Source)
	assert.ErrorIs(t, err, vcs.ErrUnknownSource)
}

type failingHistory struct {
	*vcs.Memory
	err error
}

func (h failingHistory) CompareWithParents(context.Context, vcs.Snapshot) (models.ChangeDelta, error) {
	return models.ChangeDelta{}, h.err
}

func TestAnalyzer_CompareFailureIsFatal(t *testing.T) {
	boom := errors.New("corrupt object")
	broken := failingHistory{Memory: memoryRepo("/work/broken", commit{t0, []string{"a"}}), err: boom}

	_, err := New(WithOpener(vcs.NewMemoryOpener(broken))).
		Analyze(context.Background(), []string{"/work/broken"})
	assert.ErrorIs(t, err, boom)
}

func TestAnalyzer_CancelledContext(t *testing.T) {
	repo := memoryRepo("/work/app", commit{t0, []string{"a", "b"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(WithOpener(vcs.NewMemoryOpener(repo))).Analyze(ctx, []string{"/work/app"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzer_Progress(t *testing.T) {
	repo1 := memoryRepo("/work/repo1", commit{t0, []string{"a"}}, commit{t0, []string{"b"}})
	repo2 := memoryRepo("/work/repo2", commit{t0, []string{"c"}})

	var mu sync.Mutex
	ticks := map[string]int{}
	last := 0
	_, err := New(
		WithOpener(vcs.NewMemoryOpener(repo1, repo2)),
		WithProgress(func(current, total int, source string) {
			mu.Lock()
			defer mu.Unlock()
			ticks[source]++
			last = max(last, current)
		}),
	).Analyze(context.Background(), []string{"/work/repo1", "/work/repo2"})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"/work/repo1": 2, "/work/repo2": 1}, ticks)
	assert.Equal(t, 3, last)
}

func TestAnalyzer_Logs(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	repo := memoryRepo("/work/app", commit{t0, []string{"a", "b"}})

	_, err := New(WithOpener(vcs.NewMemoryOpener(repo)), WithLogger(logger)).
		Analyze(context.Background(), []string{"/work/app"})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "source read")
	assert.Contains(t, buf.String(), "coupling calculated")
	assert.Contains(t, buf.String(), "pairs=1")
}

func TestAnalyzer_Deterministic(t *testing.T) {
	repo1 := memoryRepo("/work/a",
		commit{t0, []string{"x", "y"}},
		commit{t0.Add(2 * time.Minute), []string{"y", "z"}},
	)
	repo2 := memoryRepo("/work/b",
		commit{t0.Add(time.Minute), []string{"x", "q"}},
	)
	window, err := ByTimeWindow(10 * time.Minute)
	require.NoError(t, err)

	run := func(paths ...string) *models.CouplingReport {
		report, err := New(WithOpener(vcs.NewMemoryOpener(repo1, repo2)), WithStrategy(window), WithClock(fixedClock(t0))).
			Analyze(context.Background(), paths)
		require.NoError(t, err)
		return report
	}

	first := run("/work/a", "/work/b")
	second := run("/work/b", "/work/a")
	assert.Equal(t, first, second)
	assert.Equal(t, first.Fingerprint(), second.Fingerprint())
}

func TestAnalyzer_GitRepositories(t *testing.T) {
	dir := t.TempDir()
	alpha := testutil.InitRepoAt(t, filepath.Join(dir, "alpha"))
	alpha.Commit(t0, "README.md")
	alpha.Commit(t0.Add(time.Minute), "model.go", "model_test.go")
	alpha.Commit(t0.Add(2*time.Minute), "model.go", "model_test.go")
	alpha.Commit(t0.Add(3*time.Minute), "model.go")

	beta := testutil.InitRepoAt(t, filepath.Join(dir, "beta"))
	beta.Commit(t0, "LICENSE")
	beta.Commit(t0.Add(time.Minute), "model.go", "view.go")

	report, err := New(WithOpener(vcs.NewGitOpener())).
		Analyze(context.Background(), []string{alpha.Path, beta.Path})
	require.NoError(t, err)

	assert.Equal(t, 6, report.Units)
	require.Equal(t, 2, report.Len())

	top := report.Couplings[0]
	assert.Equal(t, models.NewCouplingKey(
		models.NewFileID("model.go").WithPrefix("alpha"),
		models.NewFileID("model_test.go").WithPrefix("alpha"),
	), top.Key)
	assert.Equal(t, 2, top.Together)
	assert.Equal(t, 3, top.Total)

	stat, ok := report.Lookup(
		models.NewFileID("model.go").WithPrefix("beta"),
		models.NewFileID("view.go").WithPrefix("beta"))
	require.True(t, ok)
	assert.Equal(t, 1.0, stat.Score)
}
