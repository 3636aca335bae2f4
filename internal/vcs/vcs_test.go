package vcs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/PurpleBooth/git-moves-together/internal/remote"
	"github.com/PurpleBooth/git-moves-together/internal/testutil"
	"github.com/PurpleBooth/git-moves-together/pkg/models"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// Both adapters hold the same three revisions:
// root touches file1, mid touches file2, head touches file2 and file3.
func memoryHistory() History {
	return NewMemory("/memory",
		[]Snapshot{
			{ID: "3", Timestamp: base.Add(2 * time.Minute), Parents: []string{"2"}},
			{ID: "2", Timestamp: base.Add(time.Minute), Parents: []string{"1"}},
			{ID: "1", Timestamp: base},
		},
		[]Change{
			{SnapshotID: "1", Path: "file1"},
			{SnapshotID: "2", Path: "file2"},
			{SnapshotID: "3", Path: "file2"},
			{SnapshotID: "3", Path: "file3"},
		},
	)
}

func gitHistoryFixture(t *testing.T) History {
	t.Helper()
	repo := testutil.InitRepo(t)
	repo.Commit(base, "file1")
	repo.Commit(base.Add(time.Minute), "file2")
	repo.Commit(base.Add(2*time.Minute), "file2", "file3")

	h, err := NewGitOpener().Open(repo.Path)
	require.NoError(t, err)
	return h
}

func contractHistories(t *testing.T) map[string]History {
	return map[string]History{
		"memory": memoryHistory(),
		"git":    gitHistoryFixture(t),
	}
}

func TestHistoryContract_SnapshotsInCurrentBranch(t *testing.T) {
	for name, h := range contractHistories(t) {
		t.Run(name, func(t *testing.T) {
			snapshots, err := h.Snapshots(context.Background())
			require.NoError(t, err)
			require.Len(t, snapshots, 3)

			head, mid, root := snapshots[0], snapshots[1], snapshots[2]
			assert.Equal(t, []string{mid.ID}, head.Parents)
			assert.Equal(t, []string{root.ID}, mid.Parents)
			assert.Empty(t, root.Parents)
			assert.True(t, head.Timestamp.Equal(base.Add(2*time.Minute)), "head timestamp %s", head.Timestamp)
			assert.True(t, root.Timestamp.Equal(base), "root timestamp %s", root.Timestamp)
		})
	}
}

func TestHistoryContract_CompareWithParents(t *testing.T) {
	for name, h := range contractHistories(t) {
		t.Run(name, func(t *testing.T) {
			snapshots, err := h.Snapshots(context.Background())
			require.NoError(t, err)
			head := snapshots[0]

			got, err := h.CompareWithParents(context.Background(), head)
			require.NoError(t, err)

			want := models.NewChangeDeltaFromPaths(models.DeltaID(head.ID), head.Timestamp, "file2", "file3")
			assert.True(t, want.Equal(got), "got %s, want %s", got, want)
		})
	}
}

func TestHistoryContract_RootChangesNothing(t *testing.T) {
	for name, h := range contractHistories(t) {
		t.Run(name, func(t *testing.T) {
			snapshots, err := h.Snapshots(context.Background())
			require.NoError(t, err)
			root := snapshots[len(snapshots)-1]

			got, err := h.CompareWithParents(context.Background(), root)
			require.NoError(t, err)
			assert.Equal(t, 0, got.Len())
			assert.Equal(t, models.DeltaID(root.ID), got.ID())
		})
	}
}

func TestHistoryContract_CancelledContext(t *testing.T) {
	for name, h := range contractHistories(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := h.Snapshots(ctx)
			assert.ErrorIs(t, err, context.Canceled)
		})
	}
}

func TestGitOpener_Open_NonExistent(t *testing.T) {
	_, err := NewGitOpener().Open(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestGitOpener_Open_DetectsParentRepository(t *testing.T) {
	repo := testutil.InitRepo(t)
	repo.WriteFile("sub/dir/file.go", "package dir\n")

	h, err := NewGitOpener().Open(filepath.Join(repo.Path, "sub", "dir"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(repo.Path, "sub", "dir"), h.Path())
}

func TestGitHistory_EmptyRepository(t *testing.T) {
	repo := testutil.InitRepo(t)

	h, err := NewGitOpener().Open(repo.Path)
	require.NoError(t, err)

	snapshots, err := h.Snapshots(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snapshots)
}

func TestGitHistory_MergeIsUnionOfParentDiffs(t *testing.T) {
	repo := testutil.InitRepo(t)
	root := repo.Commit(base, "base.go")
	side := repo.Commit(base.Add(time.Minute), "x.go")
	merge := repo.CommitWithParents(base.Add(2*time.Minute), []plumbing.Hash{side, root}, "y.go")

	h, err := NewGitOpener().Open(repo.Path)
	require.NoError(t, err)

	got, err := h.CompareWithParents(context.Background(), Snapshot{
		ID:        merge.String(),
		Timestamp: base.Add(2 * time.Minute),
		Parents:   []string{side.String(), root.String()},
	})
	require.NoError(t, err)

	// Against side only y.go differs; against root both x.go and y.go do.
	assert.Equal(t, []models.FileID{models.NewFileID("x.go"), models.NewFileID("y.go")}, got.Changes())
}

func TestGitHistory_DeletionRecordsOldPath(t *testing.T) {
	repo := testutil.InitRepo(t)
	repo.Commit(base, "keep.go", "gone.go")
	removal := repo.Remove(base.Add(time.Minute), "gone.go")

	h, err := NewGitOpener().Open(repo.Path)
	require.NoError(t, err)
	snapshots, err := h.Snapshots(context.Background())
	require.NoError(t, err)
	require.Equal(t, removal.String(), snapshots[0].ID)

	got, err := h.CompareWithParents(context.Background(), snapshots[0])
	require.NoError(t, err)
	assert.Equal(t, []models.FileID{models.NewFileID("gone.go")}, got.Changes())
}

func TestGitHistory_UnknownParentFails(t *testing.T) {
	repo := testutil.InitRepo(t)
	head := repo.Commit(base, "a.go")

	h, err := NewGitOpener().Open(repo.Path)
	require.NoError(t, err)

	_, err = h.CompareWithParents(context.Background(), Snapshot{
		ID:      head.String(),
		Parents: []string{plumbing.ZeroHash.String()},
	})
	assert.Error(t, err)
}

func TestMemory_UnknownSnapshot(t *testing.T) {
	_, err := memoryHistory().CompareWithParents(context.Background(), Snapshot{ID: "nope", Parents: []string{"1"}})
	assert.ErrorIs(t, err, ErrUnknownSnapshot)
}

func TestMemoryOpener(t *testing.T) {
	h := memoryHistory()
	opener := NewMemoryOpener(h)

	got, err := opener.Open("/memory")
	require.NoError(t, err)
	assert.Same(t, h, got)

	_, err = opener.Open("/elsewhere")
	assert.ErrorIs(t, err, ErrUnknownSource)
}

func TestRemoteOpener_ClonesRemoteSources(t *testing.T) {
	repo := testutil.InitRepo(t)
	repo.Commit(base, "file1")
	repo.Commit(base.Add(time.Minute), "file1", "file2")

	var cloned *remote.Source
	opener := NewRemoteOpener(NewMemoryOpener(), func(_ context.Context, src *remote.Source) (*git.Repository, error) {
		cloned = src
		return repo.Git, nil
	})

	h, err := opener.Open("octocat/hello-world@main")
	require.NoError(t, err)
	require.NotNil(t, cloned)
	assert.Equal(t, "https://github.com/octocat/hello-world", cloned.URL)
	assert.Equal(t, "main", cloned.Ref)
	assert.Equal(t, "octocat/hello-world@main", h.Path())

	snapshots, err := h.Snapshots(context.Background())
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	got, err := h.CompareWithParents(context.Background(), snapshots[0])
	require.NoError(t, err)
	assert.Equal(t, []models.FileID{models.NewFileID("file1"), models.NewFileID("file2")}, got.Changes())
}

func TestRemoteOpener_LocalPathsUseWrappedOpener(t *testing.T) {
	dir := t.TempDir()
	h := NewMemory(dir, nil, nil)
	opener := NewRemoteOpener(NewMemoryOpener(h), func(context.Context, *remote.Source) (*git.Repository, error) {
		t.Fatal("local path must not be cloned")
		return nil, nil
	})

	got, err := opener.Open(dir)
	require.NoError(t, err)
	assert.Same(t, History(h), got)
}

func TestRemoteOpener_CloneFailure(t *testing.T) {
	cause := errors.New("network down")
	opener := NewRemoteOpener(NewMemoryOpener(), func(context.Context, *remote.Source) (*git.Repository, error) {
		return nil, cause
	})

	_, err := opener.Open("https://example.com/org/repo.git")
	assert.ErrorIs(t, err, cause)
}

func TestDefaultOpener(t *testing.T) {
	original := DefaultOpener()
	t.Cleanup(func() { SetDefaultOpener(original) })

	assert.IsType(t, &RemoteOpener{}, original)

	mem := NewMemoryOpener()
	SetDefaultOpener(mem)
	assert.Same(t, mem, DefaultOpener())
}
