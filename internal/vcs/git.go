package vcs

import (
	"context"
	"errors"
	"fmt"

	"github.com/PurpleBooth/git-moves-together/pkg/models"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// GitOpener opens git repositories using go-git.
type GitOpener struct{}

// NewGitOpener creates a new GitOpener.
func NewGitOpener() *GitOpener {
	return &GitOpener{}
}

// Open opens a git repository, detecting .git in parent directories.
func (o *GitOpener) Open(path string) (History, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, err
	}
	return &gitHistory{repo: repo, path: path}, nil
}

// gitHistory wraps go-git Repository.
type gitHistory struct {
	repo *git.Repository
	path string
}

func (h *gitHistory) Path() string {
	return h.path
}

func (h *gitHistory) Snapshots(ctx context.Context) ([]Snapshot, error) {
	head, err := h.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		// Unborn branch: nothing committed yet.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	iter, err := h.repo.Log(&git.LogOptions{
		From:  head.Hash(),
		Order: git.LogOrderCommitterTime,
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var snapshots []Snapshot
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		snapshots = append(snapshots, toSnapshot(c))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (h *gitHistory) CompareWithParents(ctx context.Context, snapshot Snapshot) (models.ChangeDelta, error) {
	commit, err := h.repo.CommitObject(plumbing.NewHash(snapshot.ID))
	if err != nil {
		return models.ChangeDelta{}, fmt.Errorf("snapshot %s: %w", snapshot.ID, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return models.ChangeDelta{}, fmt.Errorf("snapshot %s: %w", snapshot.ID, err)
	}

	var changed []models.FileID
	for _, parent := range snapshot.Parents {
		files, err := h.diffWithParent(ctx, tree, parent)
		if err != nil {
			return models.ChangeDelta{}, fmt.Errorf("snapshot %s against parent %s: %w", snapshot.ID, parent, err)
		}
		changed = append(changed, files...)
	}

	return models.NewChangeDelta(models.DeltaID(snapshot.ID), snapshot.Timestamp, changed...), nil
}

func (h *gitHistory) diffWithParent(ctx context.Context, tree *object.Tree, parent string) ([]models.FileID, error) {
	parentCommit, err := h.repo.CommitObject(plumbing.NewHash(parent))
	if err != nil {
		return nil, err
	}
	parentTree, err := parentCommit.Tree()
	if err != nil {
		return nil, err
	}
	changes, err := parentTree.DiffContext(ctx, tree)
	if err != nil {
		return nil, err
	}

	files := make([]models.FileID, 0, len(changes))
	for _, c := range changes {
		files = append(files, models.NewFileID(changedName(c)))
	}
	return files, nil
}

// changedName is the path after the change, or before it for deletions.
func changedName(c *object.Change) string {
	if c.To.Name != "" {
		return c.To.Name
	}
	return c.From.Name
}

func toSnapshot(c *object.Commit) Snapshot {
	parents := make([]string, len(c.ParentHashes))
	for i, p := range c.ParentHashes {
		parents[i] = p.String()
	}
	return Snapshot{
		ID:        c.Hash.String(),
		Timestamp: c.Committer.When,
		Parents:   parents,
	}
}

var defaultOpener Opener = NewRemoteOpener(NewGitOpener(), nil)

// DefaultOpener returns the opener used when none is configured: local
// repositories through go-git, remote ones cloned into memory.
func DefaultOpener() Opener {
	return defaultOpener
}

// SetDefaultOpener replaces the default opener (useful for testing).
func SetDefaultOpener(opener Opener) {
	defaultOpener = opener
}
