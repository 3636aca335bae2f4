package vcs

import (
	"context"
	"fmt"

	"github.com/PurpleBooth/git-moves-together/internal/remote"
	"github.com/go-git/go-git/v5"
)

// CloneFunc fetches a remote source.
type CloneFunc func(ctx context.Context, src *remote.Source) (*git.Repository, error)

func cloneInMemory(ctx context.Context, src *remote.Source) (*git.Repository, error) {
	return src.Clone(ctx, nil)
}

// RemoteOpener clones remote repositories into memory and hands local paths
// to the wrapped opener.
type RemoteOpener struct {
	local Opener
	clone CloneFunc
}

// NewRemoteOpener wraps local. A nil clone uses an in-memory go-git clone.
func NewRemoteOpener(local Opener, clone CloneFunc) *RemoteOpener {
	if clone == nil {
		clone = cloneInMemory
	}
	return &RemoteOpener{local: local, clone: clone}
}

// Open clones path when it names a remote repository, or opens it locally.
func (o *RemoteOpener) Open(path string) (History, error) {
	src, err := remote.Parse(path)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return o.local.Open(path)
	}

	repo, err := o.clone(context.Background(), src)
	if err != nil {
		return nil, fmt.Errorf("clone %s: %w", src.URL, err)
	}
	return &gitHistory{repo: repo, path: path}, nil
}
