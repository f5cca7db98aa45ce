package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

type Author struct {
	Name  string
	Email string
}

func fetch(ctx context.Context, repo *git.Repository, remoteName string, auth transport.AuthMethod) error {
	refSpec := config.RefSpec(fmt.Sprintf("+refs/heads/*:refs/remotes/%s/*", remoteName))
	slog.Debug("fetching remote branches", "remote", remoteName, "refSpec", refSpec)

	err := repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: remoteName,
		RefSpecs:   []config.RefSpec{refSpec},
		Auth:       auth,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to fetch %s: %w", remoteName, err)
	}

	return nil
}

func commit(repo *git.Repository, wt *git.Worktree, author Author, commitSubject, commitBody string) (plumbing.Hash, error) {
	var err error

	if wt == nil {
		wt, err = repo.Worktree()
		if err != nil {
			return plumbing.ZeroHash, fmt.Errorf("failed to get worktree: %w", err)
		}
	}

	commitMsg := commitSubject
	if commitBody != "" {
		commitMsg = fmt.Sprintf("%s\n\n%s", commitSubject, commitBody)
	}

	hash, err := wt.Commit(commitMsg, &git.CommitOptions{
		Author: &object.Signature{
			Name:  author.Name,
			Email: author.Email,
			When:  time.Now(),
		},
	})
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to prepare commit: %w", err)
	}

	obj, err := repo.CommitObject(hash)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to commit object: %w", err)
	}

	slog.Debug("created commit object", "hash", obj.Hash.String(), "authorEmail", obj.Author.Email)

	return hash, nil
}

// push publishes every branch in a single atomic push where the remote supports it.
func push(ctx context.Context, repo *git.Repository, remoteName string, auth transport.AuthMethod, branches []plumbing.ReferenceName) error {
	refSpecs := make([]config.RefSpec, 0, len(branches))
	shortNames := make([]string, 0, len(branches))
	for _, branch := range branches {
		refSpecs = append(refSpecs, config.RefSpec(fmt.Sprintf("%s:%s", branch, branch)))
		shortNames = append(shortNames, branch.Short())
	}

	slog.Info("pushing refs", "branches", strings.Join(shortNames, ","), "remote", remoteName)
	err := repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   refSpecs,
		Auth:       auth,
		Atomic:     true,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to push: %w", err)
	}

	return nil
}

// ErrBranchExists is returned instead of moving a branch that already exists.
var ErrBranchExists = errors.New("branch already exists")

func createBranch(repo *git.Repository, branchRefName plumbing.ReferenceName, hash plumbing.Hash) (*plumbing.Reference, error) {
	slog.Debug("creating branch", "branchName", branchRefName, "hash", hash.String())

	_, err := repo.Reference(branchRefName, false)
	if err == nil {
		return nil, fmt.Errorf("%s: %w", branchRefName.Short(), ErrBranchExists)
	}
	if !errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, fmt.Errorf("failed to get reference %s: %w", branchRefName, err)
	}

	ref := plumbing.NewHashReference(branchRefName, hash)

	err = repo.Storer.SetReference(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to save new branch: %w", err)
	}

	return ref, nil
}
