package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

const DefaultRemoteName = "origin"

// Repository works on a local clone. Branches and commits stay local until Publish
// pushes them to the remote together.
type Repository struct {
	repo       *git.Repository
	remoteName string
	author     Author
	auth       transport.AuthMethod
	original   plumbing.ReferenceName
}

type Options struct {
	RemoteName string
	Author     Author
	Auth       transport.AuthMethod
}

// TokenAuth authenticates HTTPS pushes with a forge access token.
func TokenAuth(token string) transport.AuthMethod {
	if token == "" {
		return nil
	}

	return &http.BasicAuth{
		Username: "x-access-token",
		Password: token,
	}
}

func Open(dir string, opts Options) (*Repository, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %s: %w", dir, err)
	}

	return New(repo, opts), nil
}

func New(repo *git.Repository, opts Options) *Repository {
	remoteName := opts.RemoteName
	if remoteName == "" {
		remoteName = DefaultRemoteName
	}

	r := &Repository{
		repo:       repo,
		remoteName: remoteName,
		author:     opts.Author,
		auth:       opts.Auth,
	}

	if head, err := repo.Head(); err == nil && head.Name().IsBranch() {
		r.original = head.Name()
	}

	return r
}

// ListBranches fetches every remote branch, creates a local tracking branch for those
// missing locally and returns every local branch name.
func (r *Repository) ListBranches(ctx context.Context) (map[string]bool, error) {
	if err := fetch(ctx, r.repo, r.remoteName, r.auth); err != nil {
		return nil, err
	}

	refs, err := r.repo.References()
	if err != nil {
		return nil, fmt.Errorf("failed to list references: %w", err)
	}

	prefix := plumbing.NewRemoteReferenceName(r.remoteName, "").String()
	remoteRefs := make(map[string]plumbing.Hash)
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		if !ref.Name().IsRemote() || ref.Type() != plumbing.HashReference {
			return nil
		}
		name, ok := strings.CutPrefix(ref.Name().String(), prefix)
		if !ok || name == "HEAD" {
			return nil
		}
		remoteRefs[name] = ref.Hash()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate references: %w", err)
	}

	for name, hash := range remoteRefs {
		_, err := createBranch(r.repo, plumbing.NewBranchReferenceName(name), hash)
		if err != nil && !errors.Is(err, ErrBranchExists) {
			return nil, err
		}
	}

	localRefs, err := r.repo.Branches()
	if err != nil {
		return nil, fmt.Errorf("failed to list local branches: %w", err)
	}

	branches := make(map[string]bool)
	err = localRefs.ForEach(func(ref *plumbing.Reference) error {
		branches[ref.Name().Short()] = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate local branches: %w", err)
	}

	slog.Debug("listed branches", "git", r.remoteName, "count", len(branches))

	return branches, nil
}

func (r *Repository) CreateBranch(_ context.Context, name, from string) error {
	hash, err := r.resolve(from, true)
	if err != nil {
		return err
	}

	_, err = createBranch(r.repo, plumbing.NewBranchReferenceName(name), hash)
	if err != nil {
		return fmt.Errorf("failed to create branch %s: %w", name, err)
	}

	return nil
}

func (r *Repository) ReadFile(_ context.Context, branch, filePath string) ([]byte, bool, error) {
	hash, err := r.resolve(branch, false)
	if err != nil {
		return nil, false, err
	}

	commit, err := r.repo.CommitObject(hash)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get commit %s: %w", hash, err)
	}

	file, err := commit.File(filePath)
	if errors.Is(err, object.ErrFileNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s on %s: %w", filePath, branch, err)
	}

	contents, err := file.Contents()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s on %s: %w", filePath, branch, err)
	}

	return []byte(contents), true, nil
}

// WriteFile checks out branch in the worktree and commits content at filePath.
func (r *Repository) WriteFile(_ context.Context, branch, filePath string, content []byte, message string) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	if err := r.checkout(wt, plumbing.NewBranchReferenceName(branch)); err != nil {
		return err
	}

	if err := wt.Filesystem.MkdirAll(path.Dir(filePath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", filePath, err)
	}
	if err := util.WriteFile(wt.Filesystem, filePath, content, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filePath, err)
	}
	if _, err := wt.Add(filePath); err != nil {
		return fmt.Errorf("failed to stage %s: %w", filePath, err)
	}

	if _, err := commit(r.repo, wt, r.author, message, ""); err != nil {
		return err
	}

	return nil
}

func (r *Repository) checkout(wt *git.Worktree, branch plumbing.ReferenceName) error {
	head, err := r.repo.Head()
	if err == nil && head.Name() == branch {
		return nil
	}

	slog.Debug("checking out branch", "branch", branch.Short())
	if err := wt.Checkout(&git.CheckoutOptions{Branch: branch}); err != nil {
		return fmt.Errorf("failed to checkout %s: %w", branch.Short(), err)
	}

	return nil
}

// CommitsAhead counts the commits reachable from head that are not reachable from base.
func (r *Repository) CommitsAhead(_ context.Context, base, head string) (int, error) {
	baseHash, err := r.resolve(base, true)
	if err != nil {
		return 0, err
	}
	headHash, err := r.resolve(head, false)
	if err != nil {
		return 0, err
	}

	reachable := make(map[plumbing.Hash]bool)
	err = r.walk(baseHash, func(c *object.Commit) error {
		reachable[c.Hash] = true
		return nil
	})
	if err != nil {
		return 0, err
	}

	ahead := 0
	err = r.walk(headHash, func(c *object.Commit) error {
		if !reachable[c.Hash] {
			ahead++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return ahead, nil
}

func (r *Repository) walk(from plumbing.Hash, fn func(*object.Commit) error) error {
	commits, err := r.repo.Log(&git.LogOptions{From: from})
	if err != nil {
		return fmt.Errorf("failed to read log from %s: %w", from, err)
	}
	defer commits.Close()

	if err := commits.ForEach(fn); err != nil && !errors.Is(err, storer.ErrStop) {
		return fmt.Errorf("failed to walk log from %s: %w", from, err)
	}

	return nil
}

func (r *Repository) Publish(ctx context.Context, branches []string) error {
	if len(branches) == 0 {
		return nil
	}

	refNames := make([]plumbing.ReferenceName, 0, len(branches))
	for _, branch := range branches {
		refNames = append(refNames, plumbing.NewBranchReferenceName(branch))
	}

	return push(ctx, r.repo, r.remoteName, r.auth, refNames)
}

// Restore checks the branch that was checked out when the repository was opened back out.
func (r *Repository) Restore() error {
	if r.original == "" {
		return nil
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	return r.checkout(wt, r.original)
}

// resolve finds the commit branch points at, preferring the remote tracking branch when
// preferRemote is set and the local branch otherwise.
func (r *Repository) resolve(branch string, preferRemote bool) (plumbing.Hash, error) {
	candidates := []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(branch),
		plumbing.NewRemoteReferenceName(r.remoteName, branch),
	}
	if preferRemote {
		candidates[0], candidates[1] = candidates[1], candidates[0]
	}

	for _, name := range candidates {
		ref, err := r.repo.Reference(name, true)
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			continue
		}
		if err != nil {
			return plumbing.ZeroHash, fmt.Errorf("failed to get reference %s: %w", name, err)
		}
		return ref.Hash(), nil
	}

	return plumbing.ZeroHash, fmt.Errorf("branch %s: %w", branch, plumbing.ErrReferenceNotFound)
}
