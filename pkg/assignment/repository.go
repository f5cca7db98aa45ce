package assignment

import "context"

// Repository is the branch and file namespace assignments are written into.
type Repository interface {
	ListBranches(ctx context.Context) (map[string]bool, error)
	CreateBranch(ctx context.Context, name, from string) error
	// ReadFile reports found=false with a nil error when path does not exist on branch.
	ReadFile(ctx context.Context, branch, path string) (content []byte, found bool, err error)
	WriteFile(ctx context.Context, branch, path string, content []byte, message string) error
	CommitsAhead(ctx context.Context, base, head string) (int, error)
	// Publish makes local changes to branches visible on the remote. Implementations that
	// write straight to the remote treat it as a no-op.
	Publish(ctx context.Context, branches []string) error
}
