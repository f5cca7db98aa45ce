package forge

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/tvandinther/assignment-manager/pkg/assignment"
)

type GitHub struct {
	client *github.Client
	owner  string
	repo   string
}

type GitHubOptions struct {
	Token      string
	Repository string // owner/name
	BaseURL    string // Empty for github.com, otherwise a GitHub Enterprise API URL.
}

func NewGitHub(ctx context.Context, opts GitHubOptions) (*GitHub, error) {
	owner, repo, err := SplitRepository(opts.Repository)
	if err != nil {
		return nil, err
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
	client := github.NewClient(oauth2.NewClient(ctx, ts))

	if opts.BaseURL != "" && opts.BaseURL != "https://api.github.com" {
		client, err = client.WithEnterpriseURLs(opts.BaseURL, opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to configure GitHub Enterprise URL: %w", err)
		}
	}

	return NewGitHubWithClient(client, owner, repo), nil
}

func NewGitHubWithClient(client *github.Client, owner, repo string) *GitHub {
	return &GitHub{
		client: client,
		owner:  owner,
		repo:   repo,
	}
}

func (g *GitHub) ListBranches(ctx context.Context) (map[string]bool, error) {
	branches := make(map[string]bool)
	opts := &github.BranchListOptions{
		ListOptions: github.ListOptions{PerPage: pageSize},
	}

	for {
		page, resp, err := g.client.Repositories.ListBranches(ctx, g.owner, g.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list branches: %w", err)
		}

		for _, branch := range page {
			branches[branch.GetName()] = true
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	slog.Debug("listed branches", "forge", "github", "count", len(branches))

	return branches, nil
}

func (g *GitHub) CreateBranch(ctx context.Context, name, from string) error {
	base, _, err := g.client.Git.GetRef(ctx, g.owner, g.repo, "heads/"+from)
	if err != nil {
		return fmt.Errorf("failed to get reference for %s: %w", from, err)
	}

	_, _, err = g.client.Git.CreateRef(ctx, g.owner, g.repo, &github.Reference{
		Ref:    github.String("refs/heads/" + name),
		Object: &github.GitObject{SHA: base.Object.SHA},
	})
	if err != nil {
		return fmt.Errorf("failed to create branch %s: %w", name, err)
	}

	slog.Debug("created branch", "forge", "github", "branch", name, "sha", base.Object.GetSHA())

	return nil
}

func (g *GitHub) ReadFile(ctx context.Context, branch, path string) ([]byte, bool, error) {
	file, err := g.getFile(ctx, branch, path)
	if err != nil || file == nil {
		return nil, false, err
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return []byte(content), true, nil
}

func (g *GitHub) WriteFile(ctx context.Context, branch, path string, content []byte, message string) error {
	existing, err := g.getFile(ctx, branch, path)
	if err != nil {
		return err
	}

	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: content,
		Branch:  github.String(branch),
	}

	if existing == nil {
		_, _, err = g.client.Repositories.CreateFile(ctx, g.owner, g.repo, path, opts)
	} else {
		opts.SHA = existing.SHA
		_, _, err = g.client.Repositories.UpdateFile(ctx, g.owner, g.repo, path, opts)
	}
	if err != nil {
		return fmt.Errorf("failed to write %s on %s: %w", path, branch, err)
	}

	return nil
}

// getFile returns a nil file when path does not exist on branch.
func (g *GitHub) getFile(ctx context.Context, branch, path string) (*github.RepositoryContent, error) {
	file, _, resp, err := g.client.Repositories.GetContents(ctx, g.owner, g.repo, path, &github.RepositoryContentGetOptions{
		Ref: branch,
	})
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s on %s: %w", path, branch, err)
	}
	if file == nil {
		return nil, fmt.Errorf("%s on %s is a directory", path, branch)
	}

	return file, nil
}

func (g *GitHub) CommitsAhead(ctx context.Context, base, head string) (int, error) {
	comparison, _, err := g.client.Repositories.CompareCommits(ctx, g.owner, g.repo, base, head, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to compare %s with %s: %w", head, base, err)
	}

	return comparison.GetAheadBy(), nil
}

func (g *GitHub) Publish(_ context.Context, _ []string) error {
	return nil
}

func (g *GitHub) ListPullRequests(ctx context.Context) (map[string]assignment.PullRequestState, error) {
	pullRequests := make(map[string]assignment.PullRequestState)
	opts := &github.PullRequestListOptions{
		State:       "all",
		ListOptions: github.ListOptions{PerPage: pageSize},
	}

	for {
		page, resp, err := g.client.PullRequests.List(ctx, g.owner, g.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list pull requests: %w", err)
		}

		for _, pr := range page {
			if pr.GetHead().GetRef() == "" {
				continue
			}
			pullRequests[pr.GetHead().GetRef()] = gitHubState(pr)
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	slog.Debug("listed pull requests", "forge", "github", "count", len(pullRequests))

	return pullRequests, nil
}

func gitHubState(pr *github.PullRequest) assignment.PullRequestState {
	switch {
	case pr.MergedAt != nil:
		return assignment.StateMerged
	case pr.GetState() == "open":
		return assignment.StateOpen
	default:
		return assignment.StateClosed
	}
}

func (g *GitHub) CreatePullRequest(ctx context.Context, pr assignment.NewPullRequest) (string, error) {
	created, _, err := g.client.PullRequests.Create(ctx, g.owner, g.repo, &github.NewPullRequest{
		Title: github.String(pr.Title),
		Head:  github.String(pr.Head),
		Base:  github.String(pr.Base),
		Body:  github.String(pr.Body),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create pull request for %s: %w", pr.Head, err)
	}

	slog.Info("created pull request", "forge", "github", "number", created.GetNumber(), "url", created.GetHTMLURL())

	return pullRequestID(int64(created.GetNumber())), nil
}
