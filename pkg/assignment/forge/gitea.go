package forge

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"

	"code.gitea.io/sdk/gitea"

	"github.com/tvandinther/assignment-manager/pkg/assignment"
)

// Gitea caps page sizes at MAX_RESPONSE_ITEMS, which defaults to 50. A shorter page than
// requested marks the last one.
const giteaPageSize = 50

type Gitea struct {
	client *gitea.Client
	owner  string
	repo   string
}

type GiteaOptions struct {
	Token      string
	Repository string // owner/name
	URL        string
}

func NewGitea(ctx context.Context, opts GiteaOptions) (*Gitea, error) {
	owner, repo, err := SplitRepository(opts.Repository)
	if err != nil {
		return nil, err
	}

	client, err := gitea.NewClient(opts.URL, gitea.SetToken(opts.Token), gitea.SetContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gitea client: %w", err)
	}

	return NewGiteaWithClient(client, owner, repo), nil
}

func NewGiteaWithClient(client *gitea.Client, owner, repo string) *Gitea {
	return &Gitea{
		client: client,
		owner:  owner,
		repo:   repo,
	}
}

func (g *Gitea) ListBranches(ctx context.Context) (map[string]bool, error) {
	g.client.SetContext(ctx)
	branches := make(map[string]bool)

	for pageIndex := 1; true; pageIndex++ {
		page, _, err := g.client.ListRepoBranches(g.owner, g.repo, gitea.ListRepoBranchesOptions{
			ListOptions: gitea.ListOptions{
				Page:     pageIndex,
				PageSize: giteaPageSize,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list branches: %w", err)
		}

		for _, branch := range page {
			branches[branch.Name] = true
		}

		if len(page) < giteaPageSize {
			break
		}
	}

	slog.Debug("listed branches", "forge", "gitea", "count", len(branches))

	return branches, nil
}

func (g *Gitea) CreateBranch(ctx context.Context, name, from string) error {
	g.client.SetContext(ctx)
	_, response, err := g.client.CreateBranch(g.owner, g.repo, gitea.CreateBranchOption{
		BranchName:    name,
		OldBranchName: from,
	})
	if err != nil {
		return fmt.Errorf("failed to create branch %s: %w", name, err)
	}
	if response.StatusCode != http.StatusCreated {
		return fmt.Errorf("did not receive 201 CREATED status code creating branch %s", name)
	}

	return nil
}

func (g *Gitea) ReadFile(ctx context.Context, branch, path string) ([]byte, bool, error) {
	file, err := g.getFile(ctx, branch, path)
	if err != nil || file == nil {
		return nil, false, err
	}
	if file.Content == nil {
		return nil, false, fmt.Errorf("%s on %s is not a file", path, branch)
	}

	content, err := base64.StdEncoding.DecodeString(*file.Content)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return content, true, nil
}

func (g *Gitea) WriteFile(ctx context.Context, branch, path string, content []byte, message string) error {
	existing, err := g.getFile(ctx, branch, path)
	if err != nil {
		return err
	}

	fileOptions := gitea.FileOptions{
		Message:    message,
		BranchName: branch,
	}
	encoded := base64.StdEncoding.EncodeToString(content)

	if existing == nil {
		_, _, err = g.client.CreateFile(g.owner, g.repo, path, gitea.CreateFileOptions{
			FileOptions: fileOptions,
			Content:     encoded,
		})
	} else {
		_, _, err = g.client.UpdateFile(g.owner, g.repo, path, gitea.UpdateFileOptions{
			FileOptions: fileOptions,
			SHA:         existing.SHA,
			Content:     encoded,
		})
	}
	if err != nil {
		return fmt.Errorf("failed to write %s on %s: %w", path, branch, err)
	}

	return nil
}

func (g *Gitea) getFile(ctx context.Context, branch, path string) (*gitea.ContentsResponse, error) {
	g.client.SetContext(ctx)
	file, response, err := g.client.GetContents(g.owner, g.repo, branch, path)
	if response != nil && response.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s on %s: %w", path, branch, err)
	}

	return file, nil
}

func (g *Gitea) CommitsAhead(ctx context.Context, base, head string) (int, error) {
	g.client.SetContext(ctx)
	comparison, _, err := g.client.CompareCommits(g.owner, g.repo, base, head)
	if err != nil {
		return 0, fmt.Errorf("failed to compare %s with %s: %w", head, base, err)
	}

	return comparison.TotalCommits, nil
}

func (g *Gitea) Publish(_ context.Context, _ []string) error {
	return nil
}

func (g *Gitea) ListPullRequests(ctx context.Context) (map[string]assignment.PullRequestState, error) {
	g.client.SetContext(ctx)
	pullRequests := make(map[string]assignment.PullRequestState)

	for pageIndex := 1; true; pageIndex++ {
		page, _, err := g.client.ListRepoPullRequests(g.owner, g.repo, gitea.ListPullRequestsOptions{
			State: gitea.StateAll,
			ListOptions: gitea.ListOptions{
				Page:     pageIndex,
				PageSize: giteaPageSize,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list repository pull requests: %w", err)
		}

		for _, pr := range page {
			if pr.Head == nil || pr.Head.Ref == "" {
				continue
			}
			slog.Debug("found pull request", "forge", "gitea", "index", pr.Index, "head", pr.Head.Ref, "state", pr.State)
			pullRequests[pr.Head.Ref] = giteaState(pr)
		}

		if len(page) < giteaPageSize {
			break
		}
	}

	return pullRequests, nil
}

func giteaState(pr *gitea.PullRequest) assignment.PullRequestState {
	switch {
	case pr.HasMerged:
		return assignment.StateMerged
	case pr.State == gitea.StateOpen:
		return assignment.StateOpen
	default:
		return assignment.StateClosed
	}
}

func (g *Gitea) CreatePullRequest(ctx context.Context, pr assignment.NewPullRequest) (string, error) {
	g.client.SetContext(ctx)
	pullRequest, response, err := g.client.CreatePullRequest(g.owner, g.repo, gitea.CreatePullRequestOption{
		Head:  pr.Head,
		Base:  pr.Base,
		Title: pr.Title,
		Body:  pr.Body,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create pull request for %s: %w", pr.Head, err)
	}
	if response.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("did not receive 201 CREATED status code for %s", pr.Head)
	}

	slog.Info("created pull request", "forge", "gitea", "index", pullRequest.Index, "url", pullRequest.HTMLURL)

	return pullRequestID(pullRequest.Index), nil
}
