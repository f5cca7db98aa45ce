package forge

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/tvandinther/assignment-manager/pkg/assignment"
)

type Gitlab struct {
	client    *gitlab.Client
	projectID string // owner/name path of the project
}

type GitlabOptions struct {
	Token      string
	Repository string // owner/name
	URL        string
}

func NewGitlab(opts GitlabOptions) (*Gitlab, error) {
	if _, _, err := SplitRepository(opts.Repository); err != nil {
		return nil, err
	}

	var clientOptions []gitlab.ClientOptionFunc
	if opts.URL != "" {
		clientOptions = append(clientOptions, gitlab.WithBaseURL(opts.URL))
	}

	client, err := gitlab.NewClient(opts.Token, clientOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitLab client: %w", err)
	}

	return NewGitlabWithClient(client, opts.Repository), nil
}

func NewGitlabWithClient(client *gitlab.Client, projectID string) *Gitlab {
	return &Gitlab{
		client:    client,
		projectID: projectID,
	}
}

func (g *Gitlab) ListBranches(ctx context.Context) (map[string]bool, error) {
	branches := make(map[string]bool)
	opts := &gitlab.ListBranchesOptions{
		ListOptions: gitlab.ListOptions{PerPage: pageSize},
	}

	for {
		page, response, err := g.client.Branches.ListBranches(g.projectID, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to list branches: %w", err)
		}

		for _, branch := range page {
			branches[branch.Name] = true
		}

		if response.NextPage == 0 {
			break
		}
		opts.Page = response.NextPage
	}

	slog.Debug("listed branches", "forge", "gitlab", "projectId", g.projectID, "count", len(branches))

	return branches, nil
}

func (g *Gitlab) CreateBranch(ctx context.Context, name, from string) error {
	_, _, err := g.client.Branches.CreateBranch(g.projectID, &gitlab.CreateBranchOptions{
		Branch: gitlab.Ptr(name),
		Ref:    gitlab.Ptr(from),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to create branch %s: %w", name, err)
	}

	return nil
}

func (g *Gitlab) ReadFile(ctx context.Context, branch, path string) ([]byte, bool, error) {
	content, response, err := g.client.RepositoryFiles.GetRawFile(g.projectID, path, &gitlab.GetRawFileOptions{
		Ref: gitlab.Ptr(branch),
	}, gitlab.WithContext(ctx))
	if response != nil && response.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s on %s: %w", path, branch, err)
	}

	return content, true, nil
}

func (g *Gitlab) WriteFile(ctx context.Context, branch, path string, content []byte, message string) error {
	_, exists, err := g.ReadFile(ctx, branch, path)
	if err != nil {
		return err
	}

	if exists {
		_, _, err = g.client.RepositoryFiles.UpdateFile(g.projectID, path, &gitlab.UpdateFileOptions{
			Branch:        gitlab.Ptr(branch),
			Content:       gitlab.Ptr(string(content)),
			CommitMessage: gitlab.Ptr(message),
		}, gitlab.WithContext(ctx))
	} else {
		_, _, err = g.client.RepositoryFiles.CreateFile(g.projectID, path, &gitlab.CreateFileOptions{
			Branch:        gitlab.Ptr(branch),
			Content:       gitlab.Ptr(string(content)),
			CommitMessage: gitlab.Ptr(message),
		}, gitlab.WithContext(ctx))
	}
	if err != nil {
		return fmt.Errorf("failed to write %s on %s: %w", path, branch, err)
	}

	return nil
}

func (g *Gitlab) CommitsAhead(ctx context.Context, base, head string) (int, error) {
	comparison, _, err := g.client.Repositories.Compare(g.projectID, &gitlab.CompareOptions{
		From: gitlab.Ptr(base),
		To:   gitlab.Ptr(head),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("failed to compare %s with %s: %w", head, base, err)
	}

	return len(comparison.Commits), nil
}

func (g *Gitlab) Publish(_ context.Context, _ []string) error {
	return nil
}

func (g *Gitlab) ListPullRequests(ctx context.Context) (map[string]assignment.PullRequestState, error) {
	pullRequests := make(map[string]assignment.PullRequestState)
	opts := &gitlab.ListProjectMergeRequestsOptions{
		State:       gitlab.Ptr("all"),
		ListOptions: gitlab.ListOptions{PerPage: pageSize},
	}

	slog.Info("listing merge requests", "projectId", g.projectID)
	for {
		mergeRequests, response, err := g.client.MergeRequests.ListProjectMergeRequests(g.projectID, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to list repository merge requests: %w", err)
		}

		for _, mr := range mergeRequests {
			pullRequests[mr.SourceBranch] = gitlabState(mr.State)
		}

		if response.NextPage == 0 {
			break
		}
		opts.Page = response.NextPage
	}

	return pullRequests, nil
}

func gitlabState(state string) assignment.PullRequestState {
	switch state {
	case "merged":
		return assignment.StateMerged
	case "opened", "locked":
		return assignment.StateOpen
	default:
		return assignment.StateClosed
	}
}

func (g *Gitlab) CreatePullRequest(ctx context.Context, pr assignment.NewPullRequest) (string, error) {
	mr, response, err := g.client.MergeRequests.CreateMergeRequest(g.projectID, &gitlab.CreateMergeRequestOptions{
		SourceBranch: gitlab.Ptr(pr.Head),
		TargetBranch: gitlab.Ptr(pr.Base),
		Title:        gitlab.Ptr(pr.Title),
		Description:  gitlab.Ptr(pr.Body),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to create merge request for %s: %w", pr.Head, err)
	}
	if response.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("did not receive 201 CREATED status code for %s", pr.Head)
	}

	slog.Info("created merge request", "iid", mr.IID, "url", mr.WebURL)

	return pullRequestID(int64(mr.IID)), nil
}
