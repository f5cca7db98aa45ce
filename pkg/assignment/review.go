package assignment

import "context"

type Reviewer interface {
	// ListPullRequests maps head branch names to the state of their pull request, across
	// every state the forge reports.
	ListPullRequests(ctx context.Context) (map[string]PullRequestState, error)
	CreatePullRequest(ctx context.Context, pr NewPullRequest) (string, error)
}
