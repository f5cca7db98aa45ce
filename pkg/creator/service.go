package creator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tvandinther/assignment-manager/pkg/assignment"
	"github.com/tvandinther/assignment-manager/pkg/progress"
)

type ServiceOptions struct {
	DefaultBranch string
	// RequireChanges only opens a pull request when the branch is ahead of DefaultBranch.
	RequireChanges bool
	Templates      *assignment.Templates
}

type Service struct {
	report         *progress.Reporter
	repository     assignment.Repository
	reviewer       assignment.Reviewer
	defaultBranch  string
	requireChanges bool
	templates      *assignment.Templates
}

func NewService(reporter *progress.Reporter, repository assignment.Repository, reviewer assignment.Reviewer, opts ServiceOptions) *Service {
	templates := opts.Templates
	if templates == nil {
		templates = assignment.DefaultTemplates()
	}

	defaultBranch := opts.DefaultBranch
	if defaultBranch == "" {
		defaultBranch = "main"
	}

	return &Service{
		report:         reporter,
		repository:     repository,
		reviewer:       reviewer,
		defaultBranch:  defaultBranch,
		requireChanges: opts.RequireChanges,
		templates:      templates,
	}
}

type pendingPullRequest struct {
	assignment assignment.Assignment
	readme     []byte
}

type repositoryState struct {
	branches     map[string]bool
	pullRequests map[string]assignment.PullRequestState
}

// Run creates a branch, README and pull request for every assignment that has neither a
// branch nor any pull request history. Branches that exist without pull request history
// are completed instead. Failing to read repository state or to publish branches aborts
// the run; failures of a single assignment are recorded in the result and processing
// continues.
func (s *Service) Run(ctx context.Context, assignments []assignment.Assignment) (*Result, error) {
	state, err := s.readState(ctx)
	if err != nil {
		return nil, err
	}

	result := newResult()
	process := s.report.NewProcess(len(assignments), progress.ProcessTemplate{
		PresentAction: "processing",
		PastAction:    "processed",
		Subject:       "assignments",
	})
	process.Start()

	var touched []string
	var pending []pendingPullRequest
	seen := make(map[string]bool)

	for _, a := range assignments {
		process.Step(a.Path)

		if prState, ok := state.pullRequests[a.Branch]; ok {
			s.skip(result, a, fmt.Sprintf("pull request already exists (%s)", prState))
			continue
		}
		if seen[a.Branch] {
			s.skip(result, a, "branch already processed in this run")
			continue
		}
		seen[a.Branch] = true

		readme, changed, err := s.prepareBranch(ctx, state, result, a)
		if changed {
			touched = append(touched, a.Branch)
		}
		if err != nil {
			s.fail(result, a, err)
			continue
		}
		pending = append(pending, pendingPullRequest{assignment: a, readme: readme})
	}

	if err := s.publish(ctx, touched); err != nil {
		return nil, err
	}

	for _, p := range pending {
		if err := s.openPullRequest(ctx, result, p.assignment, p.readme); err != nil {
			s.fail(result, p.assignment, err)
		}
	}

	process.Done()
	s.report.Progress("created %d branches and %d pull requests, skipped %d, failed %d",
		len(result.CreatedBranches), len(result.CreatedPullRequests), len(result.Skipped), len(result.Failures))

	return result, nil
}

func (s *Service) readState(ctx context.Context) (*repositoryState, error) {
	var err error
	state := &repositoryState{}

	s.report.Heading("Reading repository state")

	state.branches, err = s.repository.ListBranches(ctx)
	s.report.Result(err, progress.Result{
		Success: fmt.Sprintf("Found %d branches", len(state.branches)),
		Failure: "Failed to list branches",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read branches: %w", err)
	}

	state.pullRequests, err = s.reviewer.ListPullRequests(ctx)
	s.report.Result(err, progress.Result{
		Success: fmt.Sprintf("Found %d pull requests", len(state.pullRequests)),
		Failure: "Failed to list pull requests",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read pull requests: %w", err)
	}

	return state, nil
}

// prepareBranch creates the assignment branch when missing and makes sure it carries a
// managed README, which it returns. It reports whether the branch was changed, even when
// it also fails.
func (s *Service) prepareBranch(ctx context.Context, state *repositoryState, result *Result, a assignment.Assignment) ([]byte, bool, error) {
	created := false

	if !state.branches[a.Branch] {
		if err := s.repository.CreateBranch(ctx, a.Branch, s.defaultBranch); err != nil {
			return nil, false, fmt.Errorf("failed to create branch: %w", err)
		}
		result.CreatedBranches = append(result.CreatedBranches, a.Branch)
		created = true
		s.report.Success("Created branch %s", a.Branch)
	} else {
		s.report.Progress("branch %s exists without a pull request", a.Branch)
	}

	readme, written, err := s.ensureReadme(ctx, a)
	if err != nil {
		return nil, created, err
	}

	return readme, created || written, nil
}

func (s *Service) ensureReadme(ctx context.Context, a assignment.Assignment) ([]byte, bool, error) {
	readmePath := assignment.ReadmePath(a)

	existing, found, err := s.repository.ReadFile(ctx, a.Branch, readmePath)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read README: %w", err)
	}

	var content []byte
	var message string

	switch {
	case !found:
		content, err = s.templates.Readme(a)
		if err != nil {
			return nil, false, err
		}
		message = fmt.Sprintf("Add README for assignment %s", a.Path)
	case assignment.IsManaged(existing):
		slog.Debug("README already managed", "path", readmePath, "branch", a.Branch)
		return existing, false, nil
	default:
		content = assignment.Augment(existing)
		message = fmt.Sprintf("Augment README for assignment %s", a.Path)
	}

	if err := s.repository.WriteFile(ctx, a.Branch, readmePath, content, message); err != nil {
		return nil, false, fmt.Errorf("failed to write README: %w", err)
	}
	s.report.Success("%s", message)

	return content, true, nil
}

func (s *Service) publish(ctx context.Context, branches []string) error {
	if len(branches) == 0 {
		return nil
	}

	s.report.Heading("Publishing branches")
	err := s.repository.Publish(ctx, branches)
	s.report.Result(err, progress.Result{
		Success: fmt.Sprintf("Published %d branches", len(branches)),
		Failure: "Failed to publish branches",
	})
	if err != nil {
		return fmt.Errorf("failed to publish branches: %w", err)
	}

	return nil
}

func (s *Service) openPullRequest(ctx context.Context, result *Result, a assignment.Assignment, readme []byte) error {
	if s.requireChanges {
		ahead, err := s.repository.CommitsAhead(ctx, s.defaultBranch, a.Branch)
		if err != nil {
			return fmt.Errorf("failed to compare with %s: %w", s.defaultBranch, err)
		}
		if ahead == 0 {
			s.skip(result, a, fmt.Sprintf("no changes compared to %s", s.defaultBranch))
			return nil
		}
	}

	pr, err := s.templates.PullRequest(a, s.defaultBranch, readme)
	if err != nil {
		return err
	}

	id, err := s.reviewer.CreatePullRequest(ctx, pr)
	if err != nil {
		return fmt.Errorf("failed to create pull request: %w", err)
	}

	result.CreatedPullRequests = append(result.CreatedPullRequests, id)
	s.report.Success("Created pull request %s for %s", id, a.Branch)

	return nil
}

func (s *Service) skip(result *Result, a assignment.Assignment, reason string) {
	result.Skipped = append(result.Skipped, Skip{Path: a.Path, Branch: a.Branch, Reason: reason})
	s.report.Progress("skipping %s: %s", a.Path, reason)
}

func (s *Service) fail(result *Result, a assignment.Assignment, err error) {
	result.Failures = append(result.Failures, Failure{Path: a.Path, Branch: a.Branch, Err: err})
	s.report.Failure("Failed to process %s: %v", a.Path, err)
}
