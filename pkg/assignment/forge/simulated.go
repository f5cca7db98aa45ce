package forge

import (
	"context"
	"maps"
	"strings"
	"sync"

	"github.com/tvandinther/assignment-manager/pkg/assignment"
	"github.com/tvandinther/assignment-manager/pkg/progress"
)

// Simulated performs every read against the wrapped backend and reports every mutation
// instead of performing it. Mutations are remembered so later reads observe them.
type Simulated struct {
	repository assignment.Repository
	reviewer   assignment.Reviewer
	reporter   *progress.Reporter

	mu           sync.Mutex
	branches     map[string]string // created branch to the branch it was created from
	files        map[string][]byte // keyed by fileKey
	writes       map[string]int
	pullRequests map[string]assignment.PullRequestState
	lastID       int
}

func NewSimulated(repository assignment.Repository, reviewer assignment.Reviewer, reporter *progress.Reporter) *Simulated {
	return &Simulated{
		repository:   repository,
		reviewer:     reviewer,
		reporter:     reporter,
		branches:     make(map[string]string),
		files:        make(map[string][]byte),
		writes:       make(map[string]int),
		pullRequests: make(map[string]assignment.PullRequestState),
	}
}

func fileKey(branch, path string) string {
	return branch + ":" + path
}

func (s *Simulated) ListBranches(ctx context.Context) (map[string]bool, error) {
	branches, err := s.repository.ListBranches(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := maps.Clone(branches)
	if result == nil {
		result = make(map[string]bool)
	}
	for name := range s.branches {
		result[name] = true
	}

	return result, nil
}

func (s *Simulated) CreateBranch(_ context.Context, name, from string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reporter.Simulated("create branch %s from %s", name, from)
	s.branches[name] = from

	return nil
}

func (s *Simulated) ReadFile(ctx context.Context, branch, path string) ([]byte, bool, error) {
	s.mu.Lock()
	content, written := s.files[fileKey(branch, path)]
	from, simulatedBranch := s.branches[branch]
	s.mu.Unlock()

	if written {
		return content, true, nil
	}
	if simulatedBranch {
		return s.ReadFile(ctx, from, path)
	}

	return s.repository.ReadFile(ctx, branch, path)
}

func (s *Simulated) WriteFile(_ context.Context, branch, path string, content []byte, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reporter.Simulated("commit %s to %s (%s)", path, branch, message)
	s.files[fileKey(branch, path)] = content
	s.writes[branch]++

	return nil
}

func (s *Simulated) CommitsAhead(ctx context.Context, base, head string) (int, error) {
	s.mu.Lock()
	writes := s.writes[head]
	_, simulatedBranch := s.branches[head]
	s.mu.Unlock()

	if simulatedBranch {
		return writes, nil
	}

	ahead, err := s.repository.CommitsAhead(ctx, base, head)
	if err != nil {
		return 0, err
	}

	return ahead + writes, nil
}

func (s *Simulated) Publish(_ context.Context, branches []string) error {
	if len(branches) > 0 {
		s.reporter.Simulated("publish %s", strings.Join(branches, ", "))
	}

	return nil
}

func (s *Simulated) ListPullRequests(ctx context.Context) (map[string]assignment.PullRequestState, error) {
	pullRequests, err := s.reviewer.ListPullRequests(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := maps.Clone(pullRequests)
	if result == nil {
		result = make(map[string]assignment.PullRequestState)
	}
	maps.Copy(result, s.pullRequests)

	return result, nil
}

func (s *Simulated) CreatePullRequest(_ context.Context, pr assignment.NewPullRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	id := pullRequestID(int64(s.lastID))
	s.reporter.Simulated("open pull request %q from %s into %s", pr.Title, pr.Head, pr.Base)
	s.pullRequests[pr.Head] = assignment.StateOpen

	return id, nil
}
