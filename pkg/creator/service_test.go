package creator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/tvandinther/assignment-manager/pkg/assignment"
	"github.com/tvandinther/assignment-manager/pkg/progress"
)

// fakeForge is an in-memory Repository and Reviewer that records every call.
type fakeForge struct {
	branches     map[string]bool
	files        map[string]string
	ahead        map[string]int
	pullRequests map[string]assignment.PullRequestState

	listBranchesErr     error
	listPullRequestsErr error
	publishErr          error
	createBranchErr     map[string]error

	calls   []string
	created []assignment.NewPullRequest
}

func newFakeForge() *fakeForge {
	return &fakeForge{
		branches:        map[string]bool{"main": true},
		files:           make(map[string]string),
		ahead:           make(map[string]int),
		pullRequests:    make(map[string]assignment.PullRequestState),
		createBranchErr: make(map[string]error),
	}
}

func key(branch, path string) string {
	return branch + ":" + path
}

func (f *fakeForge) ListBranches(context.Context) (map[string]bool, error) {
	if f.listBranchesErr != nil {
		return nil, f.listBranchesErr
	}
	branches := make(map[string]bool)
	for name := range f.branches {
		branches[name] = true
	}
	return branches, nil
}

func (f *fakeForge) CreateBranch(_ context.Context, name, from string) error {
	f.calls = append(f.calls, "branch "+name)
	if err := f.createBranchErr[name]; err != nil {
		return err
	}
	f.branches[name] = true
	for k, v := range f.files {
		if path, ok := strings.CutPrefix(k, from+":"); ok {
			f.files[key(name, path)] = v
		}
	}
	return nil
}

func (f *fakeForge) ReadFile(_ context.Context, branch, path string) ([]byte, bool, error) {
	content, ok := f.files[key(branch, path)]
	return []byte(content), ok, nil
}

func (f *fakeForge) WriteFile(_ context.Context, branch, path string, content []byte, _ string) error {
	f.calls = append(f.calls, "write "+branch)
	f.files[key(branch, path)] = string(content)
	f.ahead[branch]++
	return nil
}

func (f *fakeForge) CommitsAhead(_ context.Context, _, head string) (int, error) {
	return f.ahead[head], nil
}

func (f *fakeForge) Publish(_ context.Context, branches []string) error {
	f.calls = append(f.calls, "publish "+strings.Join(branches, ","))
	return f.publishErr
}

func (f *fakeForge) ListPullRequests(context.Context) (map[string]assignment.PullRequestState, error) {
	return f.pullRequests, f.listPullRequestsErr
}

func (f *fakeForge) CreatePullRequest(_ context.Context, pr assignment.NewPullRequest) (string, error) {
	f.calls = append(f.calls, "pull request "+pr.Head)
	f.created = append(f.created, pr)
	return fmt.Sprintf("#%d", len(f.created)), nil
}

func newTestService(f *fakeForge, requireChanges bool) *Service {
	return NewService(progress.Discard(), f, f, ServiceOptions{
		DefaultBranch:  "main",
		RequireChanges: requireChanges,
	})
}

func labAssignment(n int) assignment.Assignment {
	name := fmt.Sprintf("assignment-%d", n)
	return assignment.Assignment{Path: "assignments/" + name, Name: name, Branch: name}
}

func TestRunCreatesBranchReadmeAndPullRequest(t *testing.T) {
	f := newFakeForge()
	a := labAssignment(1)

	result, err := newTestService(f, true).Run(context.Background(), []assignment.Assignment{a})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !slices.Equal(result.CreatedBranches, []string{"assignment-1"}) {
		t.Errorf("expected [assignment-1], got %v", result.CreatedBranches)
	}
	if !slices.Equal(result.CreatedPullRequests, []string{"#1"}) {
		t.Errorf("expected [#1], got %v", result.CreatedPullRequests)
	}
	if result.Err() != nil {
		t.Errorf("expected no failures, got %v", result.Err())
	}

	readme := f.files[key("assignment-1", "assignments/assignment-1/README.md")]
	if !strings.HasPrefix(readme, "# Assignment-1\n") {
		t.Errorf("expected canonical README, got %q", readme)
	}
	if !assignment.IsManaged([]byte(readme)) {
		t.Error("expected README to carry the attribution")
	}

	pr := f.created[0]
	if pr.Title != "Assignment: Assignment-1" {
		t.Errorf("expected title 'Assignment: Assignment-1', got %q", pr.Title)
	}
	if pr.Head != "assignment-1" || pr.Base != "main" {
		t.Errorf("expected assignment-1 into main, got %s into %s", pr.Head, pr.Base)
	}
}

func TestRunSkipsWhenPullRequestHasExisted(t *testing.T) {
	for _, state := range []assignment.PullRequestState{assignment.StateOpen, assignment.StateClosed, assignment.StateMerged} {
		t.Run(string(state), func(t *testing.T) {
			for _, branchExists := range []bool{false, true} {
				f := newFakeForge()
				f.pullRequests["assignment-1"] = state
				if branchExists {
					f.branches["assignment-1"] = true
				}

				result, err := newTestService(f, true).Run(context.Background(), []assignment.Assignment{labAssignment(1)})
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}

				if len(f.calls) != 0 {
					t.Errorf("expected no mutations, got %v", f.calls)
				}
				if len(result.Skipped) != 1 || result.Skipped[0].Branch != "assignment-1" {
					t.Errorf("expected assignment-1 to be skipped, got %v", result.Skipped)
				}
				if len(result.CreatedBranches) != 0 || len(result.CreatedPullRequests) != 0 {
					t.Errorf("expected nothing created, got %v", result)
				}
			}
		})
	}
}

func TestRunCompletesExistingBranchWithoutPullRequest(t *testing.T) {
	f := newFakeForge()
	f.branches["assignment-1"] = true

	result, err := newTestService(f, true).Run(context.Background(), []assignment.Assignment{labAssignment(1)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if slices.Contains(f.calls, "branch assignment-1") {
		t.Error("expected existing branch not to be created again")
	}
	if len(result.CreatedBranches) != 0 {
		t.Errorf("expected no created branches, got %v", result.CreatedBranches)
	}
	if len(result.CreatedPullRequests) != 1 {
		t.Errorf("expected exactly one pull request, got %v", result.CreatedPullRequests)
	}
}

func TestRunAugmentsUnmanagedReadme(t *testing.T) {
	f := newFakeForge()
	f.branches["assignment-1"] = true
	original := "# My assignment\n\nDo the thing."
	f.files[key("assignment-1", "assignments/assignment-1/README.md")] = original

	if _, err := newTestService(f, true).Run(context.Background(), []assignment.Assignment{labAssignment(1)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	readme := f.files[key("assignment-1", "assignments/assignment-1/README.md")]
	if !strings.HasPrefix(readme, original) {
		t.Errorf("expected original content to be preserved, got %q", readme)
	}
	if !assignment.IsManaged([]byte(readme)) {
		t.Error("expected augmented README to carry the attribution")
	}
}

func TestRunSkipsPullRequestWithoutChanges(t *testing.T) {
	f := newFakeForge()
	f.branches["assignment-1"] = true
	f.files[key("assignment-1", "assignments/assignment-1/README.md")] = "# Done\n\n*" + assignment.Attribution + "*\n"

	result, err := newTestService(f, true).Run(context.Background(), []assignment.Assignment{labAssignment(1)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.CreatedPullRequests) != 0 {
		t.Errorf("expected no pull requests, got %v", result.CreatedPullRequests)
	}
	if len(f.calls) != 0 {
		t.Errorf("expected no mutations, got %v", f.calls)
	}
	if len(result.Skipped) != 1 || !strings.Contains(result.Skipped[0].Reason, "no changes") {
		t.Errorf("expected a no changes skip, got %v", result.Skipped)
	}
}

func TestRunOpensPullRequestWithoutChangesWhenNotRequired(t *testing.T) {
	f := newFakeForge()
	f.branches["assignment-1"] = true
	f.files[key("assignment-1", "assignments/assignment-1/README.md")] = assignment.Attribution

	result, err := newTestService(f, false).Run(context.Background(), []assignment.Assignment{labAssignment(1)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.CreatedPullRequests) != 1 {
		t.Errorf("expected one pull request, got %v", result.CreatedPullRequests)
	}
}

func TestRunPublishesBeforeOpeningPullRequests(t *testing.T) {
	f := newFakeForge()

	_, err := newTestService(f, true).Run(context.Background(), []assignment.Assignment{labAssignment(1), labAssignment(2)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []string{
		"branch assignment-1",
		"write assignment-1",
		"branch assignment-2",
		"write assignment-2",
		"publish assignment-1,assignment-2",
		"pull request assignment-1",
		"pull request assignment-2",
	}
	if !slices.Equal(f.calls, expected) {
		t.Errorf("expected calls %v, got %v", expected, f.calls)
	}
}

func TestRunContinuesAfterAssignmentFailure(t *testing.T) {
	f := newFakeForge()
	f.createBranchErr["assignment-1"] = errors.New("forbidden")

	result, err := newTestService(f, true).Run(context.Background(), []assignment.Assignment{labAssignment(1), labAssignment(2)})
	if err != nil {
		t.Fatalf("expected failures to be recorded, got %v", err)
	}

	if len(result.Failures) != 1 || result.Failures[0].Branch != "assignment-1" {
		t.Fatalf("expected assignment-1 to fail, got %v", result.Failures)
	}
	if !slices.Equal(result.CreatedBranches, []string{"assignment-2"}) {
		t.Errorf("expected assignment-2 to be created, got %v", result.CreatedBranches)
	}
	if !slices.Equal(result.CreatedPullRequests, []string{"#1"}) {
		t.Errorf("expected one pull request, got %v", result.CreatedPullRequests)
	}
	if !errors.Is(result.Err(), ErrAssignmentsFailed) {
		t.Errorf("expected ErrAssignmentsFailed, got %v", result.Err())
	}
}

func TestRunFailsWhenStateCannotBeRead(t *testing.T) {
	expected := errors.New("bad credentials")

	f := newFakeForge()
	f.listBranchesErr = expected
	if _, err := newTestService(f, true).Run(context.Background(), []assignment.Assignment{labAssignment(1)}); !errors.Is(err, expected) {
		t.Errorf("expected %v, got %v", expected, err)
	}

	f = newFakeForge()
	f.listPullRequestsErr = expected
	if _, err := newTestService(f, true).Run(context.Background(), []assignment.Assignment{labAssignment(1)}); !errors.Is(err, expected) {
		t.Errorf("expected %v, got %v", expected, err)
	}
	if len(f.calls) != 0 {
		t.Errorf("expected no mutations, got %v", f.calls)
	}
}

func TestRunFailsWhenPublishFails(t *testing.T) {
	expected := errors.New("rejected")
	f := newFakeForge()
	f.publishErr = expected

	result, err := newTestService(f, true).Run(context.Background(), []assignment.Assignment{labAssignment(1)})
	if !errors.Is(err, expected) {
		t.Fatalf("expected %v, got %v", expected, err)
	}
	if result != nil {
		t.Errorf("expected no result, got %v", result)
	}
	if len(f.created) != 0 {
		t.Errorf("expected no pull requests after a failed publish, got %v", f.created)
	}
}

func TestRunProcessesDuplicateBranchOnce(t *testing.T) {
	f := newFakeForge()
	a := labAssignment(1)
	nested := assignment.Assignment{Path: "assignments/assignments/assignment-1", Name: "assignment-1", Branch: "assignment-1"}

	result, err := newTestService(f, true).Run(context.Background(), []assignment.Assignment{a, nested})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.CreatedPullRequests) != 1 {
		t.Errorf("expected one pull request, got %v", result.CreatedPullRequests)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Path != nested.Path {
		t.Errorf("expected the duplicate to be skipped, got %v", result.Skipped)
	}
}

func TestRunWithNoAssignments(t *testing.T) {
	f := newFakeForge()

	result, err := newTestService(f, true).Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.CreatedBranches) != 0 || len(f.calls) != 0 {
		t.Errorf("expected nothing to happen, got %v", f.calls)
	}
	if result.CreatedBranches == nil || result.CreatedPullRequests == nil {
		t.Error("expected empty, non-nil lists")
	}
}

func TestRunPullRequestBodyCarriesReadme(t *testing.T) {
	f := newFakeForge()
	f.files[key("main", "assignments/assignment-2/README.md")] = "# Sorting\n\n![chart](chart.png)\n"

	_, err := newTestService(f, true).Run(context.Background(), []assignment.Assignment{labAssignment(2)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.created) != 1 {
		t.Fatalf("expected 1 pull request, got %d", len(f.created))
	}
	body := f.created[0].Body
	if !strings.Contains(body, "# Sorting") {
		t.Errorf("expected augmented README in body, got %q", body)
	}
	if !strings.Contains(body, "../blob/assignment-2/assignments/assignment-2/chart.png?raw=true") {
		t.Errorf("expected image link to be rewritten, got %q", body)
	}
}
