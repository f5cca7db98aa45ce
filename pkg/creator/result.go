package creator

import (
	"errors"
	"fmt"
)

var ErrAssignmentsFailed = errors.New("one or more assignments failed")

type Skip struct {
	Path   string
	Branch string
	Reason string
}

type Failure struct {
	Path   string
	Branch string
	Err    error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s (%s): %v", f.Path, f.Branch, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Result is the outcome of a run. Lists are in processing order.
type Result struct {
	CreatedBranches     []string
	CreatedPullRequests []string
	Skipped             []Skip
	Failures            []Failure
}

func newResult() *Result {
	return &Result{
		CreatedBranches:     make([]string, 0),
		CreatedPullRequests: make([]string, 0),
		Skipped:             make([]Skip, 0),
		Failures:            make([]Failure, 0),
	}
}

// Err joins every per-assignment failure under ErrAssignmentsFailed, or returns nil.
func (r *Result) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}

	errs := make([]error, 0, len(r.Failures)+1)
	errs = append(errs, ErrAssignmentsFailed)
	for _, failure := range r.Failures {
		errs = append(errs, failure)
	}

	return errors.Join(errs...)
}
