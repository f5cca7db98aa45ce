package assignment

type Assignment struct {
	Path   string // Slash separated path from the scan origin. The README lives here.
	Name   string // Path relative to the assignment root directory it was found under.
	Branch string
}

type PullRequestState string

const (
	StateOpen   PullRequestState = "open"
	StateClosed PullRequestState = "closed"
	StateMerged PullRequestState = "merged"
)

type NewPullRequest struct {
	Title string
	Body  string
	Head  string
	Base  string
}
