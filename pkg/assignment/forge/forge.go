package forge

import (
	"fmt"
	"strings"

	"github.com/tvandinther/assignment-manager/pkg/assignment"
)

const pageSize = 100

// Forge is a hosted repository that can hold branches, files and pull requests.
type Forge interface {
	assignment.Repository
	assignment.Reviewer
}

// SplitRepository splits an "owner/name" identifier.
func SplitRepository(fullName string) (string, string, error) {
	owner, name, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("invalid repository %q, expected owner/name", fullName)
	}

	return owner, name, nil
}

func pullRequestID(number int64) string {
	return fmt.Sprintf("#%d", number)
}
