package actions

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/cbroglie/mustache"

	"github.com/tvandinther/assignment-manager/pkg/creator"
)

const (
	OutputCreatedBranches     = "created-branches"
	OutputCreatedPullRequests = "created-pull-requests"
)

// WriteOutputs appends the created branches and pull requests to the GITHUB_OUTPUT file as
// JSON arrays. An empty path is a no-op.
func WriteOutputs(path string, result *creator.Result) error {
	if path == "" {
		return nil
	}

	var b strings.Builder
	for _, output := range []struct {
		name   string
		values []string
	}{
		{OutputCreatedBranches, result.CreatedBranches},
		{OutputCreatedPullRequests, result.CreatedPullRequests},
	} {
		values := output.values
		if values == nil {
			values = []string{}
		}
		encoded, err := json.Marshal(values)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", output.name, err)
		}
		fmt.Fprintf(&b, "%s=%s\n", output.name, encoded)
	}

	if err := appendFile(path, b.String()); err != nil {
		return fmt.Errorf("failed to write action outputs: %w", err)
	}

	slog.Debug("wrote action outputs", "path", path)

	return nil
}

const summaryTemplate = `## Assignment pull requests{{#dryRun}} (dry run){{/dryRun}}

| Created branches | Created pull requests | Skipped | Failed |
|---|---|---|---|
| {{branchCount}} | {{pullRequestCount}} | {{skipCount}} | {{failureCount}} |
{{#hasBranches}}

### Branches
{{#branches}}
- ` + "`{{{.}}}`" + `
{{/branches}}
{{/hasBranches}}
{{#hasPullRequests}}

### Pull requests
{{#pullRequests}}
- {{{.}}}
{{/pullRequests}}
{{/hasPullRequests}}
{{#hasSkipped}}

### Skipped
{{#skipped}}
- ` + "`{{{Path}}}`" + `: {{{Reason}}}
{{/skipped}}
{{/hasSkipped}}
{{#hasFailures}}

### Failed
{{#failures}}
- ` + "`{{{Path}}}`" + `: {{{message}}}
{{/failures}}
{{/hasFailures}}
`

// WriteSummary appends a markdown job summary to the GITHUB_STEP_SUMMARY file. An empty
// path is a no-op.
func WriteSummary(path string, result *creator.Result, dryRun bool) error {
	if path == "" {
		return nil
	}

	summary, err := RenderSummary(result, dryRun)
	if err != nil {
		return err
	}

	if err := appendFile(path, summary); err != nil {
		return fmt.Errorf("failed to write job summary: %w", err)
	}

	return nil
}

func RenderSummary(result *creator.Result, dryRun bool) (string, error) {
	failures := make([]map[string]string, 0, len(result.Failures))
	for _, failure := range result.Failures {
		failures = append(failures, map[string]string{
			"Path":    failure.Path,
			"message": failure.Err.Error(),
		})
	}

	summary, err := mustache.Render(summaryTemplate, map[string]any{
		"dryRun":           dryRun,
		"branchCount":      len(result.CreatedBranches),
		"pullRequestCount": len(result.CreatedPullRequests),
		"skipCount":        len(result.Skipped),
		"failureCount":     len(result.Failures),
		"hasBranches":      len(result.CreatedBranches) > 0,
		"branches":         result.CreatedBranches,
		"hasPullRequests":  len(result.CreatedPullRequests) > 0,
		"pullRequests":     result.CreatedPullRequests,
		"hasSkipped":       len(result.Skipped) > 0,
		"skipped":          result.Skipped,
		"hasFailures":      len(failures) > 0,
		"failures":         failures,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render job summary: %w", err)
	}

	return summary, nil
}

func appendFile(path, content string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
