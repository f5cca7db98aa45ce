package assignment

import (
	"bytes"
	"fmt"

	"github.com/cbroglie/mustache"
)

const ReadmeFileName = "README.md"

// Attribution marks files and pull requests written by this tool.
const Attribution = "Assignment Pull Request Creator action"

const defaultReadmeTemplate = `# {{{title}}}

This is the README for the assignment located at ` + "`{{{path}}}`" + `.

## Instructions

Please add your assignment instructions and requirements here.

## Submission

Please add your submission guidelines here.

---

*This README was automatically generated by the ` + Attribution + `.*
`

const defaultPullRequestTemplate = `## Assignment Pull Request

This pull request contains the setup for the assignment located at ` + "`{{{path}}}`" + `.

### Changes included:
- Created or augmented {{{readme}}} with the assignment template
- Set up the ` + "`{{{branch}}}`" + ` branch for assignment submission

### Next steps:
1. Review the assignment requirements in the README
2. Add any additional assignment materials
3. Merge into ` + "`{{{base}}}`" + ` once the assignment is ready
{{#instructions}}

### Assignment README

{{{instructions}}}
{{/instructions}}

---

*This pull request was automatically created by the ` + Attribution + `.*
`

type Templates struct {
	readme      *mustache.Template
	pullRequest *mustache.Template
}

// LoadTemplates parses the given template files. An empty path selects the built-in template.
func LoadTemplates(readmePath, pullRequestPath string) (*Templates, error) {
	readme, err := parseTemplate(readmePath, defaultReadmeTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse README template: %w", err)
	}

	pullRequest, err := parseTemplate(pullRequestPath, defaultPullRequestTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pull request template: %w", err)
	}

	return &Templates{
		readme:      readme,
		pullRequest: pullRequest,
	}, nil
}

func DefaultTemplates() *Templates {
	t, err := LoadTemplates("", "")
	if err != nil {
		panic(err)
	}

	return t
}

func parseTemplate(path, fallback string) (*mustache.Template, error) {
	if path == "" {
		return mustache.ParseString(fallback)
	}

	return mustache.ParseFile(path)
}

func (t *Templates) Readme(a Assignment) ([]byte, error) {
	rendered, err := t.readme.Render(templateData(a, "", nil))
	if err != nil {
		return nil, fmt.Errorf("failed to render README for %s: %w", a.Path, err)
	}

	return EnsureTrailingNewline([]byte(rendered)), nil
}

// PullRequest renders the pull request for a. readme is the README on the assignment branch
// and may be nil.
func (t *Templates) PullRequest(a Assignment, base string, readme []byte) (NewPullRequest, error) {
	body, err := t.pullRequest.Render(templateData(a, base, readme))
	if err != nil {
		return NewPullRequest{}, fmt.Errorf("failed to render pull request body for %s: %w", a.Path, err)
	}

	return NewPullRequest{
		Title: PullRequestTitle(a),
		Body:  body,
		Head:  a.Branch,
		Base:  base,
	}, nil
}

func PullRequestTitle(a Assignment) string {
	return "Assignment: " + Title(a.Name)
}

func templateData(a Assignment, base string, readme []byte) map[string]string {
	data := map[string]string{
		"title":  Title(a.Name),
		"name":   a.Name,
		"path":   a.Path,
		"branch": a.Branch,
		"base":   base,
		"readme": ReadmePath(a),
	}
	if instructions := bytes.TrimSpace(readme); len(instructions) > 0 {
		data["instructions"] = string(RewriteImageLinks(instructions, a.Branch, a.Path))
	}

	return data
}
