package workflow

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"path"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tvandinther/assignment-manager/pkg/assignment"
)

// ActionName identifies this action in a workflow's uses: reference.
const ActionName = "assignment-pull-request"

const (
	RootPatternInput       = "assignments-root-regex"
	AssignmentPatternInput = "assignment-regex"
)

var Directories = []string{".github/workflows", ".github/workflow-templates"}

type file struct {
	Jobs map[string]job `yaml:"jobs"`
}

type job struct {
	Uses  string         `yaml:"uses"`
	With  map[string]any `yaml:"with"`
	Steps []step         `yaml:"steps"`
}

type step struct {
	Uses string         `yaml:"uses"`
	With map[string]any `yaml:"with"`
}

// Patterns are the pattern lists configured for this action across workflow files, in
// file order without duplicates.
type Patterns struct {
	Root       []string
	Assignment []string
}

func (p *Patterns) add(with map[string]any) {
	if value, ok := with[RootPatternInput].(string); ok {
		p.Root = append(p.Root, assignment.SplitPatterns(value)...)
	}
	if value, ok := with[AssignmentPatternInput].(string); ok {
		p.Assignment = append(p.Assignment, assignment.SplitPatterns(value)...)
	}
}

// Discover parses every workflow file under Directories in fsys. Files that fail to parse
// are logged and skipped.
func Discover(fsys fs.FS) (*Patterns, error) {
	patterns := &Patterns{
		Root:       make([]string, 0),
		Assignment: make([]string, 0),
	}

	for _, dir := range Directories {
		err := fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !isYAML(p) {
				return nil
			}

			data, err := fs.ReadFile(fsys, p)
			if err != nil {
				return fmt.Errorf("failed to read workflow %s: %w", p, err)
			}

			found, err := Parse(data)
			if err != nil {
				slog.Warn("skipping unparseable workflow", "path", p, "error", err)
				return nil
			}

			patterns.Root = append(patterns.Root, found.Root...)
			patterns.Assignment = append(patterns.Assignment, found.Assignment...)

			return nil
		})
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
		}
	}

	patterns.Root = dedupe(patterns.Root)
	patterns.Assignment = dedupe(patterns.Assignment)

	return patterns, nil
}

// Parse extracts the pattern inputs of every job or step in a workflow that uses this
// action.
func Parse(data []byte) (*Patterns, error) {
	var wf file
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("failed to parse workflow: %w", err)
	}

	patterns := &Patterns{
		Root:       make([]string, 0),
		Assignment: make([]string, 0),
	}

	for _, name := range slices.Sorted(maps.Keys(wf.Jobs)) {
		j := wf.Jobs[name]
		if IsAction(j.Uses) {
			patterns.add(j.With)
		}
		for _, s := range j.Steps {
			if IsAction(s.Uses) {
				patterns.add(s.With)
			}
		}
	}

	return patterns, nil
}

// IsAction reports whether a uses: reference points at this action.
func IsAction(uses string) bool {
	uses = strings.TrimSpace(uses)
	if uses == "" {
		return false
	}
	if uses == "." || uses == "./" {
		return true
	}

	return strings.Contains(uses, ActionName)
}

func isYAML(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ".yml", ".yaml":
		return true
	}

	return false
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		result = append(result, v)
	}

	return result
}
