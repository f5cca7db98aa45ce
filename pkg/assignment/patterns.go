package assignment

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	DefaultRootPattern       = `^assignments$`
	DefaultAssignmentPattern = `^assignment-\d+$`
)

type Patterns []*regexp.Regexp

// SplitPatterns splits a comma separated pattern list. A comma inside a pattern is written as \,
func SplitPatterns(list string) []string {
	const placeholder = "\x00"

	list = strings.ReplaceAll(list, `\,`, placeholder)

	seen := make(map[string]bool)
	patterns := make([]string, 0)
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(strings.ReplaceAll(part, placeholder, ","))
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		patterns = append(patterns, part)
	}

	return patterns
}

func ParsePatterns(list string) (Patterns, error) {
	return CompilePatterns(SplitPatterns(list))
}

func CompilePatterns(exprs []string) (Patterns, error) {
	patterns := make(Patterns, 0, len(exprs))
	for _, expr := range exprs {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", expr, err)
		}
		patterns = append(patterns, re)
	}

	return patterns, nil
}

// Match returns the first pattern with a match starting at the beginning of name.
func (p Patterns) Match(name string) (*regexp.Regexp, bool) {
	for _, re := range p {
		// Leftmost-first matching means a match at offset 0 is found whenever one exists.
		loc := re.FindStringIndex(name)
		if loc != nil && loc[0] == 0 {
			return re, true
		}
	}

	return nil, false
}

func (p Patterns) Strings() []string {
	out := make([]string, len(p))
	for i, re := range p {
		out[i] = re.String()
	}

	return out
}

func (p Patterns) String() string {
	return strings.Join(p.Strings(), ", ")
}
