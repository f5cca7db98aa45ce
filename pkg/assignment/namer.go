package assignment

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var hyphenRun = regexp.MustCompile(`-+`)

// SanitizeBranchName turns an assignment path into a branch name. Distinct inputs may collide.
func SanitizeBranchName(s string) string {
	// Fields splits on unicode.IsSpace, the same definition TrimSpace uses.
	name := strings.Join(strings.Fields(s), "-")
	name = strings.ReplaceAll(name, "/", "-")
	name = hyphenRun.ReplaceAllString(name, "-")
	name = strings.ToLower(name)

	return strings.Trim(name, "-")
}

// BranchName derives the branch for an assignment. When the matching pattern has capture
// groups their values form the branch, named groups first in alphabetical order, then unnamed
// groups in order. Otherwise the assignment name is sanitized as a whole.
func BranchName(pattern *regexp.Regexp, dirName, name string) string {
	if pattern == nil || pattern.NumSubexp() == 0 {
		return SanitizeBranchName(name)
	}

	matches := pattern.FindStringSubmatch(dirName)
	if matches == nil {
		return SanitizeBranchName(name)
	}

	named := make(map[string]string)
	namedKeys := make([]string, 0)
	unnamed := make([]string, 0)
	for i, group := range pattern.SubexpNames() {
		if i == 0 {
			continue
		}
		value := strings.TrimSpace(matches[i])
		if value == "" {
			continue
		}
		if group == "" {
			unnamed = append(unnamed, value)
			continue
		}
		if _, ok := named[group]; !ok {
			namedKeys = append(namedKeys, group)
		}
		named[group] = value
	}
	sort.Strings(namedKeys)

	parts := make([]string, 0, len(namedKeys)+len(unnamed))
	for _, key := range namedKeys {
		parts = append(parts, named[key])
	}
	parts = append(parts, unnamed...)

	if len(parts) == 0 {
		return SanitizeBranchName(name)
	}

	return SanitizeBranchName(strings.Join(parts, "-"))
}

func Title(name string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(name, "/", " - "))
}
