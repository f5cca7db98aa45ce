package assignment

import (
	"bytes"
	"fmt"
	"path"
	"regexp"
	"strings"
)

const augmentationFooter = "\n---\n\n*This README was augmented by the " + Attribution + ".*\n"

func ReadmePath(a Assignment) string {
	return path.Join(a.Path, ReadmeFileName)
}

// IsManaged reports whether a README already carries the attribution, either because it was
// generated or because it was augmented before.
func IsManaged(content []byte) bool {
	return bytes.Contains(content, []byte(Attribution))
}

// Augment appends the attribution footer. The existing content is kept byte for byte as the
// prefix of the result.
func Augment(existing []byte) []byte {
	out := make([]byte, 0, len(existing)+len(augmentationFooter)+2)
	out = append(out, existing...)
	if len(existing) > 0 {
		out = EnsureTrailingNewline(out)
	}

	return append(out, augmentationFooter...)
}

func EnsureTrailingNewline(data []byte) []byte {
	if len(data) == 0 || data[len(data)-1] == '\n' {
		return data
	}

	return append(data, '\n')
}

var imageLink = regexp.MustCompile(`!\[([^\]]*)\]\(([^)\s]+)\)`)

// RewriteImageLinks points relative markdown image links in a README at the raw file on
// branch, so they still render when the README is shown outside dir. Absolute paths and
// URLs are left alone.
func RewriteImageLinks(content []byte, branch, dir string) []byte {
	return imageLink.ReplaceAllFunc(content, func(match []byte) []byte {
		groups := imageLink.FindSubmatch(match)
		alt, target := string(groups[1]), string(groups[2])

		if strings.HasPrefix(target, "/") || strings.Contains(target, "://") {
			return match
		}

		return []byte(fmt.Sprintf("![%s](../blob/%s/%s?raw=true)", alt, branch, path.Join(dir, target)))
	})
}
