package assignment

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"
)

type Scanner struct {
	fsys        fs.FS
	roots       Patterns
	assignments Patterns
}

func NewScanner(fsys fs.FS, roots, assignments Patterns) *Scanner {
	return &Scanner{
		fsys:        fsys,
		roots:       roots,
		assignments: assignments,
	}
}

// Scan walks the tree depth first. Every directory below a root directory whose name matches
// an assignment pattern is returned in traversal order. Nested roots are scanned on their own,
// so an assignment below two roots is returned twice.
func (s *Scanner) Scan() ([]Assignment, error) {
	found := make([]Assignment, 0)

	if _, err := fs.Stat(s.fsys, "."); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return found, nil
		}
		return nil, fmt.Errorf("failed to stat scan origin: %w", err)
	}

	err := fs.WalkDir(s.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == "." || !d.IsDir() {
			return nil
		}
		if isHidden(d.Name()) {
			return fs.SkipDir
		}
		if _, ok := s.roots.Match(d.Name()); !ok {
			return nil
		}

		slog.Debug("found assignment root", "path", p)
		inRoot, err := s.scanRoot(p)
		if err != nil {
			return err
		}
		found = append(found, inRoot...)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory tree: %w", err)
	}

	return found, nil
}

func (s *Scanner) scanRoot(root string) ([]Assignment, error) {
	found := make([]Assignment, 0)

	err := fs.WalkDir(s.fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root || !d.IsDir() {
			return nil
		}
		if isHidden(d.Name()) {
			return fs.SkipDir
		}

		pattern, ok := s.assignments.Match(d.Name())
		if !ok {
			return nil
		}

		name := strings.TrimPrefix(p, root+"/")
		a := Assignment{
			Path:   path.Clean(p),
			Name:   name,
			Branch: BranchName(pattern, d.Name(), name),
		}
		slog.Debug("found assignment", "path", a.Path, "branch", a.Branch)
		found = append(found, a)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk assignment root %s: %w", root, err)
	}

	return found, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
