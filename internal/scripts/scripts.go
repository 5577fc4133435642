// Package scripts implements the Script Index (spec §4.4): it enumerates
// optional user-supplied hook scripts (before, after, requires) per
// package, under a tree with the same category/package layout as
// recipes.
package scripts

import (
	"os"
	"os/exec"
	"path/filepath"
)

// Kind is a hook script type.
type Kind string

const (
	Before   Kind = "before"
	After    Kind = "after"
	Requires Kind = "requires"
)

var kinds = []Kind{Before, After, Requires}

// Index maps (kind, package) -> hook script path.
type Index struct {
	paths map[Kind]map[string]string
}

// Suppress controls which hook kinds are disabled entirely at
// construction time (spec §6: before/after/requires flags each suppress
// their corresponding kind).
type Suppress struct {
	Before   bool
	After    bool
	Requires bool
}

func (s Suppress) suppressed(k Kind) bool {
	switch k {
	case Before:
		return s.Before
	case After:
		return s.After
	case Requires:
		return s.Requires
	}
	return false
}

// Open scans root for <package>/<kind>.sh files. root may not exist (a
// repository with no hook scripts at all is valid); a missing root is
// treated as an empty index.
func Open(root string, suppress Suppress) (*Index, error) {
	idx := &Index{paths: map[Kind]map[string]string{
		Before:   {},
		After:    {},
		Requires: {},
	}}

	categories, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return idx, nil
	}
	if err != nil {
		return nil, err
	}

	for _, cat := range categories {
		if !cat.IsDir() || cat.Name()[0] == '.' {
			continue
		}
		catPath := filepath.Join(root, cat.Name())
		packages, err := os.ReadDir(catPath)
		if err != nil {
			return nil, err
		}
		for _, pkg := range packages {
			if !pkg.IsDir() {
				continue
			}
			for _, kind := range kinds {
				if suppress.suppressed(kind) {
					continue
				}
				candidate := filepath.Join(catPath, pkg.Name(), string(kind)+".sh")
				if _, err := os.Stat(candidate); err == nil {
					idx.paths[kind][pkg.Name()] = candidate
				}
			}
		}
	}
	return idx, nil
}

// Get returns the path of package's kind hook script, or "" if absent or
// suppressed.
func (idx *Index) Get(kind Kind, pkg string) string {
	return idx.paths[kind][pkg]
}

// DefaultRoot mirrors the original afterpkg.py's find_scripts_location:
// when the running binary sits inside a git checkout, hook scripts
// default to a scripts/ directory next to it; otherwise they default to
// the dotdir passed in as fallback.
func DefaultRoot(binDir, fallback string) string {
	cmd := exec.Command("git", "rev-parse", "--git-dir")
	cmd.Dir = binDir
	if err := cmd.Run(); err == nil {
		return filepath.Join(binDir, "scripts")
	}
	return fallback
}
