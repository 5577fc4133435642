// Package resolve implements the Dependency Resolver (spec §4.3): a
// deterministic post-order traversal of the dependency DAG rooted at the
// user's target packages, skipping already-satisfied nodes.
package resolve

import (
	"sort"

	"github.com/bifferos/afterpkg/internal/recipe"
)

// Satisfied reports whether a package is already installed locally; it
// is satisfied by *oracle.Oracle in production and by a stub in tests.
type Satisfied interface {
	IsSatisfied(name string) bool
}

// Resolver produces the ordered build list described in spec §3/§4.3.
type Resolver struct {
	index   *recipe.Index
	oracle  Satisfied
}

// New constructs a Resolver over index, consulting oracle to decide
// whether dependencies are already satisfied.
func New(index *recipe.Index, oracle Satisfied) *Resolver {
	return &Resolver{index: index, oracle: oracle}
}

// Resolve implements spec §4.3's resolve(targets, skipSatisfied)
// algorithm: depth-first post-order traversal with lexicographically
// sorted sibling order, skipping already-satisfied dependencies when
// skipSatisfied is set.
func (r *Resolver) Resolve(targets []string, skipSatisfied bool) ([]string, error) {
	resolved := make([]string, 0, len(targets))
	seen := make(map[string]bool)

	var visit func(name string) error
	visit = func(name string) error {
		if seen[name] {
			return nil
		}
		if !r.index.IsRecipe(name) {
			return &recipe.UnknownPackageError{Name: name}
		}

		deps, err := r.index.Requires(name)
		if err != nil {
			return err
		}
		var filtered []string
		for _, d := range deps {
			if skipSatisfied && r.oracle.IsSatisfied(d) {
				continue
			}
			filtered = append(filtered, d)
		}
		sort.Strings(filtered)

		for _, d := range filtered {
			if err := visit(d); err != nil {
				return err
			}
		}

		// Mark visited regardless of outcome below, so a later
		// reference (e.g. as another package's dependency) short-
		// circuits instead of re-walking the same subtree.
		seen[name] = true

		if skipSatisfied && r.oracle.IsSatisfied(name) {
			return nil
		}
		resolved = append(resolved, name)
		return nil
	}

	for _, t := range targets {
		if err := visit(t); err != nil {
			return nil, err
		}
	}
	return resolved, nil
}
