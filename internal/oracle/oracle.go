// Package oracle implements the Local-Install Oracle (spec §4.2): it
// decides whether a given package is already satisfied locally, using
// the set of native-installed package names plus two snapshots of
// language-package-manager-installed distribution names (pip2, pip3).
package oracle

import (
	"os"
	"regexp"
	"strings"

	"github.com/bifferos/afterpkg/internal/recipe"
)

var (
	installedDirRe = regexp.MustCompile(`^(.*)-([^-]*)-([^-]*)-([^-]*)$`)
	pipRe          = regexp.MustCompile(`^python(3?)-(.*)$`)
	pyRe           = regexp.MustCompile(`^(python3?-)(.*)$`)
)

// Options configures which gating rules the Oracle applies (spec §6:
// novirtual / nopip2 / nopip3).
type Options struct {
	IgnoreLanguageManaged bool // novirtual
	IgnorePip2            bool // nopip2
	IgnorePip3            bool // nopip3
}

// Oracle answers isSatisfied(name) for the Resolver and Worker.
type Oracle struct {
	index   *recipe.Index
	opts    Options
	native  map[string]bool
	pip2    map[string]bool
	pip3    map[string]bool
	universe map[string]bool
}

// New constructs an Oracle. native is the set of natively-installed
// package stems (spec §4.2). pip2/pip3 are the corresponding
// language-package-manager snapshots. universe is the cached ambient
// index snapshot (see Universe).
func New(index *recipe.Index, opts Options, native, pip2, pip3, universe map[string]bool) *Oracle {
	return &Oracle{
		index:    index,
		opts:     opts,
		native:   native,
		pip2:     stripLeadingDash(pip2),
		pip3:     stripLeadingDash(pip3),
		universe: universe,
	}
}

// stripLeadingDash removes a leading "-" from any name, an observed
// quirk of some pip-list outputs where uninstalled/editable markers
// leak into the package name (spec §4.2).
func stripLeadingDash(names map[string]bool) map[string]bool {
	out := make(map[string]bool, len(names))
	for n := range names {
		out[strings.TrimPrefix(n, "-")] = true
	}
	return out
}

// NativeInstalled lists the installed-packages directory and returns the
// stems of every `<stem>-<v>-<a>-<b>` entry (spec §4.2).
func NativeInstalled(dir string) (map[string]bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool)
	for _, e := range entries {
		if m := installedDirRe.FindStringSubmatch(e.Name()); m != nil {
			out[m[1]] = true
		}
	}
	return out, nil
}

// IsSatisfied implements spec §4.2's isSatisfied(name) algorithm.
func (o *Oracle) IsSatisfied(name string) bool {
	if o.native[name] {
		return true
	}
	if o.opts.IgnoreLanguageManaged {
		return false
	}

	pypiName, ok := o.mapRecipeToIndexName(name)
	if !ok {
		return false
	}

	if strings.HasPrefix(name, "python3-") {
		return !o.opts.IgnorePip3 && o.pip3[pypiName]
	}
	if strings.HasPrefix(name, "python-") {
		return !o.opts.IgnorePip2 && o.pip2[pypiName]
	}
	return false
}

// mapRecipeToIndexName implements spec §4.2 step 3: map a recipe name to
// a PyPI distribution name, or report that no mapping exists (ok=false).
func (o *Oracle) mapRecipeToIndexName(name string) (string, bool) {
	if m := pyRe.FindStringSubmatch(name); m != nil {
		prefix, rest := m[1], m[2]
		if o.universe[rest] {
			return rest, true
		}
		if o.universe[name] {
			return name, true
		}
		if prefix == "python3-" {
			alt := "python-" + rest
			if o.universe[alt] {
				return alt, true
			}
		}
	} else if o.universe[name] {
		return name, true
	}

	mapped, found := lookupSpecialCase(name)
	if !found {
		return "", false
	}
	if mapped == nil {
		// Explicit "none": known python package, but no PyPI
		// equivalent should ever be attempted.
		return "", false
	}
	return *mapped, true
}

// pipVersion returns the pip binary suffix ("" or "3") to use for name,
// matching the original's get_pip_version.
func pipVersion(name string) string {
	if m := pipRe.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	return ""
}

// PipVersion is exported for the Worker's short-circuit step (spec §4.6
// step 2): `pip<ver> install <mapped>`.
func PipVersion(name string) string { return pipVersion(name) }

// MapToIndexName exposes mapRecipeToIndexName for the Worker's
// pip-install short-circuit, which needs the mapped name regardless of
// the pip2/pip3 "already satisfied" gating above.
func (o *Oracle) MapToIndexName(name string) (string, bool) {
	return o.mapRecipeToIndexName(name)
}
