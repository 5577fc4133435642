// Package recipe implements the Recipe Index (spec §4.1): it scans a
// tree of category/package directories, maps package names to recipe
// directories, classifies python-ecosystem packages, and parses .info
// files on demand with memoisation.
package recipe

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/xerrors"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Sentinels are the two REQUIRES tokens that never denote a real
// dependency edge (spec §3).
var Sentinels = map[string]bool{"%README%": true, "": true}

var pyPrefixRe = regexp.MustCompile(`^(python3?-)(.*)$`)

// Index maps package names to recipe directories under a root containing
// category subdirectories, each containing package subdirectories.
type Index struct {
	root     string
	dirs     map[string]string // name -> recipe directory
	category map[string]string // name -> category name

	mu    sync.Mutex
	cache map[string]Info // recipe dir -> parsed .info, memoised
}

// Open scans root and builds the index. root must already exist; callers
// that want the auto-clone behaviour of the original afterpkg.py should
// call EnsureRoot first.
func Open(root string) (*Index, error) {
	idx := &Index{
		root:     root,
		dirs:     make(map[string]string),
		category: make(map[string]string),
		cache:    make(map[string]Info),
	}

	categories, err := os.ReadDir(root)
	if err != nil {
		return nil, xerrors.Errorf("reading recipe root %s: %w", root, err)
	}
	for _, cat := range categories {
		if !cat.IsDir() || cat.Name()[0] == '.' {
			continue
		}
		catPath := filepath.Join(root, cat.Name())
		packages, err := os.ReadDir(catPath)
		if err != nil {
			return nil, xerrors.Errorf("reading category %s: %w", cat.Name(), err)
		}
		for _, pkg := range packages {
			if !pkg.IsDir() {
				continue
			}
			idx.dirs[pkg.Name()] = filepath.Join(catPath, pkg.Name())
			idx.category[pkg.Name()] = cat.Name()
		}
	}
	return idx, nil
}

// EnsureRoot clones the Ponce slackbuilds mirror into root if it does not
// already exist, matching the original afterpkg.py's startup behaviour.
// The existence check is made on the local filesystem; run executes the
// clone command (the orchestrator passes a local Shim's runner, so the
// clone lands where Open will scan it).
func EnsureRoot(root string, run func(cmd string) error) error {
	if _, err := os.Stat(root); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(root), 0o755); err != nil {
		return err
	}
	return run("git clone https://github.com/Ponce/slackbuilds.git " + root)
}

// Lookup returns the recipe directory for name, or UnknownPackageError.
func (idx *Index) Lookup(name string) (string, error) {
	dir, ok := idx.dirs[name]
	if !ok {
		return "", &UnknownPackageError{Name: name}
	}
	return dir, nil
}

// IsRecipe reports whether name is present in the index.
func (idx *Index) IsRecipe(name string) bool {
	_, ok := idx.dirs[name]
	return ok
}

// Category returns the category directory name a recipe lives under.
func (idx *Index) Category(name string) string {
	return idx.category[name]
}

// Names returns every recipe name in the index, for callers that need
// the full set rather than individual lookups.
func (idx *Index) Names() []string {
	names := make([]string, 0, len(idx.dirs))
	for name := range idx.dirs {
		names = append(names, name)
	}
	return names
}

// ReadInfo parses name's .info file, memoised by recipe directory.
func (idx *Index) ReadInfo(name string) (Info, error) {
	dir, err := idx.Lookup(name)
	if err != nil {
		return nil, err
	}

	idx.mu.Lock()
	if cached, ok := idx.cache[dir]; ok {
		idx.mu.Unlock()
		return cached, nil
	}
	idx.mu.Unlock()

	path := filepath.Join(dir, name+".info")
	info, err := parseInfo(path)
	if err != nil {
		if _, ok := err.(*MalformedInfoError); ok {
			return nil, err
		}
		return nil, &MalformedInfoError{Path: path, Err: err}
	}

	idx.mu.Lock()
	idx.cache[dir] = info
	idx.mu.Unlock()
	return info, nil
}

// SlackBuildPath returns the path to name's shell recipe script.
func (idx *Index) SlackBuildPath(name string) string {
	return filepath.Join(idx.dirs[name], name+".SlackBuild")
}

// IsLanguagePackage reports whether name is a python-ecosystem package:
// it lies under the "python" category, its name matches python(3?)-*, or
// its recipe script contains a literal distutils install invocation
// (spec §4.1).
func (idx *Index) IsLanguagePackage(name string) bool {
	if idx.category[name] == "python" {
		return true
	}
	if pyPrefixRe.MatchString(name) {
		return true
	}
	script, err := os.ReadFile(idx.SlackBuildPath(name))
	if err != nil {
		return false
	}
	text := string(script)
	return strings.Contains(text, "python setup.py install ") ||
		strings.Contains(text, "python3 setup.py install ")
}

// Requires returns name's dependency edges, with sentinels removed and
// names not present in the index dropped (spec §3: "non-recipe
// dependencies are not buildable and thus not scheduled").
func (idx *Index) Requires(name string) ([]string, error) {
	info, err := idx.ReadInfo(name)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, dep := range info.List("REQUIRES") {
		if Sentinels[dep] {
			continue
		}
		if !idx.IsRecipe(dep) {
			continue
		}
		out = append(out, dep)
	}
	return out, nil
}

// BuildGraph materialises the full dependency DAG (every recipe-to-recipe
// REQUIRES edge) as a gonum directed graph, grounded on
// cmd/distri/batch.go's own use of simple.DirectedGraph + topo.Sort over
// its package dependency graph.
func (idx *Index) BuildGraph() (graph.Directed, map[string]int64, error) {
	g := simple.NewDirectedGraph()
	ids := make(map[string]int64, len(idx.dirs))
	var next int64
	for name := range idx.dirs {
		ids[name] = next
		g.AddNode(simpleNode(next))
		next++
	}
	for name, id := range ids {
		deps, err := idx.Requires(name)
		if err != nil {
			return nil, nil, err
		}
		for _, dep := range deps {
			g.SetEdge(g.NewEdge(simpleNode(id), simpleNode(ids[dep])))
		}
	}
	return g, ids, nil
}

// CheckAcyclic reports an error if the dependency DAG contains a cycle.
// Spec §3 assumes well-formed, acyclic input and does not require the
// resolver to terminate on cyclic input; this is an opportunistic extra
// check callers may run before resolving, so malformed repositories fail
// fast with a clear diagnosis instead of recursing forever.
func (idx *Index) CheckAcyclic() error {
	g, ids, err := idx.BuildGraph()
	if err != nil {
		return err
	}
	if _, err := topo.Sort(g); err != nil {
		if uo, ok := err.(topo.Unorderable); ok {
			names := byID(ids)
			var cyclic []string
			for _, component := range uo {
				for _, n := range component {
					cyclic = append(cyclic, names[n.ID()])
				}
			}
			return xerrors.Errorf("cyclic dependency among recipes: %v", cyclic)
		}
		return err
	}
	return nil
}

func byID(ids map[string]int64) map[int64]string {
	out := make(map[int64]string, len(ids))
	for name, id := range ids {
		out[id] = name
	}
	return out
}

type simpleNode int64

func (n simpleNode) ID() int64 { return int64(n) }
