package resolve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bifferos/afterpkg/internal/recipe"
)

type fakeSatisfied map[string]bool

func (f fakeSatisfied) IsSatisfied(name string) bool { return f[name] }

func buildIndex(t *testing.T, requires map[string][]string) *recipe.Index {
	t.Helper()
	root := t.TempDir()
	for name, deps := range requires {
		dir := filepath.Join(root, "libraries", name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		reqLine := ""
		for i, d := range deps {
			if i > 0 {
				reqLine += " "
			}
			reqLine += d
		}
		contents := `PRGNAM="` + name + `"` + "\n" + `REQUIRES="` + reqLine + `"` + "\n"
		if err := os.WriteFile(filepath.Join(dir, name+".info"), []byte(contents), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	idx, err := recipe.Open(root)
	if err != nil {
		t.Fatal(err)
	}
	return idx
}

// diamond: target depends on b and c, both depend on base.
func TestResolveDiamondDependencyDeduplicates(t *testing.T) {
	idx := buildIndex(t, map[string][]string{
		"target": {"b", "c"},
		"b":      {"base"},
		"c":      {"base"},
		"base":   {},
	})
	r := New(idx, fakeSatisfied{})

	got, err := r.Resolve([]string{"target"}, true)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"base", "b", "c", "target"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Resolve mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveSkipsSatisfiedDependencies(t *testing.T) {
	idx := buildIndex(t, map[string][]string{
		"target": {"dep"},
		"dep":    {},
	})
	r := New(idx, fakeSatisfied{"dep": true})

	got, err := r.Resolve([]string{"target"}, true)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"target"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Resolve mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveIgnoresSatisfiedWhenSkipDisabled(t *testing.T) {
	idx := buildIndex(t, map[string][]string{
		"target": {"dep"},
		"dep":    {},
	})
	r := New(idx, fakeSatisfied{"dep": true, "target": true})

	got, err := r.Resolve([]string{"target"}, false)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"dep", "target"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Resolve mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveUnknownTargetErrors(t *testing.T) {
	idx := buildIndex(t, map[string][]string{"a": {}})
	r := New(idx, fakeSatisfied{})

	if _, err := r.Resolve([]string{"nope"}, true); err == nil {
		t.Fatal("expected UnknownPackageError, got nil")
	} else if _, ok := err.(*recipe.UnknownPackageError); !ok {
		t.Errorf("error = %T, want *recipe.UnknownPackageError", err)
	}
}

func TestResolveSiblingOrderIsLexicographic(t *testing.T) {
	idx := buildIndex(t, map[string][]string{
		"target": {"zeta", "alpha"},
		"zeta":   {},
		"alpha":  {},
	})
	r := New(idx, fakeSatisfied{})

	got, err := r.Resolve([]string{"target"}, true)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"alpha", "zeta", "target"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Resolve mismatch (-want +got):\n%s", diff)
	}
}
