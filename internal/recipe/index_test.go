package recipe

import (
	"os"
	"path/filepath"
	"testing"
)

// buildTree lays out a minimal category/package/<name>.info tree and
// returns its root. requires maps package name -> REQUIRES tokens.
func buildTree(t *testing.T, category string, requires map[string][]string, python map[string]bool) string {
	t.Helper()
	root := t.TempDir()
	for name, deps := range requires {
		dir := filepath.Join(root, category, name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		reqLine := ""
		if len(deps) > 0 {
			reqLine = joinSpace(deps)
		}
		contents := `PRGNAM="` + name + `"` + "\n" +
			`VERSION="1.0"` + "\n" +
			`REQUIRES="` + reqLine + `"` + "\n"
		if err := os.WriteFile(filepath.Join(dir, name+".info"), []byte(contents), 0o644); err != nil {
			t.Fatal(err)
		}
		script := "#!/bin/sh\necho building\n"
		if python[name] {
			script = "#!/bin/sh\npython setup.py install \n"
		}
		if err := os.WriteFile(filepath.Join(dir, name+".SlackBuild"), []byte(script), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func joinSpace(ss []string) string {
	out := ss[0]
	for _, s := range ss[1:] {
		out += " " + s
	}
	return out
}

func TestIndexRequiresFiltersSentinelsAndUnknown(t *testing.T) {
	root := buildTree(t, "libraries", map[string][]string{
		"alpha": {"%README%", "beta", "not-a-recipe"},
		"beta":  {""},
	}, nil)

	idx, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}
	deps, err := idx.Requires("alpha")
	if err != nil {
		t.Fatal(err)
	}
	if len(deps) != 1 || deps[0] != "beta" {
		t.Fatalf("Requires(alpha) = %v, want [beta]", deps)
	}
}

func TestIndexIsLanguagePackage(t *testing.T) {
	root := buildTree(t, "libraries", map[string][]string{
		"python-requests": {},
		"some-c-lib":      {},
	}, map[string]bool{"some-c-lib": true})

	idx, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}
	if !idx.IsLanguagePackage("python-requests") {
		t.Error("python-requests should be a language package (name prefix)")
	}
	if !idx.IsLanguagePackage("some-c-lib") {
		t.Error("some-c-lib should be a language package (SlackBuild content)")
	}
}

func TestCheckAcyclicDetectsCycle(t *testing.T) {
	root := buildTree(t, "libraries", map[string][]string{
		"a": {"b"},
		"b": {"a"},
	}, nil)

	idx, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.CheckAcyclic(); err == nil {
		t.Fatal("expected cycle error, got nil")
	}
}

func TestCheckAcyclicAcceptsDAG(t *testing.T) {
	root := buildTree(t, "libraries", map[string][]string{
		"a": {"b"},
		"b": {},
	}, nil)

	idx, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.CheckAcyclic(); err != nil {
		t.Fatalf("unexpected cycle error: %v", err)
	}
}
