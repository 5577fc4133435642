package worker

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bifferos/afterpkg/internal/console"
	"github.com/bifferos/afterpkg/internal/lock"
	"github.com/bifferos/afterpkg/internal/oracle"
	"github.com/bifferos/afterpkg/internal/recipe"
	"github.com/bifferos/afterpkg/internal/remote"
	"github.com/bifferos/afterpkg/internal/resolve"
	"github.com/bifferos/afterpkg/internal/scripts"
)

func newFixtureIndex(t *testing.T) *recipe.Index {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "libraries", "foo")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	info := `PRGNAM="foo"` + "\n" +
		`VERSION="1.0"` + "\n" +
		`REQUIRES=""` + "\n" +
		`DOWNLOAD="http://example.invalid/foo-1.0.tgz"` + "\n" +
		`MD5SUM="deadbeef"` + "\n"
	if err := os.WriteFile(filepath.Join(dir, "foo.info"), []byte(info), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "foo.SlackBuild"), []byte("#!/bin/sh\necho build\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	idx, err := recipe.Open(root)
	if err != nil {
		t.Fatal(err)
	}
	return idx
}

func TestBuildDryRunCompletesWithoutExecutingAnything(t *testing.T) {
	idx := newFixtureIndex(t)
	scr, err := scripts.Open(t.TempDir(), scripts.Suppress{})
	if err != nil {
		t.Fatal(err)
	}
	oc := oracle.New(idx, oracle.Options{}, map[string]bool{}, nil, nil, map[string]bool{})
	resolver := resolve.New(idx, oc)

	consoleCh := make(chan *console.Line, 64)
	w := New(t.TempDir(), t.TempDir(), idx, scr, oc, resolver,
		new(lock.Lock), new(lock.Lock), remote.Local(), consoleCh, Options{DryRun: true})

	if err := w.Build(context.Background(), "foo", 0); err != nil {
		t.Fatalf("Build: %v", err)
	}
}

func TestBuildDryRunSerializesInstallerLock(t *testing.T) {
	idx := newFixtureIndex(t)
	scr, err := scripts.Open(t.TempDir(), scripts.Suppress{})
	if err != nil {
		t.Fatal(err)
	}
	oc := oracle.New(idx, oracle.Options{}, map[string]bool{}, nil, nil, map[string]bool{})
	resolver := resolve.New(idx, oc)

	installer := &lock.Lock{}
	counter := &lock.Counter{}
	installer.Instrument(counter)

	consoleCh := make(chan *console.Line, 64)
	w := New(t.TempDir(), t.TempDir(), idx, scr, oc, resolver,
		installer, new(lock.Lock), remote.Local(), consoleCh, Options{DryRun: true})

	if err := w.Build(context.Background(), "foo", 0); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if counter.Count == 0 {
		t.Error("expected the installer lock to be entered at least once in dry-run mode")
	}
	if counter.Overlap {
		t.Error("installer lock entries should never overlap")
	}
}

func TestArtifactMissingErrorMessage(t *testing.T) {
	err := &ArtifactMissingError{Name: "foo", Pattern: "/tmp/foo-*", Matches: []string{"/tmp/foo-1.tgz", "/tmp/foo-2.tgz"}}
	if err.Error() == "" {
		t.Error("expected non-empty error message")
	}
}
