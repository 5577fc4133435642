package status

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPublishWritesPendingAndBuiltFiles(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	if err := s.Publish([]string{"b", "c"}, []string{"a"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	pending, err := os.ReadFile(filepath.Join(dir, "pending.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(pending) != "b\nc\n" {
		t.Errorf("pending.txt = %q, want %q", pending, "b\nc\n")
	}

	built, err := os.ReadFile(filepath.Join(dir, "built.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(built) != "a\n" {
		t.Errorf("built.txt = %q, want %q", built, "a\n")
	}
}

func TestPublishOverwritesOnSubsequentWaves(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	if err := s.Publish([]string{"a"}, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.Publish(nil, []string{"a"}); err != nil {
		t.Fatal(err)
	}

	pending, err := os.ReadFile(filepath.Join(dir, "pending.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(pending) != "" {
		t.Errorf("pending.txt = %q, want empty after second wave", pending)
	}
}
