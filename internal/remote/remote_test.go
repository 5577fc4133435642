package remote

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWrapLocalIsIdentity(t *testing.T) {
	s := Local()
	if got := s.Wrap("echo hi"); got != "echo hi" {
		t.Errorf("Wrap = %q, want unchanged command", got)
	}
}

func TestWrapRemoteWrapsViaSSH(t *testing.T) {
	s := &Shim{Host: "builder"}
	got := s.Wrap("echo hi")
	if got == "echo hi" {
		t.Error("Wrap should have wrapped the command for a remote host")
	}
}

func TestRunLocalExecutesCommand(t *testing.T) {
	s := Local()
	out, err := s.Run("echo hello")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if string(out) != "hello\n" {
		t.Errorf("Run output = %q, want %q", out, "hello\n")
	}
}

func TestSendLocalCopiesTreeContents(t *testing.T) {
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "a.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(src, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "sub", "b.txt"), []byte("bye"), 0o644); err != nil {
		t.Fatal(err)
	}

	dest := t.TempDir()
	s := Local()
	if err := s.Send(src, dest); err != nil {
		t.Fatalf("Send: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dest, "a.txt"))
	if err != nil {
		t.Fatalf("reading copied file: %v", err)
	}
	if string(got) != "hi" {
		t.Errorf("a.txt = %q, want hi", got)
	}
	got, err = os.ReadFile(filepath.Join(dest, "sub", "b.txt"))
	if err != nil {
		t.Fatalf("reading copied nested file: %v", err)
	}
	if string(got) != "bye" {
		t.Errorf("sub/b.txt = %q, want bye", got)
	}
}
