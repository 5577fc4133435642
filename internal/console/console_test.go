package console

import (
	"bytes"
	"strings"
	"testing"
)

func TestRunSingleWorkerPrefix(t *testing.T) {
	var buf bytes.Buffer
	m := New(&buf, false, 1)

	lines := make(chan *Line, 4)
	lines <- &Line{Text: []byte("building\n"), Package: "zlib", Slot: 0}
	lines <- nil

	if err := m.Run(lines); err != nil {
		t.Fatal(err)
	}
	want := "zlib: building\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestRunMultiWorkerPrefix(t *testing.T) {
	var buf bytes.Buffer
	m := New(&buf, false, 3)

	lines := make(chan *Line, 4)
	lines <- &Line{Text: []byte("building\n"), Package: "zlib", Slot: 2}
	lines <- nil

	if err := m.Run(lines); err != nil {
		t.Fatal(err)
	}
	want := "[2]:zlib: building\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestRunColourWrapsPrefixAndText(t *testing.T) {
	var buf bytes.Buffer
	m := New(&buf, true, 1)

	lines := make(chan *Line, 2)
	lines <- &Line{Text: []byte("hi\n"), Package: "pkg", Slot: 1}
	lines <- nil

	if err := m.Run(lines); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, palette[1]) {
		t.Errorf("output %q does not start with slot 1's colour code", out)
	}
	if !strings.HasSuffix(out, resetSeq) {
		t.Errorf("output %q does not end with reset sequence", out)
	}
}

func TestRunStopsOnTerminator(t *testing.T) {
	var buf bytes.Buffer
	m := New(&buf, false, 1)

	lines := make(chan *Line, 1)
	lines <- nil

	if err := m.Run(lines); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output before terminator, got %q", buf.String())
	}
}
