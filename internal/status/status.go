// Package status implements the Status Sink (spec §4.8): a best-effort,
// periodic record of which packages are still pending and which have
// already built, written so an operator (or another tool) can inspect
// build progress without parsing console output.
package status

import (
	"bytes"
	"log"
	"os"
	"path/filepath"

	"github.com/google/renameio"
)

// Sink writes pending.txt/built.txt under dir on every Publish call.
// Writes are atomic (one name per line, rename-into-place via renameio)
// but never fatal: a write failure is logged and swallowed, matching
// spec §4.8's "best-effort" framing — progress reporting must never be
// the reason a build aborts.
type Sink struct {
	dir string
}

// New returns a Sink writing under dir. dir is created on first Publish
// if it does not already exist.
func New(dir string) *Sink {
	return &Sink{dir: dir}
}

// Publish overwrites pending.txt and built.txt with the given name
// lists, one name per line. Callers pass already-sorted slices (the
// Scheduler sorts before calling Publish) so the files are diffable
// across waves.
func (s *Sink) Publish(pending, built []string) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		log.Printf("status: creating %s: %v", s.dir, err)
	}
	if err := writeLines(filepath.Join(s.dir, "pending.txt"), pending); err != nil {
		log.Printf("status: writing pending.txt: %v", err)
	}
	if err := writeLines(filepath.Join(s.dir, "built.txt"), built); err != nil {
		log.Printf("status: writing built.txt: %v", err)
	}
	return nil
}

func writeLines(path string, names []string) error {
	var buf bytes.Buffer
	for _, n := range names {
		buf.WriteString(n)
		buf.WriteByte('\n')
	}
	return renameio.WriteFile(path, buf.Bytes(), 0o644)
}
