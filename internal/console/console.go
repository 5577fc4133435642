// Package console implements the Console Multiplexer (spec §4.7): a
// single writer draining a tagged-line channel from all workers,
// colourising and prefixing each line by originating worker slot.
package console

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// Line is one tagged chunk of worker output. A nil *Line read from the
// channel is the terminator described in spec §4.7 ((none, none, none)).
type Line struct {
	Text    []byte
	Package string
	Slot    int
}

// palette is the fixed 6-entry ANSI colour table selected by slot mod 6
// (spec §4.7): normal, red, blue, yellow, magenta, cyan.
var palette = [6]string{
	"\x1b[39m", // normal
	"\x1b[91m", // red
	"\x1b[94m", // blue
	"\x1b[93m", // yellow
	"\x1b[95m", // magenta
	"\x1b[96m", // cyan
}

const resetSeq = "\x1b[0m"

// AutoColour reports whether colour output should default to on, that is
// whether w is a terminal. It does not look at -nocolour; the caller
// combines that flag with this result. Detecting
// the terminal this way (rather than distri's own manual
// unix.IoctlGetTermios call in cmd/distri/batch.go) is the corpus's more
// common idiom, via the go-isatty dependency the pack already carries.
func AutoColour(w *os.File) bool {
	return isatty.IsTerminal(w.Fd()) || isatty.IsCygwinTerminal(w.Fd())
}

// Multiplexer is the single task that owns stdout for the duration of a
// build.
type Multiplexer struct {
	w           io.Writer
	colour      bool
	workerCount int
}

// New constructs a Multiplexer writing to w. workerCount controls the
// prefix format (spec §4.7: "<name>: " for a single worker,
// "[<slot>]:<name>: " otherwise).
func New(w io.Writer, colour bool, workerCount int) *Multiplexer {
	return &Multiplexer{w: w, colour: colour, workerCount: workerCount}
}

// Run drains lines until it reads a nil terminator, then returns. Each
// Line is written with a single Write call so that per-line atomicity
// holds even when multiple workers race to send (spec §4.7's ordering
// guarantee: "a single line... appears contiguously").
func (m *Multiplexer) Run(lines <-chan *Line) error {
	for l := range lines {
		if l == nil {
			return nil
		}

		var prefix string
		if m.workerCount == 1 {
			prefix = fmt.Sprintf("%s: ", l.Package)
		} else {
			prefix = fmt.Sprintf("[%d]:%s: ", l.Slot, l.Package)
		}

		colourOn, colourOff := "", ""
		if m.colour {
			colourOn = palette[l.Slot%len(palette)]
			colourOff = resetSeq
		}

		if _, err := fmt.Fprintf(m.w, "%s%s%s%s", colourOn, prefix, l.Text, colourOff); err != nil {
			return err
		}
	}
	return nil
}
