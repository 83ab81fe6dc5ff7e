// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

package lineedit

import (
	"errors"
	"io"
	"os"
	"sync"

	"github.com/samber/oops"
	"golang.org/x/term"
)

const keyCtrlC = 0x03

// History is the read side of the shell history. The terminal browses it
// with the arrow keys but never adds to it; the caller decides what is kept.
type History interface {
	Len() int
	At(idx int) string
}

// browseOnly adapts History to term.History with Add as a no-op.
type browseOnly struct {
	History
}

func (browseOnly) Add(string) {}

// emptyHistory is used when no history is supplied.
type emptyHistory struct{}

func (emptyHistory) Len() int      { return 0 }
func (emptyHistory) At(int) string { panic("lineedit: empty history") }
func (emptyHistory) Add(string)    {}

// interruptCounter counts Ctrl-C bytes passing through to the terminal. The
// terminal reports Ctrl-C as io.EOF, as it does Ctrl-D; the count tells the
// two apart.
type interruptCounter struct {
	r       io.Reader
	mu      sync.Mutex
	pending int
}

func (c *interruptCounter) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	for _, b := range p[:n] {
		if b == keyCtrlC {
			c.mu.Lock()
			c.pending++
			c.mu.Unlock()
		}
	}
	return n, err
}

func (c *interruptCounter) take() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending > 0 {
		c.pending--
		return true
	}
	return false
}

// Terminal is an interactive line editor. The terminal is in raw mode only
// while a line is being read.
type Terminal struct {
	fd   int
	term *term.Terminal
	intr *interruptCounter
}

// NewTerminal creates an editor reading stdin and echoing to out.
func NewTerminal(stdin *os.File, out io.Writer, hist History) *Terminal {
	return newTerminal(int(stdin.Fd()), stdin, out, hist) //nolint:gosec // fd fits in int
}

func newTerminal(fd int, in io.Reader, out io.Writer, hist History) *Terminal {
	intr := &interruptCounter{r: in}
	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{intr, out}, "")
	if hist != nil {
		t.History = browseOnly{hist}
	} else {
		t.History = emptyHistory{}
	}
	return &Terminal{fd: fd, term: t, intr: intr}
}

// IsTerminal reports whether f is connected to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}

// SetPrompt sets the prompt shown before the next read.
func (t *Terminal) SetPrompt(prompt string) {
	t.term.SetPrompt(prompt)
}

// ReadLine reads one edited line.
func (t *Terminal) ReadLine() (string, error) {
	state, err := term.MakeRaw(t.fd)
	if err != nil {
		return "", oops.In("lineedit").Wrapf(err, "enter raw mode")
	}
	defer func() { _ = term.Restore(t.fd, state) }()

	if w, h, err := term.GetSize(t.fd); err == nil {
		_ = t.term.SetSize(w, h)
	}
	return t.read()
}

func (t *Terminal) read() (string, error) {
	line, err := t.term.ReadLine()
	if errors.Is(err, io.EOF) && t.intr.take() {
		return "", ErrInterrupted
	}
	return line, err
}
