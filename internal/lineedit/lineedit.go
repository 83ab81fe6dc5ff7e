// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

// Package lineedit reads command lines from a terminal or a plain stream.
package lineedit

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// ErrInterrupted is returned when the user cancels the current line.
var ErrInterrupted = errors.New("interrupted")

// Reader reads one line at a time after showing a prompt. ReadLine returns
// io.EOF at end of input and ErrInterrupted on Ctrl-C.
type Reader interface {
	SetPrompt(prompt string)
	ReadLine() (string, error)
}

// Plain reads lines from a non-interactive stream.
type Plain struct {
	r      *bufio.Reader
	w      io.Writer
	prompt string
}

// NewPlain creates a reader over r that writes prompts to w. A nil w
// suppresses prompts.
func NewPlain(r io.Reader, w io.Writer) *Plain {
	return &Plain{r: bufio.NewReader(r), w: w}
}

// SetPrompt sets the prompt shown before the next read.
func (p *Plain) SetPrompt(prompt string) {
	p.prompt = prompt
}

// ReadLine returns the next line without its terminator. A final line
// without a newline is returned before io.EOF.
func (p *Plain) ReadLine() (string, error) {
	if p.w != nil && p.prompt != "" {
		_, _ = io.WriteString(p.w, p.prompt)
	}
	line, err := p.r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
