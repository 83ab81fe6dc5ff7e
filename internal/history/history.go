// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

// Package history keeps the shell's command history in memory and in a
// line-oriented file.
package history

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/samber/oops"
)

// DefaultSize bounds the number of retained entries.
const DefaultSize = 1000

// FileName is the history file inside the user cache dir.
const FileName = ".history"

// History is a bounded list of command lines, oldest first.
type History struct {
	mu      sync.RWMutex
	entries []string
	max     int
}

// New creates a history holding at most max entries. A non-positive max
// uses DefaultSize.
func New(max int) *History {
	if max <= 0 {
		max = DefaultSize
	}
	return &History{max: max}
}

// Add appends line. Blank lines are ignored.
func (h *History) Add(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, line)
	h.trim()
}

func (h *History) trim() {
	if over := len(h.entries) - h.max; over > 0 {
		h.entries = append([]string(nil), h.entries[over:]...)
	}
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// At returns the entry idx steps back from the most recent one, which is
// At(0). It panics if idx is out of range.
func (h *History) At(idx int) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.entries[len(h.entries)-1-idx]
}

// Entries returns a copy of all entries, oldest first.
func (h *History) Entries() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]string(nil), h.entries...)
}

// Ensure creates path and its parent directory if they do not exist.
func Ensure(path string) error {
	errb := oops.Code("ENVIRONMENT").In("history").With("path", path)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errb.Wrapf(err, "create history directory")
	}
	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_RDONLY, 0o600)
	if err != nil {
		return errb.Wrapf(err, "create history file")
	}
	return f.Close()
}

// Load appends the entries stored at path. A missing file is not an error.
func (h *History) Load(path string) error {
	f, err := os.Open(filepath.Clean(path))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return oops.In("history").With("path", path).Wrapf(err, "open history")
	}
	defer func() { _ = f.Close() }()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	for sc.Scan() {
		if line := sc.Text(); strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return oops.In("history").With("path", path).Wrapf(err, "read history")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, lines...)
	h.trim()
	return nil
}

// Save writes all entries to path, replacing it atomically.
func (h *History) Save(path string) error {
	errb := oops.In("history").With("path", path)
	entries := h.Entries()

	tmp, err := os.CreateTemp(filepath.Dir(path), ".history-*")
	if err != nil {
		return errb.Wrapf(err, "create temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	w := bufio.NewWriter(tmp)
	for _, e := range entries {
		_, _ = w.WriteString(e)
		_ = w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return errb.Wrapf(err, "write history")
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return errb.Wrapf(err, "chmod history")
	}
	if err := tmp.Close(); err != nil {
		return errb.Wrapf(err, "close history")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errb.Wrapf(err, "replace history")
	}
	return nil
}
