// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

// Package env holds the ordered directory lists rush searches for plugins and
// configuration.
package env

import (
	"path/filepath"
	"slices"
	"sync"

	"github.com/rushsh/rush/internal/xdg"
)

// System directories searched after the user's own.
var (
	SystemDataDirs   = []string{"/usr/local/share/rush", "/usr/share/rush"}
	SystemConfigDirs = []string{"/etc/rush"}
)

// DirList is an ordered list of directories without duplicates.
// It is safe for concurrent use; the zero value is an empty list.
type DirList struct {
	mu   sync.RWMutex
	dirs []string
}

// NewDirList returns a list seeded with dirs, appended in order.
func NewDirList(dirs ...string) *DirList {
	l := &DirList{}
	for _, d := range dirs {
		l.Add(d, false)
	}
	return l
}

// Add inserts path unless it is already present. Prepended paths go to the
// front, others to the back. It reports whether the list changed.
func (l *DirList) Add(path string, prepend bool) bool {
	path = filepath.Clean(path)

	l.mu.Lock()
	defer l.mu.Unlock()

	if slices.Contains(l.dirs, path) {
		return false
	}
	if prepend {
		l.dirs = slices.Insert(l.dirs, 0, path)
	} else {
		l.dirs = append(l.dirs, path)
	}
	return true
}

// Contains reports whether path is in the list.
func (l *DirList) Contains(path string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Contains(l.dirs, filepath.Clean(path))
}

// Paths returns a copy of the list in search order.
func (l *DirList) Paths() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.dirs)
}

// Len returns the number of directories.
func (l *DirList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.dirs)
}

// SearchPaths groups the data and config directory lists.
type SearchPaths struct {
	Data   *DirList
	Config *DirList
}

// Defaults returns search paths holding only the system directories.
func Defaults() *SearchPaths {
	return &SearchPaths{
		Data:   NewDirList(SystemDataDirs...),
		Config: NewDirList(SystemConfigDirs...),
	}
}

// Resolve returns the default search paths with the user's XDG data and
// config directories prepended. A missing HOME is an error.
func Resolve() (*SearchPaths, error) {
	sp := Defaults()
	data, err := xdg.DataDir()
	if err != nil {
		return nil, err
	}
	cfg, err := xdg.ConfigDir()
	if err != nil {
		return nil, err
	}
	sp.Data.Add(data, true)
	sp.Config.Add(cfg, true)
	return sp, nil
}
