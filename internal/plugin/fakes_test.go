// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

package plugin_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rushsh/rush/pkg/abi"
)

// fakeCommand records calls made through the plugin method table.
type fakeCommand struct {
	name    string
	loadErr error
	panicky bool
	gate    <-chan struct{}

	loads    *atomic.Int32
	canceled *atomic.Int32
	execs    atomic.Int32
	closes   atomic.Int32
}

func (f *fakeCommand) Load(ctx context.Context) error {
	if f.gate != nil {
		<-f.gate
	}
	if ctx.Err() != nil {
		f.canceled.Add(1)
	}
	f.loads.Add(1)
	if f.panicky {
		panic("load exploded")
	}
	return f.loadErr
}

func (f *fakeCommand) Info(context.Context) (abi.CommandInfo, error) {
	return abi.CommandInfo{Name: f.name, Description: f.name + " desc", Version: "1.0.0", Help: f.name + " help"}, nil
}

func (f *fakeCommand) Version(context.Context) (string, error) { return "1.0.0", nil }
func (f *fakeCommand) Help(context.Context) (string, error)    { return f.name + " help", nil }
func (f *fakeCommand) Desc(context.Context) (string, error)    { return f.name + " desc", nil }

func (f *fakeCommand) Exec(_ context.Context, argv []string) (abi.ExecResult, error) {
	f.execs.Add(1)
	if len(argv) > 0 && argv[0] == "fail" {
		return abi.Fail(abi.CodeFailure, "%s: failed", f.name), nil
	}
	return abi.OK(), nil
}

func (f *fakeCommand) Close() error {
	f.closes.Add(1)
	return nil
}

// fakeLoader hands out a fresh fakeCommand per Open and counts loads across
// all of them.
type fakeLoader struct {
	mu     sync.Mutex
	opened []*fakeCommand
	loads  atomic.Int32
	// canceled counts loads that ran under a done context.
	canceled atomic.Int32
	openErr  error
	loadErr  error
	panicky  bool
	gate     chan struct{}
}

func (l *fakeLoader) Open(_ context.Context, name, _ string) (abi.Command, error) {
	if l.openErr != nil {
		return nil, l.openErr
	}
	cmd := &fakeCommand{name: name, loadErr: l.loadErr, panicky: l.panicky, gate: l.gate, loads: &l.loads, canceled: &l.canceled}
	l.mu.Lock()
	l.opened = append(l.opened, cmd)
	l.mu.Unlock()
	return cmd, nil
}

func (l *fakeLoader) commands() []*fakeCommand {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*fakeCommand(nil), l.opened...)
}

var errBoom = errors.New("boom")

// Helper functions for creating test fixtures with secure permissions.
func mkdirAll(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(path, 0o750))
}

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, content, 0o600))
}
