// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

package plugin

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rushsh/rush/pkg/abi"
	"github.com/rushsh/rush/pkg/errutil"
)

// Handle is a loaded plugin. Handles are compared by pointer identity: every
// caller that obtains a plugin from the same loaded generation gets the same
// *Handle.
//
// Each Get takes a reference that the caller gives back with Release. A
// handle retired by Reload stays usable until its last reference is
// released; the plugin is then closed.
type Handle struct {
	name string
	path string
	gen  uint64
	cmd  abi.Command

	mu      sync.Mutex
	refs    int
	retired bool
	closed  bool
}

func newHandle(name, path string, gen uint64, cmd abi.Command) *Handle {
	return &Handle{name: name, path: path, gen: gen, cmd: cmd}
}

// Name returns the registered plugin name.
func (h *Handle) Name() string { return h.name }

// Path returns the plugin file the handle was loaded from.
func (h *Handle) Path() string { return h.path }

// Generation returns the registry generation the handle belongs to.
func (h *Handle) Generation() uint64 { return h.gen }

// Info returns the plugin's descriptive record.
func (h *Handle) Info(ctx context.Context) (abi.CommandInfo, error) {
	if h.isClosed() {
		return abi.CommandInfo{}, handleClosed(h.name)
	}
	return h.cmd.Info(ctx) //nolint:wrapcheck // loaders return oops errors
}

// Version returns the plugin's version string.
func (h *Handle) Version(ctx context.Context) (string, error) {
	return h.get(ctx, abi.GetVersion)
}

// Help returns the plugin's help text.
func (h *Handle) Help(ctx context.Context) (string, error) {
	return h.get(ctx, abi.GetHelp)
}

// Desc returns the plugin's one-line description.
func (h *Handle) Desc(ctx context.Context) (string, error) {
	return h.get(ctx, abi.GetDesc)
}

// Get invokes an introspection getter on the plugin.
func (h *Handle) Get(ctx context.Context, getter abi.Getter) (string, error) {
	return h.get(ctx, getter)
}

func (h *Handle) get(ctx context.Context, getter abi.Getter) (string, error) {
	if h.isClosed() {
		return "", handleClosed(h.name)
	}
	return getter(ctx, h.cmd)
}

// Exec runs the plugin with argv, which excludes the command name.
func (h *Handle) Exec(ctx context.Context, argv []string) (abi.ExecResult, error) {
	if h.isClosed() {
		return abi.ExecResult{}, handleClosed(h.name)
	}
	if argv == nil {
		argv = []string{}
	}
	return h.cmd.Exec(ctx, argv) //nolint:wrapcheck // loaders return oops errors
}

// Release gives back the reference taken by Registry.Get.
func (h *Handle) Release() {
	h.mu.Lock()
	if h.refs > 0 {
		h.refs--
	}
	closeNow := h.retired && h.refs == 0 && !h.closed
	if closeNow {
		h.closed = true
	}
	h.mu.Unlock()

	if closeNow {
		h.shutdown()
	}
}

func (h *Handle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *Handle) acquire() {
	h.mu.Lock()
	h.refs++
	h.mu.Unlock()
}

// retire marks the handle as replaced. It reports whether the caller must
// close it now because nobody holds a reference.
func (h *Handle) retire() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.retired = true
	if h.refs == 0 && !h.closed {
		h.closed = true
		return true
	}
	return false
}

func (h *Handle) shutdown() {
	if err := h.cmd.Close(); err != nil {
		errutil.Log(context.Background(), slog.Default(), slog.LevelWarn, "closing plugin failed", err)
		return
	}
	slog.Debug("plugin closed", "plugin", h.name, "generation", h.gen)
}
