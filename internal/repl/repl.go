// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

// Package repl runs the shell's read-eval loop.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/rushsh/rush/internal/history"
	"github.com/rushsh/rush/internal/lineedit"
	"github.com/rushsh/rush/internal/plugin"
	"github.com/rushsh/rush/pkg/abi"
	"github.com/rushsh/rush/pkg/errutil"
)

// Defaults for prompt acquisition.
const (
	DefaultPromptPlugin = "rush-prompt"
	DefaultPrompt       = "$ "
	InterruptMarker     = "^C"
)

// Dispatcher runs one command line.
type Dispatcher interface {
	Dispatch(ctx context.Context, line string) (abi.ExecResult, error)
}

// PromptSource provides the plugin that renders the prompt.
type PromptSource interface {
	Get(ctx context.Context, name string) (*plugin.Handle, error)
}

// Config configures a REPL.
type Config struct {
	Reader       lineedit.Reader
	Dispatcher   Dispatcher
	Prompts      PromptSource
	History      *history.History
	HistoryFile  string
	PromptPlugin string
	Fallback     string
	Stderr       io.Writer
	Logger       *slog.Logger
}

// REPL is the interactive loop.
type REPL struct {
	cfg Config

	mu       sync.Mutex
	exitCode uint8
	exiting  bool
}

// New creates a REPL. Empty prompt settings use the defaults.
func New(cfg Config) *REPL {
	if cfg.PromptPlugin == "" {
		cfg.PromptPlugin = DefaultPromptPlugin
	}
	if cfg.Fallback == "" {
		cfg.Fallback = DefaultPrompt
	}
	if cfg.History == nil {
		cfg.History = history.New(history.DefaultSize)
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &REPL{cfg: cfg}
}

// Terminate asks the loop to stop after the current command. It is the exit
// builtin's terminator.
func (r *REPL) Terminate(code uint8) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exiting = true
	r.exitCode = code
}

func (r *REPL) exitRequested() (uint8, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exitCode, r.exiting
}

// Run loads history, loops until end of input or exit, then saves history.
// It returns the status the shell should exit with. A non-nil error means
// the shell could not start or a registry failed.
func (r *REPL) Run(ctx context.Context) (code uint8, err error) {
	if r.cfg.HistoryFile != "" {
		if err := history.Ensure(r.cfg.HistoryFile); err != nil {
			return 1, err
		}
		if err := r.cfg.History.Load(r.cfg.HistoryFile); err != nil {
			errutil.LogError(r.cfg.Logger, "failed to load history", err)
		}
		defer func() {
			if err := r.cfg.History.Save(r.cfg.HistoryFile); err != nil {
				errutil.LogError(r.cfg.Logger, "failed to save history", err)
			}
		}()
	}

	for {
		if err := ctx.Err(); err != nil {
			return 0, nil
		}

		r.cfg.Reader.SetPrompt(r.prompt(ctx))
		line, err := r.cfg.Reader.ReadLine()
		switch {
		case errors.Is(err, lineedit.ErrInterrupted):
			_, _ = fmt.Fprintln(r.cfg.Stderr, InterruptMarker)
			continue
		case errors.Is(err, io.EOF):
			return 0, nil
		case err != nil:
			errutil.LogError(r.cfg.Logger, "read failed", err)
			return 0, nil
		}

		if strings.TrimSpace(line) != "" {
			r.cfg.History.Add(line)
		}
		if _, err := r.cfg.Dispatcher.Dispatch(ctx, line); err != nil {
			return 1, err
		}
		if code, ok := r.exitRequested(); ok {
			return code, nil
		}
	}
}

// prompt runs the prompt plugin and returns its message, or the fallback.
func (r *REPL) prompt(ctx context.Context) string {
	h, err := r.cfg.Prompts.Get(ctx, r.cfg.PromptPlugin)
	if err != nil {
		r.cfg.Logger.DebugContext(ctx, "prompt plugin unavailable", "plugin", r.cfg.PromptPlugin, "error", err)
		return r.cfg.Fallback
	}
	defer h.Release()

	res, err := h.Exec(ctx, []string{})
	if err != nil || !res.Success() {
		r.cfg.Logger.DebugContext(ctx, "prompt plugin failed",
			"plugin", r.cfg.PromptPlugin, "code", res.Code, "error", err)
		return r.cfg.Fallback
	}
	return res.Message
}
