// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

// Package builtin implements the commands the shell provides itself.
package builtin

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/samber/oops"

	"github.com/rushsh/rush/pkg/abi"
)

// CodeExists is the error code for a duplicate builtin.
const CodeExists = "BUILTIN_EXISTS"

// ErrExists is returned when a builtin name is registered twice.
var ErrExists = errors.New("builtin already registered")

// Command is a builtin. Execute receives the arguments after the command
// name.
type Command interface {
	PrintHelp()
	PrintVersion()
	Execute(ctx context.Context, argv []string) abi.ExecResult
}

// Registry maps builtin names to commands. It is populated once at startup
// and read concurrently afterwards.
type Registry struct {
	commands map[string]Command
	mu       sync.RWMutex
}

// NewRegistry creates an empty builtin registry.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]Command),
	}
}

// Insert adds a builtin. Registering a name twice is an error.
func (r *Registry) Insert(name string, cmd Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.commands[name]; ok {
		return oops.Code(CodeExists).In("builtin").With("builtin", name).Wrap(ErrExists)
	}
	r.commands[name] = cmd
	return nil
}

// Contains reports whether name is a builtin.
func (r *Registry) Contains(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.commands[name]
	return ok
}

// Execute runs the named builtin.
func (r *Registry) Execute(ctx context.Context, name string, argv []string) abi.ExecResult {
	r.mu.RLock()
	cmd, ok := r.commands[name]
	r.mu.RUnlock()

	if !ok {
		return abi.Fail(abi.CodeFailure, "%s: builtin not found", name)
	}
	return cmd.Execute(ctx, argv)
}

// Names returns the registered builtin names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
