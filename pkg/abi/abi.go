// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

// Package abi defines the contract between the rush host and its command
// plugins: the descriptive record a plugin reports, the result of running it,
// the conventional status codes, and the method table every loader realises.
package abi

import (
	"context"
	"fmt"
)

// Status codes carried by ExecResult.Code.
const (
	CodeSuccess         uint8 = 0
	CodeFailure         uint8 = 1
	CodeInvalidArgs     uint8 = 2
	CodeNotAPlugin      uint8 = 64
	CodePluginNotFound  uint8 = 65
	CodeMissingArgument uint8 = 100
	CodePluginFailure   uint8 = 101
	CodeUnimplemented   uint8 = 102
	CodeNotFound        uint8 = 127
	CodeParseFailure    uint8 = 255
)

// CommandInfo describes a plugin. It is immutable for the lifetime of a
// loaded plugin.
type CommandInfo struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Version     string `json:"version" yaml:"version"`
	Help        string `json:"help" yaml:"help"`
}

// ExecResult is the outcome of one command invocation. A zero Code means the
// command completed; Message is then empty by convention.
type ExecResult struct {
	Code    uint8
	Message string
}

// OK returns a successful result.
func OK() ExecResult {
	return ExecResult{}
}

// Fail returns a result with the given code and a formatted message.
func Fail(code uint8, format string, args ...any) ExecResult {
	return ExecResult{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Success reports whether the result represents a completed operation.
func (r ExecResult) Success() bool {
	return r.Code == CodeSuccess
}

// Command is the method table a loaded plugin exposes to the host.
//
// Load is called exactly once per loaded generation before any other method.
// The error results report transport failures (a crashed subprocess, a
// script runtime error); a command that merely fails reports it through
// ExecResult. Close releases the underlying library, state, or process.
type Command interface {
	Load(ctx context.Context) error
	Info(ctx context.Context) (CommandInfo, error)
	Version(ctx context.Context) (string, error)
	Help(ctx context.Context) (string, error)
	Desc(ctx context.Context) (string, error)
	Exec(ctx context.Context, argv []string) (ExecResult, error)
	Close() error
}

// Getter selects one of the string-valued introspection methods of a Command.
type Getter func(ctx context.Context, cmd Command) (string, error)

// Introspection getters used by the plugin builtin.
var (
	GetDesc    Getter = func(ctx context.Context, c Command) (string, error) { return c.Desc(ctx) }
	GetHelp    Getter = func(ctx context.Context, c Command) (string, error) { return c.Help(ctx) }
	GetVersion Getter = func(ctx context.Context, c Command) (string, error) { return c.Version(ctx) }
)
