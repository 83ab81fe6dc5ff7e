// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

// Package main implements the echo plugin for rush.
//
// echo writes its arguments separated by single spaces, followed by a
// newline unless -n is given.
//
// Build and register it with:
//
//	go build -o ~/.local/share/rush/plugins/echo ./plugins/echo
//	rush-sidecar encode --name echo --file echo --dir ~/.local/share/rush/plugins
package main

import (
	"context"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"github.com/rushsh/rush/pkg/abi"
	"github.com/rushsh/rush/pkg/pluginsdk"
)

const usage = `Usage: echo [-n] [ARG...]

Write ARGs to standard output separated by spaces.

  -n    do not output the trailing newline`

type echo struct{}

func (echo) Info() abi.CommandInfo {
	return abi.CommandInfo{
		Name:        "echo",
		Description: "Write arguments to standard output",
		Version:     "1.0.0",
		Help:        usage,
	}
}

func (echo) Exec(_ context.Context, argv []string, stdout, _ io.Writer) abi.ExecResult {
	fs := pflag.NewFlagSet("echo", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SetInterspersed(false)
	noNewline := fs.BoolP("no-newline", "n", false, "do not output the trailing newline")
	if err := fs.Parse(argv); err != nil {
		return abi.Fail(abi.CodeInvalidArgs, "echo: %v", err)
	}

	out := strings.Join(fs.Args(), " ")
	if !*noNewline {
		out += "\n"
	}
	if _, err := io.WriteString(stdout, out); err != nil {
		return abi.Fail(abi.CodeFailure, "echo: %v", err)
	}
	return abi.OK()
}

func main() {
	pluginsdk.Serve(&pluginsdk.ServeConfig{Handler: echo{}})
}
