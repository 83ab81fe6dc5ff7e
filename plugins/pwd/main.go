// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

// Package main implements the pwd plugin for rush, which prints the
// shell's working directory.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rushsh/rush/pkg/abi"
	"github.com/rushsh/rush/pkg/pluginsdk"
)

type pwd struct {
	getwd func() (string, error)
}

func (pwd) Info() abi.CommandInfo {
	return abi.CommandInfo{
		Name:        "pwd",
		Description: "Print the current working directory",
		Version:     "1.0.0",
		Help:        "Usage: pwd",
	}
}

func (p pwd) Exec(_ context.Context, _ []string, stdout, _ io.Writer) abi.ExecResult {
	dir, err := p.getwd()
	if err != nil {
		return abi.Fail(abi.CodeFailure, "pwd: %v", err)
	}
	fmt.Fprintln(stdout, dir)
	return abi.OK()
}

func main() {
	pluginsdk.Serve(&pluginsdk.ServeConfig{Handler: pwd{getwd: os.Getwd}})
}
