// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

package builtin

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/rushsh/rush/pkg/abi"
)

// Terminator ends the shell with the given status.
type Terminator func(code uint8)

const exitUsage = `Usage: exit [CODE]

Exit the shell with status CODE (0-255, default 0).`

// Exit is the exit builtin.
type Exit struct {
	Stderr    io.Writer
	Version   string
	Terminate Terminator
}

// PrintHelp writes the usage text.
func (e *Exit) PrintHelp() {
	_, _ = fmt.Fprintln(e.Stderr, exitUsage)
}

// PrintVersion writes the shell version.
func (e *Exit) PrintVersion() {
	_, _ = fmt.Fprintf(e.Stderr, "exit %s\n", e.Version)
}

// Execute parses an optional status and asks the shell to terminate.
func (e *Exit) Execute(_ context.Context, argv []string) abi.ExecResult {
	var code uint8
	switch len(argv) {
	case 0:
	case 1:
		n, err := strconv.ParseUint(argv[0], 10, 8)
		if err != nil {
			return abi.Fail(abi.CodeParseFailure, "exit: expected u8, found %s", argv[0])
		}
		code = uint8(n)
	default:
		return abi.Fail(abi.CodeInvalidArgs, "exit: expected 0 or 1 arguments, found %d", len(argv))
	}

	if e.Terminate != nil {
		e.Terminate(code)
	}
	return abi.OK()
}
