// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

package command

import (
	"strings"
)

// Tokenize splits a command line on runs of Unicode whitespace. The first
// token is the command name and the rest are its arguments. ok is false for
// a blank line. There is no quoting or escaping.
func Tokenize(line string) (name string, args []string, ok bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil, false
	}
	return fields[0], fields[1:], true
}
