// Package main is the entry point for the rush shell.
package main

import (
	"fmt"
	"os"

	"github.com/rushsh/rush/internal/shell"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	var status int
	cmd := NewRootCmd(shell.Deps{}, &status)
	cmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
	os.Exit(status)
}
