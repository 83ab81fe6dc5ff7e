// Package main is the entry point for rush-sidecar, which writes and
// inspects the .metadata files that register plugins with rush.
package main

import (
	"os"
)

// Version information set at build time.
var version = "dev"

func main() {
	cmd := NewRootCmd()
	cmd.Version = version
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
