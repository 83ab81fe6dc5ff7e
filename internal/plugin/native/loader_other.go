// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

//go:build !(darwin || freebsd || linux)

package native

import (
	"context"
	"runtime"

	"github.com/samber/oops"

	"github.com/rushsh/rush/pkg/abi"
)

// Loader reports native plugins as unsupported on this platform.
type Loader struct{}

// NewLoader creates a native loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Open always fails.
func (l *Loader) Open(_ context.Context, name, path string) (abi.Command, error) {
	return nil, oops.In("native").With("plugin", name).With("path", path).
		Errorf("native plugins are not supported on %s", runtime.GOOS)
}
