// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

package command

import "errors"

// Constructor errors.
var (
	ErrNilBuiltins = errors.New("builtin registry is required")
	ErrNilPlugins  = errors.New("plugin registry is required")
)
