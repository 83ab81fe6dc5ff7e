// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

package plugin

import (
	"errors"
	"fmt"

	"github.com/samber/oops"
)

// Error codes attached to registry errors.
const (
	CodeNotFound   = "COMMAND_NOT_FOUND"
	CodeLoadFailed = "PLUGIN_LOAD_FAILED"
	CodePoisoned   = "REGISTRY_POISONED"
	CodeClosed     = "HANDLE_CLOSED"
)

// Sentinels for errors.Is.
var (
	ErrNotFound     = errors.New("command not found")
	ErrLoadFailed   = errors.New("plugin load failed")
	ErrPoisoned     = errors.New("plugin registry poisoned")
	ErrHandleClosed = errors.New("plugin handle closed")
)

func notFound(name string) error {
	return oops.Code(CodeNotFound).In("plugin").With("plugin", name).Wrap(ErrNotFound)
}

func loadFailed(name, path string, err error) error {
	return oops.Code(CodeLoadFailed).
		In("plugin").
		With("plugin", name).
		With("path", path).
		Wrap(fmt.Errorf("%w: %w", ErrLoadFailed, err))
}

func poisoned(cause any) error {
	return oops.Code(CodePoisoned).
		In("plugin").
		With("panic", fmt.Sprint(cause)).
		Hint("restart the shell").
		Wrap(ErrPoisoned)
}

func handleClosed(name string) error {
	return oops.Code(CodeClosed).In("plugin").With("plugin", name).Wrap(ErrHandleClosed)
}
