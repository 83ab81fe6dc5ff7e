// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

// Package pluginsdk provides the SDK for building rush command plugins that
// run as separate executables.
//
// Executable plugins communicate with the rush host over net/rpc using the
// HashiCorp go-plugin framework. Output written to the Exec writers is
// returned to the host with the result and printed before the next prompt.
//
// Example usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"io"
//
//		"github.com/rushsh/rush/pkg/abi"
//		"github.com/rushsh/rush/pkg/pluginsdk"
//	)
//
//	type hello struct{}
//
//	func (hello) Info() abi.CommandInfo {
//		return abi.CommandInfo{Name: "hello", Description: "greet", Version: "1.0.0", Help: "Usage: hello"}
//	}
//
//	func (hello) Exec(_ context.Context, _ []string, stdout, _ io.Writer) abi.ExecResult {
//		fmt.Fprintln(stdout, "hello")
//		return abi.OK()
//	}
//
//	func main() {
//		pluginsdk.Serve(&pluginsdk.ServeConfig{Handler: hello{}})
//	}
package pluginsdk

import (
	"context"
	"io"

	hashiplug "github.com/hashicorp/go-plugin"

	"github.com/rushsh/rush/pkg/abi"
)

// PluginName is the key the command is dispensed under.
const PluginName = "command"

// Handler is the interface that executable plugins must implement.
type Handler interface {
	// Info describes the command. Version, help, and description queries
	// are answered from it.
	Info() abi.CommandInfo
	// Exec runs the command. argv excludes the command name.
	Exec(ctx context.Context, argv []string, stdout, stderr io.Writer) abi.ExecResult
}

// Loader is implemented by handlers that need one-time initialization. Load
// runs once, before the first Exec.
type Loader interface {
	Load(ctx context.Context) error
}

// HandshakeConfig is the go-plugin handshake configuration.
// Both host and plugins must use the same values.
var HandshakeConfig = hashiplug.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "RUSH_PLUGIN",
	MagicCookieValue: "rush-v1",
}

// PluginMap returns the plugin set for a host (nil handler) or a plugin.
func PluginMap(h Handler) map[string]hashiplug.Plugin {
	return map[string]hashiplug.Plugin{
		PluginName: &CommandPlugin{Impl: h},
	}
}

// ServeConfig configures the plugin server.
type ServeConfig struct {
	// Handler is the command implementation.
	// Required; Serve will panic if nil.
	Handler Handler
}

// Serve starts the plugin server. This should be called from main().
// It blocks and never returns under normal operation.
func Serve(config *ServeConfig) {
	if config == nil {
		panic("pluginsdk: config cannot be nil")
	}
	if config.Handler == nil {
		panic("pluginsdk: config.Handler cannot be nil")
	}
	hashiplug.Serve(&hashiplug.ServeConfig{
		HandshakeConfig: HandshakeConfig,
		Plugins:         PluginMap(config.Handler),
	})
}
