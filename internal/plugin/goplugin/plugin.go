// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

package goplugin

import (
	"context"

	hashiplug "github.com/hashicorp/go-plugin"

	"github.com/rushsh/rush/pkg/abi"
	"github.com/rushsh/rush/pkg/pluginsdk"
)

// HandshakeConfig is imported from pluginsdk to ensure host and plugins
// use identical configuration. Do not define locally to prevent drift.
var HandshakeConfig = pluginsdk.HandshakeConfig

// PluginMap is the map of plugins we can dispense.
var PluginMap = pluginsdk.PluginMap(nil)

// Remote is the plugin process as seen through RPC.
type Remote interface {
	ABIVersion(ctx context.Context) (string, error)
	Load(ctx context.Context) error
	Info(ctx context.Context) (abi.CommandInfo, error)
	Exec(ctx context.Context, args pluginsdk.ExecArgs) (pluginsdk.ExecReply, error)
}

// Compile-time interface check.
var _ Remote = (*pluginsdk.RPCClient)(nil)

// PluginClient wraps go-plugin client for testability.
type PluginClient interface {
	// Client returns the RPC client protocol.
	Client() (hashiplug.ClientProtocol, error)
	// Kill terminates the plugin process.
	Kill()
}

// ClientFactory creates plugin clients.
type ClientFactory interface {
	// NewClient creates a client for the given executable path.
	NewClient(execPath string) PluginClient
}
