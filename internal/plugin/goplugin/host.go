// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

// Package goplugin loads rush command plugins that are separate executables,
// using HashiCorp's go-plugin system over net/rpc.
package goplugin

import (
	"context"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/hashicorp/go-hclog"
	hashiplug "github.com/hashicorp/go-plugin"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/rushsh/rush/internal/plugin"
	"github.com/rushsh/rush/pkg/abi"
	"github.com/rushsh/rush/pkg/pluginsdk"
)

// Defaults for process start.
const (
	DefaultStartAttempts = 3
	DefaultStartTimeout  = 5 * time.Second
	startBackoff         = 50 * time.Millisecond
)

// Compile-time interface check.
var _ plugin.Loader = (*Loader)(nil)

// DefaultClientFactory creates real go-plugin clients.
type DefaultClientFactory struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger hclog.Logger
}

// NewClient creates a real go-plugin client.
func (f *DefaultClientFactory) NewClient(execPath string) PluginClient {
	logger := f.Logger
	if logger == nil {
		logger = hclog.New(&hclog.LoggerOptions{
			Name:   "plugin",
			Level:  hclog.Warn,
			Output: os.Stderr,
		})
	}
	return hashiplug.NewClient(&hashiplug.ClientConfig{
		HandshakeConfig:  HandshakeConfig,
		Plugins:          PluginMap,
		Cmd:              exec.Command(execPath), // #nosec G204 -- execPath comes from a sidecar in a plugin search directory
		AllowedProtocols: []hashiplug.Protocol{hashiplug.ProtocolNetRPC},
		StartTimeout:     DefaultStartTimeout,
		SyncStdout:       f.Stdout,
		SyncStderr:       f.Stderr,
		Logger:           logger,
	})
}

// Loader starts executable plugins.
type Loader struct {
	factory  ClientFactory
	attempts uint64
	stdout   io.Writer
	stderr   io.Writer
}

// Option configures a Loader.
type Option func(*Loader)

// WithClientFactory replaces the go-plugin client factory (for testing).
func WithClientFactory(f ClientFactory) Option {
	return func(l *Loader) {
		l.factory = f
	}
}

// WithStartAttempts sets how many times a plugin process start is tried.
func WithStartAttempts(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.attempts = uint64(n)
		}
	}
}

// WithOutput sets where plugin output is written.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(l *Loader) {
		l.stdout = stdout
		l.stderr = stderr
	}
}

// NewLoader creates a loader for executable plugins.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		attempts: DefaultStartAttempts,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.factory == nil {
		l.factory = &DefaultClientFactory{Stdout: l.stdout, Stderr: l.stderr}
	}
	return l
}

// Open starts the plugin process and checks its ABI version.
func (l *Loader) Open(ctx context.Context, name, path string) (abi.Command, error) {
	errb := oops.In("goplugin").With("plugin", name).With("path", path)

	info, err := os.Stat(path)
	if err != nil {
		return nil, errb.Wrapf(err, "plugin executable not accessible")
	}
	if !info.Mode().IsRegular() || info.Mode().Perm()&0o111 == 0 {
		return nil, errb.Errorf("plugin %s is not an executable file", path)
	}

	var (
		client PluginClient
		remote Remote
	)
	backoff := retry.WithMaxRetries(l.attempts-1, retry.NewConstant(startBackoff))
	err = retry.Do(ctx, backoff, func(context.Context) error {
		c := l.factory.NewClient(path)
		proto, err := c.Client()
		if err != nil {
			c.Kill()
			return retry.RetryableError(err)
		}
		raw, err := proto.Dispense(pluginsdk.PluginName)
		if err != nil {
			c.Kill()
			return err
		}
		r, ok := raw.(Remote)
		if !ok {
			c.Kill()
			return errb.Errorf("plugin %s does not implement the command protocol", name)
		}
		client, remote = c, r
		return nil
	})
	if err != nil {
		return nil, errb.Wrapf(err, "start plugin")
	}

	tag, err := remote.ABIVersion(ctx)
	if err != nil {
		client.Kill()
		return nil, errb.Wrapf(err, "query ABI version")
	}
	if err := abi.CheckVersion(tag); err != nil {
		client.Kill()
		return nil, errb.Wrap(err)
	}

	return &command{name: name, client: client, remote: remote, stdout: l.stdout, stderr: l.stderr}, nil
}

// command is one running plugin process.
type command struct {
	name   string
	client PluginClient
	remote Remote
	stdout io.Writer
	stderr io.Writer
}

func (c *command) Load(ctx context.Context) error {
	if err := c.remote.Load(ctx); err != nil {
		return oops.In("goplugin").With("plugin", c.name).Wrapf(err, "plugin load")
	}
	return nil
}

func (c *command) Info(ctx context.Context) (abi.CommandInfo, error) {
	info, err := c.remote.Info(ctx)
	if err != nil {
		return abi.CommandInfo{}, oops.In("goplugin").With("plugin", c.name).Wrapf(err, "plugin info")
	}
	return info, nil
}

func (c *command) Version(ctx context.Context) (string, error) {
	info, err := c.Info(ctx)
	return info.Version, err
}

func (c *command) Help(ctx context.Context) (string, error) {
	info, err := c.Info(ctx)
	return info.Help, err
}

func (c *command) Desc(ctx context.Context) (string, error) {
	info, err := c.Info(ctx)
	return info.Description, err
}

func (c *command) Exec(ctx context.Context, argv []string) (abi.ExecResult, error) {
	dir, _ := os.Getwd()
	reply, err := c.remote.Exec(ctx, pluginsdk.ExecArgs{Argv: argv, Dir: dir})
	if err != nil {
		return abi.ExecResult{}, oops.Code("PLUGIN_EXEC_FAILED").
			In("goplugin").
			With("plugin", c.name).
			Wrapf(err, "plugin exec")
	}
	if len(reply.Stdout) > 0 {
		_, _ = c.stdout.Write(reply.Stdout)
	}
	if len(reply.Stderr) > 0 {
		_, _ = c.stderr.Write(reply.Stderr)
	}
	return abi.ExecResult{Code: reply.Code, Message: reply.Message}, nil
}

func (c *command) Close() error {
	c.client.Kill()
	return nil
}
