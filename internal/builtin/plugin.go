// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

package builtin

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rushsh/rush/internal/plugin"
	"github.com/rushsh/rush/pkg/abi"
)

// Plugins is the plugin registry as seen by the plugin builtin.
type Plugins interface {
	Get(ctx context.Context, name string) (*plugin.Handle, error)
	Reload(ctx context.Context, name string) (*plugin.Handle, error)
	Entries() ([]plugin.Entry, error)
}

const pluginUsage = `Usage: plugin [-h|--help] [-v|--version] <SUB-COMMAND> [ARGS]

Inspect and manage command plugins.

Sub-commands:
  desc, description  print a plugin's one-line description
  help               print a plugin's help text
  version            print a plugin's version
  reload             load a plugin again from disk
  list               list registered plugins`

// subUsage holds the usage line of each sub-command.
var subUsage = map[string]string{
	"desc":        "Usage: plugin desc [--] <NAME>\n\nPrint the description of plugin NAME.",
	"description": "Usage: plugin description [--] <NAME>\n\nPrint the description of plugin NAME.",
	"help":        "Usage: plugin help [--] <NAME>\n\nPrint the help text of plugin NAME.",
	"version":     "Usage: plugin version [--] <NAME>\n\nPrint the version of plugin NAME.",
	"reload":      "Usage: plugin reload [--] <NAME>\n\nDrop the loaded copy of plugin NAME and load it again.",
	"list":        "Usage: plugin list\n\nList registered plugins as NAME, state and path.",
}

// getters maps introspection sub-commands to the method they call.
var getters = map[string]abi.Getter{
	"desc":        abi.GetDesc,
	"description": abi.GetDesc,
	"help":        abi.GetHelp,
	"version":     abi.GetVersion,
}

// Plugin is the plugin builtin. All output goes to Stderr.
type Plugin struct {
	Builtins *Registry
	Plugins  Plugins
	Stderr   io.Writer
	Version  string
}

// PrintHelp writes the usage text.
func (p *Plugin) PrintHelp() {
	_, _ = fmt.Fprintln(p.Stderr, pluginUsage)
}

// PrintVersion writes the shell version.
func (p *Plugin) PrintVersion() {
	_, _ = fmt.Fprintf(p.Stderr, "plugin %s\n", p.Version)
}

// Execute dispatches to a sub-command.
func (p *Plugin) Execute(ctx context.Context, argv []string) abi.ExecResult {
	if len(argv) == 0 {
		return abi.Fail(abi.CodeMissingArgument, "plugin: missing sub-command")
	}

	sub, args := argv[0], argv[1:]
	switch sub {
	case "-h", "--help", "-v", "--version":
		if len(args) > 0 {
			return abi.Fail(abi.CodeInvalidArgs, "plugin: unexpected argument %s", args[0])
		}
		if sub == "-h" || sub == "--help" {
			p.PrintHelp()
		} else {
			p.PrintVersion()
		}
		return abi.OK()
	case "list":
		return p.list(args)
	case "reload":
		return p.withName(ctx, sub, args, p.reload)
	}

	getter, ok := getters[sub]
	if !ok {
		return abi.Fail(abi.CodeUnimplemented, "plugin: %s sub-command not implemented", sub)
	}
	return p.withName(ctx, sub, args, func(ctx context.Context, name string) abi.ExecResult {
		return p.introspect(ctx, sub, name, getter)
	})
}

// operand returns the single operand of a sub-command, after an optional
// leading "--". A sole "--help" prints the sub-command usage instead.
func (p *Plugin) operand(sub string, args []string) (string, *abi.ExecResult) {
	if len(args) > 0 && args[0] == "--" {
		args = args[1:]
	}
	switch {
	case len(args) == 0:
		res := abi.Fail(abi.CodeInvalidArgs, "plugin-%s: missing argument", sub)
		return "", &res
	case len(args) > 1:
		res := abi.Fail(abi.CodeInvalidArgs, "plugin-%s: too many arguments", sub)
		return "", &res
	case args[0] == "--help":
		_, _ = fmt.Fprintln(p.Stderr, subUsage[sub])
		res := abi.OK()
		return "", &res
	}
	return args[0], nil
}

func (p *Plugin) withName(ctx context.Context, sub string, args []string, fn func(context.Context, string) abi.ExecResult) abi.ExecResult {
	name, res := p.operand(sub, args)
	if res != nil {
		return *res
	}
	if p.Builtins != nil && p.Builtins.Contains(name) {
		return abi.Fail(abi.CodeNotAPlugin, "plugin-%s: %s is a shell builtin", sub, name)
	}
	return fn(ctx, name)
}

func (p *Plugin) introspect(ctx context.Context, sub, name string, getter abi.Getter) abi.ExecResult {
	h, err := p.Plugins.Get(ctx, name)
	if err != nil {
		return failure(sub, name, err)
	}
	defer h.Release()

	s, err := h.Get(ctx, getter)
	if err != nil {
		return failure(sub, name, err)
	}
	_, _ = fmt.Fprintln(p.Stderr, s)
	return abi.OK()
}

func (p *Plugin) reload(ctx context.Context, name string) abi.ExecResult {
	h, err := p.Plugins.Reload(ctx, name)
	if err != nil {
		return failure("reload", name, err)
	}
	h.Release()
	_, _ = fmt.Fprintf(p.Stderr, "%s: plugin reloaded\n", name)
	return abi.OK()
}

func (p *Plugin) list(args []string) abi.ExecResult {
	switch {
	case len(args) == 1 && args[0] == "--help":
		_, _ = fmt.Fprintln(p.Stderr, subUsage["list"])
		return abi.OK()
	case len(args) > 0:
		return abi.Fail(abi.CodeInvalidArgs, "plugin-list: too many arguments")
	}

	entries, err := p.Plugins.Entries()
	if err != nil {
		return abi.Fail(abi.CodePluginFailure, "plugin-list: %v", err)
	}
	for _, e := range entries {
		state := "unloaded"
		if e.Loaded {
			state = "loaded"
		}
		_, _ = fmt.Fprintf(p.Stderr, "%s\t%s\t%s\n", e.Name, state, e.Path)
	}
	return abi.OK()
}

func failure(sub, name string, err error) abi.ExecResult {
	if errors.Is(err, plugin.ErrNotFound) {
		return abi.Fail(abi.CodePluginNotFound, "plugin-%s: %s plugin not found", sub, name)
	}
	return abi.Fail(abi.CodePluginFailure, "plugin-%s: %s: %v", sub, name, err)
}
