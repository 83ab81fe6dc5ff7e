// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

// Package shell assembles the registries, loaders and read-eval loop that
// make up an interactive rush session.
package shell

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/samber/oops"

	"github.com/rushsh/rush/internal/builtin"
	"github.com/rushsh/rush/internal/command"
	"github.com/rushsh/rush/internal/config"
	"github.com/rushsh/rush/internal/env"
	"github.com/rushsh/rush/internal/history"
	"github.com/rushsh/rush/internal/lineedit"
	"github.com/rushsh/rush/internal/logging"
	"github.com/rushsh/rush/internal/plugin"
	"github.com/rushsh/rush/internal/plugin/goplugin"
	pluginlua "github.com/rushsh/rush/internal/plugin/lua"
	"github.com/rushsh/rush/internal/plugin/native"
	"github.com/rushsh/rush/internal/repl"
	"github.com/rushsh/rush/internal/xdg"
)

// Loader routes by plugin file name.
const (
	NativePattern = "*.{so,dylib}"
	LuaPattern    = "*.lua"
)

// Deps contains injectable dependencies for a shell.
// All fields with nil values will use their default implementations.
type Deps struct {
	// ResolvePaths returns the data and config search paths.
	// Default: env.Resolve
	ResolvePaths func() (*env.SearchPaths, error)

	// CacheDir returns the directory holding the history file.
	// Default: xdg.CacheDir
	CacheDir func() (string, error)

	// Stdin is read when Reader is nil. Default: os.Stdin
	Stdin *os.File
	// Stdout receives plugin output. Default: os.Stdout
	Stdout io.Writer
	// Stderr receives prompts, diagnostics and logs. Default: os.Stderr
	Stderr io.Writer

	// Reader reads command lines.
	// Default: a terminal editor on Stdin, or a plain reader if Stdin is not a terminal
	Reader lineedit.Reader

	// Loader opens plugin files.
	// Default: native, Lua and go-plugin loaders routed by file name
	Loader plugin.Loader
}

func (d *Deps) defaults() {
	if d.ResolvePaths == nil {
		d.ResolvePaths = env.Resolve
	}
	if d.CacheDir == nil {
		d.CacheDir = xdg.CacheDir
	}
	if d.Stdin == nil {
		d.Stdin = os.Stdin
	}
	if d.Stdout == nil {
		d.Stdout = os.Stdout
	}
	if d.Stderr == nil {
		d.Stderr = os.Stderr
	}
}

// Shell is an initialized session.
type Shell struct {
	Config   *config.Config
	Paths    *env.SearchPaths
	Plugins  *plugin.Registry
	Builtins *builtin.Registry
	Logger   *slog.Logger

	repl *repl.REPL
}

// New runs the startup sequence: resolve directories, load configuration,
// set up logging, discover plugins and register builtins. Any error is an
// initialization failure.
func New(ctx context.Context, version string, deps Deps) (*Shell, error) {
	deps.defaults()

	paths, err := deps.ResolvePaths()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(paths.Config.Paths())
	if err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logger := logging.SetDefault(logging.Options{
		Service: "rush",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   level,
		Writer:  deps.Stderr,
	})

	historyFile := cfg.History.File
	if historyFile == "" {
		cache, err := deps.CacheDir()
		if err != nil {
			return nil, err
		}
		historyFile = filepath.Join(cache, history.FileName)
	}

	loader := deps.Loader
	if loader == nil {
		loader, err = defaultLoader(cfg, deps.Stdout, deps.Stderr)
		if err != nil {
			return nil, err
		}
	}

	plugins := plugin.NewRegistry(loader)
	if _, err := plugin.Discover(ctx, plugins, paths.Data.Paths(),
		plugin.WithLegacyNames(cfg.Plugins.LegacyNames),
		plugin.WithLogger(logger),
	); err != nil {
		return nil, err
	}

	hist := history.New(cfg.History.Size)
	reader := deps.Reader
	if reader == nil {
		if lineedit.IsTerminal(deps.Stdin) {
			reader = lineedit.NewTerminal(deps.Stdin, deps.Stderr, hist)
		} else {
			reader = lineedit.NewPlain(deps.Stdin, deps.Stderr)
		}
	}

	// The exit builtin needs the loop, and the loop needs the dispatcher
	// that holds the builtins.
	var loop *repl.REPL
	builtins := builtin.NewRegistry()
	if err := builtins.Insert("exit", &builtin.Exit{
		Stderr:    deps.Stderr,
		Version:   version,
		Terminate: func(code uint8) { loop.Terminate(code) },
	}); err != nil {
		return nil, err
	}
	if err := builtins.Insert("plugin", &builtin.Plugin{
		Builtins: builtins,
		Plugins:  plugins,
		Stderr:   deps.Stderr,
		Version:  version,
	}); err != nil {
		return nil, err
	}

	dispatcher, err := command.NewDispatcher(builtins, plugins,
		command.WithStderr(deps.Stderr),
		command.WithLogger(logger),
	)
	if err != nil {
		return nil, oops.In("shell").Wrap(err)
	}

	loop = repl.New(repl.Config{
		Reader:       reader,
		Dispatcher:   dispatcher,
		Prompts:      plugins,
		History:      hist,
		HistoryFile:  historyFile,
		PromptPlugin: cfg.Prompt.Plugin,
		Fallback:     cfg.Prompt.Fallback,
		Stderr:       deps.Stderr,
		Logger:       logger,
	})

	logger.DebugContext(ctx, "shell initialized",
		"data_dirs", paths.Data.Paths(),
		"config_dirs", paths.Config.Paths(),
		"history", historyFile,
		"plugins", plugins.Len(),
	)

	return &Shell{
		Config:   cfg,
		Paths:    paths,
		Plugins:  plugins,
		Builtins: builtins,
		Logger:   logger,
		repl:     loop,
	}, nil
}

// Run runs the session and unloads every plugin afterwards.
func (s *Shell) Run(ctx context.Context) (uint8, error) {
	defer func() {
		if err := s.Plugins.Close(); err != nil {
			s.Logger.Warn("failed to unload plugins", "error", err)
		}
	}()
	return s.repl.Run(ctx)
}

func defaultLoader(cfg *config.Config, stdout, stderr io.Writer) (plugin.Loader, error) {
	set := plugin.NewLoaderSet(goplugin.NewLoader(
		goplugin.WithStartAttempts(cfg.Plugins.StartAttempts),
		goplugin.WithOutput(stdout, stderr),
	))
	if err := set.Route(NativePattern, native.NewLoader()); err != nil {
		return nil, err
	}
	if err := set.Route(LuaPattern, pluginlua.NewLoader(&pluginlua.HostFunctions{
		Stdout: stdout,
		Stderr: stderr,
		Getenv: os.Getenv,
		Getwd:  os.Getwd,
	})); err != nil {
		return nil, err
	}
	return set, nil
}
