// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

// Package config loads rush's layered configuration: built-in defaults, then
// rush.yaml from each config directory (system first, user last), then the
// RUSH_LOG* environment, then command-line flags when a tool provides them.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// FileName is the configuration file looked up in every config directory.
const FileName = "rush.yaml"

// Config is the merged configuration.
type Config struct {
	Log     LogConfig     `koanf:"log" json:"log"`
	History HistoryConfig `koanf:"history" json:"history"`
	Prompt  PromptConfig  `koanf:"prompt" json:"prompt"`
	Plugins PluginsConfig `koanf:"plugins" json:"plugins"`
}

// LogConfig controls the diagnostic logger.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" jsonschema:"enum=trace,enum=debug,enum=info,enum=warn,enum=warning,enum=error"`
	Format string `koanf:"format" json:"format" jsonschema:"enum=text,enum=json"`
}

// HistoryConfig controls the line history.
type HistoryConfig struct {
	// File overrides <user-cache>/rush/.history when non-empty.
	File string `koanf:"file" json:"file"`
	Size int    `koanf:"size" json:"size" jsonschema:"minimum=0"`
}

// PromptConfig names the prompt plugin and the prompt used without it.
type PromptConfig struct {
	Plugin   string `koanf:"plugin" json:"plugin"`
	Fallback string `koanf:"fallback" json:"fallback"`
}

// PluginsConfig tunes discovery and loading.
type PluginsConfig struct {
	// LegacyNames also registers lib<name>.so files that have no sidecar.
	LegacyNames   bool `koanf:"legacy_names" json:"legacy_names"`
	StartAttempts int  `koanf:"start_attempts" json:"start_attempts" jsonschema:"minimum=1"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Log:     LogConfig{Level: "debug", Format: "text"},
		History: HistoryConfig{Size: 1000},
		Prompt:  PromptConfig{Plugin: "rush-prompt", Fallback: "$ "},
		Plugins: PluginsConfig{StartAttempts: 3},
	}
}

func defaultKeys() map[string]any {
	d := Default()
	return map[string]any{
		"log.level":              d.Log.Level,
		"log.format":             d.Log.Format,
		"history.file":           d.History.File,
		"history.size":           d.History.Size,
		"prompt.plugin":          d.Prompt.Plugin,
		"prompt.fallback":        d.Prompt.Fallback,
		"plugins.legacy_names":   d.Plugins.LegacyNames,
		"plugins.start_attempts": d.Plugins.StartAttempts,
	}
}

// Option customizes Load.
type Option func(*loader)

type loader struct {
	flags    *pflag.FlagSet
	flagKeys map[string]string
}

// WithFlags merges explicitly set flags last. keys maps a flag name to its
// config key, e.g. "log-level" to "log.level"; unmapped flags are ignored.
func WithFlags(fs *pflag.FlagSet, keys map[string]string) Option {
	return func(l *loader) {
		l.flags = fs
		l.flagKeys = keys
	}
}

// Load merges every layer and validates the result. dirs is in search order
// (user first); files are merged in reverse so the user's file wins.
func Load(dirs []string, opts ...Option) (*Config, error) {
	l := &loader{}
	for _, opt := range opts {
		opt(l)
	}

	k := koanf.New(".")
	for key, v := range defaultKeys() {
		if err := k.Set(key, v); err != nil {
			return nil, oops.Code("CONFIG_INVALID").In("config").With("key", key).Wrap(err)
		}
	}

	for _, dir := range slices.Backward(dirs) {
		if err := loadFile(k, filepath.Join(dir, FileName)); err != nil {
			return nil, err
		}
	}

	if err := k.Load(env.ProviderWithValue("RUSH_LOG", ".", envKey), nil); err != nil {
		return nil, oops.Code("CONFIG_INVALID").In("config").Wrapf(err, "read environment")
	}

	if l.flags != nil {
		p := posflag.ProviderWithFlag(l.flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := l.flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(l.flags, f)
		})
		if err := k.Load(p, nil); err != nil {
			return nil, oops.Code("CONFIG_INVALID").In("config").Wrapf(err, "read flags")
		}
	}

	if err := Validate(k.Raw()); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").In("config").Wrapf(err, "decode configuration")
	}
	return &cfg, nil
}

func loadFile(k *koanf.Koanf, path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return oops.Code("CONFIG_INVALID").In("config").With("path", path).Wrap(err)
	}
	if info.IsDir() {
		return nil
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return oops.Code("CONFIG_INVALID").
			In("config").
			With("path", path).
			Hint("check the YAML syntax of "+path).
			Wrapf(err, "load config file")
	}
	return nil
}

// envKey maps RUSH_LOG to log.level and RUSH_LOG_FORMAT to log.format.
// Empty values are skipped so an exported-but-blank variable changes nothing.
func envKey(name, value string) (string, any) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "", nil
	}
	switch name {
	case "RUSH_LOG":
		return "log.level", value
	case "RUSH_LOG_FORMAT":
		return "log.format", value
	default:
		return "", nil
	}
}
