// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

package plugin

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"github.com/rushsh/rush/internal/sidecar"
	"github.com/rushsh/rush/pkg/errutil"
)

// Dir is the subdirectory of each data directory that holds plugins.
const Dir = "plugins"

var (
	sidecarPattern = glob.MustCompile("*." + sidecar.Ext)
	legacyPattern  = glob.MustCompile("lib*.so")
)

// DiscoverOption configures Discover.
type DiscoverOption func(*discoverer)

type discoverer struct {
	legacy bool
	logger *slog.Logger
}

// WithLegacyNames also registers lib<name>.so files as <name> without a
// sidecar. A sidecar for the same name takes precedence.
func WithLegacyNames(enabled bool) DiscoverOption {
	return func(d *discoverer) {
		d.legacy = enabled
	}
}

// WithLogger sets the logger used for skipped entries and the summary.
func WithLogger(l *slog.Logger) DiscoverOption {
	return func(d *discoverer) {
		d.logger = l
	}
}

// Discover scans <dir>/plugins for every dir in search order and registers
// each plugin found. Missing directories are skipped. Bad entries are logged
// and skipped; a name already found in an earlier directory is not replaced.
// Only a poisoned registry makes Discover fail.
func Discover(ctx context.Context, reg *Registry, dirs []string, opts ...DiscoverOption) (int, error) {
	d := &discoverer{logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}

	seen := make(map[string]string)
	for _, dir := range dirs {
		found := d.scan(ctx, filepath.Join(dir, Dir))
		for _, meta := range found {
			if prev, dup := seen[meta.Name]; dup {
				d.logger.DebugContext(ctx, "skipping shadowed plugin",
					"plugin", meta.Name, "path", meta.Path, "shadowed_by", prev)
				continue
			}
			if err := reg.Add(meta.Name, meta); err != nil {
				return len(seen), err
			}
			seen[meta.Name] = meta.Path
		}
	}

	d.logger.InfoContext(ctx, "plugin discovery complete", "count", len(seen))
	return len(seen), nil
}

// scan returns the plugins of one directory, sidecars before legacy names.
func (d *discoverer) scan(ctx context.Context, dir string) []sidecar.Metadata {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			d.logger.DebugContext(ctx, "skipping search path", "dir", dir, "error", err)
		}
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		errutil.Log(ctx, d.logger, slog.LevelWarn, "cannot read plugin directory", err)
		return nil
	}

	var found, legacy []sidecar.Metadata
	names := make(map[string]bool)
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		switch name := entry.Name(); {
		case sidecarPattern.Match(name):
			meta, err := sidecar.ReadFile(filepath.Join(dir, name))
			if err != nil {
				errutil.Log(ctx, d.logger, slog.LevelWarn, "skipping invalid plugin metadata", err)
				continue
			}
			if names[meta.Name] {
				d.logger.WarnContext(ctx, "duplicate plugin name in directory",
					"plugin", meta.Name, "dir", dir)
				continue
			}
			names[meta.Name] = true
			found = append(found, meta)
		case d.legacy && legacyPattern.Match(name):
			stem := strings.TrimSuffix(strings.TrimPrefix(name, "lib"), ".so")
			if stem == "" {
				continue
			}
			legacy = append(legacy, sidecar.Metadata{
				Name:     stem,
				Filename: name,
				Path:     filepath.Join(dir, name),
			})
		}
	}

	for _, meta := range legacy {
		if !names[meta.Name] {
			names[meta.Name] = true
			found = append(found, meta)
		}
	}
	return found
}
