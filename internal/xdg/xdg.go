// Package xdg resolves XDG Base Directory paths for rush.
package xdg

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const appName = "rush"

// ErrNoHome is returned when HOME is unset or empty.
var ErrNoHome = errors.New("HOME is not set")

// DataHome returns the user data base directory.
// Checks XDG_DATA_HOME first, falls back to ~/.local/share.
func DataHome() (string, error) {
	return resolve("XDG_DATA_HOME", ".local", "share")
}

// ConfigHome returns the user config base directory.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigHome() (string, error) {
	return resolve("XDG_CONFIG_HOME", ".config")
}

// CacheHome returns the user cache base directory.
// Checks XDG_CACHE_HOME first, falls back to ~/.cache.
func CacheHome() (string, error) {
	return resolve("XDG_CACHE_HOME", ".cache")
}

// DataDir returns the rush data directory under DataHome.
func DataDir() (string, error) {
	return app(DataHome)
}

// ConfigDir returns the rush config directory under ConfigHome.
func ConfigDir() (string, error) {
	return app(ConfigHome)
}

// CacheDir returns the rush cache directory under CacheHome.
func CacheDir() (string, error) {
	return app(CacheHome)
}

// EnsureDir creates a directory and all parent directories if they don't exist.
// Directories are created with 0700 permissions.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return oops.Code("ENVIRONMENT").In("xdg").With("path", path).Wrapf(err, "create directory")
	}
	return nil
}

func app(base func() (string, error)) (string, error) {
	dir, err := base()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName), nil
}

// resolve returns $env when it is an absolute path, otherwise $HOME/fallback.
// HOME is required even when $env is set. A relative value is ignored with a
// warning per the XDG base directory rules.
func resolve(env string, fallback ...string) (string, error) {
	home := os.Getenv("HOME")
	if home == "" {
		return "", oops.Code("ENVIRONMENT").
			In("xdg").
			With("var", env).
			Hint("set HOME to your home directory").
			Wrap(ErrNoHome)
	}
	if v := os.Getenv(env); v != "" {
		if filepath.IsAbs(v) {
			return v, nil
		}
		slog.Warn("ignoring non-absolute XDG path", "var", env, "value", v)
	}
	return filepath.Join(append([]string{home}, fallback...)...), nil
}
