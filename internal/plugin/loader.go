// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

package plugin

import (
	"context"
	"path/filepath"

	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/rushsh/rush/pkg/abi"
)

type route struct {
	pattern string
	match   glob.Glob
	loader  Loader
}

// LoaderSet picks a loader by matching the plugin's file name against glob
// patterns in registration order. Files matching no pattern go to the
// fallback loader.
type LoaderSet struct {
	routes   []route
	fallback Loader
}

// NewLoaderSet returns a set that sends unmatched files to fallback, which
// may be nil.
func NewLoaderSet(fallback Loader) *LoaderSet {
	return &LoaderSet{fallback: fallback}
}

// Route sends files whose base name matches pattern to l.
func (s *LoaderSet) Route(pattern string, l Loader) error {
	g, err := glob.Compile(pattern)
	if err != nil {
		return oops.In("plugin").With("pattern", pattern).Wrapf(err, "compile loader pattern")
	}
	s.routes = append(s.routes, route{pattern: pattern, match: g, loader: l})
	return nil
}

// Open dispatches to the loader selected for path.
func (s *LoaderSet) Open(ctx context.Context, name, path string) (abi.Command, error) {
	l := s.loaderFor(path)
	if l == nil {
		return nil, oops.In("plugin").
			With("plugin", name).
			With("path", path).
			Errorf("no loader handles %s", filepath.Base(path))
	}
	return l.Open(ctx, name, path) //nolint:wrapcheck // loaders return oops errors
}

func (s *LoaderSet) loaderFor(path string) Loader {
	base := filepath.Base(path)
	for _, r := range s.routes {
		if r.match.Match(base) {
			return r.loader
		}
	}
	return s.fallback
}
