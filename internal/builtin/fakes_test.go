// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

package builtin_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rushsh/rush/internal/plugin"
	"github.com/rushsh/rush/internal/sidecar"
	"github.com/rushsh/rush/pkg/abi"
)

// stubCommand answers introspection with fixed strings.
type stubCommand struct {
	name    string
	descErr error
}

func (s *stubCommand) Load(context.Context) error { return nil }
func (s *stubCommand) Info(context.Context) (abi.CommandInfo, error) {
	return abi.CommandInfo{Name: s.name}, nil
}
func (s *stubCommand) Version(context.Context) (string, error) { return "0.3.1", nil }
func (s *stubCommand) Help(context.Context) (string, error)    { return "Usage: " + s.name, nil }
func (s *stubCommand) Desc(context.Context) (string, error) {
	return s.name + " does things", s.descErr
}
func (s *stubCommand) Exec(context.Context, []string) (abi.ExecResult, error) {
	return abi.OK(), nil
}
func (s *stubCommand) Close() error { return nil }

// newPlugins builds a plugin registry with the given names registered.
// Opening "broken" fails; "flaky" fails Desc.
func newPlugins(t *testing.T, names ...string) *plugin.Registry {
	t.Helper()
	reg := plugin.NewRegistry(plugin.LoaderFunc(func(_ context.Context, name, _ string) (abi.Command, error) {
		switch name {
		case "broken":
			return nil, errors.New("bad ELF header")
		case "flaky":
			return &stubCommand{name: name, descErr: errors.New("pipe closed")}, nil
		}
		return &stubCommand{name: name}, nil
	}))
	for _, n := range names {
		require.NoError(t, reg.Add(n, sidecar.Metadata{Name: n, Filename: n + ".so", Path: "/plugins/" + n + ".so"}))
	}
	return reg
}

// nopCommand is a builtin that does nothing.
type nopCommand struct{ runs int }

func (n *nopCommand) PrintHelp()    {}
func (n *nopCommand) PrintVersion() {}
func (n *nopCommand) Execute(context.Context, []string) abi.ExecResult {
	n.runs++
	return abi.OK()
}
