// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

package lua

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	luavm "github.com/yuin/gopher-lua"

	"github.com/rushsh/rush/pkg/errutil"
)

func TestNewState_LibraryLoadError(t *testing.T) {
	factory := &StateFactory{
		libraries: []safeLibrary{
			{luavm.BaseLibName, luavm.OpenBase},
			{"broken", func(L *luavm.LState) int {
				L.RaiseError("simulated library load failure")
				return 0
			}},
		},
	}

	_, err := factory.NewState(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open library broken")
	errutil.AssertErrorContext(t, err, "library", "broken")
}

func TestNewState_HostTableWithoutLibraries(t *testing.T) {
	var out bytes.Buffer
	factory := &StateFactory{host: &HostFunctions{Stdout: &out}}

	L, err := factory.NewState(context.Background())
	require.NoError(t, err)
	defer L.Close()

	assert.Equal(t, luavm.LTTable, L.GetGlobal(HostTable).Type())
	assert.Equal(t, luavm.LNil, L.GetGlobal("string"), "no libraries were requested")
}

func TestDefaultSafeLibraries(t *testing.T) {
	var names []string
	for _, lib := range defaultSafeLibraries() {
		names = append(names, lib.name)
	}
	assert.ElementsMatch(t, []string{
		luavm.BaseLibName, luavm.TabLibName, luavm.StringLibName, luavm.MathLibName,
	}, names)
}
