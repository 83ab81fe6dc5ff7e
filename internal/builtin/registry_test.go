// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

package builtin_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushsh/rush/internal/builtin"
	"github.com/rushsh/rush/pkg/abi"
	"github.com/rushsh/rush/pkg/errutil"
)

func TestRegistry_InsertAndExecute(t *testing.T) {
	reg := builtin.NewRegistry()
	cmd := &nopCommand{}

	require.NoError(t, reg.Insert("nop", cmd))
	assert.True(t, reg.Contains("nop"))
	assert.False(t, reg.Contains("pwd"))

	res := reg.Execute(context.Background(), "nop", nil)
	assert.True(t, res.Success())
	assert.Equal(t, 1, cmd.runs)
}

func TestRegistry_InsertDuplicate(t *testing.T) {
	reg := builtin.NewRegistry()
	require.NoError(t, reg.Insert("exit", &nopCommand{}))

	err := reg.Insert("exit", &nopCommand{})
	require.Error(t, err)
	assert.ErrorIs(t, err, builtin.ErrExists)
	errutil.AssertErrorCode(t, err, builtin.CodeExists)
	errutil.AssertErrorContext(t, err, "builtin", "exit")
}

func TestRegistry_ExecuteMissing(t *testing.T) {
	reg := builtin.NewRegistry()

	res := reg.Execute(context.Background(), "ghost", nil)
	assert.Equal(t, abi.CodeFailure, res.Code)
	assert.Contains(t, res.Message, "builtin not found")
}

func TestRegistry_Names(t *testing.T) {
	reg := builtin.NewRegistry()
	require.NoError(t, reg.Insert("plugin", &nopCommand{}))
	require.NoError(t, reg.Insert("exit", &nopCommand{}))

	assert.Equal(t, []string{"exit", "plugin"}, reg.Names())
}
