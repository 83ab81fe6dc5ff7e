// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

//go:build darwin || freebsd || linux

package native_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushsh/rush/internal/plugin/native"
	"github.com/rushsh/rush/pkg/abi"
	"github.com/rushsh/rush/pkg/errutil"
)

// buildCounter compiles testdata/counter.c into a shared object in a fresh
// temporary directory. The test is skipped when no C compiler is installed.
func buildCounter(t *testing.T, defines ...string) string {
	t.Helper()
	cc, err := exec.LookPath("cc")
	if err != nil {
		t.Skip("cc not available")
	}
	out := filepath.Join(t.TempDir(), "libcounter.so")
	args := []string{"-shared", "-fPIC", "-I", filepath.Join("..", "..", "..", "include"), "-o", out}
	args = append(args, defines...)
	args = append(args, filepath.Join("testdata", "counter.c"))
	b, err := exec.Command(cc, args...).CombinedOutput() // #nosec G204 -- fixed compiler arguments
	require.NoError(t, err, string(b))
	return out
}

func openCounter(t *testing.T) abi.Command {
	t.Helper()
	cmd, err := native.NewLoader().Open(context.Background(), "counter", buildCounter(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cmd.Close() })
	return cmd
}

func TestLoader_OpenMissingLibrary(t *testing.T) {
	l := native.NewLoader()
	_, err := l.Open(context.Background(), "ghost", filepath.Join(t.TempDir(), "libghost.so"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dlopen")
}

func TestLoader_OpenNotALibrary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "libjunk.so")
	require.NoError(t, os.WriteFile(path, []byte("not an object file"), 0o600))

	l := native.NewLoader()
	_, err := l.Open(context.Background(), "junk", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "libjunk.so")
}

func TestLoader_CounterPlugin(t *testing.T) {
	ctx := context.Background()
	cmd := openCounter(t)

	require.NoError(t, cmd.Load(ctx))

	info, err := cmd.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, abi.CommandInfo{
		Name:        "counter",
		Description: "count calls",
		Version:     "1.2.3",
		Help:        "Usage: counter [ARG]...",
	}, info)

	version, err := cmd.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", version)

	// Four info strings and the version have been freed.
	res, err := cmd.Exec(ctx, []string{"a", "bc", "héllo"})
	require.NoError(t, err)
	assert.Equal(t, abi.ExecResult{Code: 7, Message: "n=3 loads=1 frees=5:a|bc|héllo|"}, res)

	help, err := cmd.Help(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Usage: counter [ARG]...", help)

	desc, err := cmd.Desc(ctx)
	require.NoError(t, err)
	assert.Equal(t, "count calls", desc)

	res, err = cmd.Exec(ctx, []string{""})
	require.NoError(t, err)
	assert.Equal(t, "n=1 loads=1 frees=8:|", res.Message)

	res, err = cmd.Exec(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "n=0 loads=1 frees=9:", res.Message)
}

func TestLoader_CounterConcurrentExec(t *testing.T) {
	ctx := context.Background()
	cmd := openCounter(t)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := cmd.Exec(ctx, []string{"x"})
			assert.NoError(t, err)
			assert.Equal(t, uint8(7), res.Code)
		}()
	}
	wg.Wait()

	res, err := cmd.Exec(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "n=0 loads=0 frees=8:", res.Message)
}

func TestLoader_CounterClose(t *testing.T) {
	ctx := context.Background()
	cmd := openCounter(t)

	require.NoError(t, cmd.Close())
	_, err := cmd.Exec(ctx, []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
	_, err = cmd.Info(ctx)
	require.Error(t, err)
	assert.NoError(t, cmd.Close())
}

func TestLoader_CounterRejected(t *testing.T) {
	tests := []struct {
		name    string
		defines []string
		errMsg  string
	}{
		{"bad magic", []string{"-DCOUNTER_MAGIC=0xdeadbeefu"}, "bad vtable magic"},
		{"incompatible ABI", []string{`-DCOUNTER_ABI="2.0.0"`}, "2.0.0"},
		{"missing root symbol", []string{"-DCOUNTER_NO_ROOT"}, "missing symbol rush_plugin_root"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := native.NewLoader().Open(context.Background(), "counter", buildCounter(t, tt.defines...))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoader_CounterABIMismatchCode(t *testing.T) {
	_, err := native.NewLoader().Open(context.Background(), "counter", buildCounter(t, `-DCOUNTER_ABI="0.9.0"`))
	errutil.AssertErrorCode(t, err, "ABI_MISMATCH")
}
