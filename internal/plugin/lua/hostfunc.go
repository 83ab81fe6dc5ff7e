// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

package lua

import (
	"io"
	"os"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// HostTable is the global table scripts use to reach the shell.
const HostTable = "rush"

// HostFunctions are the shell services exposed to scripts.
type HostFunctions struct {
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string
	Getwd  func() (string, error)
}

// DefaultHostFunctions writes to the process streams and reads the real
// environment.
func DefaultHostFunctions() *HostFunctions {
	return &HostFunctions{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Getenv: os.Getenv,
		Getwd:  os.Getwd,
	}
}

// Register installs the rush table and replaces print.
func (h *HostFunctions) Register(L *lua.LState) {
	mod := L.NewTable()
	L.SetFuncs(mod, map[string]lua.LGFunction{
		"print":  h.printTo(h.Stdout),
		"eprint": h.printTo(h.Stderr),
		"getenv": h.getenv,
		"cwd":    h.cwd,
	})
	L.SetGlobal(HostTable, mod)
	L.SetGlobal("print", L.NewFunction(h.printTo(h.Stdout)))
}

func (h *HostFunctions) printTo(w io.Writer) lua.LGFunction {
	return func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		if w != nil {
			_, _ = io.WriteString(w, strings.Join(parts, "\t")+"\n")
		}
		return 0
	}
}

func (h *HostFunctions) getenv(L *lua.LState) int {
	name := L.CheckString(1)
	if h.Getenv == nil {
		L.Push(lua.LNil)
		return 1
	}
	v := h.Getenv(name)
	if v == "" {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(v))
	return 1
}

func (h *HostFunctions) cwd(L *lua.LState) int {
	if h.Getwd == nil {
		L.Push(lua.LNil)
		L.Push(lua.LString("cwd unavailable"))
		return 2
	}
	dir, err := h.Getwd()
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LString(dir))
	return 1
}
