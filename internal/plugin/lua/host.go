// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

package lua

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"

	"github.com/rushsh/rush/internal/plugin"
	"github.com/rushsh/rush/pkg/abi"
)

// ABIGlobal names the global holding the script's ABI version tag.
const ABIGlobal = "RUSH_ABI_VERSION"

// requiredFunctions must be defined as globals by every script.
var requiredFunctions = []string{"info", "version", "help", "desc", "exec"}

// Compile-time interface check.
var _ plugin.Loader = (*Loader)(nil)

// Loader opens Lua command scripts.
type Loader struct {
	factory *StateFactory
}

// NewLoader creates a Lua loader. A nil hf uses DefaultHostFunctions.
func NewLoader(hf *HostFunctions) *Loader {
	if hf == nil {
		hf = DefaultHostFunctions()
	}
	return &Loader{factory: NewStateFactory(hf)}
}

// Open reads and runs the script's top level, then validates its ABI tag and
// required functions.
func (l *Loader) Open(ctx context.Context, name, path string) (abi.Command, error) {
	errb := oops.In("lua").With("plugin", name).With("path", path)

	code, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, errb.Wrapf(err, "read script")
	}

	L, err := l.factory.NewState(ctx)
	if err != nil {
		return nil, errb.Wrapf(err, "create state")
	}

	if err := L.DoString(string(code)); err != nil {
		L.Close()
		return nil, errb.Hint("check the script with luac -p").Wrapf(err, "script error")
	}

	tag, ok := L.GetGlobal(ABIGlobal).(lua.LString)
	if !ok {
		L.Close()
		return nil, errb.Errorf("script does not set %s", ABIGlobal)
	}
	if err := abi.CheckVersion(string(tag)); err != nil {
		L.Close()
		return nil, errb.Wrap(err)
	}

	for _, fn := range requiredFunctions {
		if L.GetGlobal(fn).Type() != lua.LTFunction {
			L.Close()
			return nil, errb.With("function", fn).Errorf("script does not define %s()", fn)
		}
	}

	L.RemoveContext()
	return &command{name: name, state: L}, nil
}

// command is one loaded script. LState is not goroutine safe, so every call
// holds mu.
type command struct {
	name   string
	mu     sync.Mutex
	state  *lua.LState
	closed bool
}

// call invokes global fn with args under ctx and returns nret results.
func (c *command) call(ctx context.Context, fn string, nret int, args ...lua.LValue) ([]lua.LValue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	errb := oops.In("lua").With("plugin", c.name).With("operation", fn)
	if c.closed {
		return nil, errb.New("state is closed")
	}

	L := c.state
	L.SetContext(ctx)
	defer L.RemoveContext()

	if err := L.CallByParam(lua.P{
		Fn:      L.GetGlobal(fn),
		NRet:    nret,
		Protect: true,
	}, args...); err != nil {
		return nil, errb.Wrap(err)
	}

	ret := make([]lua.LValue, nret)
	for i := nret; i > 0; i-- {
		ret[i-1] = L.Get(-1)
		L.Pop(1)
	}
	return ret, nil
}

func (c *command) Load(ctx context.Context) error {
	c.mu.Lock()
	fn := c.state.GetGlobal("load")
	c.mu.Unlock()
	if fn.Type() != lua.LTFunction {
		return nil
	}
	ret, err := c.call(ctx, "load", 1)
	if err != nil {
		return err
	}
	// A non-empty string result is a failure reason.
	if msg, ok := ret[0].(lua.LString); ok && msg != "" {
		return oops.In("lua").With("plugin", c.name).Errorf("load failed: %s", string(msg))
	}
	return nil
}

func (c *command) Info(ctx context.Context) (abi.CommandInfo, error) {
	ret, err := c.call(ctx, "info", 1)
	if err != nil {
		return abi.CommandInfo{}, err
	}
	t, ok := ret[0].(*lua.LTable)
	if !ok {
		return abi.CommandInfo{}, oops.In("lua").With("plugin", c.name).
			Errorf("info() returned %s, want table", ret[0].Type())
	}
	return abi.CommandInfo{
		Name:        field(t, "name"),
		Description: field(t, "description"),
		Version:     field(t, "version"),
		Help:        field(t, "help"),
	}, nil
}

func field(t *lua.LTable, key string) string {
	if s, ok := t.RawGetString(key).(lua.LString); ok {
		return string(s)
	}
	return ""
}

func (c *command) str(ctx context.Context, fn string) (string, error) {
	ret, err := c.call(ctx, fn, 1)
	if err != nil {
		return "", err
	}
	if ret[0] == lua.LNil {
		return "", nil
	}
	return lua.LVAsString(ret[0]), nil
}

func (c *command) Version(ctx context.Context) (string, error) { return c.str(ctx, "version") }
func (c *command) Help(ctx context.Context) (string, error)    { return c.str(ctx, "help") }
func (c *command) Desc(ctx context.Context) (string, error)    { return c.str(ctx, "desc") }

// Exec calls exec(args) with a 1-based array of arguments. The script returns
// a status code and an optional message; returning nothing means success.
func (c *command) Exec(ctx context.Context, argv []string) (abi.ExecResult, error) {
	c.mu.Lock()
	args := c.state.NewTable()
	for _, a := range argv {
		args.Append(lua.LString(a))
	}
	c.mu.Unlock()

	ret, err := c.call(ctx, "exec", 2, args)
	if err != nil {
		return abi.ExecResult{}, oops.Code("PLUGIN_EXEC_FAILED").Wrap(err)
	}

	var res abi.ExecResult
	switch v := ret[0].(type) {
	case *lua.LNilType:
	case lua.LNumber:
		if v < 0 || v > 255 || float64(v) != float64(int(v)) {
			return abi.ExecResult{}, oops.Code("PLUGIN_EXEC_FAILED").In("lua").With("plugin", c.name).
				Errorf("exec() returned invalid status %v", v)
		}
		res.Code = uint8(v)
	default:
		return abi.ExecResult{}, oops.Code("PLUGIN_EXEC_FAILED").In("lua").With("plugin", c.name).
			Errorf("exec() returned %s, want number", v.Type())
	}
	if ret[1] != lua.LNil {
		res.Message = lua.LVAsString(ret[1])
	}
	return res, nil
}

func (c *command) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		c.state.Close()
	}
	return nil
}
