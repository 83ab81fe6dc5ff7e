// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

//go:build darwin || freebsd || linux

package native

import (
	"context"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/samber/oops"

	"github.com/rushsh/rush/internal/plugin"
	"github.com/rushsh/rush/pkg/abi"
)

// Compile-time interface check.
var _ plugin.Loader = (*Loader)(nil)

// Loader opens native shared objects with dlopen.
type Loader struct{}

// NewLoader creates a native loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Open loads the library at path and validates its vtable. The library is
// closed again if validation fails.
func (l *Loader) Open(_ context.Context, name, path string) (abi.Command, error) {
	errb := oops.In("native").With("plugin", name).With("path", path)

	lib, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return nil, errb.Wrapf(err, "dlopen %s", path)
	}
	cmd, err := bind(lib)
	if err != nil {
		_ = purego.Dlclose(lib)
		return nil, errb.Wrap(err)
	}
	cmd.name = name
	return cmd, nil
}

func bind(lib uintptr) (*command, error) {
	sym, err := purego.Dlsym(lib, RootSymbol)
	if err != nil {
		return nil, oops.In("native").Wrapf(err, "missing symbol %s", RootSymbol)
	}

	var root func() unsafe.Pointer
	purego.RegisterFunc(&root, sym)
	vt := (*vtable)(root())
	if _, err := validate(vt); err != nil {
		return nil, err
	}

	c := &command{lib: lib}
	purego.RegisterFunc(&c.load, vt.load)
	purego.RegisterFunc(&c.info, vt.info)
	purego.RegisterFunc(&c.version, vt.version)
	purego.RegisterFunc(&c.help, vt.help)
	purego.RegisterFunc(&c.desc, vt.desc)
	purego.RegisterFunc(&c.exec, vt.exec)
	purego.RegisterFunc(&c.freeStr, vt.freeStr)
	return c, nil
}

// command is one dlopen'd library. Calls are serialised.
type command struct {
	name   string
	lib    uintptr
	mu     sync.Mutex
	closed bool

	load    func()
	info    func(*commandInfo)
	version func(*rushStr)
	help    func(*rushStr)
	desc    func(*rushStr)
	exec    func(*rushStrVec, *execResult)
	freeStr func(*rushStr)
}

func (c *command) enter() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return oops.In("native").With("plugin", c.name).New("library is closed")
	}
	return nil
}

// take copies a plugin-owned string and hands it back to the plugin.
func (c *command) take(s *rushStr) string {
	out := copyStr(*s)
	if s.ptr != nil {
		c.freeStr(s)
	}
	return out
}

func (c *command) Load(context.Context) error {
	if err := c.enter(); err != nil {
		return err
	}
	defer c.mu.Unlock()
	c.load()
	return nil
}

func (c *command) Info(context.Context) (abi.CommandInfo, error) {
	if err := c.enter(); err != nil {
		return abi.CommandInfo{}, err
	}
	defer c.mu.Unlock()

	var out commandInfo
	c.info(&out)
	return abi.CommandInfo{
		Name:        c.take(&out.name),
		Description: c.take(&out.description),
		Version:     c.take(&out.version),
		Help:        c.take(&out.help),
	}, nil
}

func (c *command) str(fn func(*rushStr)) (string, error) {
	if err := c.enter(); err != nil {
		return "", err
	}
	defer c.mu.Unlock()

	var out rushStr
	fn(&out)
	return c.take(&out), nil
}

func (c *command) Version(context.Context) (string, error) { return c.str(c.version) }
func (c *command) Help(context.Context) (string, error)    { return c.str(c.help) }
func (c *command) Desc(context.Context) (string, error)    { return c.str(c.desc) }

func (c *command) Exec(_ context.Context, argv []string) (abi.ExecResult, error) {
	if err := c.enter(); err != nil {
		return abi.ExecResult{}, err
	}
	defer c.mu.Unlock()

	vec, pin := argVec(argv)
	defer pin.Unpin()

	var out execResult
	c.exec(vec, &out)
	return abi.ExecResult{Code: out.code, Message: c.take(&out.message)}, nil
}

func (c *command) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if err := purego.Dlclose(c.lib); err != nil {
		return oops.In("native").With("plugin", c.name).Wrapf(err, "dlclose")
	}
	return nil
}
