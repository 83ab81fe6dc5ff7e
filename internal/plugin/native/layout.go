// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

// Package native loads rush command plugins built as C-ABI shared objects.
// The layout mirrors include/rush_plugin.h.
package native

import (
	"runtime"
	"unsafe"

	"github.com/samber/oops"

	"github.com/rushsh/rush/pkg/abi"
)

// Magic identifies a rush vtable ("RUSH").
const Magic uint32 = 0x52555348

// RootSymbol is the exported entry point of every native plugin.
const RootSymbol = "rush_plugin_root"

type rushStr struct {
	ptr *byte
	len uintptr
}

type rushStrVec struct {
	ptr *rushStr
	len uintptr
}

type commandInfo struct {
	name        rushStr
	description rushStr
	version     rushStr
	help        rushStr
}

type execResult struct {
	code    uint8
	_       [7]uint8
	message rushStr
}

type vtable struct {
	magic      uint32
	size       uint32
	abiVersion rushStr
	load       uintptr
	info       uintptr
	version    uintptr
	help       uintptr
	desc       uintptr
	exec       uintptr
	freeStr    uintptr
}

// vtableSize is the smallest size field a compatible plugin may report.
var vtableSize = uint32(unsafe.Sizeof(vtable{}))

// copyStr copies a plugin string into Go memory.
func copyStr(s rushStr) string {
	if s.ptr == nil || s.len == 0 {
		return ""
	}
	return string(unsafe.Slice(s.ptr, s.len))
}

// validate checks a vtable read from a plugin and returns its ABI tag.
func validate(vt *vtable) (string, error) {
	errb := oops.In("native")
	if vt == nil {
		return "", errb.Errorf("%s returned NULL", RootSymbol)
	}
	if vt.magic != Magic {
		return "", errb.With("magic", vt.magic).Errorf("bad vtable magic %#x", vt.magic)
	}
	if vt.size < vtableSize {
		return "", errb.With("size", vt.size).Errorf("vtable size %d is smaller than %d", vt.size, vtableSize)
	}
	for _, fn := range []struct {
		name string
		ptr  uintptr
	}{
		{"load", vt.load},
		{"info", vt.info},
		{"version", vt.version},
		{"help", vt.help},
		{"desc", vt.desc},
		{"exec", vt.exec},
		{"free_str", vt.freeStr},
	} {
		if fn.ptr == 0 {
			return "", errb.With("function", fn.name).Errorf("vtable entry %s is NULL", fn.name)
		}
	}
	tag := copyStr(vt.abiVersion)
	if err := abi.CheckVersion(tag); err != nil {
		return "", errb.Wrap(err)
	}
	return tag, nil
}

// argVec lays argv out as a rush_str_vec. The returned pinner keeps the Go
// memory in place until Unpin.
func argVec(argv []string) (*rushStrVec, *runtime.Pinner) {
	p := new(runtime.Pinner)
	vec := &rushStrVec{}
	p.Pin(vec)
	if len(argv) == 0 {
		return vec, p
	}
	strs := make([]rushStr, len(argv))
	for i, a := range argv {
		if a == "" {
			continue
		}
		b := unsafe.StringData(a)
		p.Pin(b)
		strs[i] = rushStr{ptr: b, len: uintptr(len(a))}
	}
	p.Pin(&strs[0])
	vec.ptr = &strs[0]
	vec.len = uintptr(len(strs))
	return vec, p
}
