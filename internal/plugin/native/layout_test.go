// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

package native

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushsh/rush/pkg/errutil"
)

func str(s string) rushStr {
	return rushStr{ptr: unsafe.StringData(s), len: uintptr(len(s))}
}

func goodVtable() *vtable {
	return &vtable{
		magic:      Magic,
		size:       vtableSize,
		abiVersion: str("1.0.0"),
		load:       1,
		info:       2,
		version:    3,
		help:       4,
		desc:       5,
		exec:       6,
		freeStr:    7,
	}
}

func TestLayout_MatchesHeader(t *testing.T) {
	if unsafe.Sizeof(uintptr(0)) != 8 {
		t.Skip("header offsets are checked on 64-bit platforms")
	}
	assert.Equal(t, uint32(80), vtableSize)
	assert.Equal(t, uintptr(16), unsafe.Sizeof(rushStr{}))
	assert.Equal(t, uintptr(24), unsafe.Sizeof(execResult{}))
	assert.Equal(t, uintptr(8), unsafe.Offsetof(execResult{}.message))
	assert.Equal(t, uintptr(8), unsafe.Offsetof(vtable{}.abiVersion))
	assert.Equal(t, uintptr(72), unsafe.Offsetof(vtable{}.freeStr))
}

func TestValidate_Accepts(t *testing.T) {
	tag, err := validate(goodVtable())
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", tag)
}

func TestValidate_AcceptsLargerTable(t *testing.T) {
	vt := goodVtable()
	vt.size += 16
	_, err := validate(vt)
	assert.NoError(t, err)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*vtable)
		errMsg string
	}{
		{"bad magic", func(vt *vtable) { vt.magic = 0xdeadbeef }, "bad vtable magic"},
		{"short size", func(vt *vtable) { vt.size = 16 }, "smaller than"},
		{"null load", func(vt *vtable) { vt.load = 0 }, "load is NULL"},
		{"null exec", func(vt *vtable) { vt.exec = 0 }, "exec is NULL"},
		{"null free_str", func(vt *vtable) { vt.freeStr = 0 }, "free_str is NULL"},
		{"empty ABI tag", func(vt *vtable) { vt.abiVersion = rushStr{} }, "invalid plugin ABI version"},
		{"major mismatch", func(vt *vtable) { vt.abiVersion = str("2.1.0") }, "incompatible"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vt := goodVtable()
			tt.mutate(vt)
			_, err := validate(vt)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidate_ABIMismatchCode(t *testing.T) {
	vt := goodVtable()
	vt.abiVersion = str("0.9.0")
	_, err := validate(vt)
	errutil.AssertErrorCode(t, err, "ABI_MISMATCH")
}

func TestValidate_Nil(t *testing.T) {
	_, err := validate(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NULL")
}

func TestCopyStr(t *testing.T) {
	assert.Equal(t, "", copyStr(rushStr{}))
	assert.Equal(t, "héllo", copyStr(str("héllo")))

	buf := []byte("abc")
	s := copyStr(rushStr{ptr: &buf[0], len: 3})
	buf[0] = 'x'
	assert.Equal(t, "abc", s, "copyStr must not alias plugin memory")
}

func TestArgVec(t *testing.T) {
	vec, pin := argVec([]string{"a", "", "ccc"})
	defer pin.Unpin()

	require.Equal(t, uintptr(3), vec.len)
	strs := unsafe.Slice(vec.ptr, vec.len)
	assert.Equal(t, "a", copyStr(strs[0]))
	assert.Equal(t, "", copyStr(strs[1]))
	assert.Equal(t, "ccc", copyStr(strs[2]))
}

func TestArgVec_Empty(t *testing.T) {
	vec, pin := argVec(nil)
	defer pin.Unpin()

	assert.Nil(t, vec.ptr)
	assert.Zero(t, vec.len)
}
