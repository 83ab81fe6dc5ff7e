// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

// Package sidecar encodes and decodes the .metadata files that sit next to a
// plugin and name it.
//
// Layout, all integers unsigned 16-bit in host-native byte order:
//
//	total_length | name_length | name | file_length | filename
//
// total_length equals the size of the file.
package sidecar

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/samber/oops"
)

// Ext is the file extension of a sidecar, without the dot.
const Ext = "metadata"

const headerLen = 2

// ErrInvalidMetadata matches every decode failure via errors.Is.
var ErrInvalidMetadata = errors.New("invalid metadata")

// Metadata is a decoded sidecar.
type Metadata struct {
	Name     string `yaml:"name"`
	Filename string `yaml:"filename"`
	// Path is the sidecar's directory joined with Filename.
	Path string `yaml:"path"`
}

var order = binary.NativeEndian

// Encode serializes a sidecar for the plugin name and its filename.
func Encode(name, filename string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := ValidateFilename(filename); err != nil {
		return nil, err
	}
	total := 3*headerLen + len(name) + len(filename)
	if total > math.MaxUint16 {
		return nil, oops.Code("INVALID_METADATA").
			In("sidecar").
			With("length", total).
			Errorf("metadata of %d bytes exceeds the %d byte limit", total, math.MaxUint16)
	}

	buf := make([]byte, 0, total)
	buf = order.AppendUint16(buf, uint16(total))
	buf = order.AppendUint16(buf, uint16(len(name)))
	buf = append(buf, name...)
	buf = order.AppendUint16(buf, uint16(len(filename)))
	buf = append(buf, filename...)
	return buf, nil
}

// Decode parses a sidecar read from dir. The resulting Path is dir joined
// with the encoded filename.
func Decode(dir string, buf []byte) (Metadata, error) {
	d := decoder{buf: buf, dir: dir}

	total, err := d.uint16("total_length")
	if err != nil {
		return Metadata{}, err
	}
	if int(total) != len(buf) {
		return Metadata{}, d.fail("total length %d does not match size %d", total, len(buf))
	}
	name, err := d.field("name")
	if err != nil {
		return Metadata{}, err
	}
	filename, err := d.field("filename")
	if err != nil {
		return Metadata{}, err
	}
	if d.pos != len(buf) {
		return Metadata{}, d.fail("%d trailing bytes", len(buf)-d.pos)
	}

	return Metadata{
		Name:     name,
		Filename: filename,
		Path:     filepath.Join(dir, filename),
	}, nil
}

// ReadFile reads and decodes the sidecar at path.
func ReadFile(path string) (Metadata, error) {
	buf, err := os.ReadFile(path) //nolint:gosec // sidecar paths come from search directories
	if err != nil {
		return Metadata{}, oops.Code("INVALID_METADATA").
			In("sidecar").
			With("path", path).
			Wrapf(errors.Join(ErrInvalidMetadata, err), "read sidecar")
	}
	meta, err := Decode(filepath.Dir(path), buf)
	if err != nil {
		return Metadata{}, oops.With("path", path).Wrap(err)
	}
	return meta, nil
}

// WriteFile encodes a sidecar for name and filename and writes it to
// dir/<name>.metadata, returning the written path.
func WriteFile(dir, name, filename string) (string, error) {
	buf, err := Encode(name, filename)
	if err != nil {
		return "", err
	}
	if strings.ContainsAny(name, `/\`) {
		return "", oops.Code("INVALID_METADATA").
			In("sidecar").
			With("name", name).
			Errorf("plugin name %q cannot be used as a file name", name)
	}
	path := filepath.Join(dir, name+"."+Ext)
	if err := os.WriteFile(path, buf, 0o644); err != nil { //nolint:gosec // sidecars are world-readable like the plugins they describe
		return "", oops.In("sidecar").With("path", path).Wrapf(err, "write sidecar")
	}
	return path, nil
}

type decoder struct {
	buf []byte
	pos int
	dir string
}

func (d *decoder) fail(format string, args ...any) error {
	return oops.Code("INVALID_METADATA").
		In("sidecar").
		With("dir", d.dir).
		With("offset", d.pos).
		Wrapf(ErrInvalidMetadata, format, args...)
}

func (d *decoder) uint16(field string) (uint16, error) {
	if len(d.buf)-d.pos < headerLen {
		return 0, d.fail("truncated buffer reading %s", field)
	}
	v := order.Uint16(d.buf[d.pos:])
	d.pos += headerLen
	return v, nil
}

func (d *decoder) field(field string) (string, error) {
	n, err := d.uint16(field + "_length")
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", d.fail("zero-length %s", field)
	}
	if int(n) > len(d.buf)-d.pos {
		return "", d.fail("%s length %d overruns buffer", field, n)
	}
	raw := d.buf[d.pos : d.pos+int(n)]
	if !utf8.Valid(raw) {
		return "", d.fail("%s is not valid UTF-8", field)
	}
	d.pos += int(n)
	return string(raw), nil
}
