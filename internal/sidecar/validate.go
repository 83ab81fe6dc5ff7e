// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

package sidecar

import (
	"unicode/utf8"

	"github.com/samber/oops"
)

// ValidateName checks that name is a non-empty UTF-8 string.
func ValidateName(name string) error {
	return validateField("name", name)
}

// ValidateFilename checks that filename is a non-empty UTF-8 string. It is
// resolved against the sidecar's directory, so it may name a subpath.
func ValidateFilename(filename string) error {
	return validateField("filename", filename)
}

func validateField(field, value string) error {
	if value == "" {
		return oops.Code("INVALID_METADATA").
			In("sidecar").
			With("field", field).
			Errorf("plugin %s cannot be empty", field)
	}
	if !utf8.ValidString(value) {
		return oops.Code("INVALID_METADATA").
			In("sidecar").
			With("field", field).
			Errorf("plugin %s %q is not valid UTF-8", field, value)
	}
	return nil
}
