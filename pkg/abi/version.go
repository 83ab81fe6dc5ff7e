// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rush Contributors

package abi

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"
)

// Version is the ABI version tag this host implements. Plugins embed the tag
// they were built against next to their method table.
const Version = "1.0.0"

// hostConstraint accepts every tag sharing the host's major version.
var hostConstraint = mustConstraint("^" + Version)

func mustConstraint(c string) *semver.Constraints {
	cons, err := semver.NewConstraint(c)
	if err != nil {
		panic(fmt.Sprintf("abi: invalid constraint %q: %v", c, err))
	}
	return cons
}

// CheckVersion validates a plugin's ABI tag against the host.
func CheckVersion(tag string) error {
	v, err := semver.StrictNewVersion(tag)
	if err != nil {
		return oops.Code("ABI_MISMATCH").
			In("abi").
			With("abi_version", tag).
			Hint("plugins must report a semantic version such as "+Version).
			Wrapf(err, "invalid plugin ABI version %q", tag)
	}
	if !hostConstraint.Check(v) {
		return oops.Code("ABI_MISMATCH").
			In("abi").
			With("abi_version", tag).
			With("host_abi_version", Version).
			Errorf("plugin ABI version %s is incompatible with host ABI %s", tag, Version)
	}
	return nil
}
