// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"fmt"
	"strings"
)

// MountMode is the access mode of a mount.
type MountMode string

// MountMode constants for the Mode field.
const (
	MountModeRO MountMode = "ro" // Read-only
	MountModeRW MountMode = "rw" // Read-write
)

// MountSpec is a declared mount, parsed from a profile or mount file.
// Source and Dest may use the shorthand tokens recognized by
// lib/expand (leading ~, $HOME, $USER). A MountSpec is immutable once
// parsed; the resolver consumes it read-only.
type MountSpec struct {
	Source   string
	Dest     string
	Mode     MountMode
	Optional bool
}

// ParseMountLine parses one mount declaration in the form
//
//	source:dest:mode:optional|required
//
// where mode is "ro" or "rw". All four fields are required; paths
// containing colons cannot be expressed in this format.
func ParseMountLine(line string) (MountSpec, error) {
	fields := strings.Split(line, ":")
	if len(fields) != 4 {
		return MountSpec{}, fmt.Errorf("mount line %q: want 4 colon-separated fields, got %d", line, len(fields))
	}
	for i, field := range fields {
		fields[i] = strings.TrimSpace(field)
	}

	spec := MountSpec{Source: fields[0], Dest: fields[1]}
	if spec.Source == "" {
		return MountSpec{}, fmt.Errorf("mount line %q: empty source", line)
	}
	if spec.Dest == "" {
		return MountSpec{}, fmt.Errorf("mount line %q: empty destination", line)
	}

	switch fields[2] {
	case string(MountModeRO):
		spec.Mode = MountModeRO
	case string(MountModeRW):
		spec.Mode = MountModeRW
	default:
		return MountSpec{}, fmt.Errorf("mount line %q: invalid mode %q (must be ro or rw)", line, fields[2])
	}

	switch fields[3] {
	case "optional":
		spec.Optional = true
	case "required":
		spec.Optional = false
	default:
		return MountSpec{}, fmt.Errorf("mount line %q: invalid qualifier %q (must be optional or required)", line, fields[3])
	}

	return spec, nil
}

// ParseMountLines parses newline-separated mount declarations. Blank
// lines and lines starting with # are skipped. The first malformed
// line fails the whole parse, reported with its 1-based line number.
func ParseMountLines(input string) ([]MountSpec, error) {
	var specs []MountSpec
	for number, line := range strings.Split(input, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		spec, err := ParseMountLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", number+1, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// ResolvedMount is the concrete result of resolving a MountSpec:
// HostPath points either at the original file or at a staged,
// dereferenced directory copy, and never contains an unresolved
// shorthand token.
type ResolvedMount struct {
	HostPath  string
	GuestPath string
	Mode      MountMode
}

// String renders the mount as "hostPath:guestPath:mode", the format
// consumed by the wrapped orchestrator command via WARREN_MOUNTS.
func (m ResolvedMount) String() string {
	return m.HostPath + ":" + m.GuestPath + ":" + string(m.Mode)
}

// FormatMounts renders resolved mounts as newline-separated triples.
func FormatMounts(mounts []ResolvedMount) string {
	lines := make([]string, len(mounts))
	for i, mount := range mounts {
		lines[i] = mount.String()
	}
	return strings.Join(lines, "\n")
}
