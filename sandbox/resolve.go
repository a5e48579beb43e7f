// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/warren-sandbox/warren/lib/expand"
)

// ErrSkip reports that an optional mount's source does not exist and
// the mount should be dropped from the final set.
var ErrSkip = errors.New("optional mount source missing")

// Resolver turns mount specifications into concrete host paths the
// launcher can hand to the microVM. Directory sources are staged into
// a private copy via Staging; file sources pass through directly.
type Resolver struct {
	// Home and User are the values substituted for ~, $HOME and
	// $USER in mount sources.
	Home string
	User string

	// Staging supplies the staging root for directory mounts. It is
	// called lazily so a mount set with no directories never creates
	// a staging directory.
	Staging func() (*StagingRoot, error)
}

// NewResolver creates a resolver using the current process
// environment for path expansion.
func NewResolver(staging func() (*StagingRoot, error)) *Resolver {
	return &Resolver{
		Home:    os.Getenv("HOME"),
		User:    os.Getenv("USER"),
		Staging: staging,
	}
}

// MountPlan describes what resolving a mount would do, without
// copying anything.
type MountPlan struct {
	// Source is the expanded host source path.
	Source string
	// Dest is the expanded guest destination path.
	Dest string
	// Mode is the access mode for the mount.
	Mode MountMode
	// IsDir reports whether the source is a directory and would be
	// staged rather than passed through.
	IsDir bool
}

// Plan expands and checks one mount specification without staging
// anything. A missing optional source returns ErrSkip alongside the
// expanded plan, so callers can still report which path was skipped;
// a missing required source is an error.
func (r *Resolver) Plan(spec MountSpec) (MountPlan, error) {
	plan := MountPlan{
		Source: expand.Expand(spec.Source, r.Home, r.User),
		Dest:   expand.Expand(spec.Dest, r.Home, r.User),
		Mode:   spec.Mode,
	}

	info, err := os.Stat(plan.Source)
	if err != nil {
		// A path that crosses a regular file (ENOTDIR) is as absent as
		// one whose final component is missing; ~/.config being a file
		// must not turn an optional ~/.config/git mount fatal.
		if os.IsNotExist(err) || errors.Is(err, syscall.ENOTDIR) {
			if spec.Optional {
				return plan, fmt.Errorf("%s: %w", plan.Source, ErrSkip)
			}
			return MountPlan{}, fmt.Errorf("mount source not found: %s", plan.Source)
		}
		return MountPlan{}, fmt.Errorf("checking mount source %s: %w", plan.Source, err)
	}

	plan.IsDir = info.IsDir()
	return plan, nil
}

// Resolve resolves one mount specification. Directory sources are
// copied into the staging root and the copy's path is returned; file
// sources resolve to the source itself.
func (r *Resolver) Resolve(spec MountSpec) (ResolvedMount, error) {
	plan, err := r.Plan(spec)
	if err != nil {
		return ResolvedMount{}, err
	}

	hostPath := plan.Source
	if plan.IsDir {
		staging, err := r.Staging()
		if err != nil {
			return ResolvedMount{}, fmt.Errorf("preparing staging root: %w", err)
		}
		hostPath, err = staging.AddEntry(plan.Source, plan.Dest, plan.Mode)
		if err != nil {
			return ResolvedMount{}, fmt.Errorf("staging %s: %w", plan.Source, err)
		}
	}

	return ResolvedMount{
		HostPath:  hostPath,
		GuestPath: plan.Dest,
		Mode:      plan.Mode,
	}, nil
}

// ResolveAll resolves a mount set in order. Optional mounts with
// missing sources are dropped; any other error aborts the whole
// resolution so the caller never launches with a partial mount set.
func (r *Resolver) ResolveAll(specs []MountSpec) ([]ResolvedMount, error) {
	resolved := make([]ResolvedMount, 0, len(specs))
	for _, spec := range specs {
		mount, err := r.Resolve(spec)
		if err != nil {
			if errors.Is(err, ErrSkip) {
				continue
			}
			return nil, err
		}
		resolved = append(resolved, mount)
	}
	return resolved, nil
}
