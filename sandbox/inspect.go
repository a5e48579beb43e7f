// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

// OwnerState classifies the owning process of a staging root.
type OwnerState string

// Owner states reported by InspectStagingRoots.
const (
	// OwnerLive: the owning process is still running.
	OwnerLive OwnerState = "live"

	// OwnerDead: no process with the owner's PID exists.
	OwnerDead OwnerState = "dead"

	// OwnerReused: a process with the owner's PID exists, but its
	// start time differs from the manifest fingerprint. The owner is
	// gone and the PID now belongs to an unrelated process.
	OwnerReused OwnerState = "reused"

	// OwnerUnknown: the manifest is unreadable, so the owner cannot
	// be fingerprinted.
	OwnerUnknown OwnerState = "unknown"
)

// StagingRootInfo summarizes one staging root for CLI listings.
type StagingRootInfo struct {
	// Path is the staging root directory.
	Path string

	// PID is the owning process ID, from the directory name.
	PID int

	// State classifies the owner.
	State OwnerState

	// Created is the manifest creation time. Zero when the manifest
	// is unreadable.
	Created time.Time

	// Entries is the number of staged directory entries.
	Entries int

	// Files and Bytes total the manifest entry counts.
	Files int64
	Bytes int64
}

// InspectStagingRoots reads every staging root under cacheRoot and
// classifies its owner, without removing anything. Non-numeric
// directory names are skipped; they do not belong to the staging
// layout. Results are ordered by PID. A missing cacheRoot yields an
// empty listing.
func InspectStagingRoots(cacheRoot string) ([]StagingRootInfo, error) {
	entries, err := os.ReadDir(cacheRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading staging cache: %w", err)
	}

	var infos []StagingRootInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(entry.Name())
		if err != nil || pid <= 0 {
			continue
		}

		info := StagingRootInfo{
			Path: filepath.Join(cacheRoot, entry.Name()),
			PID:  pid,
		}

		manifest, err := ReadManifest(info.Path)
		if err != nil {
			info.State = OwnerUnknown
			if !processAlive(pid) {
				info.State = OwnerDead
			}
			infos = append(infos, info)
			continue
		}

		info.Created = time.Unix(manifest.Created, 0)
		info.Entries = len(manifest.Entries)
		for _, staged := range manifest.Entries {
			info.Files += staged.Files
			info.Bytes += staged.Bytes
		}

		switch {
		case !processAlive(pid):
			info.State = OwnerDead
		default:
			ticks, err := processStartTicks(pid)
			if err == nil && ticks == manifest.OwnerStartTicks {
				info.State = OwnerLive
			} else {
				info.State = OwnerReused
			}
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].PID < infos[j].PID })
	return infos, nil
}
