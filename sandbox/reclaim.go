// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// ReclaimStale removes staging roots whose owning process is gone.
// It runs at launcher start, so crashed launchers leak a directory
// only until the next invocation.
//
// A root is reclaimed when its PID is dead, or when the PID is alive
// but its start ticks differ from the manifest (the PID was reused by
// an unrelated process). An alive PID with an unreadable manifest is
// left alone. Entries that are not numbered directories are never
// touched. Returns the paths removed.
func ReclaimStale(cacheRoot string, logger *slog.Logger) ([]string, error) {
	entries, err := os.ReadDir(cacheRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading staging cache: %w", err)
	}

	var removed []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(entry.Name())
		if err != nil || pid <= 0 {
			continue
		}
		path := filepath.Join(cacheRoot, entry.Name())

		if processAlive(pid) {
			manifest, err := ReadManifest(path)
			if err != nil {
				// Cannot prove the root is stale; leave it for a
				// later pass.
				logger.Debug("skipping staging root with unreadable manifest",
					"path", path, "error", err)
				continue
			}
			ticks, err := processStartTicks(pid)
			if err == nil && ticks == manifest.OwnerStartTicks {
				continue
			}
			// Same PID, different process. The owner is gone.
		}

		if err := os.RemoveAll(path); err != nil {
			logger.Warn("failed to remove stale staging root",
				"path", path, "error", err)
			continue
		}
		logger.Info("reclaimed stale staging root", "path", path, "pid", pid)
		removed = append(removed, path)
	}
	return removed, nil
}

// processAlive reports whether a process with the given PID exists.
// EPERM means the process exists but belongs to another user.
func processAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	if errors.Is(err, os.ErrProcessDone) || errors.Is(err, syscall.ESRCH) {
		return false
	}
	return errors.Is(err, syscall.EPERM)
}

// processStartTicks reads the process start time, in clock ticks
// since boot, from /proc/<pid>/stat. The comm field may contain
// spaces and parentheses, so fields are counted from after the last
// ')' (comm is field 2, starttime is field 22).
func processStartTicks(pid int) (uint64, error) {
	data, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "stat"))
	if err != nil {
		return 0, err
	}
	idx := bytes.LastIndexByte(data, ')')
	if idx < 0 || idx+2 > len(data) {
		return 0, fmt.Errorf("malformed stat for pid %d", pid)
	}
	fields := strings.Fields(string(data[idx+2:]))
	if len(fields) < 20 {
		return 0, fmt.Errorf("malformed stat for pid %d", pid)
	}
	ticks, err := strconv.ParseUint(fields[19], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing start time for pid %d: %w", pid, err)
	}
	return ticks, nil
}
