// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

// Package version carries the build metadata stamped into warren
// binaries via -ldflags:
//
//	go build -ldflags "\
//	  -X github.com/warren-sandbox/warren/lib/version.GitCommit=$(git rev-parse --short HEAD) \
//	  -X github.com/warren-sandbox/warren/lib/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Unstamped builds report "unknown" fields rather than failing.
package version

import (
	"fmt"
	"runtime"
)

// Set at build time. The defaults stand in for local builds.
var (
	GitCommit = "unknown"
	GitDirty  = "false"
	BuildTime = "unknown"
	Version   = "0.1.0-dev"
)

// String returns the one-line form used by --version flags:
// version, commit (with a -dirty marker), and build time.
func String() string {
	commit := GitCommit
	if GitDirty == "true" {
		commit += "-dirty"
	}
	return fmt.Sprintf("%s (%s, %s)", Version, commit, BuildTime)
}

// Print writes the version banner for the named binary to stdout.
func Print(binary string) {
	fmt.Printf("%s %s\n", binary, String())
}

// Full returns the multi-line form used by "warren version": the
// one-line form plus the Go toolchain and target platform.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		String(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
