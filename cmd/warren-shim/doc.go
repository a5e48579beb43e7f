// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

// warren-shim builds as an LD_PRELOAD library (buildmode=c-shared)
// loaded into the guest workload. The microVM maps the host user to
// root inside the guest, and some workloads refuse to run as root;
// the shim answers getuid/geteuid/getgid/getegid with an unprivileged
// identity while the kernel keeps the real credentials, so file
// access is unaffected.
//
// It also interposes ioctl to patch TIOCGWINSZ: when the console
// cannot report a geometry (the call fails or returns 0x0), the shim
// fills in WARREN_TERM_ROWS and WARREN_TERM_COLS from the launcher.
// The real ioctl is reached through a direct syscall, not dlsym, so
// the shim has no libc lookup dependency.
//
// Build:
//
//	go build -buildmode=c-shared -o libwarren-shim.so ./cmd/warren-shim
//
// The launcher injects the library via LD_PRELOAD in the guest
// environment. Terminal relaying itself lives in warren-relay; the
// shim only covers programs that query the terminal directly.
package main
