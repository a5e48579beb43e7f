// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

// warren-relay is the guest-side entrypoint of a warren microVM. The
// virtio console the VM boots with does not reliably support terminal
// attribute changes (raw mode, echo), so interactive programs misbehave
// when run on it directly. The relay allocates a real PTY where those
// attributes work, runs the workload on its slave side, and copies
// bytes between the console and the PTY master.
//
// The console's ICRNL flag turns Enter (CR) into LF before the relay
// ever sees it. TUI programs expect CR for "submit", so the relay
// rewrites LF back to CR on the console-to-PTY direction only; output
// passes through untouched.
//
// Process tree:
//
//	VM init → warren-relay → /warren-init.sh → workload
//
// With no arguments the relay runs /warren-init.sh; arguments name a
// replacement command. The relay exits with the child's exit code
// (or 1 when the child was killed by a signal, 127 when it could not
// be started), so the launcher outside the VM observes the workload's
// real status.
//
// Terminal geometry comes from WARREN_TERM_ROWS and WARREN_TERM_COLS,
// set by the launcher, with --rows/--cols taking precedence; without
// either the PTY is 24x80. --transcript appends the session's output
// stream to a file, zstd-compressed when the path ends in .zst.
package main
