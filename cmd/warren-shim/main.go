// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

package main

/*
#include <errno.h>
#include <sys/types.h>

static void shim_set_errno(int value) { errno = value; }
*/
import "C"

import (
	"os"
	"strconv"
	"unsafe"

	"golang.org/x/sys/unix"
)

// The identity reported to the workload. The kernel credentials stay
// root; only the libc-level queries are answered with this.
const (
	spoofedUID = 1000
	spoofedGID = 1000
)

//export getuid
func getuid() C.uid_t {
	return spoofedUID
}

//export geteuid
func geteuid() C.uid_t {
	return spoofedUID
}

//export getgid
func getgid() C.gid_t {
	return spoofedGID
}

//export getegid
func getegid() C.gid_t {
	return spoofedGID
}

// ioctl forwards to the real syscall and patches TIOCGWINSZ results
// that report no usable geometry. Interposing with a fixed three
// argument signature covers every terminal ioctl; the third argument
// is always a pointer or small integer in the first variadic slot.
//
//export ioctl
func ioctl(fd C.int, request C.ulong, arg unsafe.Pointer) C.int {
	ret, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(request), uintptr(arg))
	failed := errno != 0

	if request == unix.TIOCGWINSZ && arg != nil {
		ws := (*unix.Winsize)(arg)
		if needsPatch(failed, ws.Row, ws.Col) {
			rows, cols := termSizeFromEnv()
			if rows > 0 || cols > 0 {
				if rows > 0 {
					ws.Row = rows
				}
				if cols > 0 {
					ws.Col = cols
				}
				return 0
			}
		}
	}

	if failed {
		C.shim_set_errno(C.int(errno))
		return -1
	}
	return C.int(ret)
}

// needsPatch reports whether a TIOCGWINSZ result calls for the
// environment fallback: the ioctl failed outright or the console
// reported a zero-by-zero terminal.
func needsPatch(failed bool, rows, cols uint16) bool {
	return failed || (rows == 0 && cols == 0)
}

// termSizeFromEnv returns the launcher-provided terminal geometry.
// A missing or non-positive dimension is returned as zero.
func termSizeFromEnv() (rows, cols uint16) {
	if value, err := strconv.Atoi(os.Getenv("WARREN_TERM_ROWS")); err == nil && value > 0 && value <= 0xffff {
		rows = uint16(value)
	}
	if value, err := strconv.Atoi(os.Getenv("WARREN_TERM_COLS")); err == nil && value > 0 && value <= 0xffff {
		cols = uint16(value)
	}
	return rows, cols
}

// main is required by buildmode=c-shared and never runs.
func main() {}
