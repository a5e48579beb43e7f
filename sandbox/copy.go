// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
)

// inodeKey identifies a directory for symlink cycle detection.
type inodeKey struct {
	dev uint64
	ino uint64
}

func inodeOf(info os.FileInfo) (inodeKey, bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return inodeKey{}, false
	}
	return inodeKey{dev: uint64(stat.Dev), ino: uint64(stat.Ino)}, true
}

// copyTree copies the directory at src to dst, which must not exist.
// Symlinks are dereferenced, so the copy holds real files only and
// the guest cannot follow a link back out of the staged tree. A
// symlink cycle or a special file (socket, fifo, device) is an error.
func copyTree(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: not a directory", src)
	}
	return copyDir(src, dst, info, make(map[inodeKey]bool))
}

func copyDir(src, dst string, info os.FileInfo, ancestors map[inodeKey]bool) error {
	if key, ok := inodeOf(info); ok {
		if ancestors[key] {
			return fmt.Errorf("%s: symlink cycle", src)
		}
		ancestors[key] = true
		defer delete(ancestors, key)
	}

	// Create writable and apply the source mode only after the entries
	// are in: a read-only source directory (r-x) must not lock the
	// copier out of its own copy while populating it.
	if err := os.Mkdir(dst, 0o700); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		// Stat rather than the entry's own info so symlinks resolve
		// to their targets. A dangling link surfaces here as an
		// error rather than a broken file in the copy.
		target, err := os.Stat(srcPath)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", srcPath, err)
		}

		switch {
		case target.IsDir():
			if err := copyDir(srcPath, dstPath, target, ancestors); err != nil {
				return err
			}
		case target.Mode().IsRegular():
			if err := copyFile(srcPath, dstPath, target.Mode().Perm()); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%s: unsupported file type %s", srcPath, target.Mode().Type())
		}
	}

	return os.Chmod(dst, info.Mode().Perm())
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("copying %s: %w", src, err)
	}
	// OpenFile applies the umask; fix the mode up afterwards.
	return os.Chmod(dst, perm)
}
