// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

// Package treehash computes BLAKE3 digests over file trees. The
// staging layer records a digest per staged entry so that `warren
// staging diff` can later tell whether the guest modified a staged
// copy.
//
// A tree digest covers, for every regular file in walk order: the
// slash-separated path relative to the root, the permission bits, the
// size, and the content. Directory entries contribute their relative
// path only. Symlinks and special files are an error — staged trees
// are fully dereferenced and contain neither.
package treehash

import (
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"
)

// Digest is a BLAKE3-256 digest.
type Digest [32]byte

// String returns the hex encoding of the digest. This is the format
// stored in staging manifests and shown in CLI output.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// ParseDigest parses a 64-character hex digest string.
func ParseDigest(hexString string) (Digest, error) {
	var digest Digest
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return digest, fmt.Errorf("parsing tree digest: %w", err)
	}
	if len(decoded) != len(digest) {
		return digest, fmt.Errorf("tree digest is %d bytes, want %d", len(decoded), len(digest))
	}
	copy(digest[:], decoded)
	return digest, nil
}

// TreeStat summarizes a hashed tree.
type TreeStat struct {
	// Digest is the tree digest.
	Digest Digest

	// Files is the number of regular files hashed.
	Files int64

	// Bytes is the total content size of those files.
	Bytes int64
}

// Tree hashes the file tree rooted at root. The walk order is the
// lexical order of filepath.WalkDir, so two structurally identical
// trees always produce the same digest.
func Tree(root string) (TreeStat, error) {
	hasher := blake3.New()
	var stat TreeStat

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		relative, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if relative == "." {
			return nil
		}
		relative = filepath.ToSlash(relative)

		info, err := entry.Info()
		if err != nil {
			return err
		}

		switch {
		case entry.IsDir():
			fmt.Fprintf(hasher, "dir %s\n", relative)

		case info.Mode().IsRegular():
			fmt.Fprintf(hasher, "file %s %o %d\n", relative, info.Mode().Perm(), info.Size())
			file, err := os.Open(path)
			if err != nil {
				return err
			}
			copied, err := io.Copy(hasher, file)
			file.Close()
			if err != nil {
				return fmt.Errorf("hashing %s: %w", path, err)
			}
			stat.Files++
			stat.Bytes += copied

		default:
			return fmt.Errorf("hashing %s: unsupported file type %s", path, info.Mode().Type())
		}
		return nil
	})
	if err != nil {
		return TreeStat{}, err
	}

	copy(stat.Digest[:], hasher.Sum(nil))
	return stat, nil
}

// File streams the file at path through BLAKE3 and returns its digest.
func File(path string) (Digest, error) {
	file, err := os.Open(path)
	if err != nil {
		return Digest{}, fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return Digest{}, fmt.Errorf("hashing %s: %w", path, err)
	}

	var digest Digest
	copy(digest[:], hasher.Sum(nil))
	return digest, nil
}
