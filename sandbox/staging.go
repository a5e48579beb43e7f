// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/warren-sandbox/warren/lib/codec"
	"github.com/warren-sandbox/warren/lib/treehash"
)

// manifestName is the manifest file inside each staging root.
const manifestName = "manifest.cbor"

// Manifest records who owns a staging root and what was staged into
// it. The owner PID plus its start ticks form a fingerprint that
// stays valid across PID reuse: a later process with the same PID has
// different start ticks, so reclamation can tell the two apart.
type Manifest struct {
	OwnerPID        int             `cbor:"owner_pid"`
	OwnerStartTicks uint64          `cbor:"owner_start_ticks"`
	Created         int64           `cbor:"created"`
	Entries         []ManifestEntry `cbor:"entries"`
}

// ManifestEntry describes one staged directory.
type ManifestEntry struct {
	Index     int       `cbor:"index"`
	Source    string    `cbor:"source"`
	GuestPath string    `cbor:"guest_path"`
	Mode      MountMode `cbor:"mode"`
	Files     int64     `cbor:"files"`
	Bytes     int64     `cbor:"bytes"`
	Digest    string    `cbor:"digest"`
}

// StagingRoot is a per-process directory of staged mount copies.
// Entries are numbered subdirectories; the manifest is rewritten
// after every entry so a crashed launcher leaves a directory that
// reclamation can still account for.
type StagingRoot struct {
	path     string
	manifest Manifest
}

// DefaultCacheRoot returns the staging cache directory,
// $XDG_CACHE_HOME/warren/staging or its platform equivalent.
func DefaultCacheRoot() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locating cache directory: %w", err)
	}
	return filepath.Join(cacheDir, "warren", "staging"), nil
}

// NewStagingRoot creates a staging root for the current process under
// cacheRoot. A leftover directory with this PID is from an earlier
// process and is removed first.
func NewStagingRoot(cacheRoot string) (*StagingRoot, error) {
	if err := os.MkdirAll(cacheRoot, 0o700); err != nil {
		return nil, fmt.Errorf("creating staging cache: %w", err)
	}

	pid := os.Getpid()
	path := filepath.Join(cacheRoot, strconv.Itoa(pid))
	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("clearing stale staging root: %w", err)
	}
	if err := os.Mkdir(path, 0o700); err != nil {
		return nil, fmt.Errorf("creating staging root: %w", err)
	}

	ticks, err := processStartTicks(pid)
	if err != nil {
		os.RemoveAll(path)
		return nil, fmt.Errorf("reading own start time: %w", err)
	}

	root := &StagingRoot{
		path: path,
		manifest: Manifest{
			OwnerPID:        pid,
			OwnerStartTicks: ticks,
			Created:         time.Now().Unix(),
		},
	}
	if err := root.writeManifest(); err != nil {
		os.RemoveAll(path)
		return nil, err
	}
	return root, nil
}

// Path returns the staging root directory.
func (s *StagingRoot) Path() string {
	return s.path
}

// Entries returns the manifest entries staged so far.
func (s *StagingRoot) Entries() []ManifestEntry {
	return s.manifest.Entries
}

// AddEntry copies the directory at source into the next numbered
// entry, records it in the manifest, and returns the copy's path.
func (s *StagingRoot) AddEntry(source, guestPath string, mode MountMode) (string, error) {
	index := len(s.manifest.Entries)
	entryPath := filepath.Join(s.path, strconv.Itoa(index))

	if err := copyTree(source, entryPath); err != nil {
		os.RemoveAll(entryPath)
		return "", err
	}

	stat, err := treehash.Tree(entryPath)
	if err != nil {
		os.RemoveAll(entryPath)
		return "", fmt.Errorf("hashing staged copy: %w", err)
	}

	s.manifest.Entries = append(s.manifest.Entries, ManifestEntry{
		Index:     index,
		Source:    source,
		GuestPath: guestPath,
		Mode:      mode,
		Files:     stat.Files,
		Bytes:     stat.Bytes,
		Digest:    stat.Digest.String(),
	})
	if err := s.writeManifest(); err != nil {
		return "", err
	}
	return entryPath, nil
}

func (s *StagingRoot) writeManifest() error {
	data, err := codec.Marshal(s.manifest)
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.path, manifestName), data, 0o600); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// Cleanup removes the staging root and everything in it. It is safe
// to call on a nil root and safe to call more than once.
func (s *StagingRoot) Cleanup() error {
	if s == nil || s.path == "" {
		return nil
	}
	return os.RemoveAll(s.path)
}

// ReadManifest reads the manifest from a staging root directory.
func ReadManifest(rootPath string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(rootPath, manifestName))
	if err != nil {
		return nil, err
	}
	var manifest Manifest
	if err := codec.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	return &manifest, nil
}
