// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// transcript appends the session's output stream to a file for
// postmortem review. Appending to an existing .zst file starts a new
// frame; concatenated frames decode as one stream.
type transcript struct {
	file    *os.File
	zwriter *zstd.Encoder
	failed  bool
}

func openTranscript(path string) (*transcript, error) {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open transcript %s: %w", path, err)
	}
	t := &transcript{file: file}
	if strings.HasSuffix(path, ".zst") {
		t.zwriter, err = zstd.NewWriter(file, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("transcript zstd writer: %w", err)
		}
	}
	return t, nil
}

// Record appends output bytes. Recording is best effort: the first
// write failure disables the transcript with a warning rather than
// disturbing the relay.
func (t *transcript) Record(p []byte) {
	if t == nil || t.failed {
		return
	}
	var w io.Writer = t.file
	if t.zwriter != nil {
		w = t.zwriter
	}
	if _, err := w.Write(p); err != nil {
		t.failed = true
		fmt.Fprintf(os.Stderr, "warren-relay: transcript write failed, recording stopped: %v\n", err)
	}
}

// Close flushes and closes the transcript. Safe on a nil transcript.
func (t *transcript) Close() error {
	if t == nil {
		return nil
	}
	var firstErr error
	if t.zwriter != nil {
		firstErr = t.zwriter.Close()
	}
	if err := t.file.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
