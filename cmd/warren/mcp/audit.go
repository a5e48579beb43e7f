// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// auditEntry is one JSON Lines record in the audit log. Fields not
// relevant to a given tool are omitted.
type auditEntry struct {
	Timestamp   string `json:"ts"`
	Tool        string `json:"tool"`
	PaneID      string `json:"pane_id,omitempty"`
	Command     string `json:"command,omitempty"`
	Name        string `json:"name,omitempty"`
	Keys        string `json:"keys,omitempty"`
	Lines       int    `json:"lines,omitempty"`
	OutputBytes int    `json:"output_bytes,omitempty"`
}

// auditLog appends tool invocations to a JSON Lines file and
// optionally saves full capture bodies to a directory. A nil auditLog
// is valid and records nothing, so call sites never branch on whether
// auditing is enabled.
//
// Audit failures are logged and swallowed: a broken audit destination
// must not take the debug tools down with it.
type auditLog struct {
	path       string
	captureDir string
	logger     *slog.Logger

	// counters numbers each pane's saved captures from 1.
	counters map[string]int
}

// newAuditLog builds the audit log from config, or returns nil when
// auditing is disabled entirely.
func newAuditLog(config *Config, logger *slog.Logger) *auditLog {
	if config.AuditLog == "" && config.AuditCaptureDir == "" {
		return nil
	}
	return &auditLog{
		path:       config.AuditLog,
		captureDir: config.AuditCaptureDir,
		logger:     logger,
		counters:   make(map[string]int),
	}
}

func (a *auditLog) recordCreate(paneID, command, name string) {
	if a == nil {
		return
	}
	a.record(auditEntry{
		Tool:    toolCreatePane,
		PaneID:  paneID,
		Command: command,
		Name:    name,
	})
}

func (a *auditLog) recordSendKeys(paneID, keys string) {
	if a == nil {
		return
	}
	a.record(auditEntry{
		Tool:   toolSendKeys,
		PaneID: paneID,
		Keys:   keys,
	})
}

// recordCapture logs a capture and, when a capture directory is
// configured, saves the full body alongside.
func (a *auditLog) recordCapture(paneID string, lines int, output string) {
	if a == nil {
		return
	}
	a.record(auditEntry{
		Tool:        toolCapturePane,
		PaneID:      paneID,
		Lines:       lines,
		OutputBytes: len(output),
	})
	a.saveCapture(paneID, output)
}

func (a *auditLog) recordKill(paneID string) {
	if a == nil {
		return
	}
	a.record(auditEntry{Tool: toolKillPane, PaneID: paneID})
}

func (a *auditLog) recordList() {
	if a == nil {
		return
	}
	a.record(auditEntry{Tool: toolListPanes})
}

// record appends one entry to the JSON Lines file.
func (a *auditLog) record(entry auditEntry) {
	if a.path == "" {
		return
	}
	entry.Timestamp = time.Now().UTC().Format(time.RFC3339)
	line, err := json.Marshal(entry)
	if err != nil {
		a.logger.Warn("audit entry not serializable", "error", err)
		return
	}
	file, err := os.OpenFile(a.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		a.logger.Warn("audit log unwritable", "path", a.path, "error", err)
		return
	}
	defer file.Close()
	if _, err := file.Write(append(line, '\n')); err != nil {
		a.logger.Warn("audit log write failed", "path", a.path, "error", err)
	}
}

// saveCapture writes a capture body to the capture directory as
// <pane>-capture-NNN.txt, numbered per pane from 001.
func (a *auditLog) saveCapture(paneID, output string) {
	if a.captureDir == "" {
		return
	}
	if err := os.MkdirAll(a.captureDir, 0o755); err != nil {
		a.logger.Warn("capture directory unavailable", "dir", a.captureDir, "error", err)
		return
	}
	a.counters[paneID]++
	name := fmt.Sprintf("%s-capture-%03d.txt", paneID, a.counters[paneID])
	path := filepath.Join(a.captureDir, name)
	if err := os.WriteFile(path, []byte(output), 0o644); err != nil {
		a.logger.Warn("capture save failed", "path", path, "error", err)
	}
}
