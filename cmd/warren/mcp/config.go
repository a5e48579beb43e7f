// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/tidwall/jsonc"
)

// Environment fallbacks for the audit settings, consulted when the
// config file does not set them.
const (
	auditLogEnv     = "WARREN_MCP_AUDIT"
	auditCaptureEnv = "WARREN_MCP_AUDIT_FULL"
)

// Default geometry for the debug session. Wide enough for log lines,
// tall enough that a capture of the visible area is useful on its own.
const (
	defaultWidth  = 200
	defaultHeight = 50
)

// Config controls the debug MCP server. The file format is JSONC
// (JSON with // comments, /* block comments */, and trailing commas),
// matching the conventions of MCP client configuration files.
type Config struct {
	// Session is the tmux session name. Defaults to
	// "warren-debug-<pid>" so concurrent servers never collide.
	Session string `json:"session"`

	// Width and Height are the session's terminal geometry.
	Width  int `json:"width"`
	Height int `json:"height"`

	// AuditLog is the path of the JSON Lines audit file. Empty
	// disables auditing. Falls back to $WARREN_MCP_AUDIT.
	AuditLog string `json:"audit_log"`

	// AuditCaptureDir is the directory full capture bodies are
	// written to. Empty logs byte counts only. Falls back to
	// $WARREN_MCP_AUDIT_FULL.
	AuditCaptureDir string `json:"audit_capture_dir"`

	// AllowedTools restricts which tools are listed and callable.
	// Empty allows every tool.
	AllowedTools []string `json:"allowed_tools"`
}

// DefaultConfig returns the configuration used when no config file is
// given: a per-process session at the default geometry, with auditing
// taken from the environment.
func DefaultConfig() *Config {
	return &Config{
		Session:         fmt.Sprintf("warren-debug-%d", os.Getpid()),
		Width:           defaultWidth,
		Height:          defaultHeight,
		AuditLog:        os.Getenv(auditLogEnv),
		AuditCaptureDir: os.Getenv(auditCaptureEnv),
	}
}

// LoadConfig reads a JSONC config file and overlays it on the
// defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	config, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

// ParseConfig strips JSONC comments and trailing commas from data,
// then unmarshals the result over the default configuration. Fields
// absent from the file keep their defaults.
func ParseConfig(data []byte) (*Config, error) {
	config := DefaultConfig()
	if err := json.Unmarshal(jsonc.ToJSON(data), config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if config.Session == "" {
		return nil, fmt.Errorf("config: session must not be empty")
	}
	if config.Width <= 0 || config.Height <= 0 {
		return nil, fmt.Errorf("config: width and height must be positive")
	}
	return config, nil
}

// toolAllowed reports whether the named tool passes the allowed_tools
// filter.
func (c *Config) toolAllowed(name string) bool {
	if len(c.AllowedTools) == 0 {
		return true
	}
	return slices.Contains(c.AllowedTools, name)
}
