// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

// Package mcp implements the debug Model Context Protocol server
// behind "warren mcp". It speaks JSON-RPC 2.0 over newline-delimited
// stdin/stdout and exposes five tools that drive a dedicated tmux
// session: tmux_create_pane, tmux_send_keys, tmux_capture_pane,
// tmux_kill_pane, and tmux_list_panes.
//
// An agent debugging a workload uses the tools to spawn long-running
// processes in panes, type into them, and read their output, while a
// human can attach to the same session with "tmux attach" and watch.
// Every pane is a tmux window named by its generated ID (debug-1,
// debug-2, ...), created with remain-on-exit so output stays
// capturable after the command exits.
//
// Tool failures are reported as tool results with isError set, never
// as JSON-RPC protocol errors; protocol errors are reserved for
// malformed requests. Error results carry structured category
// metadata so callers can decide between fixing their input and
// retrying.
//
// Operations can be audited to a JSON Lines file, with full capture
// bodies optionally mirrored to a directory. See [Config].
//
// This package implements the 2024-11-05 MCP protocol specification.
package mcp
