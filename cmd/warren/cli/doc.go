// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for the warren CLI.
//
// The central type is [Command]: a named subcommand with optional
// nested [Command.Subcommands], a [pflag.FlagSet] factory, and a Run
// function. Commands are assembled into a tree in cmd/warren/main.go
// and dispatched via [Command.Execute], which handles flag parsing,
// subcommand routing, and structured help output with examples.
//
// When a user types an unknown subcommand or flag, the framework
// computes Levenshtein edit distance against all known names and
// suggests the closest match (threshold: distance <= 3).
//
// [ToolError] carries an error category alongside the message so the
// MCP server can report machine-decidable failures; [ExitError] lets
// a command exit non-zero without an extra message when its output
// already told the story.
package cli
