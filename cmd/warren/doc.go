// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

// Warren is the CLI for staging sandbox mounts and debugging sandboxed
// workloads. It provides subcommands for launching through the stager
// (stage), inspecting and reclaiming the staging cache (staging),
// managing mount profiles (profile), and serving tmux-backed debug
// tools to MCP clients (mcp).
package main
