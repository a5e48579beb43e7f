// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"github.com/spf13/pflag"

	"github.com/warren-sandbox/warren/cmd/warren/cli"
	"github.com/warren-sandbox/warren/lib/tmux"
)

// Command returns the "mcp" command: the debug MCP server on
// stdin/stdout.
func Command() *cli.Command {
	var configPath string

	return &cli.Command{
		Name:    "mcp",
		Summary: "Debug MCP server exposing tmux pane tools",
		Description: `MCP server that lets an agent run and observe commands in tmux
panes over newline-delimited JSON-RPC 2.0 on stdin/stdout.

Panes live in a dedicated tmux session on the default server, so a
human can attach with 'tmux attach -t <session>' and watch the same
terminals the agent drives. Windows keep remain-on-exit, so output
stays capturable after a command finishes.

The server is meant to be launched as a subprocess by an MCP-capable
client. The session and its panes are killed when the client closes
stdin.`,
		Usage: "warren mcp [--config FILE]",
		Examples: []cli.Example{
			{
				Description: "Start the debug server with defaults",
				Command:     "warren mcp",
			},
			{
				Description: "Start with a JSONC config file",
				Command:     "warren mcp --config ~/.config/warren/mcp.jsonc",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("mcp", pflag.ContinueOnError)
			flagSet.StringVar(&configPath, "config", "", "path to a JSONC config file")
			return flagSet
		},
		Run: func(args []string) error {
			return runServer(configPath, args)
		},
	}
}

func runServer(configPath string, args []string) error {
	if len(args) > 0 {
		return cli.Validation("unexpected argument %q", args[0])
	}

	config := DefaultConfig()
	if configPath != "" {
		loaded, err := LoadConfig(configPath)
		if err != nil {
			return err
		}
		config = loaded
	}

	logger := cli.NewCommandLogger().With("command", "mcp")
	session := tmux.NewServer(config.Session, config.Width, config.Height)
	server := NewServer(config, session, logger)

	// Nothing the agent left running is meant to outlive the debug
	// client: the session goes away with the server.
	defer func() {
		if err := session.KillSession(); err != nil {
			logger.Warn("session cleanup failed", "session", session.Session(), "error", err)
		}
	}()

	logger.Info("debug server starting", "session", config.Session)
	return server.Serve()
}
