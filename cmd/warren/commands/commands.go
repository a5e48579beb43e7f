// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the complete warren CLI command tree.
package commands

import (
	"fmt"

	"github.com/warren-sandbox/warren/cmd/warren/cli"
	mcpcmd "github.com/warren-sandbox/warren/cmd/warren/mcp"
	profilecmd "github.com/warren-sandbox/warren/cmd/warren/profile"
	stagecmd "github.com/warren-sandbox/warren/cmd/warren/stage"
	stagingcmd "github.com/warren-sandbox/warren/cmd/warren/staging"
	"github.com/warren-sandbox/warren/lib/version"
)

// Root builds and returns the complete warren CLI command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "warren",
		Description: `Warren: sandbox launch tooling.

Resolve mount profiles against the host, stage directory copies for a
sandbox launcher, and debug what runs inside over tmux.`,
		Subcommands: []*cli.Command{
			stagecmd.Command(),
			stagingcmd.Command(),
			profilecmd.Command(),
			mcpcmd.Command(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					fmt.Printf("warren %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Launch a sandbox with the dotfiles profile",
				Command:     "warren stage --profile dotfiles -- launch-vm",
			},
			{
				Description: "Preview what a profile would mount, without staging",
				Command:     "warren stage --profile dotfiles --dry-run",
			},
			{
				Description: "Show how a profile resolves on this host",
				Command:     "warren profile show dotfiles --resolve",
			},
			{
				Description: "List staging roots and reclaim stale ones",
				Command:     "warren staging reclaim",
			},
			{
				Description: "Serve the tmux debug tools over MCP",
				Command:     "warren mcp",
			},
		},
	}
}
