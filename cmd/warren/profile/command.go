// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

package profile

import (
	"github.com/warren-sandbox/warren/cmd/warren/cli"
)

// Command returns the "profile" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "profile",
		Summary: "List and inspect mount profiles",
		Description: `Commands for mount profiles: named mount sets with environment and
terminal geometry, loaded from built-in defaults plus profiles.yaml
files in /etc/warren, ~/.config/warren, and $WARREN_CONFIG_DIR. A
profile defined in a later location shadows the earlier definition of
the same name.`,
		Subcommands: []*cli.Command{
			listCommand(),
			showCommand(),
		},
	}
}
