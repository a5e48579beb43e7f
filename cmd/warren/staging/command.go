// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

package staging

import (
	"github.com/warren-sandbox/warren/cmd/warren/cli"
)

// Command returns the "staging" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "staging",
		Summary: "Inspect and maintain the staging cache",
		Description: `Commands for the staging cache, the per-launch directory copies
created by "warren stage". Each launch owns one root named after its
PID and removes it on exit; roots left behind by a crashed launch are
stale and can be reclaimed.`,
		Subcommands: []*cli.Command{
			listCommand(),
			reclaimCommand(),
			diffCommand(),
		},
	}
}
