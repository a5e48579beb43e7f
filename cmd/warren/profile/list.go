// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

package profile

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/warren-sandbox/warren/cmd/warren/cli"
	"github.com/warren-sandbox/warren/sandbox"
)

func listCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Summary: "List available profiles",
		Description: `List every profile visible on this host, with the mount count after
inheritance is applied.`,
		Usage: "warren profile list",
		Run: func(args []string) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument %q", args[0])
			}

			loader, err := sandbox.LoadFromSearchPaths()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintf(tw, "NAME\tMOUNTS\tDESCRIPTION\n")
			for _, name := range loader.List() {
				resolved, err := loader.Resolve(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\n", name, len(resolved.Mounts), resolved.Description)
			}
			return tw.Flush()
		},
	}
}
