// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

package staging

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/warren-sandbox/warren/cmd/warren/cli"
	"github.com/warren-sandbox/warren/sandbox"
)

func reclaimCommand() *cli.Command {
	var cacheRoot string

	return &cli.Command{
		Name:    "reclaim",
		Summary: "Remove staging roots whose owner has exited",
		Description: `Remove every staging root whose owning process is gone. Ownership is
checked against the process start time recorded in the manifest, so a
recycled PID does not keep a stale root alive.

"warren stage" reclaims automatically before every launch; this
command exists for manual cleanup after a crash and for cron jobs on
shared machines.`,
		Usage: "warren staging reclaim [--cache-root DIR]",
		Examples: []cli.Example{
			{
				Description: "Reclaim stale roots in the default cache",
				Command:     "warren staging reclaim",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("reclaim", pflag.ContinueOnError)
			flagSet.StringVar(&cacheRoot, "cache-root", "", "staging cache directory (default: user cache dir)")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument %q", args[0])
			}

			root, err := resolveCacheRoot(cacheRoot)
			if err != nil {
				return err
			}

			logger := cli.NewCommandLogger().With("command", "staging reclaim")
			removed, err := sandbox.ReclaimStale(root, logger)
			if err != nil {
				return err
			}

			if len(removed) == 0 {
				fmt.Println("Nothing to reclaim.")
				return nil
			}
			for _, path := range removed {
				fmt.Println(path)
			}
			return nil
		},
	}
}
