// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

package staging

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/warren-sandbox/warren/cmd/warren/cli"
	"github.com/warren-sandbox/warren/sandbox"
)

func listCommand() *cli.Command {
	var cacheRoot string

	return &cli.Command{
		Name:    "list",
		Summary: "List staging roots and their owners",
		Description: `List every staging root in the cache with its owning PID, the
owner's state, and the size of the staged data.

Owner states:

  live     the owning launch is still running
  dead     the owner has exited; the root is stale
  reused   the PID now belongs to an unrelated process; the root is stale
  unknown  the manifest is unreadable, so the owner cannot be checked`,
		Usage: "warren staging list [--cache-root DIR]",
		Examples: []cli.Example{
			{
				Description: "List staging roots in the default cache",
				Command:     "warren staging list",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
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

			infos, err := sandbox.InspectStagingRoots(root)
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				fmt.Fprintf(os.Stderr, "No staging roots under %s.\n", root)
				return nil
			}

			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintf(tw, "PID\tOWNER\tAGE\tENTRIES\tSIZE\tPATH\n")
			for _, info := range infos {
				age, size := "-", "-"
				if !info.Created.IsZero() {
					age = formatAge(time.Since(info.Created))
					size = formatSize(info.Bytes)
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
					info.PID, info.State, age, info.Entries, size, info.Path)
			}
			return tw.Flush()
		},
	}
}

// resolveCacheRoot applies the default when no --cache-root was given.
func resolveCacheRoot(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	return sandbox.DefaultCacheRoot()
}

// formatAge renders a duration with its two largest useful units.
func formatAge(duration time.Duration) string {
	days := int(duration.Hours()) / 24
	hours := int(duration.Hours()) % 24
	minutes := int(duration.Minutes()) % 60
	seconds := int(duration.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

func formatSize(bytes int64) string {
	switch {
	case bytes >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(1<<30))
	case bytes >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(1<<20))
	case bytes >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
