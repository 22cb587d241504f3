package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "dpkgstats",
		Short: "Extract statistics from a Discord data package",
		Long: `dpkgstats reads the zip archive Discord sends on a data request and reports
message counts, top channels, direct messages, words and emotes, guilds,
payments and analytics event totals.`,
		SilenceUsage: true,
	}
	root.AddCommand(newExtractCmd())
	return root
}
