package main

import (
	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:     "sources",
	Aliases: []string{"ls"},
	Short:   "List sources with article counts",
	RunE:    runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.sources.Stats(cmd.Context())
	if err != nil {
		return err
	}

	return printSourceStats(cmd.OutOrStdout(), stats)
}
