package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch all enabled sources once",
	Long: `Walks every enabled source once, stores new articles and prints the run summary.

Examples:
  newspulse fetch              # Print summary as a table
  newspulse fetch --json       # Print summary as JSON`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().Bool("json", false, "output as JSON")
}

func runFetch(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.fetcher.Fetch(cmd.Context())
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	return printFetchSummary(cmd.OutOrStdout(), summary)
}
