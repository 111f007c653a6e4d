package main

import (
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Download full text for articles that only have a feed summary",
	Long: `Fetches article pages, extracts the readable text and stores it.
Classification status is left untouched. Failed articles are retried on the next run.`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().Int("batch-size", 20, "how many articles to process")
}

func runExtract(cmd *cobra.Command, _ []string) error {
	batchSize, _ := cmd.Flags().GetInt("batch-size")

	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.extractor.BackfillBatch(cmd.Context(), batchSize)
	if err != nil {
		return err
	}

	return printBatchStats(cmd.OutOrStdout(), stats)
}
