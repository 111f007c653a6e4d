package main

import (
	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify one batch of pending articles",
	RunE:  runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().Int("batch-size", 50, "how many pending articles to classify")
}

func runClassify(cmd *cobra.Command, _ []string) error {
	batchSize, _ := cmd.Flags().GetInt("batch-size")

	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.processor.ProcessBatch(cmd.Context(), batchSize)
	if err != nil {
		return err
	}

	return printBatchStats(cmd.OutOrStdout(), stats)
}
