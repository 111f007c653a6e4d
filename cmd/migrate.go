package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kovalyov-valentin/newspulse/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create database tables if they do not exist",
	RunE:  runMigrate,
}

var seedCmd = &cobra.Command{
	Use:   "seed [file]",
	Short: "Add sources from a yaml file, existing names are kept as is",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := storage.Migrate(cmd.Context(), a.db); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	path := cfg.SourcesFile
	if len(args) > 0 {
		path = args[0]
	}

	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	added, err := a.seed(cmd.Context(), path)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "added %d sources from %s\n", added, path)
	return nil
}
