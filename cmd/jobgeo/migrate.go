package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/jobgeo/internal/config"
	"github.com/jonathan/jobgeo/internal/pipeline"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the PostGIS extension, jobs table and indexes",
	Long:  "Create the PostGIS extension, the jobs table, its unique, spatial and lookup indexes and the run log table. Safe to run repeatedly.",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd, config.Config{})
	if err != nil {
		return err
	}
	defer a.log.Sync()

	ctx := cmd.Context()
	store, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return pipeline.Setup("ensure schema", err)
	}
	a.log.Info("Schema ready", "table", store.Table().String())
	fmt.Fprintf(cmd.OutOrStdout(), "Schema ready: %s\n", store.Table())
	return nil
}
