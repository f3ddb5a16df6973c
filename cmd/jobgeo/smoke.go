package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/jobgeo/internal/config"
	"github.com/jonathan/jobgeo/internal/observability"
	"github.com/jonathan/jobgeo/internal/pipeline"
)

var smokeCmd = &cobra.Command{
	Use:   "smoke",
	Short: "Check PostGIS and report row counts",
	Args:  cobra.NoArgs,
	RunE:  runSmoke,
}

func init() {
	rootCmd.AddCommand(smokeCmd)
}

func runSmoke(cmd *cobra.Command, args []string) error {
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

	h, err := store.Health(ctx)
	if err != nil {
		return pipeline.Setup("health check", err)
	}
	a.log.Info("Smoke check passed",
		"table", store.Table().String(),
		"postgis", h.PostGISVersion,
		"jobs", h.Jobs,
		"with_geometry", h.WithGeometry,
		"within_50km_of_stockholm", h.NearbySample,
	)

	observability.NewPrinter(cmd.OutOrStdout()).PrintHealth(store.Table(), h)
	return nil
}
