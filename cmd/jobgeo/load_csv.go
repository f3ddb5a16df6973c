package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/jobgeo/internal/config"
	"github.com/jonathan/jobgeo/internal/csvsource"
	"github.com/jonathan/jobgeo/internal/normalize"
	"github.com/jonathan/jobgeo/internal/pipeline"
	"github.com/jonathan/jobgeo/internal/report"
	"github.com/jonathan/jobgeo/internal/types"
)

var loadCSVCmd = &cobra.Command{
	Use:   "load-csv",
	Short: "Load a bulk CSV export of job postings",
	Long:  "Read a CSV export (UTF-8, UTF-8 with BOM, UTF-16 or Latin-1), normalize every row and upsert it by job_id.",
	Args:  cobra.NoArgs,
	RunE:  runLoadCSV,
}

var (
	csvPath   string
	csvSample int
)

func init() {
	loadCSVCmd.Flags().StringVar(&csvPath, "csv", "", "Path to the CSV export (required)")
	loadCSVCmd.Flags().IntVar(&csvSample, "sample", 0, "Load only the first N rows")

	loadCSVCmd.MarkFlagRequired("csv")

	rootCmd.AddCommand(loadCSVCmd)
}

func runLoadCSV(cmd *cobra.Command, args []string) error {
	if csvSample < 0 {
		return fmt.Errorf("--sample must be non-negative")
	}
	a, err := setup(cmd, config.Config{})
	if err != nil {
		return err
	}
	defer a.log.Sync()

	ctx := cmd.Context()
	rec := report.NewRecorder(string(types.SourceFile))
	store, err := a.startRun(ctx, rec, string(types.SourceFile))
	if err != nil {
		return err
	}
	defer store.Close()

	p := pipeline.New(store, rec, a.log, pipeline.WithProgress(1000, a.progressLogger()))
	_, runErr := p.RunFile(ctx, csvPath, csvsource.Options{
		Sample:   csvSample,
		Required: normalize.FileRequiredColumns,
	})
	return a.finishRun(ctx, cmd, store, rec, runErr)
}
