package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/jobgeo/internal/config"
	"github.com/jonathan/jobgeo/internal/db"
	"github.com/jonathan/jobgeo/internal/logger"
	"github.com/jonathan/jobgeo/internal/observability"
	"github.com/jonathan/jobgeo/internal/pipeline"
	"github.com/jonathan/jobgeo/internal/report"
)

// finishTimeout bounds the run-log update after the run context is gone.
const finishTimeout = 10 * time.Second

var (
	configPath      string
	databaseURL     string
	schemaName      string
	tableName       string
	logMode         string
	summaryOut      string
	metricsTextfile string
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to a JSON config file")
	pf.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (default $"+config.EnvDatabaseURL+")")
	pf.StringVar(&schemaName, "schema", "", "Target schema (default public)")
	pf.StringVar(&tableName, "table", "", "Target table (default jobs)")
	pf.StringVar(&logMode, "log-mode", "", "Log output: prod (JSON) or dev (console)")
	pf.StringVar(&summaryOut, "summary-out", "", "Write the run summary as JSON to this file")
	pf.StringVar(&metricsTextfile, "metrics-textfile", "", "Write run metrics in node_exporter textfile format to this file")
}

// app is what every subcommand needs after flags are parsed.
type app struct {
	cfg config.Config
	log *logger.Logger
}

// flagLayer returns the config values given on the command line. Only flags the
// user actually set take part, so zero values never shadow the config file.
func flagLayer(cmd *cobra.Command) config.Config {
	var c config.Config
	if changed(cmd, "database-url") {
		c.DatabaseURL = databaseURL
	}
	if changed(cmd, "schema") {
		c.Schema = schemaName
	}
	if changed(cmd, "table") {
		c.Table = tableName
	}
	if changed(cmd, "log-mode") {
		c.LogMode = logMode
	}
	if changed(cmd, "summary-out") {
		c.SummaryOut = summaryOut
	}
	if changed(cmd, "metrics-textfile") {
		c.MetricsTextfile = metricsTextfile
	}
	return c
}

// changed reports whether the user set the named flag, local or inherited.
func changed(cmd *cobra.Command, name string) bool {
	f := cmd.Flag(name)
	return f != nil && f.Changed
}

// setup resolves configuration from flags, environment and config file, in
// that order of precedence, and builds the logger. extra carries the
// subcommand's own flags. pins run on the resolved config and carry flags whose
// zero value is meaningful, since layering treats zero as unset.
func setup(cmd *cobra.Command, extra config.Config, pins ...func(*config.Config) error) (*app, error) {
	var file config.Config
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, pipeline.Setup("load config", err)
		}
		file = *loaded
	}

	fl := flagLayer(cmd)
	flags := fl.MergeWithDefaults(extra)
	cfg := config.Resolve(flags, config.FromEnv(), file)
	for _, pin := range pins {
		if err := pin(&cfg); err != nil {
			return nil, pipeline.Setup("validate config", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, pipeline.Setup("validate config", err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, pipeline.Setup("init logger", err)
	}
	return &app{cfg: cfg, log: log}, nil
}

func (a *app) target() db.Table {
	return db.Table{Schema: a.cfg.Schema, Name: a.cfg.Table}
}

// connect opens the store. Failure is fatal to the run.
func (a *app) connect(ctx context.Context) (*db.DB, error) {
	if a.cfg.DatabaseURL == "" {
		return nil, pipeline.Setup("connect", fmt.Errorf("no database URL: set --database-url or %s", config.EnvDatabaseURL))
	}
	a.log.Info("Connecting to database", "url", logger.RedactURL(a.cfg.DatabaseURL), "table", a.target().String())
	store, err := db.Connect(ctx, a.cfg.DatabaseURL, a.target())
	if err != nil {
		return nil, pipeline.Setup("connect", err)
	}
	return store, nil
}

// startRun opens the store, makes sure the table exists and logs the run start.
func (a *app) startRun(ctx context.Context, rec *report.Recorder, source string) (*db.DB, error) {
	store, err := a.connect(ctx)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, pipeline.Setup("ensure schema", err)
	}
	if err := store.StartRun(ctx, rec.RunID(), source); err != nil {
		a.log.Warn("Could not record run start", "run_id", rec.RunID().String(), "error", err)
	}
	a.log.Info("Run started", "run_id", rec.RunID().String(), "source", source)
	return store, nil
}

// finishRun reports the summary on every channel configured and records the
// final status. It returns runErr so callers can `return a.finishRun(...)`.
func (a *app) finishRun(ctx context.Context, cmd *cobra.Command, store *db.DB, rec *report.Recorder, runErr error) error {
	sum := rec.Summary()
	sum.Log(a.log)
	observability.NewPrinter(cmd.OutOrStdout()).PrintSummary(sum)

	if path := a.cfg.SummaryOut; path != "" {
		if err := writeSummary(path, sum); err != nil {
			a.log.Error("Could not write summary", "path", path, "error", err)
		}
	}
	if path := a.cfg.MetricsTextfile; path != "" {
		if err := sum.WriteTextfile(path); err != nil {
			a.log.Error("Could not write metrics", "path", path, "error", err)
		}
	}

	status := db.RunStatusCompleted
	switch {
	case errors.Is(runErr, context.Canceled):
		status = db.RunStatusCancelled
	case runErr != nil:
		status = db.RunStatusFailed
	}
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()
	if err := store.FinishRun(finishCtx, rec.RunID(), status, sum); err != nil {
		a.log.Warn("Could not record run completion", "run_id", sum.RunID, "error", err)
	}
	return runErr
}

func writeSummary(path string, sum report.Summary) error {
	data, err := sum.JSON()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// progressLogger logs pipeline progress at debug level.
func (a *app) progressLogger() pipeline.ProgressCallback {
	return func(e pipeline.ProgressEvent) {
		a.log.Debug("Progress", "step", e.Step, "message", e.Message, "seen", e.Counts.TotalSeen, "upserted", e.Counts.Upserted)
	}
}
