package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jonathan/jobgeo/internal/config"
	"github.com/jonathan/jobgeo/internal/payload"
	"github.com/jonathan/jobgeo/internal/pipeline"
	"github.com/jonathan/jobgeo/internal/platsbanken"
	"github.com/jonathan/jobgeo/internal/report"
	"github.com/jonathan/jobgeo/internal/types"
)

var fetchAPICmd = &cobra.Command{
	Use:   "fetch-api",
	Short: "Fetch job postings from the Platsbanken search API",
	Long: "Page through the Platsbanken search API, look up every hit's detail document and upsert it by job_id. " +
		"The search body is the built-in default or a JSON override file; startIndex and maxRecords are set per page.",
	Args: cobra.NoArgs,
	RunE: runFetchAPI,
}

var (
	payloadFile     string
	occupationField string
	pageSize        int
	pageCap         int
	recordCap       int
	concurrency     int
	sleepInterval   string
	timeout         string
	retries         int
	baseURL         string
)

func init() {
	f := fetchAPICmd.Flags()
	f.StringVar(&payloadFile, "payload-file", "", "JSON file with the search body to send")
	f.StringVar(&occupationField, "occupation-field", "", "Occupation field concept id to filter on (ignored with --payload-file)")
	def := config.Defaults()
	f.IntVar(&pageSize, "page-size", def.PageSize, "Records per search page (maxRecords)")
	f.IntVar(&pageSize, "max-records", def.PageSize, "Alias of --page-size")
	f.IntVar(&pageCap, "pages", def.Pages, "Maximum number of search pages")
	f.IntVar(&recordCap, "record-cap", def.RecordCap, "Maximum number of records across all pages (0 = no cap)")
	f.IntVar(&concurrency, "concurrency", def.Concurrency, "Concurrent detail lookups")
	f.StringVar(&sleepInterval, "sleep", def.Sleep, "Minimum interval between requests")
	f.StringVar(&timeout, "timeout", def.Timeout, "Per-request HTTP timeout")
	f.IntVar(&retries, "retries", def.Retries, "Attempts per request, including the first")
	f.StringVar(&baseURL, "base-url", "", "Search API base URL")

	f.MarkHidden("max-records")

	rootCmd.AddCommand(fetchAPICmd)
}

// fetchFlags returns the fetch-api flags the user set.
func fetchFlags(cmd *cobra.Command) config.Config {
	var c config.Config
	if changed(cmd, "payload-file") {
		c.PayloadFile = payloadFile
	}
	if changed(cmd, "occupation-field") {
		c.OccupationField = occupationField
	}
	if changed(cmd, "page-size") || changed(cmd, "max-records") {
		c.PageSize = pageSize
	}
	if changed(cmd, "concurrency") {
		c.Concurrency = concurrency
	}
	if changed(cmd, "sleep") {
		c.Sleep = sleepInterval
	}
	if changed(cmd, "timeout") {
		c.Timeout = timeout
	}
	if changed(cmd, "retries") {
		c.Retries = retries
	}
	if changed(cmd, "base-url") {
		c.BaseURL = baseURL
	}
	return c
}

// pinCaps applies --pages and --record-cap after layering, so an explicit 0
// wins over the config file instead of reading as unset.
func pinCaps(cmd *cobra.Command) func(*config.Config) error {
	return func(c *config.Config) error {
		if changed(cmd, "pages") {
			if pageCap < 1 {
				return fmt.Errorf("--pages must be at least 1")
			}
			c.Pages = pageCap
		}
		if changed(cmd, "record-cap") {
			c.RecordCap = recordCap
		}
		return nil
	}
}

func runFetchAPI(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd, fetchFlags(cmd), pinCaps(cmd))
	if err != nil {
		return err
	}
	defer a.log.Sync()

	search, err := searchPayload(a.cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	rec := report.NewRecorder(string(types.SourceAPI))
	store, err := a.startRun(ctx, rec, string(types.SourceAPI))
	if err != nil {
		return err
	}
	defer store.Close()

	fetcher := platsbanken.NewFetcher(newClient(a), a.log)
	opts := platsbanken.FetchOptions{
		Payload:     search,
		PageSize:    a.cfg.PageSize,
		PageCap:     a.cfg.Pages,
		RecordCap:   a.cfg.RecordCap,
		Concurrency: a.cfg.Concurrency,
	}

	p := pipeline.New(store, rec, a.log, pipeline.WithProgress(100, a.progressLogger()))
	_, runErr := p.RunAPI(ctx, fetcher, opts)
	return a.finishRun(ctx, cmd, store, rec, runErr)
}

// searchPayload loads the override file or builds the default body.
func searchPayload(cfg config.Config) (map[string]any, error) {
	if cfg.PayloadFile == "" {
		return platsbanken.DefaultPayload(cfg.OccupationField), nil
	}
	doc, err := payload.LoadFile(cfg.PayloadFile)
	if err != nil {
		return nil, pipeline.Setup("load payload", err)
	}
	return doc, nil
}

func newClient(a *app) *platsbanken.Client {
	policy := platsbanken.DefaultRetryPolicy()
	policy.MaxAttempts = a.cfg.Retries

	return platsbanken.NewClient(
		platsbanken.WithBaseURL(a.cfg.BaseURL),
		platsbanken.WithUserAgent(a.cfg.UserAgent),
		platsbanken.WithHTTPClient(&http.Client{Timeout: a.cfg.TimeoutDuration()}),
		platsbanken.WithMinInterval(a.cfg.SleepDuration()),
		platsbanken.WithRetryPolicy(policy),
		platsbanken.WithLogger(a.log),
	)
}
