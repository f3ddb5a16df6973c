package report

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jonathan/jobgeo/internal/logger"
)

const metricsNamespace = "jobgeo_ingest"

// Registry builds a fresh Prometheus registry holding the summary's counters.
// A new registry per run keeps repeated runs in one process from colliding.
func (s Summary) Registry() (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()

	records := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "records",
		Help:      "Records by pipeline outcome for the last run.",
	}, []string{"source", "outcome"})
	pages := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "pages",
		Help:      "Search pages by outcome for the last run.",
	}, []string{"source", "outcome"})
	duration := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "duration_seconds",
		Help:      "Wall-clock duration of the last run.",
	}, []string{"source"})
	lastRun := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time the last run finished.",
	}, []string{"source"})

	for _, c := range []prometheus.Collector{records, pages, duration, lastRun} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register run metrics: %w", err)
		}
	}

	c := s.Counts
	for outcome, v := range map[string]int64{
		"seen":             c.TotalSeen,
		"normalized":       c.NormalizedOK,
		"normalize_failed": c.NormalizedFailed,
		"geolocatable":     c.Geolocatable,
		"not_geolocatable": c.NotGeolocatable,
		"upserted":         c.Upserted,
		"inserted":         c.Inserted,
		"updated":          c.Updated,
		"write_failed":     c.WriteFailed,
		"fetch_failed":     c.FetchFailed,
		"detail_not_found": c.DetailNotFound,
	} {
		records.WithLabelValues(s.Source, outcome).Set(float64(v))
	}
	pages.WithLabelValues(s.Source, "fetched").Set(float64(c.PagesFetched))
	pages.WithLabelValues(s.Source, "failed").Set(float64(c.PagesFailed))
	duration.WithLabelValues(s.Source).Set(s.Duration.Seconds())
	lastRun.WithLabelValues(s.Source).Set(float64(s.FinishedAt.Unix()))

	return reg, nil
}

// WriteTextfile writes the run metrics in the node_exporter textfile format.
func (s Summary) WriteTextfile(path string) error {
	reg, err := s.Registry()
	if err != nil {
		return err
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}

// Log emits the summary and every failure through the structured logger.
func (s Summary) Log(log *logger.Logger) {
	c := s.Counts
	log.Info("Ingestion run finished",
		"run_id", s.RunID,
		"source", s.Source,
		"duration", s.Duration.String(),
		"total_seen", c.TotalSeen,
		"normalized_ok", c.NormalizedOK,
		"normalized_failed", c.NormalizedFailed,
		"geolocatable", c.Geolocatable,
		"not_geolocatable", c.NotGeolocatable,
		"upserted", c.Upserted,
		"inserted", c.Inserted,
		"updated", c.Updated,
		"write_failed", c.WriteFailed,
		"fetch_failed", c.FetchFailed,
		"detail_not_found", c.DetailNotFound,
		"pages_fetched", c.PagesFetched,
		"pages_failed", c.PagesFailed,
	)
	for _, f := range s.Failures {
		log.Warn("Record failed",
			"run_id", s.RunID,
			"external_id", f.ExternalID,
			"ref", f.Ref,
			"stage", string(f.Stage),
			"reason", f.Reason,
		)
	}
}
