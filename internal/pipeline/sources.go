package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonathan/jobgeo/internal/csvsource"
	"github.com/jonathan/jobgeo/internal/platsbanken"
	"github.com/jonathan/jobgeo/internal/report"
	"github.com/jonathan/jobgeo/internal/types"
)

// RunFile ingests a bulk CSV export. Open, encoding and header problems are
// returned as *SetupError before any row is processed. Cancellation stops
// between rows and returns ctx's error.
func (p *Pipeline) RunFile(ctx context.Context, path string, opts csvsource.Options) (csvsource.ReadStats, error) {
	log := p.log.With("source", string(types.SourceFile), "path", path)
	log.Info("Reading CSV", "sample", opts.Sample)

	stats, err := csvsource.Read(ctx, path, opts, func(row csvsource.Row) error {
		if row.Err != nil {
			p.merge(report.Tally{TotalSeen: 1, NormalizedFailed: 1})
			p.recorder.Fail(report.Failure{Ref: row.Record.Ref, Stage: report.StageRead, Reason: row.Err.Error()})
			log.Warn("Unparseable row", "ref", row.Record.Ref, "line", row.Line, "error", row.Err)
			return nil
		}
		p.Process(ctx, row.Record)
		return nil
	})
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return stats, err
		}
		return stats, Setup("read csv", err)
	}

	log.Info("CSV read",
		"encoding", stats.Encoding,
		"rows", stats.Rows,
		"padded", stats.Padded,
		"trimmed", stats.Trimmed,
		"sampled", stats.Sampled,
	)
	return stats, nil
}

// Fetcher is the paginated remote source.
type Fetcher interface {
	Run(ctx context.Context, opts platsbanken.FetchOptions, handle func(platsbanken.Item) error) (platsbanken.FetchStats, error)
}

// RunAPI ingests search results. Detail failures and failed pages are recorded
// on the run; only a remote that never answered is a *SetupError.
func (p *Pipeline) RunAPI(ctx context.Context, fetcher Fetcher, opts platsbanken.FetchOptions) (platsbanken.FetchStats, error) {
	log := p.log.With("source", string(types.SourceAPI))
	log.Info("Fetching from search API",
		"page_size", opts.PageSize,
		"page_cap", opts.PageCap,
		"record_cap", opts.RecordCap,
		"concurrency", opts.Concurrency,
	)

	lastPage := -1
	stats, err := fetcher.Run(ctx, opts, func(item platsbanken.Item) error {
		if item.Page != lastPage {
			lastPage = item.Page
			p.emitPage(item.Page)
		}
		switch {
		case item.Err != nil:
			p.merge(report.Tally{TotalSeen: 1, FetchFailed: 1})
			p.recorder.Fail(report.Failure{Ref: item.Ref, Stage: report.StageDetail, Reason: item.Err.Error()})
			log.Warn("Detail lookup failed", "ref", item.Ref, "page", item.Page, "error", item.Err)
		case item.NotFound:
			p.merge(report.Tally{TotalSeen: 1, DetailNotFound: 1})
			log.Info("Posting no longer available", "ref", item.Ref)
		default:
			p.Process(ctx, types.APIRecord(item.Ref, item.Detail))
		}
		return nil
	})

	pages := report.Tally{
		PagesFetched: int64(stats.PagesFetched),
		PagesFailed:  int64(len(stats.PageErrors)),
	}
	p.recorder.Merge(pages)
	for _, pe := range stats.PageErrors {
		p.recorder.Fail(report.Failure{
			Ref:    fmt.Sprintf("page %d (startIndex %d)", pe.Page, pe.StartIndex),
			Stage:  report.StageSearch,
			Reason: pe.Err.Error(),
		})
	}

	if err != nil {
		if errors.Is(err, platsbanken.ErrRemoteUnavailable) {
			return stats, Setup("search api", err)
		}
		return stats, err
	}
	log.Info("Fetch finished",
		"stop_reason", string(stats.StopReason),
		"pages_fetched", stats.PagesFetched,
		"pages_failed", len(stats.PageErrors),
		"items", stats.Items,
	)
	return stats, nil
}

func (p *Pipeline) emitPage(page int) {
	if p.onProgress == nil {
		return
	}
	p.onProgress(ProgressEvent{
		Step:    "page",
		Message: fmt.Sprintf("processing search page %d", page),
		RunID:   p.recorder.RunID().String(),
		Counts:  p.recorder.Summary().Counts,
	})
}
