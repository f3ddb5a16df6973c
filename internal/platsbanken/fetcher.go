package platsbanken

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/jobgeo/internal/logger"
	"github.com/jonathan/jobgeo/internal/types"
)

// FetchOptions bounds a fetch run. RecordCap 0 means no record cap.
type FetchOptions struct {
	Payload     map[string]any
	PageSize    int `validate:"min=1,max=100"`
	PageCap     int `validate:"min=1"`
	RecordCap   int `validate:"min=0"`
	Concurrency int `validate:"min=1,max=32"`
}

// DefaultFetchOptions mirrors the API's own default page size.
func DefaultFetchOptions() FetchOptions {
	return FetchOptions{
		PageSize:    25,
		PageCap:     5,
		Concurrency: 4,
	}
}

// Item is one search hit after its detail lookup. Exactly one of Detail,
// NotFound or Err describes the outcome.
type Item struct {
	Ref      string // search summary id
	Page     int
	Detail   *types.JobDetail
	NotFound bool
	Err      error
}

// PageError is a search page that failed after retries.
type PageError struct {
	Page       int
	StartIndex int
	Err        error
}

// FetchStats describes how a run ended.
type FetchStats struct {
	PageRequests int
	PagesFetched int
	PageErrors   []PageError
	Items        int
	StopReason   StopReason
}

// StopReason is the terminal transition of the fetch state machine.
type StopReason string

const (
	StopPageCap   StopReason = "page_cap"
	StopRecordCap StopReason = "record_cap"
	StopExhausted StopReason = "exhausted"
	StopCancelled StopReason = "cancelled"
	StopHandler   StopReason = "handler_error"
)

// Searcher is the remote API as the fetcher sees it.
type Searcher interface {
	Search(ctx context.Context, payload map[string]any, startIndex, maxRecords int) (*SearchResponse, error)
	Detail(ctx context.Context, id string) (*types.JobDetail, error)
}

// Fetcher walks search pages and looks up each hit's detail.
type Fetcher struct {
	api      Searcher
	log      *logger.Logger
	validate *validator.Validate
}

func NewFetcher(api Searcher, log *logger.Logger) *Fetcher {
	if log == nil {
		log = logger.Nop()
	}
	return &Fetcher{api: api, log: log, validate: validator.New()}
}

// Run pages through the search results, calling handle for every item in the
// order the remote returned them. Detail lookups within a page run concurrently;
// a failed lookup is handed to handle as an Item with Err set and never cancels
// its siblings. A failed page is recorded and skipped. Run stops at the page cap,
// the record cap, an empty or last page, a handler error or ctx cancellation.
func (f *Fetcher) Run(ctx context.Context, opts FetchOptions, handle func(Item) error) (FetchStats, error) {
	var stats FetchStats
	if err := f.validate.Struct(opts); err != nil {
		return stats, fmt.Errorf("invalid fetch options: %w", err)
	}
	payload := opts.Payload
	if payload == nil {
		payload = DefaultPayload("")
	}

	dispatched := 0
	start := 0
	for page := 0; ; page++ {
		if page >= opts.PageCap {
			stats.StopReason = StopPageCap
			break
		}
		if err := ctx.Err(); err != nil {
			stats.StopReason = StopCancelled
			return stats, err
		}

		log := f.log.With("page", page, "start_index", start)
		stats.PageRequests++
		resp, err := f.api.Search(ctx, payload, start, opts.PageSize)
		if err != nil {
			if ctx.Err() != nil {
				stats.StopReason = StopCancelled
				return stats, ctx.Err()
			}
			log.Warn("Search page failed", "error", err)
			stats.PageErrors = append(stats.PageErrors, PageError{Page: page, StartIndex: start, Err: err})
			start += opts.PageSize
			continue
		}
		stats.PagesFetched++

		ads := resp.Ads
		if len(ads) == 0 {
			stats.StopReason = StopExhausted
			break
		}
		if opts.RecordCap > 0 && dispatched+len(ads) > opts.RecordCap {
			ads = ads[:opts.RecordCap-dispatched]
		}
		dispatched += len(ads)
		log.Debug("Search page fetched", "hits", len(resp.Ads), "dispatched", len(ads))

		for _, item := range f.details(ctx, page, ads, opts.Concurrency) {
			if err := ctx.Err(); err != nil {
				stats.StopReason = StopCancelled
				return stats, err
			}
			stats.Items++
			if err := handle(item); err != nil {
				stats.StopReason = StopHandler
				return stats, err
			}
		}

		if opts.RecordCap > 0 && dispatched >= opts.RecordCap {
			stats.StopReason = StopRecordCap
			break
		}
		if lastPage(resp, start, opts.PageSize) {
			stats.StopReason = StopExhausted
			break
		}
		start += opts.PageSize
	}

	if stats.PagesFetched == 0 && len(stats.PageErrors) > 0 {
		return stats, fmt.Errorf("%w: %v", ErrRemoteUnavailable, stats.PageErrors[0].Err)
	}
	return stats, nil
}

// lastPage uses numberOfAds when the API reports it, otherwise a short page.
func lastPage(resp *SearchResponse, start, pageSize int) bool {
	if resp.NumberOfAds != nil {
		return start+len(resp.Ads) >= *resp.NumberOfAds
	}
	return len(resp.Ads) < pageSize
}

// details looks up every summary with at most limit requests in flight and
// returns the items in input order.
func (f *Fetcher) details(ctx context.Context, page int, ads []AdSummary, limit int) []Item {
	items := make([]Item, len(ads))

	// Not errgroup.WithContext: one failed lookup must not cancel the others.
	var g errgroup.Group
	g.SetLimit(limit)
	for i, ad := range ads {
		ref := strings.TrimSpace(string(ad.ID))
		items[i] = Item{Ref: ref, Page: page}
		if ref == "" {
			items[i].Err = errors.New("search hit without id")
			continue
		}
		g.Go(func() error {
			detail, err := f.api.Detail(ctx, ref)
			switch {
			case errors.Is(err, ErrNotFound):
				items[i].NotFound = true
			case err != nil:
				items[i].Err = err
			default:
				items[i].Detail = detail
			}
			return nil
		})
	}
	_ = g.Wait()
	return items
}
