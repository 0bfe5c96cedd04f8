// Package harvest runs the fetch-and-parse stage over the catalog records
// with bounded parallelism and deterministic output order.
package harvest

import (
	"context"
	"errors"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"geospider/internal/capabilities"
	"geospider/pkg/spider"
)

// Failure couples a catalog record with the error that prevented it from
// being harvested. Failures never abort the run; they are reported in the
// summary.
type Failure struct {
	Record spider.MetadataRecord
	Err    error
}

// Runner harvests capability documents for a set of catalog records.
type Runner struct {
	fetcher *capabilities.Fetcher
	workers int
	logger  spider.Logger
}

// NewRunner creates a harvest runner with the given concurrency bound.
func NewRunner(fetcher *capabilities.Fetcher, workers int, logger spider.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		fetcher: fetcher,
		workers: workers,
		logger:  logger,
	}
}

// Run fetches and parses every record concurrently. Results are returned in
// catalog discovery order (record Seq) regardless of worker completion
// order. Secured endpoints are skipped silently; all other per-record
// failures are collected and returned alongside the successes.
func (r *Runner) Run(ctx context.Context, records []spider.MetadataRecord) ([]spider.Service, []Failure) {
	type result struct {
		seq int
		svc *spider.Service
	}

	var (
		mu       sync.Mutex
		results  []result
		failures []Failure
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for _, record := range records {
		record := record
		g.Go(func() error {
			svc, err := r.harvestOne(ctx, record)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, capabilities.ErrSecureEndpoint):
				r.logger.Verbose("skipping secured service %s (%s)", record.Title, record.ServiceURL)
			case err != nil:
				r.logger.Error("failed to harvest %s (%s): %v", record.Title, record.ServiceURL, err)
				failures = append(failures, Failure{Record: record, Err: err})
			default:
				results = append(results, result{seq: record.Seq, svc: svc})
			}
			return nil
		})
	}
	// Tasks report through the shared slices, never through the group.
	_ = g.Wait()

	sort.Slice(results, func(i, j int) bool {
		return results[i].seq < results[j].seq
	})
	services := make([]spider.Service, 0, len(results))
	for _, res := range results {
		services = append(services, *res.svc)
	}
	return services, failures
}

func (r *Runner) harvestOne(ctx context.Context, record spider.MetadataRecord) (*spider.Service, error) {
	adapter, err := capabilities.AdapterFor(record.Protocol)
	if err != nil {
		return nil, err
	}

	r.logger.Verbose("fetching capabilities for %s (%s)", record.Title, record.ServiceURL)
	doc, err := r.fetcher.Fetch(ctx, record)
	if err != nil {
		return nil, err
	}
	return adapter.Parse(doc, record)
}
