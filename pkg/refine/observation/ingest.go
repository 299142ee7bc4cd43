package observation

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"github.com/transitcore/schedulerefine/pkg/refine/metrics"
)

// IngestOptions tunes the batching behaviour of Ingest.
type IngestOptions struct {
	PageSize       int           // observations requested per Fetch call
	WindowChunkDays int          // width of each sub-window, in days
}

// DefaultIngestOptions mirrors the batching the engine was designed around:
// a page large enough to amortize round trips without loading an entire
// day's observations into memory at once, and a one-day sub-window so no
// single OFFSET/LIMIT scan has to span more than a day of observations.
func DefaultIngestOptions() IngestOptions {
	return IngestOptions{PageSize: 500_000, WindowChunkDays: 1}
}

// Handler receives one observation at a time, in page order, for one (kind,
// window) pair. It must not retain the Observation's storage beyond the
// call since callers may reuse page buffers between calls in future
// revisions.
type Handler func(Observation)

// Ingest walks [begin, end) one sub-window at a time, and within each
// sub-window processes every departure observation before any arrival
// observation, because the terminal-departure index that arrival alignment
// depends on must be fully populated first. A page fetch failure abandons
// the rest of that kind's pass over the sub-window it occurred in; the other
// kind's pass over the same sub-window and every later sub-window still
// run. While one page is being folded into handler, the next page of the
// same (window, kind) is prefetched by a single background worker. collector
// may be nil, in which case no metrics are recorded.
func Ingest(ctx context.Context, src Source, begin, end time.Time, opts IngestOptions, collector *metrics.Collector, handler Handler) error {
	if opts.PageSize <= 0 {
		opts.PageSize = 500_000
	}
	if opts.WindowChunkDays <= 0 {
		opts.WindowChunkDays = 1
	}
	chunk := time.Duration(opts.WindowChunkDays) * 24 * time.Hour

	for windowStart := begin; windowStart.Before(end); windowStart = windowStart.Add(chunk) {
		windowEnd := windowStart.Add(chunk)
		if windowEnd.After(end) {
			windowEnd = end
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		for _, kind := range []Kind{KindDeparture, KindArrival} {
			if err := ingestWindow(ctx, src, windowStart, windowEnd, kind, opts.PageSize, collector, handler); err != nil {
				if collector != nil {
					collector.WindowsAbandoned.Inc()
				}
				log.Error().
					Err(err).
					Time("window_start", windowStart).
					Time("window_end", windowEnd).
					Str("kind", kind.String()).
					Msg("abandoning observation window after fetch failure")
			}
		}
	}

	return nil
}

func ingestWindow(ctx context.Context, src Source, begin, end time.Time, kind Kind, pageSize int, collector *metrics.Collector, handler Handler) error {
	type pageResult struct {
		rows []Observation
		err  error
	}

	fetch := func(offset int) pageResult {
		rows, err := src.Fetch(ctx, begin, end, kind, offset, pageSize)
		return pageResult{rows: rows, err: err}
	}

	offset := 0
	p := pool.NewWithResults[pageResult]()
	p.WithMaxGoroutines(1)
	p.Go(func() pageResult { return fetch(offset) })

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		results := p.Wait()
		current := results[0]
		if current.err != nil {
			return fmt.Errorf("observation: fetching page at offset %d: %w", offset, current.err)
		}

		fetchedCount := len(current.rows)
		nextOffset := offset + fetchedCount

		if collector != nil {
			collector.PagesFetched.Inc()
		}

		if fetchedCount == pageSize {
			p = pool.NewWithResults[pageResult]()
			p.WithMaxGoroutines(1)
			p.Go(func() pageResult { return fetch(nextOffset) })
		}

		for _, row := range current.rows {
			handler(row)
		}

		if fetchedCount < pageSize {
			return nil
		}
		offset = nextOffset
	}
}
