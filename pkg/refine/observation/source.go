package observation

import (
	"context"
	"time"
)

// Source pages through observations recorded between begin and end,
// restricted to one Kind at a time so departures can be ingested fully
// before arrivals. A returned page shorter than limit signals the end of
// the window; callers must not assume the underlying store reports a total
// count.
type Source interface {
	Fetch(ctx context.Context, begin, end time.Time, kind Kind, offset, limit int) ([]Observation, error)
}
