package observation

import (
	"context"
	"time"
)

// MemorySource is a fixed in-memory Source used by tests. Observations are
// assumed to already carry TimeSec/DayOfYear; begin/end/kind filter exactly
// like a real backing store would, and offset/limit slice the filtered
// result so page-boundary behaviour can be exercised without a database.
type MemorySource struct {
	Observations []Observation
	Times        []time.Time
}

func (s *MemorySource) Fetch(_ context.Context, begin, end time.Time, kind Kind, offset, limit int) ([]Observation, error) {
	var matched []Observation
	for i, o := range s.Observations {
		if o.Kind != kind {
			continue
		}
		if i < len(s.Times) {
			t := s.Times[i]
			if t.Before(begin) || !t.Before(end) {
				continue
			}
		}
		matched = append(matched, o)
	}

	if offset >= len(matched) {
		return nil, nil
	}
	end2 := offset + limit
	if end2 > len(matched) {
		end2 = len(matched)
	}
	return matched[offset:end2], nil
}
