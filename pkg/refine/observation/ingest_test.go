package observation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestVisitsDeparturesBeforeArrivalsWithinAWindow(t *testing.T) {
	begin := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := begin.Add(24 * time.Hour)

	src := &MemorySource{
		Observations: []Observation{
			{TripID: "t1", Kind: KindArrival, TimeSec: 10},
			{TripID: "t1", Kind: KindDeparture, TimeSec: 5},
		},
		Times: []time.Time{begin.Add(time.Hour), begin.Add(time.Hour)},
	}

	var seenKinds []Kind
	err := Ingest(context.Background(), src, begin, end, IngestOptions{PageSize: 10, WindowChunkDays: 1}, nil, func(o Observation) {
		seenKinds = append(seenKinds, o.Kind)
	})
	require.NoError(t, err)

	require.Len(t, seenKinds, 2)
	assert.Equal(t, KindDeparture, seenKinds[0])
	assert.Equal(t, KindArrival, seenKinds[1])
}

func TestIngestPagesAcrossMultipleFetches(t *testing.T) {
	begin := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := begin.Add(24 * time.Hour)

	var observations []Observation
	var times []time.Time
	for i := 0; i < 5; i++ {
		observations = append(observations, Observation{TripID: fmt.Sprintf("t%d", i), Kind: KindDeparture, TimeSec: i})
		times = append(times, begin.Add(time.Hour))
	}
	src := &MemorySource{Observations: observations, Times: times}

	var count int
	err := Ingest(context.Background(), src, begin, end, IngestOptions{PageSize: 2, WindowChunkDays: 1}, nil, func(o Observation) {
		count++
	})
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestIngestAbandonsWindowOnFetchErrorButContinues(t *testing.T) {
	begin := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := begin.Add(48 * time.Hour)

	src := &failingThenWorkingSource{failUntilWindow: 1}

	var count int
	err := Ingest(context.Background(), src, begin, end, IngestOptions{PageSize: 10, WindowChunkDays: 1}, nil, func(o Observation) {
		count++
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count, "the second window's single departure observation should still be folded in")
}

type failingThenWorkingSource struct {
	failUntilWindow int
	calls           int
}

func (s *failingThenWorkingSource) Fetch(_ context.Context, begin, end time.Time, kind Kind, offset, limit int) ([]Observation, error) {
	window := s.calls / 2 // two kinds fetched per window
	s.calls++
	if window < s.failUntilWindow {
		return nil, assert.AnError
	}
	if offset > 0 || kind != KindDeparture {
		return nil, nil
	}
	return []Observation{{TripID: "t1", Kind: KindDeparture}}, nil
}

func TestIngestRespectsContextCancellation(t *testing.T) {
	begin := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := begin.Add(24 * time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &MemorySource{}
	err := Ingest(ctx, src, begin, end, IngestOptions{PageSize: 10, WindowChunkDays: 1}, nil, func(Observation) {})
	assert.Error(t, err)
}
