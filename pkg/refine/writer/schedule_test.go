package writer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/transitcore/schedulerefine/pkg/refine/estimator"
	"github.com/transitcore/schedulerefine/pkg/refine/gtfsmodel"
)

func TestBuildPreservesFirstStopOfTrip(t *testing.T) {
	rows := []gtfsmodel.StopTime{
		{TripID: "t1", StopID: "s1", StopSequence: 1, ArrivalSec: 100, DepartureSec: 110},
		{TripID: "t1", StopID: "s2", StopSequence: 2, ArrivalSec: 200, DepartureSec: 210},
	}
	ordered := gtfsmodel.BuildOrderedStopTimes(rows)

	departureStats := map[gtfsmodel.TripStopKey]*estimator.Stats{
		gtfsmodel.NewTripStopKey("t1", "s1"): {BestValue: 150},
		gtfsmodel.NewTripStopKey("t1", "s2"): {BestValue: 250},
	}

	newRows, extended := Build(ordered, nil, departureStats, Options{PreserveFirstStopOfTrip: true})

	assert.Equal(t, 110, newRows[0].DepartureSec, "first stop of trip must keep its original departure time")
	assert.Equal(t, 250, newRows[1].DepartureSec)
	assert.Len(t, extended, 2)
	assert.Equal(t, "00:01:50", extended[0].OriginalDepartureTime)
}

func TestBuildWithoutPreservationUpdatesFirstStop(t *testing.T) {
	rows := []gtfsmodel.StopTime{
		{TripID: "t1", StopID: "s1", StopSequence: 1, ArrivalSec: 100, DepartureSec: 110},
	}
	ordered := gtfsmodel.BuildOrderedStopTimes(rows)

	departureStats := map[gtfsmodel.TripStopKey]*estimator.Stats{
		gtfsmodel.NewTripStopKey("t1", "s1"): {BestValue: 150},
	}

	newRows, _ := Build(ordered, nil, departureStats, Options{PreserveFirstStopOfTrip: false})
	assert.Equal(t, 150, newRows[0].DepartureSec)
}
