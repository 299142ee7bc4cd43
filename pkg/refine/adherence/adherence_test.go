package adherence

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/transitcore/schedulerefine/pkg/refine/estimator"
	"github.com/transitcore/schedulerefine/pkg/refine/gtfsmodel"
)

func TestGenerateUsesArrivalAtLastStopOfTrip(t *testing.T) {
	rows := []gtfsmodel.StopTime{
		{TripID: "t1", StopID: "s1", StopSequence: 1, ArrivalSec: 100, DepartureSec: 110},
		{TripID: "t1", StopID: "s2", StopSequence: 2, ArrivalSec: 200, DepartureSec: 210},
	}
	ordered := gtfsmodel.BuildOrderedStopTimes(rows)

	firstKey := gtfsmodel.NewTripStopKey("t1", "s1")
	lastKey := gtfsmodel.NewTripStopKey("t1", "s2")

	departureStats := map[gtfsmodel.TripStopKey]*estimator.Stats{
		firstKey: {BestValue: 110, UnfilteredTimes: []int{108, 112}},
	}
	arrivalStats := map[gtfsmodel.TripStopKey]*estimator.Stats{
		lastKey: {BestValue: 205, UnfilteredTimes: []int{190, 270}},
	}

	report := Generate(ordered, arrivalStats, departureStats, Options{
		AllowableEarlySecs: 60,
		AllowableLateSecs:  60,
	})

	assert.Equal(t, 4, report.TotalDataPoints)
	// 270 at last stop is more than 60s late against both original (200) and new (205).
	assert.Equal(t, 1, report.LateOriginalSchedule)
	assert.Equal(t, 1, report.LateNewSchedule)
}

func TestPercentOnTimeNoDataPoints(t *testing.T) {
	var report Report
	assert.Equal(t, 0.0, report.PercentOnTimeOriginal())
	assert.Equal(t, 0.0, report.PercentOnTimeNew())
}
