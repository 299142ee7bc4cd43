// Package adherence measures how punctual the observed arrivals and
// departures were against both the original stop_times.txt schedule and the
// schedule the engine derives, so an operator can see the improvement a run
// produced before trusting it.
package adherence

import (
	"github.com/rs/zerolog/log"

	"github.com/transitcore/schedulerefine/pkg/refine/estimator"
	"github.com/transitcore/schedulerefine/pkg/refine/gtfsmodel"
)

// Options bounds how far an observed time may fall outside a schedule time
// before it counts as early or late. The two bands need not be symmetric:
// agencies are typically far more tolerant of a vehicle running a little
// late than a little early.
type Options struct {
	AllowableEarlySecs int
	AllowableLateSecs  int
}

// Report summarizes adherence across every (trip, stop) considered.
type Report struct {
	TotalDataPoints int

	EarlyOriginalSchedule int
	LateOriginalSchedule  int
	EarlyNewSchedule      int
	LateNewSchedule       int
}

// PercentOnTimeOriginal returns the percentage of observations that were
// neither early nor late against the original stop_times.txt schedule.
// Returns 0 when there were no data points.
func (r Report) PercentOnTimeOriginal() float64 {
	if r.TotalDataPoints == 0 {
		return 0
	}
	onTime := r.TotalDataPoints - r.EarlyOriginalSchedule - r.LateOriginalSchedule
	return 100.0 * float64(onTime) / float64(r.TotalDataPoints)
}

// PercentOnTimeNew returns the equivalent percentage against the engine's
// revised schedule.
func (r Report) PercentOnTimeNew() float64 {
	if r.TotalDataPoints == 0 {
		return 0
	}
	onTime := r.TotalDataPoints - r.EarlyNewSchedule - r.LateNewSchedule
	return 100.0 * float64(onTime) / float64(r.TotalDataPoints)
}

// Generate walks ordered once, comparing each (trip, stop)'s observations
// against its original and new schedule times. The last stop of a trip is
// judged on arrival time, since a vehicle has nothing left to depart for;
// every other stop is judged on departure time.
func Generate(
	ordered *gtfsmodel.OrderedStopTimes,
	arrivalStats map[gtfsmodel.TripStopKey]*estimator.Stats,
	departureStats map[gtfsmodel.TripStopKey]*estimator.Stats,
	opts Options,
) Report {
	var report Report

	rows := ordered.Rows
	for i, row := range rows {
		isLastStopOfTrip := i == len(rows)-1 || rows[i+1].TripID != row.TripID

		key := gtfsmodel.NewTripStopKey(row.TripID, row.StopID)

		var stats *estimator.Stats
		var originalScheduleTime int
		if isLastStopOfTrip {
			stats = arrivalStats[key]
			originalScheduleTime = row.ArrivalSec
		} else {
			stats = departureStats[key]
			originalScheduleTime = row.DepartureSec
		}

		if stats == nil {
			continue
		}

		newScheduleTime := stats.BestValue

		report.TotalDataPoints += len(stats.UnfilteredTimes)
		for _, t := range stats.UnfilteredTimes {
			if t < originalScheduleTime-opts.AllowableEarlySecs {
				report.EarlyOriginalSchedule++
			} else if t > originalScheduleTime+opts.AllowableLateSecs {
				report.LateOriginalSchedule++
			}

			if t < newScheduleTime-opts.AllowableEarlySecs {
				report.EarlyNewSchedule++
			} else if t > newScheduleTime+opts.AllowableLateSecs {
				report.LateNewSchedule++
			}
		}
	}

	log.Info().
		Int("total_data_points", report.TotalDataPoints).
		Int("early_original", report.EarlyOriginalSchedule).
		Int("late_original", report.LateOriginalSchedule).
		Float64("percent_on_time_original", report.PercentOnTimeOriginal()).
		Int("early_new", report.EarlyNewSchedule).
		Int("late_new", report.LateNewSchedule).
		Float64("percent_on_time_new", report.PercentOnTimeNew()).
		Msg("schedule adherence report")

	return report
}
