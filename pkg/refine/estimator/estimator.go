// Package estimator turns the raw arrival or departure times accumulated for
// one (trip, stop) pair into a Stats value: the filtered and unfiltered time
// samples, their mean and sample standard deviation, and the observed
// min/max. It implements the two-stage outlier rejection the engine relies
// on before any per-route fitting happens.
package estimator

import (
	"github.com/rs/zerolog/log"

	"github.com/transitcore/schedulerefine/pkg/refine/calendar"
	"github.com/transitcore/schedulerefine/pkg/refine/statistics"
	"github.com/transitcore/schedulerefine/pkg/util"
)

// Stats holds the per-(trip,stop) statistics used to derive a revised
// schedule time. BestValue is left at zero until the route-level fitter
// sets it - everything else here is set by ForTripStop.
type Stats struct {
	BestValue int

	FilteredTimes   []int
	UnfilteredTimes []int

	Mean           float64
	StandardDeviation float64

	Min int
	Max int
}

// Options bounds how far an observed time may stray from the mean of all
// observations for its (trip, stop), or from the original scheduled time,
// before it is discarded as an outlier.
type Options struct {
	AllowableDifferenceFromMeanSecs     int
	AllowableDifferenceFromOriginalSecs int
}

// ForTripStop computes Stats for one (trip, stop)'s observed times. original
// is the scheduled time this trip/stop had before refinement, used as the
// second outlier filter. The second filter is always applied: an original of
// 0 is treated as a scheduled time of midnight, not as a missing schedule
// time. Returns nil if times is empty or every sample is filtered out as an
// outlier.
func ForTripStop(times []int, original int, kind string, opts Options, tripID, stopID string) *Stats {
	if len(times) == 0 {
		return nil
	}

	unfilteredMean := statistics.Mean(times)

	filtered := make([]int, len(times))
	copy(filtered, times)
	anyFilteredOut := false

	util.InPlaceFilter(&filtered, func(t int) bool {
		diffFromMean := float64(t) - unfilteredMean
		if absFloat(diffFromMean) > float64(opts.AllowableDifferenceFromMeanSecs) {
			anyFilteredOut = true
			log.Debug().
				Str("trip_id", tripID).
				Str("stop_id", stopID).
				Str("kind", kind).
				Str("time", calendar.TimeOfDayString(t)).
				Float64("diff_from_mean", diffFromMean).
				Msg("filtering out observation: too far from mean")
			return false
		}

		diffFromOriginal := t - original
		if abs(diffFromOriginal) > opts.AllowableDifferenceFromOriginalSecs {
			anyFilteredOut = true
			log.Debug().
				Str("trip_id", tripID).
				Str("stop_id", stopID).
				Str("kind", kind).
				Str("time", calendar.TimeOfDayString(t)).
				Int("diff_from_original", diffFromOriginal).
				Msg("filtering out observation: too far from original schedule time")
			return false
		}

		return true
	})

	if len(filtered) == 0 {
		return nil
	}

	stats := &Stats{UnfilteredTimes: times}

	if anyFilteredOut {
		stats.FilteredTimes = filtered
		stats.Mean = statistics.Mean(filtered)
	} else {
		stats.FilteredTimes = stats.UnfilteredTimes
		stats.Mean = unfilteredMean
	}

	// The standard deviation is computed against the unfiltered mean, not
	// stats.Mean, even when outliers were filtered and stats.Mean was
	// recomputed from the filtered set - matching the original estimator's
	// reference implementation exactly.
	stats.StandardDeviation = statistics.SampleStandardDeviation(stats.FilteredTimes, unfilteredMean)
	stats.Min, stats.Max = statistics.MinMax(stats.FilteredTimes)

	return stats
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
