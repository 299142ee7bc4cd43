// Package fitter chooses, per route, how many standard deviations below the
// mean to place the revised schedule time. Routes differ in how punctual
// their running times are, so a single global cutoff either runs too many
// routes early or leaves too many running late; the fitter bisects toward a
// configured target fraction of early arrivals/departures instead.
package fitter

import (
	"github.com/rs/zerolog/log"

	"github.com/transitcore/schedulerefine/pkg/refine/estimator"
	"github.com/transitcore/schedulerefine/pkg/refine/metrics"
)

const iterations = 5

// FractionEarly returns the fraction of observations, across every
// (trip,stop) in stats with at least two filtered samples, that fall more
// than k standard deviations below their own mean. Stats with fewer than two
// filtered samples have no valid standard deviation and are excluded from
// both the numerator and denominator. Returns 0, not NaN, when no eligible
// stats exist - a route with nothing but single-sample stops should not
// block the bisection from converging.
func FractionEarly(k float64, stats []*estimator.Stats) float64 {
	var totalTimes, totalEarly int

	for _, s := range stats {
		if len(s.FilteredTimes) < 2 {
			continue
		}
		allowable := s.Mean - s.StandardDeviation*k
		for _, t := range s.FilteredTimes {
			totalTimes++
			if float64(t) < allowable {
				totalEarly++
			}
		}
	}

	if totalTimes == 0 {
		return 0
	}
	return float64(totalEarly) / float64(totalTimes)
}

// FitRoute bisects k over [0, 2] for `iterations` steps to find the cutoff
// that drives FractionEarly(k, stats) toward desiredFractionEarly, then
// sets BestValue on every Stats in stats using that k. Stats with an
// undefined (NaN) standard deviation keep BestValue equal to their mean,
// rounded, since there is no dispersion to subtract. collector may be nil.
func FitRoute(routeID string, stats []*estimator.Stats, desiredFractionEarly float64, collector *metrics.Collector) float64 {
	low, high := 0.0, 2.0
	k := 1.0

	for i := 0; i < iterations; i++ {
		fractionEarly := FractionEarly(k, stats)
		log.Debug().
			Str("route_id", routeID).
			Int("iteration", i).
			Float64("k", k).
			Float64("desired_fraction_early", desiredFractionEarly).
			Float64("fraction_early", fractionEarly).
			Msg("fitter bisection step")

		if fractionEarly < desiredFractionEarly {
			high = k
			k = (k + low) / 2
		} else {
			low = k
			k = (k + high) / 2
		}
	}

	for _, s := range stats {
		best := s.Mean
		if !isNaN(s.StandardDeviation) {
			best -= s.StandardDeviation * k
		}
		s.BestValue = roundToInt(best)
	}

	if collector != nil {
		collector.FitIterations.Observe(float64(iterations))
	}

	log.Info().
		Str("route_id", routeID).
		Float64("k", k).
		Int("trip_stop_count", len(stats)).
		Msg("fit route")

	return k
}

func isNaN(f float64) bool {
	return f != f
}

func roundToInt(f float64) int {
	if f < 0 {
		return int(f - 0.5)
	}
	return int(f + 0.5)
}
