package estimator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func defaultOptions() Options {
	return Options{
		AllowableDifferenceFromMeanSecs:     600,
		AllowableDifferenceFromOriginalSecs: 600,
	}
}

func TestForTripStopGaussian(t *testing.T) {
	times := []int{2, 4, 4, 4, 4, 5, 5, 7, 9}
	stats := ForTripStop(times, 4, "departure", defaultOptions(), "trip1", "stop1")

	if assert.NotNil(t, stats) {
		assert.InDelta(t, 4.888888, stats.Mean, 0.0001)
		assert.InDelta(t, 2.0069, stats.StandardDeviation, 0.001)
		assert.Equal(t, 2, stats.Min)
		assert.Equal(t, 9, stats.Max)
		assert.Len(t, stats.FilteredTimes, len(times))
		assert.Len(t, stats.UnfilteredTimes, len(times))
	}
}

func TestForTripStopOutlierByMean(t *testing.T) {
	times := []int{100, 105, 95, 110, 2000}
	stats := ForTripStop(times, 100, "departure", defaultOptions(), "trip1", "stop1")

	if assert.NotNil(t, stats) {
		assert.Len(t, stats.UnfilteredTimes, 5)
		assert.Len(t, stats.FilteredTimes, 4)
		assert.NotContains(t, stats.FilteredTimes, 2000)
	}
}

func TestForTripStopOutlierByOriginal(t *testing.T) {
	times := []int{1000, 1005, 1010, 2000}
	// mean is close enough to all of them that only the original-time filter
	// should reject 2000.
	stats := ForTripStop(times, 1005, "arrival", Options{
		AllowableDifferenceFromMeanSecs:     2000,
		AllowableDifferenceFromOriginalSecs: 100,
	}, "trip1", "stop1")

	if assert.NotNil(t, stats) {
		assert.Len(t, stats.FilteredTimes, 3)
		assert.NotContains(t, stats.FilteredTimes, 2000)
	}
}

func TestForTripStopAllFilteredOut(t *testing.T) {
	stats := ForTripStop([]int{9000}, 0, "departure", Options{
		AllowableDifferenceFromMeanSecs:     10,
		AllowableDifferenceFromOriginalSecs: 10,
	}, "trip1", "stop1")

	assert.Nil(t, stats)
}

func TestForTripStopEmpty(t *testing.T) {
	assert.Nil(t, ForTripStop(nil, 0, "departure", defaultOptions(), "trip1", "stop1"))
}

func TestForTripStopSinglePointStdDevIsNaN(t *testing.T) {
	stats := ForTripStop([]int{120}, 120, "arrival", defaultOptions(), "trip1", "stop1")
	if assert.NotNil(t, stats) {
		assert.True(t, math.IsNaN(stats.StandardDeviation))
	}
}
