package statistics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMean(t *testing.T) {
	assert.InDelta(t, 4.888888, Mean([]int{2, 4, 4, 4, 4, 5, 5, 7, 9}), 0.0001)
	assert.Equal(t, float64(0), Mean(nil))
}

func TestSampleStandardDeviation(t *testing.T) {
	times := []int{2, 4, 4, 4, 4, 5, 5, 7, 9}
	mean := Mean(times)
	assert.InDelta(t, 2.0276, SampleStandardDeviation(times, mean), 0.001)
}

func TestSampleStandardDeviationSinglePoint(t *testing.T) {
	assert.True(t, math.IsNaN(SampleStandardDeviation([]int{5}, 5)))
}

func TestMinMax(t *testing.T) {
	min, max := MinMax([]int{9, 2, 7, 4})
	assert.Equal(t, 2, min)
	assert.Equal(t, 9, max)
}

func TestIsEarly(t *testing.T) {
	assert.True(t, IsEarly(3, 10, 2, 1))
	assert.False(t, IsEarly(9, 10, 2, 1))
}
