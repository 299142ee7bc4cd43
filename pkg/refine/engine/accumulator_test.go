package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitcore/schedulerefine/pkg/refine/gtfsmodel"
	"github.com/transitcore/schedulerefine/pkg/refine/observation"
)

func TestAccumulatorFixedScheduleTripUsesRawTime(t *testing.T) {
	acc := NewAccumulator(map[string]struct{}{}, map[string]string{"t1": "s1"})

	acc.Add(observation.Observation{
		TripID: "t1", StopID: "s1", RouteID: "r1",
		Kind: observation.KindDeparture, TimeSec: 28800, VehicleID: "v1", BlockID: "b1", DayOfYear: 1,
	})

	times := acc.TimesForRoute("r1", observation.KindDeparture)
	require.NotNil(t, times)
	key := gtfsmodel.NewTripStopKey("t1", "s1")
	require.Equal(t, []int{28800}, times[key])
}

func TestAccumulatorFrequencyTripSubtractsTerminalDeparture(t *testing.T) {
	frequencyTrips := map[string]struct{}{"t1": {}}
	firstStop := map[string]string{"t1": "s1"}
	acc := NewAccumulator(frequencyTrips, firstStop)

	// Terminal departure observed at 28800s.
	acc.Add(observation.Observation{
		TripID: "t1", StopID: "s1", RouteID: "r1",
		Kind: observation.KindDeparture, TimeSec: 28800, VehicleID: "v1", BlockID: "b1", DayOfYear: 1,
	})
	// A later stop on the same run, observed at 29100s - should be recorded
	// as 300s (headway offset), not the raw 29100.
	acc.Add(observation.Observation{
		TripID: "t1", StopID: "s2", RouteID: "r1",
		Kind: observation.KindDeparture, TimeSec: 29100, VehicleID: "v1", BlockID: "b1", DayOfYear: 1,
	})

	times := acc.TimesForRoute("r1", observation.KindDeparture)
	key := gtfsmodel.NewTripStopKey("t1", "s2")
	require.Equal(t, []int{300}, times[key])
}

func TestAccumulatorFrequencyTripObservationBeforeTerminalIsSkipped(t *testing.T) {
	frequencyTrips := map[string]struct{}{"t1": {}}
	firstStop := map[string]string{"t1": "s1"}
	acc := NewAccumulator(frequencyTrips, firstStop)

	// No terminal departure recorded yet for this run - observation at a
	// later stop must be dropped, not folded in with a garbage offset.
	acc.Add(observation.Observation{
		TripID: "t1", StopID: "s2", RouteID: "r1",
		Kind: observation.KindDeparture, TimeSec: 29100, VehicleID: "v1", BlockID: "b1", DayOfYear: 1,
	})

	times := acc.TimesForRoute("r1", observation.KindDeparture)
	assert.Nil(t, times)
}

func TestAccumulatorRoutesUnionsBothKinds(t *testing.T) {
	acc := NewAccumulator(map[string]struct{}{}, map[string]string{})

	acc.Add(observation.Observation{TripID: "t1", StopID: "s1", RouteID: "r1", Kind: observation.KindDeparture, TimeSec: 1})
	acc.Add(observation.Observation{TripID: "t2", StopID: "s1", RouteID: "r2", Kind: observation.KindArrival, TimeSec: 2})

	routes := acc.Routes()
	assert.ElementsMatch(t, []string{"r1", "r2"}, routes)
}

func TestAccumulatorSharesTerminalIndexAcrossKinds(t *testing.T) {
	frequencyTrips := map[string]struct{}{"t1": {}}
	firstStop := map[string]string{"t1": "s1"}
	acc := NewAccumulator(frequencyTrips, firstStop)

	acc.Add(observation.Observation{
		TripID: "t1", StopID: "s1", RouteID: "r1",
		Kind: observation.KindDeparture, TimeSec: 28800, VehicleID: "v1", BlockID: "b1", DayOfYear: 1,
	})
	// An arrival for a later stop on the same run must see the terminal
	// departure recorded by the earlier departure observation above, even
	// though it is folded into the separate arrival map.
	acc.Add(observation.Observation{
		TripID: "t1", StopID: "s2", RouteID: "r1",
		Kind: observation.KindArrival, TimeSec: 29000, VehicleID: "v1", BlockID: "b1", DayOfYear: 1,
	})

	times := acc.TimesForRoute("r1", observation.KindArrival)
	key := gtfsmodel.NewTripStopKey("t1", "s2")
	require.Equal(t, []int{200}, times[key])
}
