package engine

import (
	"github.com/rs/zerolog/log"

	"github.com/transitcore/schedulerefine/pkg/refine/calendar"
	"github.com/transitcore/schedulerefine/pkg/refine/gtfsmodel"
	"github.com/transitcore/schedulerefine/pkg/refine/metrics"
	"github.com/transitcore/schedulerefine/pkg/refine/observation"
)

// Accumulator folds a stream of observations into per-route, per-(trip,stop)
// time samples, handling the one complication that makes this more than a
// group-by: a frequency-based trip's schedule slot is shared by every run of
// the day, so an observation's raw seconds-into-day figure only becomes
// comparable across runs once the measured terminal departure of its own run
// is subtracted out.
type Accumulator struct {
	frequencyTrips map[string]struct{}
	firstStopOfTrip map[string]string
	terminals      *observation.TerminalIndex

	departureTimesByRoute map[string]map[gtfsmodel.TripStopKey][]int
	arrivalTimesByRoute   map[string]map[gtfsmodel.TripStopKey][]int

	// Metrics is optional; when set, the two observation-skip paths in Add
	// record their reason against AnomaliesSkipped.
	Metrics *metrics.Collector
}

func NewAccumulator(frequencyTrips map[string]struct{}, firstStopOfTrip map[string]string) *Accumulator {
	return &Accumulator{
		frequencyTrips:        frequencyTrips,
		firstStopOfTrip:       firstStopOfTrip,
		terminals:             observation.NewTerminalIndex(),
		departureTimesByRoute: make(map[string]map[gtfsmodel.TripStopKey][]int),
		arrivalTimesByRoute:   make(map[string]map[gtfsmodel.TripStopKey][]int),
	}
}

// Add folds one observation into the accumulator. Departures from the first
// stop of a frequency-based trip are recorded into the terminal-departure
// index as a side effect, regardless of whether the observation is
// otherwise usable, since later observations of the same run need that
// value.
func (a *Accumulator) Add(obs observation.Observation) {
	isFrequencyTrip := a.isFrequencyBased(obs.TripID)

	if obs.Kind == observation.KindDeparture && isFrequencyTrip && a.firstStopOfTrip[obs.TripID] == obs.StopID {
		terminalKey := observation.NewTerminalKey(obs.VehicleID, obs.BlockID, obs.DayOfYear)
		a.terminals.RecordDeparture(terminalKey, obs.TimeSec)
	}

	timeWithRespectToTripStart := obs.TimeSec

	if isFrequencyTrip {
		terminalKey := observation.NewTerminalKey(obs.VehicleID, obs.BlockID, obs.DayOfYear)
		terminal, ok := a.terminals.Lookup(terminalKey)
		if !ok {
			if a.Metrics != nil {
				a.Metrics.AnomaliesSkipped.WithLabelValues("no_terminal_departure").Inc()
			}
			log.Debug().
				Str("trip_id", obs.TripID).
				Str("vehicle_id", obs.VehicleID).
				Str("block_id", obs.BlockID).
				Msg("no terminal departure recorded yet for frequency-based trip observation, skipping")
			return
		}

		if terminal > obs.TimeSec {
			if a.Metrics != nil {
				a.Metrics.AnomaliesSkipped.WithLabelValues("precedes_terminal_departure").Inc()
			}
			log.Error().
				Str("trip_id", obs.TripID).
				Str("stop_id", obs.StopID).
				Str("vehicle_id", obs.VehicleID).
				Str("observed_time", calendar.TimeOfDayString(obs.TimeSec)).
				Str("terminal_departure_time", calendar.TimeOfDayString(terminal)).
				Msg("observation precedes its trip's terminal departure, skipping")
			return
		}

		timeWithRespectToTripStart -= terminal
	}

	key := obs.TripStopKey()
	timesByRoute := a.timesByRoute(obs.Kind)
	routeMap, ok := timesByRoute[obs.RouteID]
	if !ok {
		routeMap = make(map[gtfsmodel.TripStopKey][]int)
		timesByRoute[obs.RouteID] = routeMap
	}
	routeMap[key] = append(routeMap[key], timeWithRespectToTripStart)
}

func (a *Accumulator) isFrequencyBased(tripID string) bool {
	_, ok := a.frequencyTrips[tripID]
	return ok
}

func (a *Accumulator) timesByRoute(kind observation.Kind) map[string]map[gtfsmodel.TripStopKey][]int {
	if kind == observation.KindArrival {
		return a.arrivalTimesByRoute
	}
	return a.departureTimesByRoute
}

// Routes returns the union of route ids that have accumulated at least one
// departure or arrival sample.
func (a *Accumulator) Routes() []string {
	seen := make(map[string]struct{}, len(a.departureTimesByRoute)+len(a.arrivalTimesByRoute))
	for routeID := range a.departureTimesByRoute {
		seen[routeID] = struct{}{}
	}
	for routeID := range a.arrivalTimesByRoute {
		seen[routeID] = struct{}{}
	}

	routes := make([]string, 0, len(seen))
	for routeID := range seen {
		routes = append(routes, routeID)
	}
	return routes
}

// TimesForRoute returns the per-(trip,stop) time samples accumulated for
// routeID for the given observation kind.
func (a *Accumulator) TimesForRoute(routeID string, kind observation.Kind) map[gtfsmodel.TripStopKey][]int {
	return a.timesByRoute(kind)[routeID]
}
