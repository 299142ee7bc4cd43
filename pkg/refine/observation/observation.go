// Package observation holds the AVL arrival/departure record model, the
// terminal-departure index used to align frequency-based trips against the
// run they actually belong to, and the source adapters that page through a
// backing store a day at a time.
package observation

import (
	"github.com/transitcore/schedulerefine/pkg/refine/gtfsmodel"
)

// Kind distinguishes an arrival observation from a departure observation.
// The engine processes every departure in a window before any arrival,
// because the terminal-departure index that frequency-trip alignment relies
// on must be fully populated first.
type Kind int

const (
	KindDeparture Kind = iota
	KindArrival
)

func (k Kind) String() string {
	if k == KindArrival {
		return "arrival"
	}
	return "departure"
}

// Observation is a single AVL record: a vehicle was seen at a stop, either
// arriving or departing, at a given instant, while serving a given trip and
// block.
type Observation struct {
	VehicleID string
	BlockID   string
	TripID    string
	StopID    string
	RouteID   string

	TimeSec  int // seconds into the service day, per calendar.Calendar
	DayOfYear int

	Kind Kind
}

// TripStopKey is the schedule-slot identity this observation contributes to.
func (o Observation) TripStopKey() gtfsmodel.TripStopKey {
	return gtfsmodel.NewTripStopKey(o.TripID, o.StopID)
}

// TerminalKey identifies one physical run of a vehicle: the same vehicle,
// serving the same block, on the same service day. Frequency-based trips
// share a TripStopKey across many runs, so the engine needs this coarser key
// to find the one terminal departure a given frequency-trip observation
// belongs to.
type TerminalKey struct {
	VehicleID string
	BlockID   string
	DayOfYear int
}

// NewTerminalKey builds the key used by the terminal-departure index.
func NewTerminalKey(vehicleID, blockID string, dayOfYear int) TerminalKey {
	return TerminalKey{VehicleID: vehicleID, BlockID: blockID, DayOfYear: dayOfYear}
}
