package gtfsmodel

import "sort"

// OrderedStopTimes is the ordered map described by the engine's GTFS reader:
// Rows holds the stop_times rows in the order output files should use,
// Index maps a TripStopKey to its position in Rows so the estimator and
// writer can do O(1) trip/stop lookups while still iterating in row order.
type OrderedStopTimes struct {
	Rows  []StopTime
	Index map[TripStopKey]int
}

// Get returns the row for key and whether it was found.
func (o *OrderedStopTimes) Get(key TripStopKey) (StopTime, bool) {
	idx, ok := o.Index[key]
	if !ok {
		return StopTime{}, false
	}
	return o.Rows[idx], true
}

// BuildOrderedStopTimes detects order violations in rows and, if any exist,
// sorts a copy of rows by (trip_id, stop_sequence) before indexing it.
// Detection: a row is a violation if its trip_id belongs to a trip that was
// already completed (seen, left, and seen again) or if its stop_sequence is
// lower than the previous row's within the same trip. When no violation is
// found the original order is preserved byte-for-byte so that a stable
// upstream stop_times.txt produces a diffable output file.
func BuildOrderedStopTimes(rows []StopTime) *OrderedStopTimes {
	ordered := rows
	if hasOrderViolation(rows) {
		ordered = make([]StopTime, len(rows))
		copy(ordered, rows)
		sort.SliceStable(ordered, func(i, j int) bool {
			if ordered[i].TripID != ordered[j].TripID {
				return ordered[i].TripID < ordered[j].TripID
			}
			return ordered[i].StopSequence < ordered[j].StopSequence
		})
	}

	index := make(map[TripStopKey]int, len(ordered))
	for i, row := range ordered {
		index[NewTripStopKey(row.TripID, row.StopID)] = i
	}

	return &OrderedStopTimes{Rows: ordered, Index: index}
}

func hasOrderViolation(rows []StopTime) bool {
	tripIDsInvestigated := make(map[string]struct{}, len(rows))
	if len(rows) > 0 {
		tripIDsInvestigated[rows[0].TripID] = struct{}{}
	}

	for i := 1; i < len(rows); i++ {
		current := rows[i]
		previous := rows[i-1]

		if _, alreadyDealtWith := tripIDsInvestigated[current.TripID]; alreadyDealtWith {
			if current.TripID != previous.TripID || current.StopSequence < previous.StopSequence {
				return true
			}
		} else {
			tripIDsInvestigated[current.TripID] = struct{}{}
		}
	}

	return false
}

// FrequencyTripSet builds the hash set of trip ids present in the
// frequencies table. Only presence/absence is used by the engine.
func FrequencyTripSet(frequencies []Frequency) map[string]struct{} {
	set := make(map[string]struct{}, len(frequencies))
	for _, f := range frequencies {
		set[f.TripID] = struct{}{}
	}
	return set
}
