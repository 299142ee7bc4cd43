package gtfsmodel

// FirstStopPerTrip returns, for every trip in ordered, the stop id of its
// first row. Ordered rows are grouped by trip with ascending stop_sequence
// within each trip (BuildOrderedStopTimes guarantees this), so the first
// row encountered for a trip id is its terminal.
func FirstStopPerTrip(ordered *OrderedStopTimes) map[string]string {
	first := make(map[string]string)
	for _, row := range ordered.Rows {
		if _, seen := first[row.TripID]; !seen {
			first[row.TripID] = row.StopID
		}
	}
	return first
}
