// Package writer builds the revised stop_times rows from the original
// schedule plus the fitted per-(trip,stop) statistics, and hands them to
// gtfsmodel for atomic output.
package writer

import (
	"github.com/transitcore/schedulerefine/pkg/refine/estimator"
	"github.com/transitcore/schedulerefine/pkg/refine/gtfsmodel"
)

// Options controls whether the first stop of every trip keeps its original
// scheduled departure time regardless of what the observed data suggests.
// Agencies that publish a trip's start time as a timetable commitment don't
// want it silently drifting because drivers tend to leave a minute late.
type Options struct {
	PreserveFirstStopOfTrip bool
}

// Build walks ordered and produces both the strict-GTFS replacement rows and
// the diagnostic extended rows, in the same order as ordered.Rows.
func Build(
	ordered *gtfsmodel.OrderedStopTimes,
	arrivalStats map[gtfsmodel.TripStopKey]*estimator.Stats,
	departureStats map[gtfsmodel.TripStopKey]*estimator.Stats,
	opts Options,
) ([]gtfsmodel.StopTime, []gtfsmodel.ExtendedStopTime) {
	rows := ordered.Rows
	newRows := make([]gtfsmodel.StopTime, 0, len(rows))
	extendedRows := make([]gtfsmodel.ExtendedStopTime, 0, len(rows))

	var previousTripID string
	for i, row := range rows {
		isFirstStopOfTrip := i == 0 || row.TripID != previousTripID
		previousTripID = row.TripID

		key := gtfsmodel.NewTripStopKey(row.TripID, row.StopID)

		useOriginal := opts.PreserveFirstStopOfTrip && isFirstStopOfTrip

		arrival := arrivalStats[key]
		departure := departureStats[key]

		newArrivalSec := row.ArrivalSec
		if !useOriginal && arrival != nil {
			newArrivalSec = arrival.BestValue
		}
		newDepartureSec := row.DepartureSec
		if !useOriginal && departure != nil {
			newDepartureSec = departure.BestValue
		}

		newRow := row
		newRow.ArrivalSec = newArrivalSec
		newRow.DepartureSec = newDepartureSec
		newRow.ArrivalTime = gtfsmodel.FormatGTFSTime(newArrivalSec)
		newRow.DepartureTime = gtfsmodel.FormatGTFSTime(newDepartureSec)
		newRows = append(newRows, newRow)

		extendedRows = append(extendedRows, buildExtendedRow(row, newRow, arrival, departure))
	}

	return newRows, extendedRows
}

func buildExtendedRow(original, revised gtfsmodel.StopTime, arrival, departure *estimator.Stats) gtfsmodel.ExtendedStopTime {
	ext := gtfsmodel.ExtendedStopTime{
		TripID:                original.TripID,
		StopID:                original.StopID,
		StopSequence:          original.StopSequence,
		ArrivalTime:           revised.ArrivalTime,
		DepartureTime:         revised.DepartureTime,
		OriginalArrivalTime:   gtfsmodel.FormatGTFSTime(original.ArrivalSec),
		OriginalDepartureTime: gtfsmodel.FormatGTFSTime(original.DepartureSec),
	}

	if arrival != nil {
		ext.ArrivalMin = gtfsmodel.FormatGTFSTime(arrival.Min)
		ext.ArrivalMax = gtfsmodel.FormatGTFSTime(arrival.Max)
		ext.ArrivalMean = arrival.Mean
		ext.ArrivalStdDev = arrival.StandardDeviation
		ext.ArrivalUnfilteredSize = len(arrival.UnfilteredTimes)
		ext.ArrivalFilteredSize = len(arrival.FilteredTimes)
	}

	if departure != nil {
		ext.DepartureMin = gtfsmodel.FormatGTFSTime(departure.Min)
		ext.DepartureMax = gtfsmodel.FormatGTFSTime(departure.Max)
		ext.DepartureMean = departure.Mean
		ext.DepartureStdDev = departure.StandardDeviation
		ext.DepartureUnfilteredSize = len(departure.UnfilteredTimes)
		ext.DepartureFilteredSize = len(departure.FilteredTimes)
	}

	return ext
}
