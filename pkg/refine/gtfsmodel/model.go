// Package gtfsmodel holds the GTFS stop_times/frequencies data model the
// refinement engine reads and writes, the trip/stop identity keys used
// throughout the engine, and the ordering-repair logic that makes first-stop
// detection reliable regardless of how the source file was sorted.
package gtfsmodel

import (
	"fmt"
	"strconv"
	"strings"
)

// StopTime is one row of stop_times.txt. ArrivalSec/DepartureSec are the
// parsed seconds-from-midnight form of ArrivalTime/DepartureTime; GTFS
// permits values past 24:00:00 for after-midnight service so these are not
// time.Duration or time.Time.
type StopTime struct {
	TripID        string `csv:"trip_id"`
	ArrivalTime   string `csv:"arrival_time"`
	DepartureTime string `csv:"departure_time"`
	StopID        string `csv:"stop_id"`
	StopSequence  int    `csv:"stop_sequence"`
	StopHeadsign  string `csv:"stop_headsign"`
	PickupType    int8   `csv:"pickup_type"`
	DropOffType   int8   `csv:"drop_off_type"`

	ArrivalSec   int `csv:"-"`
	DepartureSec int `csv:"-"`
}

// Frequency is one row of frequencies.txt. Only TripID is consulted by the
// engine - the headway and exact_times columns are passed through untouched
// because the engine only needs to know which trips are frequency-based.
type Frequency struct {
	TripID         string `csv:"trip_id"`
	StartTime      string `csv:"start_time"`
	EndTime        string `csv:"end_time"`
	HeadwaySeconds int    `csv:"headway_secs"`
	ExactTimes     string `csv:"exact_times"`
}

// TripStopKey identifies a schedule slot: a (trip, stop) pair. Equality is
// exact string equality on both fields, which is why it is a plain
// comparable struct usable directly as a map key.
type TripStopKey struct {
	TripID string
	StopID string
}

func (k TripStopKey) String() string {
	return fmt.Sprintf("TripStopKey[tripId=%s, stopId=%s]", k.TripID, k.StopID)
}

// NewTripStopKey builds the key used for every per-(trip,stop) map in the
// engine.
func NewTripStopKey(tripID, stopID string) TripStopKey {
	return TripStopKey{TripID: tripID, StopID: stopID}
}

// ParseGTFSTime parses a GTFS HH:MM:SS time-of-day string into seconds since
// midnight. Hours are permitted to exceed 23 for after-midnight service.
func ParseGTFSTime(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("gtfsmodel: malformed time %q", s)
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("gtfsmodel: malformed time %q: %w", s, err)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("gtfsmodel: malformed time %q: %w", s, err)
	}
	seconds, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, fmt.Errorf("gtfsmodel: malformed time %q: %w", s, err)
	}

	return hours*3600 + minutes*60 + seconds, nil
}

// FormatGTFSTime is the inverse of ParseGTFSTime.
func FormatGTFSTime(secs int) string {
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}
