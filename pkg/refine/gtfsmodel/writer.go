package gtfsmodel

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
)

// ExtendedStopTime is one row of stop_times.txt_extended: the revised
// schedule row plus the diagnostics that produced it, so an analyst can see
// why a time moved without re-running the engine.
type ExtendedStopTime struct {
	TripID        string `csv:"trip_id"`
	StopID        string `csv:"stop_id"`
	StopSequence  int    `csv:"stop_sequence"`
	ArrivalTime   string `csv:"arrival_time"`
	DepartureTime string `csv:"departure_time"`

	OriginalArrivalTime   string `csv:"original_arrival_time"`
	OriginalDepartureTime string `csv:"original_departure_time"`

	ArrivalMin            string  `csv:"arrival_min"`
	ArrivalMax            string  `csv:"arrival_max"`
	ArrivalMean           float64 `csv:"arrival_mean"`
	ArrivalStdDev         float64 `csv:"arrival_std_dev"`
	ArrivalUnfilteredSize int     `csv:"arrival_n_unfiltered"`
	ArrivalFilteredSize   int     `csv:"arrival_n_filtered"`

	DepartureMin            string  `csv:"departure_min"`
	DepartureMax            string  `csv:"departure_max"`
	DepartureMean           float64 `csv:"departure_mean"`
	DepartureStdDev         float64 `csv:"departure_std_dev"`
	DepartureUnfilteredSize int     `csv:"departure_n_unfiltered"`
	DepartureFilteredSize   int     `csv:"departure_n_filtered"`
}

// Writer emits the two output files the engine produces for one run:
// stop_times.txt_new, a drop-in replacement in strict GTFS shape, and
// stop_times.txt_extended, the diagnostic companion file. Each is written to
// a temporary file in dir and renamed into place once it has been written in
// full, so neither file is ever observed half-written. The two files are
// written and renamed one after the other: if writing
// stop_times.txt_extended fails, stop_times.txt_new has already been
// replaced.
type Writer struct {
	Dir string
}

func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir}
}

func (w *Writer) Write(rows []StopTime, extended []ExtendedStopTime) error {
	newPath := filepath.Join(w.Dir, "stop_times.txt_new")
	extendedPath := filepath.Join(w.Dir, "stop_times.txt_extended")

	if err := writeAtomic(newPath, rows); err != nil {
		return fmt.Errorf("gtfsmodel: writing %s: %w", newPath, err)
	}
	if err := writeAtomic(extendedPath, extended); err != nil {
		return fmt.Errorf("gtfsmodel: writing %s: %w", extendedPath, err)
	}
	return nil
}

// writeAtomic marshals rows to a temp file alongside path and renames it
// into place, so a crash mid-write never leaves a truncated output file.
func writeAtomic(path string, rows interface{}) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if err := gocsv.Marshal(rows, tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
