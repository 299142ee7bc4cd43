package gtfsmodel

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/jamespfennell/gtfs"
)

// Reader loads stop_times.txt and frequencies.txt from a GTFS source, parsing
// every time-of-day column into ArrivalSec/DepartureSec as it goes.
type Reader interface {
	Read() (stopTimes []StopTime, frequencies []Frequency, err error)
}

// DirectoryReader reads stop_times.txt and frequencies.txt from an already
// unpacked GTFS directory. It tolerates ragged rows the same way the rest of
// the GTFS tooling in this codebase does, since agencies regularly publish
// feeds with missing trailing columns.
type DirectoryReader struct {
	Dir string
}

func NewDirectoryReader(dir string) *DirectoryReader {
	return &DirectoryReader{Dir: dir}
}

func (r *DirectoryReader) Read() ([]StopTime, []Frequency, error) {
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		reader := csv.NewReader(in)
		reader.FieldsPerRecord = -1
		return reader
	})

	stopTimes, err := r.readStopTimes()
	if err != nil {
		return nil, nil, err
	}

	frequencies, err := r.readFrequencies()
	if err != nil {
		return nil, nil, err
	}

	return stopTimes, frequencies, nil
}

func (r *DirectoryReader) readStopTimes() ([]StopTime, error) {
	f, err := os.Open(filepath.Join(r.Dir, "stop_times.txt"))
	if err != nil {
		return nil, fmt.Errorf("gtfsmodel: opening stop_times.txt: %w", err)
	}
	defer f.Close()

	var rows []StopTime
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return nil, fmt.Errorf("gtfsmodel: parsing stop_times.txt: %w", err)
	}

	if err := populateSeconds(rows); err != nil {
		return nil, err
	}

	return rows, nil
}

func (r *DirectoryReader) readFrequencies() ([]Frequency, error) {
	path := filepath.Join(r.Dir, "frequencies.txt")
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		// frequencies.txt is optional - most feeds are fixed-schedule only.
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("gtfsmodel: opening frequencies.txt: %w", err)
	}
	defer f.Close()

	var rows []Frequency
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return nil, fmt.Errorf("gtfsmodel: parsing frequencies.txt: %w", err)
	}
	return rows, nil
}

func populateSeconds(rows []StopTime) error {
	for i := range rows {
		if rows[i].ArrivalTime != "" {
			secs, err := ParseGTFSTime(rows[i].ArrivalTime)
			if err != nil {
				return fmt.Errorf("gtfsmodel: row %d: %w", i, err)
			}
			rows[i].ArrivalSec = secs
		}
		if rows[i].DepartureTime != "" {
			secs, err := ParseGTFSTime(rows[i].DepartureTime)
			if err != nil {
				return fmt.Errorf("gtfsmodel: row %d: %w", i, err)
			}
			rows[i].DepartureSec = secs
		}
	}
	return nil
}

// ZipReader reads stop_times and frequencies out of a packaged GTFS zip using
// the jamespfennell/gtfs static parser, for agencies that publish a single
// feed archive rather than an already-exploded directory.
type ZipReader struct {
	Path string
}

func NewZipReader(path string) *ZipReader {
	return &ZipReader{Path: path}
}

func (r *ZipReader) Read() ([]StopTime, []Frequency, error) {
	body, err := os.ReadFile(r.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("gtfsmodel: reading %s: %w", r.Path, err)
	}

	static, err := gtfs.ParseStatic(body, gtfs.ParseStaticOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("gtfsmodel: parsing %s: %w", r.Path, err)
	}

	var stopTimes []StopTime
	var frequencies []Frequency

	for _, trip := range static.Trips {
		for _, st := range trip.StopTimes {
			row := StopTime{
				TripID:       trip.ID,
				StopID:       st.Stop.Id,
				StopSequence: int(st.StopSequence),
				ArrivalSec:   int(st.ArrivalTime.Seconds()),
				DepartureSec: int(st.DepartureTime.Seconds()),
			}
			row.ArrivalTime = FormatGTFSTime(row.ArrivalSec)
			row.DepartureTime = FormatGTFSTime(row.DepartureSec)
			stopTimes = append(stopTimes, row)
		}

		for _, freq := range trip.Frequencies {
			frequencies = append(frequencies, Frequency{
				TripID:         trip.ID,
				HeadwaySeconds: int(freq.Headway.Seconds()),
			})
		}
	}

	return stopTimes, frequencies, nil
}
