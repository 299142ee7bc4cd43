package gtfsmodel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriterWritesBothFilesAtomically(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	rows := []StopTime{
		{TripID: "t1", StopID: "s1", StopSequence: 1, ArrivalTime: "08:00:00", DepartureTime: "08:00:30"},
	}
	extended := []ExtendedStopTime{
		{TripID: "t1", StopID: "s1", StopSequence: 1, ArrivalTime: "08:00:00", DepartureTime: "08:00:30"},
	}

	require.NoError(t, w.Write(rows, extended))

	newPath := filepath.Join(dir, "stop_times.txt_new")
	extendedPath := filepath.Join(dir, "stop_times.txt_extended")

	_, err := os.Stat(newPath)
	require.NoError(t, err)
	_, err = os.Stat(extendedPath)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		require.NotContains(t, e.Name(), ".tmp-", "no temp file should be left behind after a successful write")
	}

	newContents, err := os.ReadFile(newPath)
	require.NoError(t, err)
	require.Contains(t, string(newContents), "t1")
	require.Contains(t, string(newContents), "08:00:00")
}

func TestWriterOverwritesExistingOutput(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "stop_times.txt_new"), []byte("stale"), 0o644))

	rows := []StopTime{{TripID: "t2", StopID: "s9", StopSequence: 1}}
	require.NoError(t, w.Write(rows, nil))

	contents, err := os.ReadFile(filepath.Join(dir, "stop_times.txt_new"))
	require.NoError(t, err)
	require.Contains(t, string(contents), "t2")
	require.NotContains(t, string(contents), "stale")
}
