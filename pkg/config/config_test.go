package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfig = `
beginTime: 2026-01-01T00:00:00Z
endTime: 2026-01-08T00:00:00Z
timezone: America/New_York
gtfs:
  directory: /data/gtfs
source:
  driver: postgres
  connectionString: postgres://localhost/transit
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, validConfig)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 500_000, cfg.PageSize)
	assert.Equal(t, 1, cfg.WindowChunkDays)
	assert.Equal(t, 600, cfg.AllowableDifferenceFromMeanSecs)
	assert.Equal(t, 600, cfg.AllowableDifferenceFromOriginalSecs)
	assert.Equal(t, 0.2, cfg.DesiredFractionEarly)
}

func TestLoadRejectsEndBeforeBegin(t *testing.T) {
	path := writeConfig(t, `
beginTime: 2026-01-08T00:00:00Z
endTime: 2026-01-01T00:00:00Z
timezone: UTC
gtfs:
  directory: /data/gtfs
source:
  driver: postgres
  connectionString: postgres://localhost/transit
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsUnknownSourceDriver(t *testing.T) {
	path := writeConfig(t, `
beginTime: 2026-01-01T00:00:00Z
endTime: 2026-01-08T00:00:00Z
timezone: UTC
gtfs:
  directory: /data/gtfs
source:
  driver: sqlite
  connectionString: file.db
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFileIsAnError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestLocationDefaultsToLocal(t *testing.T) {
	cfg := &Config{}
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.NotNil(t, loc)
}
