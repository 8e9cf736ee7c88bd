package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/vessel-tracks/internal/models"
)

const sampleConfig = `
region:
  name: Mendocino
  id: 11
  lon1: -125
  lon2: -123
  lat1: 38
  lat2: 40
begin: "2018-01-01"
end: "2018-01-03"
paths:
  raw_dir: /data/raw
day_timeout: 90s
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "Mendocino", cfg.Region.Name)
	assert.Equal(t, 32.0, cfg.MaxSpeedKph)
	assert.Equal(t, 90*time.Second, cfg.DayTimeout)
	assert.GreaterOrEqual(t, cfg.Workers, 1)
	assert.Equal(t, "./output/csv", cfg.Paths.CSVOutDir)
	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Len(t, cfg.Analytics, 3)

	want := models.BoundingBox{Lon1: -125, Lon2: -123, Lat1: 38, Lat2: 40}
	if diff := cmp.Diff(want, cfg.Bounds()); diff != "" {
		t.Errorf("Bounds() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", ":9090")
	t.Setenv("DB_PATH", "/tmp/ledger.db")
	t.Setenv("VESSEL_WORKERS", "3")
	t.Setenv("VESSEL_MAX_SPEED", "45.5")

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Port)
	assert.Equal(t, "/tmp/ledger.db", cfg.Server.DBPath)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 45.5, cfg.MaxSpeedKph)

	t.Setenv("VESSEL_WORKERS", "many")
	_, err = Load(writeConfig(t, sampleConfig))
	assert.Error(t, err)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"swapped longitudes", `
region: {name: X, lon1: -123, lon2: -125, lat1: 38, lat2: 40}
begin: "2018-01-01"
end: "2018-01-01"
paths: {raw_dir: /r}
`},
		{"latitude out of range", `
region: {name: X, lon1: -125, lon2: -123, lat1: 38, lat2: 95}
begin: "2018-01-01"
end: "2018-01-01"
paths: {raw_dir: /r}
`},
		{"missing raw dir", `
region: {name: X, lon1: -125, lon2: -123, lat1: 38, lat2: 40}
begin: "2018-01-01"
end: "2018-01-01"
`},
		{"bad date", `
region: {name: X, lon1: -125, lon2: -123, lat1: 38, lat2: 40}
begin: "01/01/2018"
end: "2018-01-01"
paths: {raw_dir: /r}
`},
		{"zero workers", `
region: {name: X, lon1: -125, lon2: -123, lat1: 38, lat2: 40}
begin: "2018-01-01"
end: "2018-01-01"
workers: 0
paths: {raw_dir: /r}
`},
		{"unknown analytic", `
region: {name: X, lon1: -125, lon2: -123, lat1: 38, lat2: 40}
begin: "2018-01-01"
end: "2018-01-01"
analytics: [heatmap]
paths: {raw_dir: /r}
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsReversedRange(t *testing.T) {
	_, err := Load(writeConfig(t, `
region: {name: X, lon1: -125, lon2: -123, lat1: 38, lat2: 40}
begin: "2018-01-05"
end: "2018-01-01"
paths: {raw_dir: /r}
`))
	assert.True(t, errors.Is(err, ErrInvalidDateRange))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestDays(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	days, err := cfg.Days()
	require.NoError(t, err)
	require.Len(t, days, 3)
	assert.Equal(t, "2018-01-01", days[0].Format(models.DayLayout))
	assert.Equal(t, "2018-01-03", days[2].Format(models.DayLayout))

	single, err := DaysBetween(days[1], days[1])
	require.NoError(t, err)
	assert.Len(t, single, 1)

	_, err = DaysBetween(days[2], days[0])
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}
