package foundation

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/vessel-tracks/internal/analysis"
	"github.com/jengzang/vessel-tracks/internal/models"
	"github.com/jengzang/vessel-tracks/internal/spatial"
)

var base = time.Date(2018, 1, 2, 12, 0, 0, 0, time.UTC)

func ping(mmsi int64, offset time.Duration, lat, lon float64) models.Ping {
	return models.Ping{
		Timestamp: base.Add(offset),
		MMSI:      mmsi,
		Lat:       lat,
		Lon:       lon,
		Speed:     math.NaN(),
	}
}

func TestDeriveKinematics_SinglePing(t *testing.T) {
	points, err := DeriveKinematics([]models.Ping{ping(100, 0, 44.6, -124.1)})
	require.NoError(t, err)
	require.Len(t, points, 1)

	assert.Zero(t, points[0].DistKm)
	assert.Zero(t, points[0].TravelTimeHr)
	assert.Zero(t, points[0].SpeedKph)
}

func TestDeriveKinematics_Empty(t *testing.T) {
	points, err := DeriveKinematics(nil)
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestDeriveKinematics_SortsByTimestamp(t *testing.T) {
	in := []models.Ping{
		ping(100, 20*time.Minute, 44.62, -124.1),
		ping(100, 0, 44.60, -124.1),
		ping(100, 10*time.Minute, 44.61, -124.1),
	}

	points, err := DeriveKinematics(in)
	require.NoError(t, err)
	require.Len(t, points, 3)

	var got []time.Time
	for _, p := range points {
		got = append(got, p.Timestamp)
	}
	want := []time.Time{base, base.Add(10 * time.Minute), base.Add(20 * time.Minute)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	// derived values follow the sorted order, not the input order
	step := spatial.RoundTo(spatial.HaversineKm(44.60, -124.1, 44.61, -124.1), 2)
	assert.Zero(t, points[0].DistKm)
	assert.Equal(t, step, points[1].DistKm)
	assert.Equal(t, 0.1667, points[1].TravelTimeHr)
	assert.InDelta(t, step/0.1667, points[1].SpeedKph, 1e-9)
	assert.Equal(t, 44.62, points[2].Lat)

	// the caller's slice is untouched
	assert.Equal(t, 44.62, in[0].Lat)
}

func TestDeriveKinematics_StableForEqualTimestamps(t *testing.T) {
	in := []models.Ping{
		ping(7, 5*time.Minute, 45.0, -125.0),
		ping(7, 0, 45.1, -125.0),
		ping(7, 0, 45.2, -125.0),
	}

	points, err := DeriveKinematics(in)
	require.NoError(t, err)

	assert.Equal(t, []float64{45.1, 45.2, 45.0}, []float64{points[0].Lat, points[1].Lat, points[2].Lat})
	// zero elapsed time yields zero speed, never Inf or NaN
	assert.Zero(t, points[1].TravelTimeHr)
	assert.Greater(t, points[1].DistKm, 0.0)
	assert.Zero(t, points[1].SpeedKph)
}

func TestDeriveKinematics_RejectsMalformedTrack(t *testing.T) {
	tests := []struct {
		name  string
		pings []models.Ping
		field string
	}{
		{
			name:  "zero timestamp",
			pings: []models.Ping{ping(1, 0, 45, -125), {MMSI: 1, Lat: 45, Lon: -125}},
			field: "timestamp",
		},
		{
			name:  "NaN latitude",
			pings: []models.Ping{ping(1, 0, math.NaN(), -125)},
			field: "lat/lon",
		},
		{
			name:  "longitude out of range",
			pings: []models.Ping{ping(1, 0, 45, -190)},
			field: "lat/lon",
		},
		{
			name:  "mixed vessels",
			pings: []models.Ping{ping(1, 0, 45, -125), ping(2, time.Minute, 45, -125)},
			field: "mmsi",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points, err := DeriveKinematics(tt.pings)
			require.Error(t, err)
			assert.Nil(t, points)

			var malformed *analysis.MalformedInputError
			require.True(t, errors.As(err, &malformed))
			assert.Equal(t, tt.field, malformed.Field)
			assert.Equal(t, int64(1), malformed.MMSI)
		})
	}
}

func TestClassifyStationary(t *testing.T) {
	points := []models.TrackPoint{{SpeedKph: 0}, {SpeedKph: 1}, {SpeedKph: 1.01}, {SpeedKph: 20}}
	ClassifyStationary(points)

	got := []bool{points[0].Stationary, points[1].Stationary, points[2].Stationary, points[3].Stationary}
	assert.Equal(t, []bool{true, true, false, false}, got)
}
