package temporal

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/vessel-tracks/internal/analysis"
	"github.com/jengzang/vessel-tracks/internal/models"
)

var day = time.Date(2018, 1, 2, 0, 0, 0, 0, time.UTC)

func at(h, m, s int, lat, lon float64) models.Ping {
	return models.Ping{
		Timestamp: day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second),
		MMSI:      100,
		Lat:       lat,
		Lon:       lon,
	}
}

func TestInterpolateHourly_OneRowPerHour(t *testing.T) {
	pings := []models.Ping{at(3, 0, 0, 44, -125), at(5, 0, 0, 46, -123)}

	hours, err := InterpolateHourly(pings, day, day.Add(23*time.Hour))
	require.NoError(t, err)
	require.Len(t, hours, 24)

	for i, h := range hours {
		assert.Equal(t, day.Add(time.Duration(i)*time.Hour), h.Timestamp)
		assert.Equal(t, int64(100), h.MMSI)
		assert.False(t, math.IsNaN(h.Lat))
		assert.False(t, math.IsNaN(h.Lon))
	}

	// leading hours take the first known value, trailing hours the last
	assert.Equal(t, 44.0, hours[0].Lat)
	assert.Equal(t, 44.0, hours[2].Lat)
	assert.InDelta(t, 45.0, hours[4].Lat, 1e-9)
	assert.InDelta(t, -124.0, hours[4].Lon, 1e-9)
	assert.Equal(t, 46.0, hours[5].Lat)
	assert.Equal(t, 46.0, hours[23].Lat)
	assert.Equal(t, -123.0, hours[23].Lon)
}

func TestInterpolateHourly_LinearOverMinuteIndex(t *testing.T) {
	pings := []models.Ping{at(0, 30, 0, 10, 0), at(1, 30, 0, 20, 0)}

	hours, err := InterpolateHourly(pings, day, day.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, hours, 3)

	// 01:00 is halfway between the two pings; 00:00 back-fills from 01:00
	assert.InDelta(t, 15.0, hours[1].Lat, 1e-9)
	assert.InDelta(t, 15.0, hours[0].Lat, 1e-9)
	assert.Equal(t, 20.0, hours[2].Lat)
}

func TestInterpolateHourly_AveragesPingsInSameMinute(t *testing.T) {
	pings := []models.Ping{
		at(1, 0, 10, 40, -120),
		at(1, 0, 20, 42, -122),
		at(0, 59, 50, 44, -124), // rounds up to 01:00
	}

	hours, err := InterpolateHourly(pings, day.Add(time.Hour), day.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, hours, 1)
	assert.InDelta(t, 42.0, hours[0].Lat, 1e-9)
	assert.InDelta(t, -122.0, hours[0].Lon, 1e-9)
}

func TestInterpolateHourly_IgnoresPingsOutsideWindow(t *testing.T) {
	pings := []models.Ping{at(0, 0, 0, 10, 0), at(6, 0, 0, 60, 0), at(9, 0, 0, 90, 0)}

	hours, err := InterpolateHourly(pings, day.Add(5*time.Hour), day.Add(7*time.Hour))
	require.NoError(t, err)
	require.Len(t, hours, 3)
	for _, h := range hours {
		assert.Equal(t, 60.0, h.Lat)
	}
}

func TestInterpolateHourly_HalfMinuteRoundsToEven(t *testing.T) {
	// 00:00:30 rounds down to the even minute 00:00, 00:01:30 up to 00:02
	assert.Equal(t, day, roundMinute(day.Add(30*time.Second)))
	assert.Equal(t, day.Add(2*time.Minute), roundMinute(day.Add(90*time.Second)))
	assert.Equal(t, day.Add(time.Minute), roundMinute(day.Add(31*time.Second)))
	assert.Equal(t, day, roundMinute(day.Add(29*time.Second)))

	pings := []models.Ping{at(0, 0, 30, 10, 0), at(2, 0, 0, 20, 0)}
	hours, err := InterpolateHourly(pings, day, day.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, hours, 3)
	assert.Equal(t, 10.0, hours[0].Lat)
	assert.InDelta(t, 15.0, hours[1].Lat, 1e-9)
}

func TestInterpolateHourly_PingsAfterLastHourMark(t *testing.T) {
	pings := []models.Ping{at(23, 30, 0, 44, -125), at(23, 40, 0, 45, -124)}

	hours, err := InterpolateHourly(pings, day, day.Add(24*time.Hour-time.Second))
	require.NoError(t, err)
	require.Len(t, hours, 24)
	for _, h := range hours {
		assert.Equal(t, 44.0, h.Lat)
		assert.Equal(t, -125.0, h.Lon)
	}
}

func TestInterpolateHourly_RejectsMixedVessels(t *testing.T) {
	other := at(2, 0, 0, 1, 1)
	other.MMSI = 200

	_, err := InterpolateHourly([]models.Ping{at(1, 0, 0, 1, 1), other}, day, day.Add(3*time.Hour))
	var malformed *analysis.MalformedInputError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "mmsi", malformed.Field)
	assert.Equal(t, "200", malformed.Value)
}

func TestInterpolateHourly_Errors(t *testing.T) {
	_, err := InterpolateHourly(nil, day, day.Add(time.Hour))
	assert.ErrorIs(t, err, analysis.ErrNoPings)

	_, err = InterpolateHourly([]models.Ping{at(1, 0, 0, 1, 1)}, day.Add(time.Hour), day)
	assert.ErrorIs(t, err, analysis.ErrInvalidWindow)

	_, err = InterpolateHourly([]models.Ping{at(10, 0, 0, 1, 1)}, day, day.Add(2*time.Hour))
	assert.True(t, errors.Is(err, analysis.ErrNoPingsInWindow))
}

func TestInterpolateHourly_WindowWithoutHourMark(t *testing.T) {
	hours, err := InterpolateHourly([]models.Ping{at(1, 10, 0, 1, 1)}, day.Add(70*time.Minute), day.Add(80*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, hours)
}

func TestHourlyInterpolationAnalyzer(t *testing.T) {
	table := &models.DailyTable{Date: day}
	for _, p := range []models.Ping{at(0, 0, 0, 44, -125), at(12, 0, 0, 45, -125)} {
		table.Rows = append(table.Rows, models.NewOutputRow(models.TrackPoint{Ping: p}))
	}
	other := at(6, 0, 0, 47, -126)
	other.MMSI = 200
	table.Rows = append(table.Rows, models.NewOutputRow(models.TrackPoint{Ping: other}))

	a := analysis.GetAnalyzer("hourly_interpolation")
	require.NotNil(t, a)

	result, err := a.Analyze(context.Background(), table)
	require.NoError(t, err)
	assert.Equal(t, models.HourlyColumns, result.Header)
	assert.Len(t, result.Rows, 48)
	assert.Equal(t, 2, result.Summary["vessels"])
	assert.Equal(t, "2018-01-02 00:00:00 UTC", result.Rows[0][0])
	assert.Equal(t, "100", result.Rows[0][1])
}

func TestHourlyInterpolationAnalyzer_LateArrivalHasNoEmptyCells(t *testing.T) {
	table := &models.DailyTable{Date: day}
	for _, p := range []models.Ping{at(23, 30, 0, 44, -125), at(23, 40, 0, 45, -124)} {
		table.Rows = append(table.Rows, models.NewOutputRow(models.TrackPoint{Ping: p}))
	}

	result, err := analysis.GetAnalyzer("hourly_interpolation").Analyze(context.Background(), table)
	require.NoError(t, err)
	require.Len(t, result.Rows, 24)
	assert.Empty(t, result.Warnings)
	for _, row := range result.Rows {
		assert.NotEmpty(t, row[2])
		assert.NotEmpty(t, row[3])
	}
}
