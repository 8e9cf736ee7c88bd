package stats

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/vessel-tracks/internal/analysis"
	"github.com/jengzang/vessel-tracks/internal/models"
)

func speedTable(speeds ...float64) *models.DailyTable {
	day := time.Date(2018, 1, 2, 0, 0, 0, 0, time.UTC)
	table := &models.DailyTable{Date: day}
	for i, v := range speeds {
		p := models.TrackPoint{
			Ping:     models.Ping{Timestamp: day.Add(time.Duration(i) * time.Minute), MMSI: 100},
			SpeedKph: v,
		}
		table.Rows = append(table.Rows, models.NewOutputRow(p))
	}
	return table
}

func TestSpeedDistribution(t *testing.T) {
	a := analysis.GetAnalyzer("speed_distribution")
	require.NotNil(t, a)

	result, err := a.Analyze(context.Background(), speedTable(10, 9, 8, 7, 6, 5, 4, 3, 2, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, SpeedDistributionColumns, result.Header)
	require.Len(t, result.Rows, len(SpeedQuantiles))

	want := map[string]float64{"0.1": 1, "0.5": 5, "0.9": 9, "0.95": 9.5, "0.99": 9.9, "max": 10}
	got := make(map[string]float64)
	for _, row := range result.Rows {
		v, err := strconv.ParseFloat(row[1], 64)
		require.NoError(t, err)
		got[row[0]] = v
	}
	for label, v := range want {
		assert.InDelta(t, v, got[label], 1e-9, label)
	}

	assert.Equal(t, "0.1", result.Rows[0][0])
	assert.Equal(t, "max", result.Rows[len(result.Rows)-1][0])
	assert.Equal(t, 11, result.Summary["pings"])
	assert.InDelta(t, 2.0/11.0, result.Summary["stationary_share"].(float64), 1e-12)
	assert.Empty(t, result.Warnings)
}

func TestSpeedDistributionEmptyDay(t *testing.T) {
	result, err := NewSpeedDistributionAnalyzer().Analyze(context.Background(), speedTable())
	require.NoError(t, err)
	assert.Empty(t, result.Rows)
	require.Len(t, result.Warnings, 1)

	var empty *analysis.EmptyResultWarning
	assert.ErrorAs(t, result.Warnings[0], &empty)
}

func TestSpeedDistributionCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSpeedDistributionAnalyzer().Analyze(ctx, speedTable(1, 2))
	assert.ErrorIs(t, err, context.Canceled)
}
