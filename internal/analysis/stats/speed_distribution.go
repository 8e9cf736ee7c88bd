package stats

import (
	"context"
	"fmt"
	"log"

	"github.com/jengzang/vessel-tracks/internal/analysis"
	"github.com/jengzang/vessel-tracks/internal/analysis/foundation"
	"github.com/jengzang/vessel-tracks/internal/models"
	"github.com/jengzang/vessel-tracks/internal/stats"
)

// SpeedQuantiles are the quantile levels reported for a day's speeds.
// The final level 1.0 is the maximum.
var SpeedQuantiles = []float64{
	0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9,
	0.95, 0.96, 0.97, 0.98, 0.99, 1.0,
}

// SpeedDistributionColumns is the header of the speed distribution table
var SpeedDistributionColumns = []string{"quantile", "speed_kph"}

// SpeedDistributionAnalyzer tabulates the speed quantiles of all retained pings
// for one day. It is used to sanity-check the validation threshold.
type SpeedDistributionAnalyzer struct {
	*analysis.BaseAnalyzer
}

// NewSpeedDistributionAnalyzer creates a new speed distribution analyzer
func NewSpeedDistributionAnalyzer() analysis.Analyzer {
	return &SpeedDistributionAnalyzer{
		BaseAnalyzer: analysis.NewBaseAnalyzer("speed_distribution"),
	}
}

// Analyze computes speed quantiles for one day
func (a *SpeedDistributionAnalyzer) Analyze(ctx context.Context, day *models.DailyTable) (*analysis.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := a.NewResult(SpeedDistributionColumns)
	if len(day.Rows) == 0 {
		result.Warnings = append(result.Warnings, &analysis.EmptyResultWarning{
			Scope: "speed distribution",
			Key:   day.Name(),
		})
		return result, nil
	}

	speeds := make([]float64, len(day.Rows))
	for i, r := range day.Rows {
		speeds[i] = r.SpeedKph
	}

	for i, v := range stats.Quantiles(speeds, SpeedQuantiles) {
		label := fmt.Sprintf("%g", SpeedQuantiles[i])
		if SpeedQuantiles[i] == 1.0 {
			label = "max"
		}
		result.Rows = append(result.Rows, []string{label, analysis.FormatFloat(v)})
	}

	summary := stats.Summarize(speeds)
	result.Summary["pings"] = summary.Count
	result.Summary["mean_kph"] = summary.Mean
	result.Summary["max_kph"] = summary.Max
	result.Summary["stationary_share"] = stats.Fraction(speeds, foundation.IsStationary)

	log.Printf("[SpeedDistributionAnalyzer] %s: %d pings, max %.2f kph", day.Name(), summary.Count, summary.Max)
	return result, nil
}

// Register the analyzer
func init() {
	analysis.RegisterAnalyzer("speed_distribution", NewSpeedDistributionAnalyzer)
}
