package temporal

import (
	"context"
	"fmt"
	"log"
	"math"
	"strconv"
	"time"

	"github.com/jengzang/vessel-tracks/internal/analysis"
	"github.com/jengzang/vessel-tracks/internal/models"
)

// InterpolateHourly resamples one vessel's irregular pings onto every whole hour
// between start and end inclusive.
//
// Pings are rounded to the nearest minute (half to even) and averaged when they
// share a minute. Pings outside [start,end] are ignored. Gaps on the per-minute
// timeline are filled by linear interpolation over the minute index; minutes
// after the last known ping carry its value forward. The timeline is then cut
// down to the hour marks, and hours still empty (before the first ping) are
// filled backward then forward from the nearest hourly value. When every ping
// falls after the last hour mark, all hours take the first known position.
func InterpolateHourly(pings []models.Ping, start, end time.Time) ([]models.HourlyPoint, error) {
	if len(pings) == 0 {
		return nil, analysis.ErrNoPings
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: %s < %s", analysis.ErrInvalidWindow, end, start)
	}

	mmsi := pings[0].MMSI
	for i, p := range pings {
		if p.MMSI != mmsi {
			return nil, &analysis.MalformedInputError{
				MMSI:   mmsi,
				Field:  "mmsi",
				Value:  strconv.FormatInt(p.MMSI, 10),
				Reason: fmt.Sprintf("ping %d belongs to another vessel", i),
			}
		}
	}

	first := ceilMinute(start.UTC())
	last := end.UTC().Truncate(time.Minute)
	if last.Before(first) {
		return []models.HourlyPoint{}, nil
	}

	n := int(last.Sub(first)/time.Minute) + 1
	lat := make([]float64, n)
	lon := make([]float64, n)
	counts := make([]int, n)

	for _, p := range pings {
		m := roundMinute(p.Timestamp.UTC())
		if m.Before(first) || m.After(last) {
			continue
		}
		idx := int(m.Sub(first) / time.Minute)
		lat[idx] += p.Lat
		lon[idx] += p.Lon
		counts[idx]++
	}

	firstKnown := -1
	for i := range counts {
		if counts[i] == 0 {
			lat[i], lon[i] = math.NaN(), math.NaN()
			continue
		}
		lat[i] /= float64(counts[i])
		lon[i] /= float64(counts[i])
		if firstKnown < 0 {
			firstKnown = i
		}
	}
	if firstKnown < 0 {
		return nil, fmt.Errorf("vessel %d: %w", mmsi, analysis.ErrNoPingsInWindow)
	}

	interpolateForward(lat)
	interpolateForward(lon)

	var hours []models.HourlyPoint
	for i := 0; i < n; i++ {
		ts := first.Add(time.Duration(i) * time.Minute)
		if ts.Minute() != 0 {
			continue
		}
		hours = append(hours, models.HourlyPoint{Timestamp: ts, MMSI: mmsi, Lat: lat[i], Lon: lon[i]})
	}

	fillBoundaries(hours)
	if len(hours) > 0 && math.IsNaN(hours[0].Lat) {
		for i := range hours {
			hours[i].Lat, hours[i].Lon = lat[firstKnown], lon[firstKnown]
		}
	}
	return hours, nil
}

// interpolateForward fills interior NaN runs linearly and carries the last
// known value over trailing NaNs. Leading NaNs are left alone.
func interpolateForward(values []float64) {
	prev := -1
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if prev >= 0 && i-prev > 1 {
			step := (v - values[prev]) / float64(i-prev)
			for k := prev + 1; k < i; k++ {
				values[k] = values[prev] + step*float64(k-prev)
			}
		}
		prev = i
	}
	if prev >= 0 {
		for k := prev + 1; k < len(values); k++ {
			values[k] = values[prev]
		}
	}
}

// fillBoundaries back-fills then forward-fills missing hourly positions
func fillBoundaries(hours []models.HourlyPoint) {
	for i := len(hours) - 2; i >= 0; i-- {
		if math.IsNaN(hours[i].Lat) {
			hours[i].Lat = hours[i+1].Lat
		}
		if math.IsNaN(hours[i].Lon) {
			hours[i].Lon = hours[i+1].Lon
		}
	}
	for i := 1; i < len(hours); i++ {
		if math.IsNaN(hours[i].Lat) {
			hours[i].Lat = hours[i-1].Lat
		}
		if math.IsNaN(hours[i].Lon) {
			hours[i].Lon = hours[i-1].Lon
		}
	}
}

// roundMinute rounds to the nearest minute, sending exact half minutes to the even minute
func roundMinute(t time.Time) time.Time {
	floor := t.Truncate(time.Minute)
	switch rem := t.Sub(floor); {
	case rem < 30*time.Second:
		return floor
	case rem > 30*time.Second:
		return floor.Add(time.Minute)
	}
	if (floor.Unix()/60)%2 == 0 {
		return floor
	}
	return floor.Add(time.Minute)
}

func ceilMinute(t time.Time) time.Time {
	floor := t.Truncate(time.Minute)
	if floor.Equal(t) {
		return floor
	}
	return floor.Add(time.Minute)
}

// InterpolateDay resamples every vessel of a processed day onto the day's 24 hour marks.
// Vessels that cannot be interpolated are skipped and reported as warnings.
func InterpolateDay(ctx context.Context, day *models.DailyTable) ([]models.HourlyPoint, []error, error) {
	y, m, d := day.Date.UTC().Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	end := start.Add(24*time.Hour - time.Second)

	var (
		points   []models.HourlyPoint
		warnings []error
	)
	for _, track := range day.Tracks() {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		pings := make([]models.Ping, len(track.Points))
		for i, p := range track.Points {
			pings[i] = p.Ping
		}

		hourly, err := InterpolateHourly(pings, start, end)
		if err != nil {
			warnings = append(warnings, fmt.Errorf("vessel %d: %w", track.MMSI, err))
			continue
		}
		points = append(points, hourly...)
	}

	return points, warnings, nil
}

// HourlyInterpolationAnalyzer writes every vessel's hourly-resampled positions
type HourlyInterpolationAnalyzer struct {
	*analysis.BaseAnalyzer
}

// NewHourlyInterpolationAnalyzer creates a new hourly interpolation analyzer
func NewHourlyInterpolationAnalyzer() analysis.Analyzer {
	return &HourlyInterpolationAnalyzer{
		BaseAnalyzer: analysis.NewBaseAnalyzer("hourly_interpolation"),
	}
}

// Analyze performs hourly interpolation for one day
func (a *HourlyInterpolationAnalyzer) Analyze(ctx context.Context, day *models.DailyTable) (*analysis.Result, error) {
	points, warnings, err := InterpolateDay(ctx, day)
	if err != nil {
		return nil, err
	}

	result := a.NewResult(models.HourlyColumns)
	result.Warnings = warnings
	result.Rows = make([][]string, 0, len(points))
	vessels := make(map[int64]struct{})
	for _, p := range points {
		vessels[p.MMSI] = struct{}{}
		result.Rows = append(result.Rows, []string{
			analysis.FormatTimestamp(p.Timestamp),
			fmt.Sprintf("%d", p.MMSI),
			analysis.FormatFloat(p.Lat),
			analysis.FormatFloat(p.Lon),
		})
	}

	result.Summary["vessels"] = len(vessels)
	result.Summary["rows"] = len(result.Rows)

	log.Printf("[HourlyInterpolationAnalyzer] %s: %d vessels, %d hourly rows, %d skipped",
		day.Name(), len(vessels), len(result.Rows), len(warnings))
	return result, nil
}

// Register the analyzer
func init() {
	analysis.RegisterAnalyzer("hourly_interpolation", NewHourlyInterpolationAnalyzer)
}
