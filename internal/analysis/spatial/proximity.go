package spatial

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sort"
	"strconv"
	"time"

	"github.com/jengzang/vessel-tracks/internal/analysis"
	"github.com/jengzang/vessel-tracks/internal/analysis/temporal"
	"github.com/jengzang/vessel-tracks/internal/models"
	"github.com/jengzang/vessel-tracks/internal/spatial"
)

// ProximityOptions controls nearest-neighbor ranking
type ProximityOptions struct {
	// Ranks is how many ranked rows a vessel needs (and gets) in a snapshot
	Ranks int
	// IncludeSelf ranks the vessel itself (distance 0) among its neighbors.
	// With the default options that means rank 0 is self and ranks 1-5 are
	// the five nearest other vessels.
	IncludeSelf bool
}

// DefaultProximityOptions ranks six rows per vessel with self at rank 0
var DefaultProximityOptions = ProximityOptions{Ranks: 6, IncludeSelf: true}

// Snapshot holds the nearest-neighbor rows for one timestamp
type Snapshot struct {
	Timestamp time.Time
	Rows      []models.NeighborRow
	Excluded  []*analysis.InsufficientNeighborsWarning
}

// NearestNeighbors ranks, for every vessel in a single-timestamp cross-section,
// its nearest vessels by great-circle distance. Positions are deduplicated by
// vessel (first one wins), then ordered by vessel id; equal distances keep that
// order. A vessel that cannot fill every rank is left out of the snapshot
// entirely and reported in Excluded. Cost is O(N^2) in the vessels present.
func NearestNeighbors(ts time.Time, positions []models.VesselPosition, opts ProximityOptions) (*Snapshot, error) {
	if opts.Ranks < 1 {
		return nil, fmt.Errorf("proximity ranks must be positive, got %d", opts.Ranks)
	}

	vessels := dedupePositions(positions)
	snap := &Snapshot{Timestamp: ts}
	if len(vessels) == 0 {
		return snap, nil
	}

	lats := make([]float64, len(vessels))
	lons := make([]float64, len(vessels))
	for i, v := range vessels {
		lats[i], lons[i] = v.Lat, v.Lon
	}
	matrix, err := spatial.PairwiseMatrix(lats, lons)
	if err != nil {
		return nil, err
	}

	order := make([]int, 0, len(vessels))
	for i, a := range vessels {
		dist := matrix.Row(i)

		order = order[:0]
		for j := range vessels {
			if j == i && !opts.IncludeSelf {
				continue
			}
			order = append(order, j)
		}
		sort.SliceStable(order, func(x, y int) bool {
			return dist[order[x]] < dist[order[y]]
		})

		if len(order) < opts.Ranks {
			snap.Excluded = append(snap.Excluded, &analysis.InsufficientNeighborsWarning{
				Timestamp: ts,
				MMSI:      a.MMSI,
				Ranked:    len(order),
				Required:  opts.Ranks,
			})
			continue
		}

		for rank, j := range order[:opts.Ranks] {
			b := vessels[j]
			snap.Rows = append(snap.Rows, models.NeighborRow{
				Timestamp:  ts,
				VesselA:    a.MMSI,
				VesselB:    b.MMSI,
				VesselALat: a.Lat,
				VesselALon: a.Lon,
				VesselBLat: b.Lat,
				VesselBLon: b.Lon,
				NN:         rank,
				DistanceKm: dist[j],
			})
		}
	}

	return snap, nil
}

func dedupePositions(positions []models.VesselPosition) []models.VesselPosition {
	seen := make(map[int64]struct{}, len(positions))
	out := make([]models.VesselPosition, 0, len(positions))
	for _, p := range positions {
		if !spatial.ValidCoordinate(p.Lat, p.Lon) {
			continue
		}
		if _, dup := seen[p.MMSI]; dup {
			continue
		}
		seen[p.MMSI] = struct{}{}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b models.VesselPosition) int {
		switch {
		case a.MMSI < b.MMSI:
			return -1
		case a.MMSI > b.MMSI:
			return 1
		}
		return 0
	})
	return out
}

// ProximityAnalyzer ranks nearest vessels at every hour mark of a day, using
// hourly-interpolated positions so that all vessels share timestamps
type ProximityAnalyzer struct {
	*analysis.BaseAnalyzer
	Options ProximityOptions
}

// NewProximityAnalyzer creates a new proximity analyzer
func NewProximityAnalyzer() analysis.Analyzer {
	return &ProximityAnalyzer{
		BaseAnalyzer: analysis.NewBaseAnalyzer("proximity"),
		Options:      DefaultProximityOptions,
	}
}

// Analyze performs proximity analysis for one day
func (a *ProximityAnalyzer) Analyze(ctx context.Context, day *models.DailyTable) (*analysis.Result, error) {
	hourly, warnings, err := temporal.InterpolateDay(ctx, day)
	if err != nil {
		return nil, err
	}

	byHour := make(map[time.Time][]models.VesselPosition)
	var hours []time.Time
	for _, p := range hourly {
		if _, ok := byHour[p.Timestamp]; !ok {
			hours = append(hours, p.Timestamp)
		}
		byHour[p.Timestamp] = append(byHour[p.Timestamp], models.VesselPosition{MMSI: p.MMSI, Lat: p.Lat, Lon: p.Lon})
	}
	slices.SortFunc(hours, func(x, y time.Time) int { return x.Compare(y) })

	result := a.NewResult(models.NeighborColumns)
	result.Warnings = warnings
	excluded := 0
	for _, ts := range hours {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		snap, err := NearestNeighbors(ts, byHour[ts], a.Options)
		if err != nil {
			return nil, err
		}
		excluded += len(snap.Excluded)
		if len(snap.Rows) == 0 {
			result.Warnings = append(result.Warnings, &analysis.EmptyResultWarning{
				Scope: "proximity snapshot",
				Key:   analysis.FormatTimestamp(ts),
			})
			continue
		}

		for _, r := range snap.Rows {
			result.Rows = append(result.Rows, []string{
				analysis.FormatTimestamp(r.Timestamp),
				strconv.FormatInt(r.VesselA, 10),
				strconv.FormatInt(r.VesselB, 10),
				analysis.FormatFloat(r.VesselALat),
				analysis.FormatFloat(r.VesselALon),
				analysis.FormatFloat(r.VesselBLat),
				analysis.FormatFloat(r.VesselBLon),
				strconv.Itoa(r.NN),
				analysis.FormatFloat(r.DistanceKm),
			})
		}
	}

	result.Summary["snapshots"] = len(hours)
	result.Summary["rows"] = len(result.Rows)
	result.Summary["excluded_vessel_hours"] = excluded

	log.Printf("[ProximityAnalyzer] %s: %d snapshots, %d rows, %d vessel-hours below %d neighbors",
		day.Name(), len(hours), len(result.Rows), excluded, a.Options.Ranks)
	return result, nil
}

// Register the analyzer
func init() {
	analysis.RegisterAnalyzer("proximity", NewProximityAnalyzer)
}
