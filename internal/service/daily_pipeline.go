package service

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"github.com/jengzang/vessel-tracks/internal/analysis"
	"github.com/jengzang/vessel-tracks/internal/analysis/foundation"
	"github.com/jengzang/vessel-tracks/internal/models"
)

// PipelineConfig is the per-run configuration of the daily pipeline
type PipelineConfig struct {
	Bounds      models.BoundingBox
	MaxSpeedKph float64
}

// DailyPipeline turns one day's raw pings into the day's output table.
// It holds no mutable state and is safe for concurrent use across days.
type DailyPipeline struct {
	cfg PipelineConfig
}

// NewDailyPipeline creates a new daily pipeline
func NewDailyPipeline(cfg PipelineConfig) *DailyPipeline {
	if cfg.MaxSpeedKph <= 0 {
		cfg.MaxSpeedKph = foundation.DefaultMaxSpeedKph
	}
	return &DailyPipeline{cfg: cfg}
}

// Process runs bounding-box filter, per-vessel kinematics, speed validation,
// stationary classification and calendar derivation over one day.
// An empty result is reported as a warning on the table, never as an error.
func (p *DailyPipeline) Process(ctx context.Context, date time.Time, pings []models.Ping) (*models.DailyTable, error) {
	table := &models.DailyTable{Date: date}
	table.Stats.PingsIn = len(pings)

	// Partition by vessel, keeping ingestion order inside each vessel
	byVessel := make(map[int64][]models.Ping)
	for _, ping := range pings {
		if !p.cfg.Bounds.Contains(ping.Lat, ping.Lon) {
			continue
		}
		table.Stats.PingsInRegion++
		byVessel[ping.MMSI] = append(byVessel[ping.MMSI], ping)
	}

	vessels := make([]int64, 0, len(byVessel))
	for mmsi := range byVessel {
		vessels = append(vessels, mmsi)
	}
	sort.Slice(vessels, func(i, j int) bool { return vessels[i] < vessels[j] })
	table.Stats.VesselsIn = len(vessels)

	tracks := make([]models.Track, 0, len(vessels))
	for _, mmsi := range vessels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		points, err := foundation.DeriveKinematics(byVessel[mmsi])
		if err != nil {
			var malformed *analysis.MalformedInputError
			if !errors.As(err, &malformed) {
				return nil, err
			}
			log.Printf("[DailyPipeline] %s: dropping vessel %d: %v", table.Name(), mmsi, err)
			table.Warnings = append(table.Warnings, err)
			table.Stats.RejectedPings += len(byVessel[mmsi])
			continue
		}
		tracks = append(tracks, models.Track{MMSI: mmsi, Points: points})
	}

	validation := foundation.ValidateTracks(tracks, p.cfg.MaxSpeedKph)
	table.Stats.VesselsKept = len(validation.Kept)
	table.Stats.VesselsDropped = table.Stats.VesselsIn - table.Stats.VesselsKept
	table.Stats.DroppedMMSI = validation.Dropped

	rows := 0
	for _, track := range validation.Kept {
		rows += len(track.Points)
	}
	table.Rows = make([]models.OutputRow, 0, rows)
	for _, track := range validation.Kept {
		foundation.ClassifyStationary(track.Points)
		for _, point := range track.Points {
			table.Rows = append(table.Rows, models.NewOutputRow(point))
		}
	}
	table.Stats.RowsOut = len(table.Rows)

	if len(table.Rows) == 0 {
		warning := &analysis.EmptyResultWarning{Scope: "day", Key: table.Name()}
		log.Printf("[DailyPipeline] %v", warning)
		table.Warnings = append(table.Warnings, warning)
	}

	log.Printf("[DailyPipeline] %s: %d pings, %d in region, %d/%d vessels kept, %d rows",
		table.Name(), table.Stats.PingsIn, table.Stats.PingsInRegion,
		table.Stats.VesselsKept, table.Stats.VesselsIn, table.Stats.RowsOut)
	return table, nil
}
