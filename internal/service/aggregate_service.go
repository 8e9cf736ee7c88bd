package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"

	"github.com/jengzang/vessel-tracks/internal/config"
	"github.com/jengzang/vessel-tracks/internal/models"
	"github.com/jengzang/vessel-tracks/internal/storage"
)

// ErrNoCompletedDays is returned when there is nothing to aggregate
var ErrNoCompletedDays = errors.New("no completed days to aggregate")

// AggregateResult describes a written multi-day extract
type AggregateResult struct {
	FeatherPath string `json:"feather_path"`
	CSVPath     string `json:"csv_path"`
	Days        int    `json:"days"`
	Rows        int    `json:"rows"`
}

// AggregateService merges completed day outputs into one region/date-range extract
type AggregateService struct {
	cfg *config.Config
}

// NewAggregateService creates a new aggregate service
func NewAggregateService(cfg *config.Config) *AggregateService {
	return &AggregateService{cfg: cfg}
}

// Name returns the file stem of an aggregate, <REGION>_<id>_<begin>_<end>
func (s *AggregateService) Name(begin, end string) string {
	return fmt.Sprintf("%s_%d_%s_%s", s.cfg.Region.Name, s.cfg.Region.ID, begin, end)
}

// Aggregate reads the Feather output of each day in order, re-applies the
// bounding box and writes the concatenation as Feather and CSV.
func (s *AggregateService) Aggregate(ctx context.Context, begin, end string, days []string) (*AggregateResult, error) {
	if len(days) == 0 {
		return nil, ErrNoCompletedDays
	}

	bounds := s.cfg.Bounds()
	var rows []models.OutputRow
	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dayRows, err := storage.ReadFeather(filepath.Join(s.cfg.Paths.FeatherOutDir, day+".feather"))
		if err != nil {
			return nil, fmt.Errorf("failed to read day %s: %w", day, err)
		}
		for _, r := range dayRows {
			if bounds.Contains(r.Lat, r.Lon) {
				rows = append(rows, r)
			}
		}
	}

	name := s.Name(begin, end)
	result := &AggregateResult{
		FeatherPath: filepath.Join(s.cfg.Paths.AggregateDir, name+".feather"),
		CSVPath:     filepath.Join(s.cfg.Paths.AggregateDir, name+".csv"),
		Days:        len(days),
		Rows:        len(rows),
	}
	if err := storage.WriteFeather(result.FeatherPath, rows); err != nil {
		return nil, err
	}
	if err := storage.WriteCSV(result.CSVPath, rows); err != nil {
		return nil, err
	}

	log.Printf("[AggregateService] %s: %d rows from %d days", name, result.Rows, result.Days)
	return result, nil
}
