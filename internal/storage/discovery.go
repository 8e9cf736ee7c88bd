package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jengzang/vessel-tracks/internal/models"
)

// skippedDirs are sub-directories of the raw tree that never hold a day of pings
var skippedDirs = map[string]bool{
	"BK":         true,
	"identities": true,
}

// RawDay is one day's directory of raw ping CSV files
type RawDay struct {
	Date time.Time
	Dir  string
}

// Name returns the day's file stem
func (d RawDay) Name() string {
	return d.Date.Format(models.DayLayout)
}

// DiscoverDays lists the raw day directories under root whose date lies in [begin,end],
// in date order. Directories that are not named YYYY-MM-DD are ignored.
func DiscoverDays(root string, begin, end time.Time) ([]RawDay, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to list raw directory %s: %w", root, err)
	}

	var days []RawDay
	for _, e := range entries {
		if !e.IsDir() || skippedDirs[e.Name()] {
			continue
		}
		date, err := time.Parse(models.DayLayout, e.Name())
		if err != nil {
			continue
		}
		if date.Before(begin) || date.After(end) {
			continue
		}
		days = append(days, RawDay{Date: date, Dir: filepath.Join(root, e.Name())})
	}

	sort.Slice(days, func(i, j int) bool {
		return days[i].Date.Before(days[j].Date)
	})
	return days, nil
}
