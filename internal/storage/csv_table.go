package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/jengzang/vessel-tracks/internal/analysis"
	"github.com/jengzang/vessel-tracks/internal/models"
)

// WriteCSV writes output rows with the canonical header to path
func WriteCSV(path string, rows []models.OutputRow) error {
	records := make([][]string, len(rows))
	for i, r := range rows {
		records[i] = outputRecord(r)
	}
	return WriteTable(path, models.OutputColumns, records)
}

// WriteTable writes a header and string records to path, creating parent directories.
// The file is replaced atomically.
func WriteTable(path string, header []string, records [][]string) error {
	return writeAtomic(path, func(f *os.File) error {
		w := csv.NewWriter(f)
		if err := w.Write(header); err != nil {
			return fmt.Errorf("failed to write header to %s: %w", path, err)
		}
		if err := w.WriteAll(records); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		return nil
	})
}

func outputRecord(r models.OutputRow) []string {
	return []string{
		analysis.FormatTimestamp(r.Timestamp),
		strconv.Itoa(r.Year),
		strconv.Itoa(r.Month),
		strconv.Itoa(r.Day),
		strconv.Itoa(r.Hour),
		strconv.Itoa(r.Minute),
		strconv.Itoa(r.Second),
		strconv.FormatInt(r.MMSI, 10),
		analysis.FormatFloat(r.Lat),
		analysis.FormatFloat(r.Lon),
		analysis.FormatFloat(r.SpeedKph),
		analysis.FormatFloat(r.DistKm),
		analysis.FormatFloat(r.TravelTimeHr),
		strconv.FormatBool(r.Stationary),
		r.SegmentID,
		r.MessageID,
		r.Type,
		analysis.FormatFloat(r.Speed),
		analysis.FormatFloat(r.Course),
		analysis.FormatFloat(r.Heading),
		r.ShipName,
		r.Callsign,
		r.Destination,
		analysis.FormatFloat(r.ElevationM),
		analysis.FormatFloat(r.DistanceFromShoreM),
		analysis.FormatFloat(r.DistanceFromPortM),
	}
}
