package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jengzang/vessel-tracks/internal/analysis"
	"github.com/jengzang/vessel-tracks/internal/models"
)

// ErrMissingColumn is returned when a raw file lacks a required column
var ErrMissingColumn = errors.New("missing required column")

var requiredColumns = []string{"timestamp", "mmsi", "lat", "lon"}

// timestampLayouts are tried in order when parsing raw timestamps
var timestampLayouts = []string{
	models.TimestampLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// RawBatch is the concatenated content of one day directory
type RawBatch struct {
	Pings    []models.Ping
	Rejected []error // one *analysis.MalformedInputError per rejected row
	Files    int
}

// ReadRawDay reads and concatenates every *.csv file in dir, in name order
func ReadRawDay(ctx context.Context, dir string) (*RawBatch, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	sort.Strings(files)

	batch := &RawBatch{}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := readRawFile(ctx, path, batch); err != nil {
			return nil, err
		}
		batch.Files++
	}
	return batch, nil
}

func readRawFile(ctx context.Context, path string, batch *RawBatch) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	header, err := r.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return fmt.Errorf("%w %q in %s", ErrMissingColumn, name, path)
		}
	}

	for row := 1; ; row++ {
		if row%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		record, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		p, err := parsePing(record, cols, row)
		if err != nil {
			batch.Rejected = append(batch.Rejected, err)
			continue
		}
		batch.Pings = append(batch.Pings, p)
	}
}

func parsePing(record []string, cols map[string]int, row int) (models.Ping, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	malformed := func(name, reason string) error {
		return &analysis.MalformedInputError{Row: row, Field: name, Value: field(name), Reason: reason}
	}

	ts, err := parseTimestamp(field("timestamp"))
	if err != nil {
		return models.Ping{}, malformed("timestamp", "unrecognized layout")
	}
	mmsi, err := strconv.ParseInt(field("mmsi"), 10, 64)
	if err != nil {
		// some exports write integer columns as floats
		f, ferr := strconv.ParseFloat(field("mmsi"), 64)
		if ferr != nil || f != math.Trunc(f) {
			return models.Ping{}, malformed("mmsi", "not an integer")
		}
		mmsi = int64(f)
	}
	lat, err := strconv.ParseFloat(field("lat"), 64)
	if err != nil {
		return models.Ping{}, malformed("lat", "not a number")
	}
	lon, err := strconv.ParseFloat(field("lon"), 64)
	if err != nil {
		return models.Ping{}, malformed("lon", "not a number")
	}

	return models.Ping{
		Timestamp:          ts,
		MMSI:               mmsi,
		Lat:                lat,
		Lon:                lon,
		SegmentID:          field("segment_id"),
		MessageID:          field("message_id"),
		Type:               field("type"),
		Speed:              optionalFloat(field("speed")),
		Course:             optionalFloat(field("course")),
		Heading:            optionalFloat(field("heading")),
		ShipName:           field("shipname"),
		Callsign:           field("callsign"),
		Destination:        field("destination"),
		ElevationM:         optionalFloat(field("elevation_m")),
		DistanceFromShoreM: optionalFloat(field("distance_from_shore_m")),
		DistanceFromPortM:  optionalFloat(field("distance_from_port_m")),
	}, nil
}

func parseTimestamp(s string) (time.Time, error) {
	var err error
	for _, layout := range timestampLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}

// optionalFloat parses a passthrough number; empty or unparseable yields NaN
func optionalFloat(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
