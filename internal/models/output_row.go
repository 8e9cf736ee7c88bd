package models

import "time"

// OutputColumns is the canonical column order of a day's output table
var OutputColumns = []string{
	"timestamp", "year", "month", "day", "hour", "minute", "second",
	"mmsi", "lat", "lon", "kph", "dist", "travel_time", "stationary",
	"segment_id", "message_id", "type", "speed", "course", "heading",
	"shipname", "callsign", "destination",
	"elevation_m", "distance_from_shore_m", "distance_from_port_m",
}

// OutputRow is one row of a day's output table
type OutputRow struct {
	TrackPoint

	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
	Second int
}

// NewOutputRow derives the calendar fields of a processed point from its UTC timestamp
func NewOutputRow(p TrackPoint) OutputRow {
	ts := p.Timestamp.UTC()
	return OutputRow{
		TrackPoint: p,
		Year:       ts.Year(),
		Month:      int(ts.Month()),
		Day:        ts.Day(),
		Hour:       ts.Hour(),
		Minute:     ts.Minute(),
		Second:     ts.Second(),
	}
}

// DayStats counts what happened to a day's pings on the way through the pipeline
type DayStats struct {
	PingsIn        int     `json:"pings_in"`
	PingsInRegion  int     `json:"pings_in_region"`
	RejectedPings  int     `json:"rejected_pings"`
	VesselsIn      int     `json:"vessels_in"`
	VesselsKept    int     `json:"vessels_kept"`
	VesselsDropped int     `json:"vessels_dropped"`
	DroppedMMSI    []int64 `json:"dropped_mmsi,omitempty"`
	RowsOut        int     `json:"rows_out"`
}

// DailyTable is the processed output of one calendar day
type DailyTable struct {
	Date     time.Time
	Rows     []OutputRow
	Stats    DayStats
	Warnings []error
}

// Name returns the day's file stem, e.g. 2018-01-02
func (t *DailyTable) Name() string {
	return t.Date.Format(DayLayout)
}

// Tracks regroups the table rows into per-vessel tracks, preserving row order
func (t *DailyTable) Tracks() []Track {
	var tracks []Track
	index := make(map[int64]int)
	for _, row := range t.Rows {
		i, ok := index[row.MMSI]
		if !ok {
			i = len(tracks)
			index[row.MMSI] = i
			tracks = append(tracks, Track{MMSI: row.MMSI})
		}
		tracks[i].Points = append(tracks[i].Points, row.TrackPoint)
	}
	return tracks
}
