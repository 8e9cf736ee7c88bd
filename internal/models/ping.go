package models

import "time"

// TimestampLayout is the wire format of raw and output timestamps
const TimestampLayout = "2006-01-02 15:04:05 UTC"

// DayLayout names a calendar day (directory names, output file names)
const DayLayout = "2006-01-02"

// Ping represents one observed vessel position report.
// Passthrough metadata is carried but never computed upon; numeric
// passthrough fields hold NaN when the source left them empty.
type Ping struct {
	Timestamp time.Time
	MMSI      int64
	Lat       float64
	Lon       float64

	SegmentID          string
	MessageID          string
	Type               string
	Speed              float64
	Course             float64
	Heading            float64
	ShipName           string
	Callsign           string
	Destination        string
	ElevationM         float64
	DistanceFromShoreM float64
	DistanceFromPortM  float64
}

// TrackPoint is a ping annotated with kinematics derived from its
// predecessor in the time-sorted track
type TrackPoint struct {
	Ping

	DistKm       float64 // great-circle km from predecessor, 2 decimals
	TravelTimeHr float64 // elapsed hours from predecessor, 4 decimals
	SpeedKph     float64 // DistKm / TravelTimeHr, 0 when TravelTimeHr is 0
	Stationary   bool    // SpeedKph <= 1
}

// Track is one vessel's chronologically ordered points within one day
type Track struct {
	MMSI   int64
	Points []TrackPoint
}

// VesselPosition is one vessel's coordinates in a single-timestamp cross-section
type VesselPosition struct {
	MMSI int64
	Lat  float64
	Lon  float64
}
