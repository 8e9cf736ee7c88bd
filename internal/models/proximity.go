package models

import "time"

// NeighborRow is one ranked nearest-neighbor relationship in a proximity snapshot
type NeighborRow struct {
	Timestamp  time.Time `json:"timestamp"`
	VesselA    int64     `json:"vessel_A"`
	VesselB    int64     `json:"vessel_B"`
	VesselALat float64   `json:"vessel_A_lat"`
	VesselALon float64   `json:"vessel_A_lon"`
	VesselBLat float64   `json:"vessel_B_lat"`
	VesselBLon float64   `json:"vessel_B_lon"`
	NN         int       `json:"NN"`
	DistanceKm float64   `json:"distance"`
}

// NeighborColumns is the column order of proximity output
var NeighborColumns = []string{
	"timestamp", "vessel_A", "vessel_B", "vessel_A_lat", "vessel_A_lon",
	"vessel_B_lat", "vessel_B_lon", "NN", "distance",
}

// HourlyPoint is one vessel position on the whole-hour grid
type HourlyPoint struct {
	Timestamp time.Time `json:"timestamp"`
	MMSI      int64     `json:"mmsi"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
}

// HourlyColumns is the column order of hourly interpolation output
var HourlyColumns = []string{"timestamp", "mmsi", "lat", "lon"}
