package foundation

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/jengzang/vessel-tracks/internal/analysis"
	"github.com/jengzang/vessel-tracks/internal/models"
	"github.com/jengzang/vessel-tracks/internal/spatial"
)

// StationaryMaxKph is the inclusive speed ceiling of a stationary ping
const StationaryMaxKph = 1.0

// DeriveKinematics sorts one vessel's pings by timestamp (stable, so equal
// timestamps keep ingestion order) and annotates every ping with the distance,
// elapsed time and speed since its predecessor in the sorted track. The first
// ping is its own predecessor and gets zeros.
//
// Derived values are written by index into a pre-sized slice so they always
// line up with the sorted order, never the input order.
func DeriveKinematics(pings []models.Ping) ([]models.TrackPoint, error) {
	if len(pings) == 0 {
		return nil, nil
	}

	if err := checkTrackInput(pings); err != nil {
		return nil, err
	}

	sorted := slices.Clone(pings)
	slices.SortStableFunc(sorted, func(a, b models.Ping) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	points := make([]models.TrackPoint, len(sorted))
	for i, cur := range sorted {
		prev := cur
		if i > 0 {
			prev = sorted[i-1]
		}

		dist := spatial.RoundTo(spatial.HaversineKm(prev.Lat, prev.Lon, cur.Lat, cur.Lon), 2)

		elapsed := cur.Timestamp.Sub(prev.Timestamp)
		if elapsed < 0 {
			elapsed = -elapsed
		}
		hours := spatial.RoundTo(elapsed.Hours(), 4)

		speed := 0.0
		if hours != 0 {
			speed = dist / hours
		}

		points[i] = models.TrackPoint{
			Ping:         cur,
			DistKm:       dist,
			TravelTimeHr: hours,
			SpeedKph:     speed,
		}
	}

	return points, nil
}

// checkTrackInput rejects tracks that would break sort ordering or produce NaN speeds
func checkTrackInput(pings []models.Ping) error {
	mmsi := pings[0].MMSI
	for i, p := range pings {
		if p.MMSI != mmsi {
			return &analysis.MalformedInputError{
				MMSI:   mmsi,
				Field:  "mmsi",
				Value:  strconv.FormatInt(p.MMSI, 10),
				Reason: fmt.Sprintf("ping %d belongs to another vessel", i),
			}
		}
		if p.Timestamp.IsZero() {
			return &analysis.MalformedInputError{
				MMSI:   mmsi,
				Field:  "timestamp",
				Reason: fmt.Sprintf("ping %d has no timestamp", i),
			}
		}
		if !spatial.ValidCoordinate(p.Lat, p.Lon) {
			return &analysis.MalformedInputError{
				MMSI:   mmsi,
				Field:  "lat/lon",
				Value:  fmt.Sprintf("%v,%v", p.Lat, p.Lon),
				Reason: fmt.Sprintf("ping %d is off the globe", i),
			}
		}
	}
	return nil
}

// IsStationary reports whether a speed counts as no motion
func IsStationary(speedKph float64) bool {
	return speedKph <= StationaryMaxKph
}

// ClassifyStationary sets the stationary flag on every point in place
func ClassifyStationary(points []models.TrackPoint) {
	for i := range points {
		points[i].Stationary = IsStationary(points[i].SpeedKph)
	}
}
