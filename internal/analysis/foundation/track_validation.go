package foundation

import (
	"gonum.org/v1/gonum/floats"

	"github.com/jengzang/vessel-tracks/internal/models"
)

// DefaultMaxSpeedKph is the default plausible-speed ceiling for a vessel's day
const DefaultMaxSpeedKph = 32.0

// ValidationResult partitions a day's vessels into kept and dropped tracks
type ValidationResult struct {
	Kept     []models.Track
	Dropped  []int64
	MaxSpeed map[int64]float64
}

// MaxSpeed returns the highest derived speed across a track, 0 for an empty track
func MaxSpeed(track models.Track) float64 {
	if len(track.Points) == 0 {
		return 0
	}
	speeds := make([]float64, len(track.Points))
	for i, p := range track.Points {
		speeds[i] = p.SpeedKph
	}
	return floats.Max(speeds)
}

// ValidateTracks keeps a vessel only when its maximum speed stays at or under
// maxSpeedKph. A single implausible step (spoofing or GPS noise) drops the
// vessel's whole day; no per-ping filtering happens here.
func ValidateTracks(tracks []models.Track, maxSpeedKph float64) ValidationResult {
	result := ValidationResult{
		Kept:     make([]models.Track, 0, len(tracks)),
		MaxSpeed: make(map[int64]float64, len(tracks)),
	}

	for _, track := range tracks {
		top := MaxSpeed(track)
		result.MaxSpeed[track.MMSI] = top

		// NaN compares false and is dropped
		if top <= maxSpeedKph {
			result.Kept = append(result.Kept, track)
		} else {
			result.Dropped = append(result.Dropped, track.MMSI)
		}
	}

	return result
}
