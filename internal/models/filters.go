package models

// BoundingBox is an inclusive lon/lat rectangle
type BoundingBox struct {
	Lon1 float64 `json:"lon1"`
	Lon2 float64 `json:"lon2"`
	Lat1 float64 `json:"lat1"`
	Lat2 float64 `json:"lat2"`
}

// Contains reports whether the point lies inside the box, bounds included
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lon >= b.Lon1 && lon <= b.Lon2 && lat >= b.Lat1 && lat <= b.Lat2
}

// DayTaskFilter represents filter parameters for querying day tasks
type DayTaskFilter struct {
	RunID  string `form:"run_id"`
	Status string `form:"status"` // pending, running, completed, failed
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}
