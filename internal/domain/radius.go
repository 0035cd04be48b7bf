package domain

import "math"

// Marker radius bounds in pixels.
const (
	MinRadius = 5.0
	MaxRadius = 15.0
)

// Radius maps a ridership count to a marker radius: log(1 + ridership) / 2
// clamped to [MinRadius, MaxRadius]. Ridership spans several orders of
// magnitude, the log keeps small stations visible next to the large hubs.
// Missing ridership gets the smallest marker.
func Radius(ridership float64) float64 {
	r := math.Log1p(ridership) / 2
	if math.IsNaN(r) {
		return MinRadius
	}
	return math.Max(MinRadius, math.Min(MaxRadius, r))
}
