package domain

// Default map viewport, centered on metropolitan France.
const (
	MapCenterLat = 46.603354
	MapCenterLon = 1.888334
	MapZoom      = 6
)

// Marker is everything the map needs to draw one station.
type Marker struct {
	Name      string
	Region    string
	Latitude  float64
	Longitude float64
	Color     string
	Radius    float64
	Cluster   int

	// Popup fields.
	Year          int
	Ridership     float64 // selected year
	Ridership2023 float64
	Variation     float64
	CovidImpact   float64
}

// BuildMarkers encodes every row of view. Colors follow dimension with bounds
// computed once for the whole view; radius follows 2023 ridership; the popup
// ridership follows year.
func BuildMarkers(view RecordSet, dimension string, year int, palette Palette) []Marker {
	colors := EncodeColors(view, dimension, palette)
	records := view.Records()

	markers := make([]Marker, len(records))
	for i, rec := range records {
		latest := rec.RidershipIn(LastYear)
		markers[i] = Marker{
			Name:          rec.Name,
			Region:        rec.Region,
			Latitude:      rec.Latitude,
			Longitude:     rec.Longitude,
			Color:         colors[i],
			Radius:        Radius(latest),
			Cluster:       rec.Cluster,
			Year:          year,
			Ridership:     rec.RidershipIn(year),
			Ridership2023: latest,
			Variation:     rec.Variation,
			CovidImpact:   rec.CovidImpact,
		}
	}
	return markers
}
