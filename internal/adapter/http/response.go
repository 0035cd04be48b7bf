package http

import (
	"math"
	"time"

	"github.com/couchcryptid/station-ridership/internal/domain"
	"github.com/couchcryptid/station-ridership/internal/pipeline"
)

type errorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

type centerDTO struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type markerDTO struct {
	Name          string   `json:"name"`
	Region        string   `json:"region"`
	Lat           float64  `json:"lat"`
	Lon           float64  `json:"lon"`
	Color         string   `json:"color"`
	Radius        float64  `json:"radius"`
	Cluster       int      `json:"cluster"`
	Year          int      `json:"year"`
	Ridership     *float64 `json:"ridership"`
	Ridership2023 *float64 `json:"ridership_2023"`
	Variation     *float64 `json:"var_2015_2023"`
	CovidImpact   *float64 `json:"impact_covid"`
}

type mapResponse struct {
	Center     centerDTO   `json:"center"`
	Zoom       int         `json:"zoom"`
	Year       int         `json:"year"`
	ColorBy    string      `json:"color_by"`
	Continuous bool        `json:"continuous"`
	Min        *float64    `json:"min,omitempty"`
	Max        *float64    `json:"max,omitempty"`
	Markers    []markerDTO `json:"markers"`
}

type rankedDTO struct {
	Rank      int      `json:"rank"`
	Name      string   `json:"name"`
	Region    string   `json:"region"`
	Cluster   int      `json:"cluster"`
	Ridership *float64 `json:"ridership"`
}

type topResponse struct {
	Year     int         `json:"year"`
	Stations []rankedDTO `json:"stations"`
}

type trendPointDTO struct {
	Station string   `json:"station"`
	Year    int      `json:"year"`
	Value   *float64 `json:"value"`
}

type trendResponse struct {
	Points []trendPointDTO `json:"points"`
}

type binDTO struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

type summaryDTO struct {
	Count  int      `json:"count"`
	Mean   *float64 `json:"mean"`
	StdDev *float64 `json:"std_dev"`
	Min    *float64 `json:"min"`
	Median *float64 `json:"median"`
	Max    *float64 `json:"max"`
}

type distributionDTO struct {
	Metric  string     `json:"metric"`
	Values  []float64  `json:"values"`
	Summary summaryDTO `json:"summary"`
	Bins    []binDTO   `json:"bins"`
}

type covidResponse struct {
	Impact   distributionDTO `json:"impact"`
	Recovery distributionDTO `json:"recovery"`
}

type queryDTO struct {
	Regions []string `json:"regions"`
	Year    int      `json:"year"`
	ColorBy string   `json:"color_by"`
	TopN    int      `json:"n"`
	Bins    int      `json:"bins"`
}

type dashboardResponse struct {
	Query      queryDTO        `json:"query"`
	Generation uint64          `json:"generation"`
	Source     string          `json:"source"`
	Clustered  bool            `json:"clustered"`
	LoadedAt   time.Time       `json:"loaded_at"`
	Stations   int             `json:"stations"`
	Map        mapResponse     `json:"map"`
	Top        topResponse     `json:"top"`
	Trend      []trendPointDTO `json:"trend"`
	Covid      covidResponse   `json:"covid"`
}

// num returns nil for values JSON cannot carry.
func num(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func toMapResponse(v pipeline.MapView) mapResponse {
	resp := mapResponse{
		Center:     centerDTO{Lat: v.CenterLat, Lon: v.CenterLon},
		Zoom:       v.Zoom,
		Year:       v.Year,
		ColorBy:    v.ColorBy,
		Continuous: v.Continuous,
		Markers:    make([]markerDTO, 0, len(v.Markers)),
	}
	if v.Continuous {
		resp.Min = num(v.Min)
		resp.Max = num(v.Max)
	}
	for _, m := range v.Markers {
		resp.Markers = append(resp.Markers, markerDTO{
			Name:          m.Name,
			Region:        m.Region,
			Lat:           m.Latitude,
			Lon:           m.Longitude,
			Color:         m.Color,
			Radius:        m.Radius,
			Cluster:       m.Cluster,
			Year:          m.Year,
			Ridership:     num(m.Ridership),
			Ridership2023: num(m.Ridership2023),
			Variation:     num(m.Variation),
			CovidImpact:   num(m.CovidImpact),
		})
	}
	return resp
}

func toTopResponse(v pipeline.TopView) topResponse {
	resp := topResponse{Year: v.Year, Stations: make([]rankedDTO, 0, len(v.Stations))}
	for _, st := range v.Stations {
		resp.Stations = append(resp.Stations, rankedDTO{
			Rank:      st.Rank,
			Name:      st.Name,
			Region:    st.Region,
			Cluster:   st.Cluster,
			Ridership: num(st.Ridership),
		})
	}
	return resp
}

func toTrendPoints(points []domain.TrendPoint) []trendPointDTO {
	out := make([]trendPointDTO, 0, len(points))
	for _, p := range points {
		out = append(out, trendPointDTO{Station: p.Station, Year: p.Year, Value: num(p.Value)})
	}
	return out
}

func toDistribution(d domain.Distribution) distributionDTO {
	dto := distributionDTO{
		Metric:  d.Metric,
		Values:  d.Values,
		Summary: summaryDTO{Count: d.Summary.Count},
		Bins:    make([]binDTO, 0, len(d.Bins)),
	}
	if dto.Values == nil {
		dto.Values = []float64{}
	}
	if d.Summary.Count > 0 {
		dto.Summary.Mean = num(d.Summary.Mean)
		dto.Summary.StdDev = num(d.Summary.StdDev)
		dto.Summary.Min = num(d.Summary.Min)
		dto.Summary.Median = num(d.Summary.Median)
		dto.Summary.Max = num(d.Summary.Max)
	}
	for _, b := range d.Bins {
		dto.Bins = append(dto.Bins, binDTO(b))
	}
	return dto
}

func toCovidResponse(v domain.CovidView) covidResponse {
	return covidResponse{Impact: toDistribution(v.Impact), Recovery: toDistribution(v.Recovery)}
}
