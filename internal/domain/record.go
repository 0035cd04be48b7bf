package domain

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Column names shared by every station dataset.
const (
	ColStation     = "nom_de_la_gare"
	ColRegion      = "region"
	ColLatitude    = "latitude"
	ColLongitude   = "longitude"
	ColCluster     = "cluster"
	ColVariation   = "var_2015_2023"
	ColCovidImpact = "impact_covid"
	ColRecovery    = "reprise_2023"
)

// Year range covered by the ridership counters.
const (
	FirstYear = 2015
	LastYear  = 2023
)

const ridershipPrefix = "total_voyageurs_"

var requiredColumns = []string{ColStation, ColRegion, ColLatitude, ColLongitude}

// RidershipColumn returns the column holding passenger counts for year.
func RidershipColumn(year int) string {
	return fmt.Sprintf("%s%d", ridershipPrefix, year)
}

// Years returns FirstYear..LastYear in ascending order.
func Years() []int {
	years := make([]int, 0, LastYear-FirstYear+1)
	for y := FirstYear; y <= LastYear; y++ {
		years = append(years, y)
	}
	return years
}

// ValidYear reports whether year has a ridership counter.
func ValidYear(year int) bool {
	return year >= FirstYear && year <= LastYear
}

// ColumnTypes returns the load-time type of every known column. Readers pass
// it to gota so numeric columns never get detected as strings because of a
// few empty cells.
func ColumnTypes() map[string]series.Type {
	types := map[string]series.Type{
		ColStation:     series.String,
		ColRegion:      series.String,
		ColLatitude:    series.Float,
		ColLongitude:   series.Float,
		ColCluster:     series.Int,
		ColVariation:   series.Float,
		ColCovidImpact: series.Float,
		ColRecovery:    series.Float,
	}
	for _, y := range Years() {
		types[RidershipColumn(y)] = series.Float
	}
	return types
}

// StationRecord is one row of a RecordSet. Missing ridership is NaN.
type StationRecord struct {
	Name        string
	Region      string
	Latitude    float64
	Longitude   float64
	Cluster     int
	Ridership   map[int]float64
	Variation   float64
	CovidImpact float64
}

// RidershipIn returns the passenger count for year, NaN when unknown.
func (r StationRecord) RidershipIn(year int) float64 {
	v, ok := r.Ridership[year]
	if !ok {
		return math.NaN()
	}
	return v
}

// RecordSet is an immutable columnar table of stations. Every transform
// returns a new RecordSet; the receiver is never modified.
type RecordSet struct {
	frame dataframe.DataFrame
}

// NewRecordSet wraps frame after checking the required columns. Rows without
// a station name or a region are dropped; the number dropped is returned.
func NewRecordSet(frame dataframe.DataFrame) (RecordSet, int, error) {
	if frame.Err != nil {
		return RecordSet{}, 0, fmt.Errorf("%w: %w", ErrInvalidDataset, frame.Err)
	}

	present := make(map[string]bool, frame.Ncol())
	for _, name := range frame.Names() {
		present[name] = true
	}
	for _, col := range requiredColumns {
		if !present[col] {
			return RecordSet{}, 0, fmt.Errorf("%w: missing column %q", ErrInvalidDataset, col)
		}
	}

	keep := identifiedRows(frame)
	dropped := frame.Nrow() - len(keep)
	if dropped > 0 {
		frame = frame.Subset(keep)
		if frame.Err != nil {
			return RecordSet{}, 0, fmt.Errorf("%w: %w", ErrInvalidDataset, frame.Err)
		}
	}
	return RecordSet{frame: frame}, dropped, nil
}

// identifiedRows returns the indexes of rows with a non-blank name and region.
func identifiedRows(frame dataframe.DataFrame) []int {
	names := frame.Col(ColStation)
	regions := frame.Col(ColRegion)
	nameNA, regionNA := names.IsNaN(), regions.IsNaN()
	nameVals, regionVals := names.Records(), regions.Records()

	keep := make([]int, 0, len(nameVals))
	for i := range nameVals {
		if nameNA[i] || regionNA[i] {
			continue
		}
		if strings.TrimSpace(nameVals[i]) == "" || strings.TrimSpace(regionVals[i]) == "" {
			continue
		}
		keep = append(keep, i)
	}
	return keep
}

// WithDefaultCluster adds cluster = 0 to every row when the column is absent.
// The boolean reports whether the column was synthesized.
func WithDefaultCluster(rs RecordSet) (RecordSet, bool) {
	if rs.HasColumn(ColCluster) {
		return rs, false
	}
	col := series.New(make([]int, rs.Len()), series.Int, ColCluster)
	return RecordSet{frame: rs.frame.Mutate(col)}, true
}

// Len returns the number of rows.
func (rs RecordSet) Len() int {
	return rs.frame.Nrow()
}

// Columns returns the column names in table order.
func (rs RecordSet) Columns() []string {
	return rs.frame.Names()
}

// HasColumn reports whether the table has a column called name.
func (rs RecordSet) HasColumn(name string) bool {
	for _, col := range rs.frame.Names() {
		if col == name {
			return true
		}
	}
	return false
}

// IsNumeric reports whether name is a float or int column.
func (rs RecordSet) IsNumeric(name string) bool {
	if !rs.HasColumn(name) {
		return false
	}
	t := rs.frame.Col(name).Type()
	return t == series.Float || t == series.Int
}

// Floats returns a copy of a column as float64, NaN where missing. An absent
// column reads as all-missing.
func (rs RecordSet) Floats(name string) []float64 {
	if !rs.HasColumn(name) {
		values := make([]float64, rs.Len())
		for i := range values {
			values[i] = math.NaN()
		}
		return values
	}
	return rs.frame.Col(name).Float()
}

// Strings returns a copy of a column as strings. An absent column reads as
// empty strings.
func (rs RecordSet) Strings(name string) []string {
	if !rs.HasColumn(name) {
		return make([]string, rs.Len())
	}
	return rs.frame.Col(name).Records()
}

// Clusters returns the cluster ids. Missing or negative ids read as 0.
func (rs RecordSet) Clusters() []int {
	raw := rs.Floats(ColCluster)
	ids := make([]int, len(raw))
	for i, v := range raw {
		if math.IsNaN(v) || v < 0 {
			continue
		}
		ids[i] = int(v)
	}
	return ids
}

// Records materializes every row.
func (rs RecordSet) Records() []StationRecord {
	names := rs.Strings(ColStation)
	regions := rs.Strings(ColRegion)
	lats := rs.Floats(ColLatitude)
	lons := rs.Floats(ColLongitude)
	clusters := rs.Clusters()
	variation := rs.Floats(ColVariation)
	impact := rs.Floats(ColCovidImpact)

	years := Years()
	ridership := make([][]float64, len(years))
	for j, y := range years {
		ridership[j] = rs.Floats(RidershipColumn(y))
	}

	out := make([]StationRecord, len(names))
	for i := range names {
		rec := StationRecord{
			Name:        names[i],
			Region:      regions[i],
			Latitude:    lats[i],
			Longitude:   lons[i],
			Cluster:     clusters[i],
			Ridership:   make(map[int]float64, len(years)),
			Variation:   variation[i],
			CovidImpact: impact[i],
		}
		for j, y := range years {
			rec.Ridership[y] = ridership[j][i]
		}
		out[i] = rec
	}
	return out
}

// Frame returns a copy of the underlying DataFrame.
func (rs RecordSet) Frame() dataframe.DataFrame {
	return rs.frame.Copy()
}

func (rs RecordSet) withFloats(name string, values []float64) RecordSet {
	return RecordSet{frame: rs.frame.Mutate(series.New(values, series.Float, name))}
}
