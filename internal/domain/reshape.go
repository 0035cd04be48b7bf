package domain

import (
	"fmt"
	"regexp"
	"strconv"
)

// digitsRe matches every digit run of a column name; a year is a run of
// exactly four, e.g. "total_voyageurs_2019" -> 2019.
var digitsRe = regexp.MustCompile(`\d+`)

// TrendPoint is one (station, year, value) tuple of the long-format trend
// series. Value is NaN when the station has no count that year; charts skip
// the gap rather than interpolate.
type TrendPoint struct {
	Station string
	Year    int
	Value   float64
}

// YearFromColumn extracts the year from a column name. The name must contain
// exactly one 4-digit group.
func YearFromColumn(column string) (int, error) {
	var groups []string
	for _, run := range digitsRe.FindAllString(column, -1) {
		if len(run) == 4 {
			groups = append(groups, run)
		}
	}
	if len(groups) != 1 {
		return 0, fmt.Errorf("column %q: want exactly one 4-digit year, found %d", column, len(groups))
	}
	return strconv.Atoi(groups[0])
}

// Reshape pivots the wide ridership columns of view into one point per
// station and year. Points are grouped by year in the order given, then by
// row order, so the result has view.Len() × len(years) points.
func Reshape(view RecordSet, years []int) []TrendPoint {
	names := view.Strings(ColStation)
	points := make([]TrendPoint, 0, len(names)*len(years))
	for _, y := range years {
		col := RidershipColumn(y)
		year, err := YearFromColumn(col)
		if err != nil {
			// Year columns are fixed at build time; a bad name is a programming error.
			panic(err)
		}
		values := view.Floats(col)
		for i, name := range names {
			points = append(points, TrendPoint{Station: name, Year: year, Value: values[i]})
		}
	}
	return points
}
