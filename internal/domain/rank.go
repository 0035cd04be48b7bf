package domain

import (
	"fmt"
	"math"
	"sort"
)

// TopStations returns the n stations of view with the highest ridership in
// year, highest first. Ties keep the view's row order. Stations without a
// count for year sort after every counted station. The result is empty for
// an empty view or n <= 0 and holds the whole view when n exceeds its size.
func TopStations(view RecordSet, year, n int) ([]StationRecord, error) {
	col := RidershipColumn(year)
	if !ValidYear(year) || (view.Len() > 0 && !view.HasColumn(col)) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownYear, year)
	}
	if n <= 0 || view.Len() == 0 {
		return []StationRecord{}, nil
	}

	values := view.Floats(col)
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return ranksAbove(values[order[a]], values[order[b]])
	})

	if n > len(order) {
		n = len(order)
	}
	records := view.Records()
	top := make([]StationRecord, n)
	for i := 0; i < n; i++ {
		top[i] = records[order[i]]
	}
	return top, nil
}

// ranksAbove orders counted values descending and missing values last.
func ranksAbove(a, b float64) bool {
	switch {
	case math.IsNaN(a):
		return false
	case math.IsNaN(b):
		return true
	default:
		return a > b
	}
}
