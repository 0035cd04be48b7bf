package domain

import (
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// FilterRegions returns the rows whose region is in regions, in their
// original order. An empty selection means no filter and returns rs itself.
func FilterRegions(rs RecordSet, regions []string) RecordSet {
	if len(regions) == 0 {
		return rs
	}
	return RecordSet{frame: rs.frame.Filter(dataframe.F{
		Colname:    ColRegion,
		Comparator: series.In,
		Comparando: regions,
	})}
}

// Regions returns the distinct regions of rs, sorted.
func Regions(rs RecordSet) []string {
	seen := make(map[string]struct{})
	regions := make([]string, 0)
	for _, r := range rs.Strings(ColRegion) {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		regions = append(regions, r)
	}
	sort.Strings(regions)
	return regions
}
