package domain

import (
	"math"
	"sort"

	"github.com/aclements/go-moremath/stats"
)

// DefaultHistogramBins is the bin count used when none is requested.
const DefaultHistogramBins = 20

// Bin is one equal-width histogram bucket [Lower, Upper).
type Bin struct {
	Lower float64
	Upper float64
	Count int
}

// Summary holds descriptive statistics of a distribution.
type Summary struct {
	Count  int
	Mean   float64
	StdDev float64
	Min    float64
	Median float64
	Max    float64
}

// Distribution is a histogram-ready set of percent values.
type Distribution struct {
	Metric  string
	Values  []float64
	Summary Summary
	Bins    []Bin
}

// CovidView holds the pandemic impact (2020 vs 2019) and recovery (2023 vs
// 2019) distributions of a view.
type CovidView struct {
	Impact   Distribution
	Recovery Distribution
}

// AnalyzeCovid builds the impact and recovery distributions of view with the
// given number of histogram bins.
func AnalyzeCovid(view RecordSet, bins int) CovidView {
	if bins <= 0 {
		bins = DefaultHistogramBins
	}
	impact := view
	if !impact.HasColumn(ColCovidImpact) {
		impact, _ = DeriveMetrics(impact)
	}
	recovery := WithRecovery(view)

	return CovidView{
		Impact:   NewDistribution(ColCovidImpact, impact.Floats(ColCovidImpact), bins),
		Recovery: NewDistribution(ColRecovery, recovery.Floats(ColRecovery), bins),
	}
}

// NewDistribution summarizes values, skipping missing ones, into bins
// equal-width buckets spanning their range.
func NewDistribution(metric string, values []float64, bins int) Distribution {
	present := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			present = append(present, v)
		}
	}
	return Distribution{
		Metric:  metric,
		Values:  present,
		Summary: summarize(present),
		Bins:    histogram(present, bins),
	}
}

func summarize(xs []float64) Summary {
	if len(xs) == 0 {
		return Summary{}
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	s := Summary{
		Count:  len(xs),
		Mean:   stats.Mean(xs),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Median: stats.Sample{Xs: sorted, Sorted: true}.Quantile(0.5),
	}
	if len(xs) > 1 {
		s.StdDev = stats.StdDev(xs)
	}
	return s
}

// histogram buckets xs with a go-moremath linear histogram. Values equal to
// the maximum land in the last bin. A single distinct value gives one bin.
func histogram(xs []float64, nbins int) []Bin {
	if len(xs) == 0 || nbins <= 0 {
		return []Bin{}
	}
	lo, hi := stats.Bounds(xs)
	if lo == hi {
		return []Bin{{Lower: lo, Upper: hi, Count: len(xs)}}
	}

	h := stats.NewLinearHist(lo, hi, nbins)
	for _, x := range xs {
		h.Add(x)
	}
	under, counts, over := h.Counts()

	out := make([]Bin, len(counts))
	for i, c := range counts {
		out[i] = Bin{
			Lower: h.BinToValue(float64(i)),
			Upper: h.BinToValue(float64(i + 1)),
			Count: int(c),
		}
	}
	out[0].Count += int(under)
	out[len(out)-1].Count += int(over)
	return out
}
