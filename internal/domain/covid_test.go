package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func binTotal(bins []Bin) int {
	total := 0
	for _, b := range bins {
		total += b.Count
	}
	return total
}

func TestNewDistribution(t *testing.T) {
	values := []float64{-50, -40, -30, -20, -10, math.NaN(), math.Inf(-1)}

	d := NewDistribution(ColCovidImpact, values, 4)

	assert.Equal(t, ColCovidImpact, d.Metric)
	assert.Equal(t, []float64{-50, -40, -30, -20, -10}, d.Values)

	s := d.Summary
	assert.Equal(t, 5, s.Count)
	assert.InDelta(t, -30, s.Mean, 1e-9)
	assert.InDelta(t, -50, s.Min, 1e-9)
	assert.InDelta(t, -30, s.Median, 1e-9)
	assert.InDelta(t, -10, s.Max, 1e-9)
	assert.InDelta(t, math.Sqrt(250), s.StdDev, 1e-9)

	require.Len(t, d.Bins, 4)
	assert.InDelta(t, -50, d.Bins[0].Lower, 1e-9)
	assert.InDelta(t, -10, d.Bins[3].Upper, 1e-9)
	assert.Equal(t, 5, binTotal(d.Bins))
	assert.Equal(t, 2, d.Bins[3].Count, "the maximum falls in the last bin")
}

func TestNewDistribution_Empty(t *testing.T) {
	d := NewDistribution(ColRecovery, []float64{math.NaN()}, 10)

	assert.Empty(t, d.Values)
	assert.Equal(t, Summary{}, d.Summary)
	assert.Empty(t, d.Bins)
}

func TestNewDistribution_SingleValue(t *testing.T) {
	d := NewDistribution(ColRecovery, []float64{7, 7, 7}, 10)

	require.Len(t, d.Bins, 1)
	assert.Equal(t, Bin{Lower: 7, Upper: 7, Count: 3}, d.Bins[0])
	assert.Equal(t, 0.0, d.Summary.StdDev)
}

func TestAnalyzeCovid(t *testing.T) {
	rs := newSet(t,
		"nom_de_la_gare,region,latitude,longitude,total_voyageurs_2019,total_voyageurs_2020,total_voyageurs_2023",
		"A,Bretagne,48.1,-1.7,100,50,120",
		"B,Bretagne,48.2,-1.6,0,10,30",
		"C,Bretagne,48.3,-1.5,200,100,180",
	)

	view := AnalyzeCovid(rs, 5)

	assert.Equal(t, []float64{-50, 0, -50}, view.Impact.Values)
	require.Len(t, view.Recovery.Values, 3)
	assert.InDelta(t, 20, view.Recovery.Values[0], 1e-9)
	assert.Equal(t, 0.0, view.Recovery.Values[1])
	assert.InDelta(t, -10, view.Recovery.Values[2], 1e-9)
	assert.Equal(t, 3, binTotal(view.Impact.Bins))
	assert.Len(t, view.Recovery.Bins, 5)
}

func TestAnalyzeCovid_UsesLoadedImpact(t *testing.T) {
	rs := newSet(t,
		"nom_de_la_gare,region,latitude,longitude,impact_covid",
		"A,Bretagne,48.1,-1.7,-33",
	)

	view := AnalyzeCovid(rs, 0)

	assert.Equal(t, []float64{-33}, view.Impact.Values)
	assert.Equal(t, []float64{0}, view.Recovery.Values)
}

func TestAnalyzeCovid_DefaultBins(t *testing.T) {
	view := AnalyzeCovid(stationSet(t), 0)

	assert.Len(t, view.Impact.Bins, DefaultHistogramBins)
	assert.Equal(t, 5, binTotal(view.Impact.Bins))
}
