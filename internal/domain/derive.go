package domain

import "math"

// Derivation describes what DeriveMetrics added to a RecordSet.
type Derivation struct {
	Added []string
	// Neutralized counts ratios that were undefined and collapsed to 0.
	Neutralized map[string]int
}

// ratio defines a derived percent-change column.
type ratio struct {
	column   string
	fromYear int
	toYear   int
}

var (
	variationRatio = ratio{column: ColVariation, fromYear: FirstYear, toYear: LastYear}
	covidRatio     = ratio{column: ColCovidImpact, fromYear: 2019, toYear: 2020}
	recoveryRatio  = ratio{column: ColRecovery, fromYear: 2019, toYear: LastYear}
)

// DeriveMetrics adds var_2015_2023 and impact_covid when they are absent.
// Columns already present are trusted as loaded, so deriving an already
// derived set returns it unchanged.
func DeriveMetrics(rs RecordSet) (RecordSet, Derivation) {
	d := Derivation{Neutralized: make(map[string]int)}
	for _, r := range []ratio{variationRatio, covidRatio} {
		var n int
		rs, n = r.apply(rs, &d)
		if n > 0 {
			d.Neutralized[r.column] = n
		}
	}
	return rs, d
}

// WithRecovery adds reprise_2023 when absent. It is meant for the COVID view
// and is never applied to the loaded base set.
func WithRecovery(rs RecordSet) RecordSet {
	rs, _ = recoveryRatio.apply(rs, nil)
	return rs
}

func (r ratio) apply(rs RecordSet, d *Derivation) (RecordSet, int) {
	if rs.HasColumn(r.column) {
		return rs, 0
	}
	values, neutralized := PercentChanges(rs.Floats(RidershipColumn(r.fromYear)), rs.Floats(RidershipColumn(r.toYear)))
	if d != nil {
		d.Added = append(d.Added, r.column)
	}
	return rs.withFloats(r.column, values), neutralized
}

// PercentChange returns (to − from) / from × 100. A zero or missing base, a
// missing target or any non-finite result gives exactly 0.
func PercentChange(from, to float64) float64 {
	v, _ := percentChange(from, to)
	return v
}

// PercentChanges applies PercentChange element-wise and reports how many
// results were neutralized. Both slices must have the same length.
func PercentChanges(from, to []float64) ([]float64, int) {
	out := make([]float64, len(from))
	neutralized := 0
	for i := range from {
		v, ok := percentChange(from[i], to[i])
		if !ok {
			neutralized++
		}
		out[i] = v
	}
	return out, neutralized
}

func percentChange(from, to float64) (float64, bool) {
	if from == 0 || math.IsNaN(from) || math.IsNaN(to) {
		return 0, false
	}
	v := (to - from) / from * 100
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
