// Command validate checks a station dataset before it is served: schema,
// station identity, coordinates, ridership counts, cluster ids, and the
// consistency of any precomputed ratio columns.
//
// Usage:
//
//	go run ./cmd/validate -data data/processed/gares_avec_clusters.csv
//	go run ./cmd/validate -data data/processed/gares.db -table gares
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/couchcryptid/station-ridership/internal/adapter/dataset"
	"github.com/couchcryptid/station-ridership/internal/domain"
)

// Bounding box of metropolitan France, Corsica included.
const (
	minLat = 41.0
	maxLat = 51.5
	minLon = -5.5
	maxLon = 10.0
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	data := flag.String("data", "", "path to the station dataset (CSV or SQLite)")
	delimiter := flag.String("delimiter", ",", "CSV field delimiter")
	table := flag.String("table", "gares", "SQLite table name")
	flag.Parse()

	if *data == "" || len([]rune(*delimiter)) != 1 {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*data, []rune(*delimiter)[0], *table))
}

func run(path string, delimiter rune, table string) int {
	fmt.Println("=== Station Dataset Validation ===")
	fmt.Println()

	frame, err := dataset.NewReader(delimiter, table).Read(context.Background(), path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read %s: %v\n", path, err)
		return 1
	}

	schema := validateSchema(frame.Names())
	if !schema.passed() {
		report([]*phase{schema}, frame.Nrow(), 0)
		return 1
	}

	rs, dropped, err := domain.NewRecordSet(frame)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	records := rs.Records()

	phases := []*phase{
		schema,
		validateIdentity(records, dropped),
		validateCoordinates(records),
		validateRidership(records),
		validateClusters(rs),
		validateDerived(rs),
	}
	if report(phases, frame.Nrow(), rs.Len()) {
		return 0
	}
	return 1
}

func report(phases []*phase, rows, kept int) bool {
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Rows: %d read, %d with a station name and region\n", rows, kept)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return true
	}
	fmt.Println("\nValidation FAILED.")
	return false
}

func validateSchema(columns []string) *phase {
	p := &phase{name: "Phase 1: Schema"}
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
	}
	for _, c := range []string{domain.ColStation, domain.ColRegion, domain.ColLatitude, domain.ColLongitude} {
		if !present[c] {
			p.errorf("missing required column %q", c)
		}
	}
	for _, y := range domain.Years() {
		if !present[domain.RidershipColumn(y)] {
			p.errorf("missing ridership column %q", domain.RidershipColumn(y))
		}
	}
	return p
}

func validateIdentity(records []domain.StationRecord, dropped int) *phase {
	p := &phase{name: "Phase 2: Station identity"}
	if dropped > 0 {
		p.errorf("%d rows without a station name or region", dropped)
	}
	seen := make(map[string]int, len(records))
	for i, r := range records {
		key := r.Name + "|" + r.Region
		if first, ok := seen[key]; ok {
			p.errorf("station %q in %s appears at rows %d and %d", r.Name, r.Region, first+1, i+1)
			continue
		}
		seen[key] = i
	}
	return p
}

func validateCoordinates(records []domain.StationRecord) *phase {
	p := &phase{name: "Phase 3: Coordinates"}
	for _, r := range records {
		if math.IsNaN(r.Latitude) || math.IsNaN(r.Longitude) {
			p.errorf("%s: missing coordinates", r.Name)
			continue
		}
		if r.Latitude < minLat || r.Latitude > maxLat || r.Longitude < minLon || r.Longitude > maxLon {
			p.errorf("%s: (%g, %g) outside metropolitan France", r.Name, r.Latitude, r.Longitude)
		}
	}
	return p
}

func validateRidership(records []domain.StationRecord) *phase {
	p := &phase{name: "Phase 4: Ridership counts"}
	for _, r := range records {
		for _, y := range domain.Years() {
			v := r.RidershipIn(y)
			if math.IsInf(v, 0) || v < 0 {
				p.errorf("%s: invalid %d ridership %g", r.Name, y, v)
			}
		}
	}
	return p
}

func validateClusters(rs domain.RecordSet) *phase {
	p := &phase{name: "Phase 5: Cluster ids"}
	if !rs.HasColumn(domain.ColCluster) {
		fmt.Println("  no cluster column; every station will read as cluster 0")
		return p
	}
	names := rs.Strings(domain.ColStation)
	for i, v := range rs.Floats(domain.ColCluster) {
		if math.IsNaN(v) {
			p.errorf("%s: missing cluster id", names[i])
			continue
		}
		if v < 0 || v != math.Trunc(v) {
			p.errorf("%s: cluster id %g is not a non-negative integer", names[i], v)
		}
	}
	return p
}

// validateDerived recomputes any precomputed ratio column from the ridership
// columns and compares.
func validateDerived(rs domain.RecordSet) *phase {
	p := &phase{name: "Phase 6: Derived ratio consistency"}
	checks := []struct {
		column   string
		from, to int
	}{
		{domain.ColVariation, domain.FirstYear, domain.LastYear},
		{domain.ColCovidImpact, 2019, 2020},
		{domain.ColRecovery, 2019, domain.LastYear},
	}

	names := rs.Strings(domain.ColStation)
	for _, c := range checks {
		if !rs.HasColumn(c.column) {
			continue
		}
		got := rs.Floats(c.column)
		want, _ := domain.PercentChanges(rs.Floats(domain.RidershipColumn(c.from)), rs.Floats(domain.RidershipColumn(c.to)))
		for i := range got {
			if !floatEq(got[i], want[i]) {
				p.errorf("%s: %s is %g, ridership gives %g", names[i], c.column, got[i], want[i])
			}
		}
	}
	return p
}

func floatEq(a, b float64) bool {
	return math.Abs(a-b) <= 1e-6*math.Max(1, math.Abs(b))
}
