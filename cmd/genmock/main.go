// Command genmock writes a deterministic synthetic station dataset in the
// layout of the preprocessing and clustering outputs, for local runs and
// fixtures.
//
// Usage:
//
//	go run ./cmd/genmock -out data/processed/gares_avec_clusters.csv -rows 300 -clusters 4
//	go run ./cmd/genmock -out data/processed/gares_clean.csv -clusters 0 -raw
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/couchcryptid/station-ridership/internal/domain"
)

var regions = []string{
	"Auvergne-Rhône-Alpes", "Bourgogne-Franche-Comté", "Bretagne", "Centre-Val de Loire",
	"Grand Est", "Hauts-de-France", "Île-de-France", "Normandie", "Nouvelle-Aquitaine",
	"Occitanie", "Pays de la Loire", "Provence-Alpes-Côte d'Azur",
}

var towns = []string{
	"Saint-Pierre", "Montreuil", "Beaumont", "Villeneuve", "Châteaudun", "Fontaine",
	"Sainte-Marie", "Bellevue", "Mirebeau", "Pontivy", "Rochefort", "Vernon",
}

// yearFactor scales the 2015 base per year; 2020 and 2021 carry the
// pandemic dip.
var yearFactor = map[int]float64{
	2015: 1.00, 2016: 1.02, 2017: 1.04, 2018: 1.03, 2019: 1.07,
	2020: 0.58, 2021: 0.78, 2022: 0.98, 2023: 1.06,
}

type options struct {
	out      string
	rows     int
	seed     uint64
	clusters int
	raw      bool
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var o options
	flag.StringVar(&o.out, "out", "", "output CSV path")
	flag.IntVar(&o.rows, "rows", 200, "number of stations")
	flag.Uint64Var(&o.seed, "seed", 2024, "random seed")
	flag.IntVar(&o.clusters, "clusters", 4, "number of clusters, 0 writes no cluster column")
	flag.BoolVar(&o.raw, "raw", false, "omit the derived ratio columns")
	flag.Parse()

	if o.out == "" || o.rows <= 0 || o.clusters < 0 {
		flag.Usage()
		return fmt.Errorf("-out is required, -rows must be positive and -clusters non-negative")
	}

	frame := generate(o)
	rs, _, err := domain.NewRecordSet(frame)
	if err != nil {
		return fmt.Errorf("generated frame: %w", err)
	}
	if !o.raw {
		rs, _ = domain.DeriveMetrics(rs)
	}

	if err := writeCSV(o.out, rs.Frame()); err != nil {
		return fmt.Errorf("writing %s: %w", o.out, err)
	}
	log.Printf("wrote %d stations to %s", rs.Len(), o.out)

	printStats(rs)
	return nil
}

// generate builds the raw frame. The same options always give the same rows.
func generate(o options) dataframe.DataFrame {
	rng := rand.New(rand.NewPCG(o.seed, o.seed^0x9e3779b97f4a7c15))

	names := make([]string, o.rows)
	stationRegions := make([]string, o.rows)
	lats := make([]float64, o.rows)
	lons := make([]float64, o.rows)
	clusters := make([]int, o.rows)
	years := domain.Years()
	ridership := make([][]float64, len(years))
	for j := range ridership {
		ridership[j] = make([]float64, o.rows)
	}

	for i := 0; i < o.rows; i++ {
		names[i] = fmt.Sprintf("%s %d", towns[rng.IntN(len(towns))], i+1)
		stationRegions[i] = regions[rng.IntN(len(regions))]
		lats[i] = round(42.5+rng.Float64()*8.5, 5)
		lons[i] = round(-4.5+rng.Float64()*12.5, 5)

		base := math.Exp(13 + 1.6*rng.NormFloat64())
		opened := 0
		// Some stations open after 2015 and report zero before that.
		if rng.Float64() < 0.03 {
			opened = domain.FirstYear + 1 + rng.IntN(3)
		}
		for j, y := range years {
			if y < opened {
				continue
			}
			noise := 1 + 0.05*rng.NormFloat64()
			ridership[j][i] = math.Max(0, math.Round(base*yearFactor[y]*noise))
		}
		if o.clusters > 0 {
			clusters[i] = tier(base, o.clusters)
		}
	}

	cols := []series.Series{
		series.New(names, series.String, domain.ColStation),
		series.New(stationRegions, series.String, domain.ColRegion),
		series.New(lats, series.Float, domain.ColLatitude),
		series.New(lons, series.Float, domain.ColLongitude),
	}
	if o.clusters > 0 {
		cols = append(cols, series.New(clusters, series.Int, domain.ColCluster))
	}
	for j, y := range years {
		cols = append(cols, series.New(ridership[j], series.Float, domain.RidershipColumn(y)))
	}
	return dataframe.New(cols...)
}

// tier buckets stations by traffic so clusters look like a real k-means
// split on ridership.
func tier(base float64, k int) int {
	t := int((math.Log(base) - 9) / 9 * float64(k))
	return min(max(t, 0), k-1)
}

func round(v float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(v*p) / p
}

func writeCSV(path string, frame dataframe.DataFrame) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := frame.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printStats(rs domain.RecordSet) {
	fmt.Println("\n=== Generated dataset ===")
	fmt.Printf("Stations: %d\n", rs.Len())
	fmt.Printf("Regions: %d\n", len(domain.Regions(rs)))

	counts := map[int]int{}
	for _, c := range rs.Clusters() {
		counts[c]++
	}
	fmt.Printf("Clusters: %v\n", counts)

	top, err := domain.TopStations(rs, domain.LastYear, 3)
	if err == nil {
		for i, st := range top {
			fmt.Printf("  #%d %s (%s): %.0f\n", i+1, st.Name, st.Region, st.RidershipIn(domain.LastYear))
		}
	}

	covid := domain.AnalyzeCovid(rs, domain.DefaultHistogramBins)
	fmt.Printf("COVID impact: mean=%.4f median=%.4f (n=%d)\n",
		covid.Impact.Summary.Mean, covid.Impact.Summary.Median, covid.Impact.Summary.Count)
	fmt.Printf("Recovery:     mean=%.4f median=%.4f (n=%d)\n",
		covid.Recovery.Summary.Mean, covid.Recovery.Summary.Median, covid.Recovery.Summary.Count)
}
