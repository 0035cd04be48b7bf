package domain

import (
	"math"
	"strings"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/stretchr/testify/require"
)

const (
	regionIDF    = "Île-de-France"
	regionARA    = "Auvergne-Rhône-Alpes"
	regionPACA   = "Provence-Alpes-Côte d'Azur"
	stationParis = "Paris Gare de Lyon"
)

// readFrame parses CSV text the way the dataset reader does.
func readFrame(t *testing.T, lines ...string) dataframe.DataFrame {
	t.Helper()
	frame := dataframe.ReadCSV(
		strings.NewReader(strings.Join(lines, "\n")+"\n"),
		dataframe.WithTypes(ColumnTypes()),
	)
	require.NoError(t, frame.Err)
	return frame
}

func newSet(t *testing.T, lines ...string) RecordSet {
	t.Helper()
	rs, dropped, err := NewRecordSet(readFrame(t, lines...))
	require.NoError(t, err)
	require.Zero(t, dropped)
	return rs
}

// fullHeader is a complete raw-dataset header with every ridership year.
func fullHeader(extra ...string) string {
	cols := []string{ColStation, ColRegion, ColLatitude, ColLongitude}
	for _, y := range Years() {
		cols = append(cols, RidershipColumn(y))
	}
	return strings.Join(append(cols, extra...), ",")
}

// stationSet holds five stations over every year, unclustered.
func stationSet(t *testing.T) RecordSet {
	t.Helper()
	return newSet(t,
		fullHeader(),
		stationParis+","+regionIDF+",48.844,2.373,90000000,91000000,93000000,95000000,97000000,50000000,60000000,80000000,98000000",
		"Lyon Part-Dieu,"+regionARA+",45.760,4.859,30000000,31000000,32000000,33000000,34000000,18000000,22000000,30000000,36000000",
		"Marseille Saint-Charles,"+regionPACA+",43.302,5.380,15000000,15500000,16000000,16500000,17000000,9000000,11000000,15000000,18000000",
		"Versailles Chantiers,"+regionIDF+",48.795,2.135,8000000,8100000,8200000,8300000,8400000,4000000,5000000,7000000,8600000",
		"Ambérieu-en-Bugey,"+regionARA+",45.957,5.359,0,1000,1100,1200,1300,600,900,1200,1500",
	)
}

func names(records []StationRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Name
	}
	return out
}

func hasNaN(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
