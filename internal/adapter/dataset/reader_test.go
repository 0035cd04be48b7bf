package dataset

import (
	"context"
	"database/sql"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/station-ridership/internal/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestIsSQLite(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"gares.db", true},
		{"gares.sqlite", true},
		{"data/GARES.SQLITE3", true},
		{"gares.csv", false},
		{"gares", false},
		{"gares.db.csv", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsSQLite(tt.path))
		})
	}
}

func TestRead_CSV(t *testing.T) {
	path := writeFile(t, "gares.csv", strings.Join([]string{
		"nom_de_la_gare,region,latitude,longitude,cluster,total_voyageurs_2023",
		"Rennes,Bretagne,48.103,-1.672,2,23000000",
		"Brest,Bretagne,48.388,-4.479,,1500000",
	}, "\n")+"\n")

	frame, err := NewReader(',', "gares").Read(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 2, frame.Nrow())
	assert.Equal(t, series.Int, frame.Col(domain.ColCluster).Type())
	assert.Equal(t, series.Float, frame.Col(domain.RidershipColumn(2023)).Type())
	assert.Equal(t, []string{"Rennes", "Brest"}, frame.Col(domain.ColStation).Records())
	assert.True(t, frame.Col(domain.ColCluster).IsNaN()[1])
}

func TestRead_CSVSemicolonWithBOM(t *testing.T) {
	path := writeFile(t, "gares.csv",
		"\ufeffnom_de_la_gare;region;latitude;longitude\n"+
			"Quimper;Bretagne;47.995;-4.102\n")

	frame, err := NewReader(';', "gares").Read(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, []string{"nom_de_la_gare", "region", "latitude", "longitude"}, frame.Names())
	assert.InDelta(t, 47.995, frame.Col(domain.ColLatitude).Float()[0], 1e-9)
}

func TestRead_IntegerLookingRidershipStaysFloat(t *testing.T) {
	frame, err := DecodeCSV(strings.NewReader(
		"nom_de_la_gare,region,latitude,longitude,total_voyageurs_2015\n"+
			"Lorient,Bretagne,47.755,-3.366,100\n"), ',')
	require.NoError(t, err)

	assert.Equal(t, series.Float, frame.Col(domain.RidershipColumn(2015)).Type())
}

func TestRead_MissingFile(t *testing.T) {
	r := NewReader(',', "gares")

	for _, name := range []string{"absent.csv", "absent.sqlite"} {
		_, err := r.Read(context.Background(), filepath.Join(t.TempDir(), name))
		require.ErrorIs(t, err, os.ErrNotExist, name)
	}
}

func createSQLite(t *testing.T, stmts ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gares.sqlite")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	return path
}

func TestRead_SQLite(t *testing.T) {
	path := createSQLite(t,
		`CREATE TABLE gares (
			nom_de_la_gare TEXT, region TEXT, latitude REAL, longitude REAL,
			cluster INTEGER, total_voyageurs_2019 INTEGER, total_voyageurs_2020 REAL)`,
		`INSERT INTO gares VALUES ('Nantes', 'Pays de la Loire', 47.217, -1.542, 1, 12000000, 7000000.5)`,
		`INSERT INTO gares VALUES ('Angers', 'Pays de la Loire', 47.464, -0.558, NULL, 4000000, NULL)`,
	)

	frame, err := NewReader(',', "gares").Read(context.Background(), path)
	require.NoError(t, err)

	require.Equal(t, 2, frame.Nrow())
	assert.Equal(t, []string{"Nantes", "Angers"}, frame.Col(domain.ColStation).Records())
	assert.Equal(t, series.Float, frame.Col(domain.RidershipColumn(2019)).Type())
	assert.Equal(t, []float64{12000000, 4000000}, frame.Col(domain.RidershipColumn(2019)).Float())

	covid := frame.Col(domain.RidershipColumn(2020)).Float()
	assert.InDelta(t, 7000000.5, covid[0], 1e-9)
	assert.True(t, math.IsNaN(covid[1]))
	assert.True(t, frame.Col(domain.ColCluster).IsNaN()[1])
}

func TestRead_SQLiteCustomTable(t *testing.T) {
	path := createSQLite(t,
		`CREATE TABLE stations (nom_de_la_gare TEXT, region TEXT, latitude REAL, longitude REAL)`,
		`INSERT INTO stations VALUES ('Vannes', 'Bretagne', 47.665, -2.752)`,
	)

	frame, err := NewReader(',', "stations").Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, frame.Nrow())

	_, err = NewReader(',', "gares").Read(context.Background(), path)
	require.Error(t, err)
}

func TestRead_SQLiteRejectsBadTableName(t *testing.T) {
	path := createSQLite(t, `CREATE TABLE gares (nom_de_la_gare TEXT)`)

	_, err := NewReader(',', `gares"; DROP TABLE gares; --`).Read(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid sqlite table name")
}
