package loader

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/station-ridership/internal/adapter/dataset"
	"github.com/couchcryptid/station-ridership/internal/domain"
	"github.com/couchcryptid/station-ridership/internal/observability"
)

const (
	rawCSV = "nom_de_la_gare,region,latitude,longitude,total_voyageurs_2015,total_voyageurs_2019,total_voyageurs_2020,total_voyageurs_2023\n" +
		"Rennes,Bretagne,48.103,-1.672,15000000,18000000,9000000,21000000\n" +
		"Closed,Bretagne,48.000,-2.000,0,0,0,500\n"

	clusteredCSV = "nom_de_la_gare,region,latitude,longitude,cluster,total_voyageurs_2015,total_voyageurs_2023\n" +
		"Rennes,Bretagne,48.103,-1.672,3,15000000,21000000\n"
)

var loadedAt = time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.LoadEvent
	err    error
}

func (n *recordingNotifier) NotifyLoaded(_ context.Context, event domain.LoadEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

type countingReader struct {
	inner Reader
	calls int
}

func (r *countingReader) Read(ctx context.Context, path string) (dataframe.DataFrame, error) {
	r.calls++
	return r.inner.Read(ctx, path)
}

type fixture struct {
	dir      string
	primary  string
	fallback string
	reader   *countingReader
	metrics  *observability.Metrics
	notifier *recordingNotifier
	loader   *Loader
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		dir:      dir,
		primary:  filepath.Join(dir, "gares_avec_clusters.csv"),
		fallback: filepath.Join(dir, "frequentation-gares-clean.csv"),
		reader:   &countingReader{inner: dataset.NewReader(',', "gares")},
		metrics:  observability.NewMetricsForTesting(),
		notifier: &recordingNotifier{},
	}
	f.loader = New(f.primary, f.fallback, f.reader,
		slog.New(slog.NewTextHandler(io.Discard, nil)), f.metrics,
		WithClock(clockwork.NewFakeClockAt(loadedAt)),
		WithNotifier(f.notifier),
	)
	return f
}

func writeCSV(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoad_NeitherFileExists(t *testing.T) {
	f := newFixture(t)

	_, err := f.loader.Load(context.Background())

	require.ErrorIs(t, err, domain.ErrDataUnavailable)
	assert.Contains(t, err.Error(), f.primary)
	assert.Contains(t, err.Error(), f.fallback)
	assert.Equal(t, 0, f.reader.calls)
}

func TestLoad_FallbackInjectsClusterAndDerives(t *testing.T) {
	f := newFixture(t)
	writeCSV(t, f.fallback, rawCSV)

	ds, err := f.loader.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, f.fallback, ds.Source)
	assert.False(t, ds.Clustered)
	assert.Equal(t, []int{0, 0}, ds.Records.Clusters())
	assert.Equal(t, uint64(1), ds.Generation)
	assert.Equal(t, loadedAt, ds.LoadedAt)
	assert.Equal(t, []string{domain.ColVariation, domain.ColCovidImpact}, ds.Derivation.Added)

	assert.Equal(t, []float64{40, 0}, ds.Records.Floats(domain.ColVariation))
	assert.Equal(t, []float64{-50, 0}, ds.Records.Floats(domain.ColCovidImpact))
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.UndefinedRatios.WithLabelValues(domain.ColVariation)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.DatasetLoads.WithLabelValues("fallback", "success")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(f.metrics.DatasetRows), 0)
}

func TestLoad_PrimaryWins(t *testing.T) {
	f := newFixture(t)
	writeCSV(t, f.primary, clusteredCSV)
	writeCSV(t, f.fallback, rawCSV)

	ds, err := f.loader.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, f.primary, ds.Source)
	assert.True(t, ds.Clustered)
	assert.Equal(t, []int{3}, ds.Records.Clusters())
}

func TestLoad_PrimaryWithoutClusterColumn(t *testing.T) {
	f := newFixture(t)
	writeCSV(t, f.primary, rawCSV)

	ds, err := f.loader.Load(context.Background())
	require.NoError(t, err)

	assert.True(t, ds.Clustered)
	assert.True(t, ds.Records.HasColumn(domain.ColCluster))
	assert.Equal(t, []int{0, 0}, ds.Records.Clusters())
}

func TestLoad_CachedUntilFileChanges(t *testing.T) {
	f := newFixture(t)
	writeCSV(t, f.fallback, rawCSV)
	ctx := context.Background()

	first, err := f.loader.Load(ctx)
	require.NoError(t, err)
	second, err := f.loader.Load(ctx)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, f.reader.calls)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.DatasetCache.WithLabelValues("hit")), 0)

	writeCSV(t, f.fallback, rawCSV+"Brest,Bretagne,48.388,-4.479,1,1,1,1\n")
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(f.fallback, future, future))

	third, err := f.loader.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, f.reader.calls)
	assert.Equal(t, 3, third.Records.Len())
	assert.Equal(t, uint64(2), third.Generation)
	assert.Equal(t, uint64(2), f.loader.Generation())
}

func TestLoad_SwitchesToPrimaryWhenItAppears(t *testing.T) {
	f := newFixture(t)
	writeCSV(t, f.fallback, rawCSV)
	ctx := context.Background()

	before, err := f.loader.Load(ctx)
	require.NoError(t, err)
	require.False(t, before.Clustered)

	writeCSV(t, f.primary, clusteredCSV)

	after, err := f.loader.Load(ctx)
	require.NoError(t, err)
	assert.True(t, after.Clustered)
	assert.Equal(t, f.primary, after.Source)
}

func TestInvalidate(t *testing.T) {
	f := newFixture(t)
	writeCSV(t, f.fallback, rawCSV)
	ctx := context.Background()

	_, err := f.loader.Load(ctx)
	require.NoError(t, err)

	f.loader.Invalidate()
	assert.Equal(t, uint64(0), f.loader.Generation())

	ds, err := f.loader.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, f.reader.calls)
	assert.Equal(t, uint64(2), ds.Generation)
}

func TestLoad_DropsUnidentifiedRows(t *testing.T) {
	f := newFixture(t)
	writeCSV(t, f.fallback, rawCSV+",Bretagne,48.0,-2.0,1,1,1,1\n")

	ds, err := f.loader.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, ds.Dropped)
	assert.Equal(t, 2, ds.Records.Len())
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.DroppedRows), 0)
}

func TestLoad_InvalidDataset(t *testing.T) {
	f := newFixture(t)
	writeCSV(t, f.fallback, "name,region\nRennes,Bretagne\n")

	_, err := f.loader.Load(context.Background())

	require.ErrorIs(t, err, domain.ErrInvalidDataset)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.DatasetLoads.WithLabelValues("fallback", "error")), 0)
	assert.Equal(t, uint64(0), f.loader.Generation())
}

func TestLoad_PublishesLoadEvent(t *testing.T) {
	f := newFixture(t)
	writeCSV(t, f.fallback, rawCSV)
	ctx := context.Background()

	_, err := f.loader.Load(ctx)
	require.NoError(t, err)
	_, err = f.loader.Load(ctx)
	require.NoError(t, err)

	require.Len(t, f.notifier.events, 1, "cache hits publish nothing")
	event := f.notifier.events[0]
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, f.fallback, event.Source)
	assert.False(t, event.Clustered)
	assert.Equal(t, 2, event.Rows)
	assert.Equal(t, loadedAt, event.LoadedAt)
}

func TestLoad_NotifierFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("broker down")
	writeCSV(t, f.fallback, rawCSV)

	ds, err := f.loader.Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, ds.Records.Len())
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.LoadEvents.WithLabelValues("error")), 0)
}

func TestCheckReadiness(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.ErrorIs(t, f.loader.CheckReadiness(ctx), domain.ErrDataUnavailable)

	writeCSV(t, f.fallback, rawCSV)
	require.NoError(t, f.loader.CheckReadiness(ctx))
}

func TestLoad_Concurrent(t *testing.T) {
	f := newFixture(t)
	writeCSV(t, f.fallback, rawCSV)

	var wg sync.WaitGroup
	results := make([]*Dataset, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ds, err := f.loader.Load(context.Background())
			if err == nil {
				results[i] = ds
			}
		}(i)
	}
	wg.Wait()

	for _, ds := range results {
		require.NotNil(t, ds)
		assert.Same(t, results[0], ds)
	}
	assert.Equal(t, 1, f.reader.calls)
}

func TestLoad_DirectoryIsNotADataset(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.Mkdir(f.primary, 0o700))
	writeCSV(t, f.fallback, rawCSV)

	ds, err := f.loader.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ds.Clustered)
	assert.True(t, strings.HasSuffix(ds.Source, "frequentation-gares-clean.csv"))
}
