package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bluele/gcache"

	"github.com/couchcryptid/station-ridership/internal/domain"
	"github.com/couchcryptid/station-ridership/internal/loader"
	"github.com/couchcryptid/station-ridership/internal/observability"
)

// ErrInvalidQuery reports a query parameter outside its accepted range.
var ErrInvalidQuery = errors.New("invalid query")

// Query bounds.
const (
	MaxTopN = 100
	MaxBins = 200
)

// DatasetSource provides the current dataset.
type DatasetSource interface {
	Load(ctx context.Context) (*loader.Dataset, error)
}

// Settings are the dashboard defaults.
type Settings struct {
	DefaultColorBy string
	DefaultTopN    int
	HistogramBins  int
	Palette        domain.Palette
	// CacheSize is the number of finished views kept; 0 disables the cache.
	CacheSize int
}

// Query selects what a view shows. Zero values take the dashboard defaults.
type Query struct {
	Regions []string
	Year    int
	ColorBy string
	TopN    int
	Bins    int
}

func (q Query) key() string {
	return fmt.Sprintf("%s|%d|%s|%d|%d", strings.Join(q.Regions, "\x1f"), q.Year, q.ColorBy, q.TopN, q.Bins)
}

// MapView is the marker layer of the map.
type MapView struct {
	CenterLat  float64
	CenterLon  float64
	Zoom       int
	Year       int
	ColorBy    string
	Continuous bool
	// Min and Max are the color scale bounds of a continuous dimension.
	Min     float64
	Max     float64
	Markers []domain.Marker
}

// RankedStation is one bar of the top-N chart.
type RankedStation struct {
	Rank      int
	Name      string
	Region    string
	Cluster   int
	Ridership float64
}

// TopView is the top-N ranking for one year.
type TopView struct {
	Year     int
	Stations []RankedStation
}

// View holds every dashboard view computed from a single load.
type View struct {
	Query      Query
	Generation uint64
	Source     string
	Clustered  bool
	LoadedAt   time.Time
	Stations   int
	Map        MapView
	Top        TopView
	Trend      []domain.TrendPoint
	Covid      domain.CovidView
}

// Dashboard recomputes views from the loaded dataset. Finished views are
// kept in an LRU keyed by dataset generation and normalized query, so a new
// dataset never serves a stale view.
type Dashboard struct {
	source   DatasetSource
	settings Settings
	logger   *slog.Logger
	metrics  *observability.Metrics

	cache   gcache.Cache
	mu      sync.Mutex
	lastGen uint64
}

// NewDashboard creates a Dashboard over source.
func NewDashboard(source DatasetSource, settings Settings, logger *slog.Logger, metrics *observability.Metrics) *Dashboard {
	if settings.DefaultColorBy == "" {
		settings.DefaultColorBy = domain.DimensionCluster
	}
	if settings.DefaultTopN <= 0 {
		settings.DefaultTopN = 10
	}
	if settings.HistogramBins <= 0 {
		settings.HistogramBins = domain.DefaultHistogramBins
	}
	if len(settings.Palette) == 0 {
		settings.Palette = domain.Set1
	}

	d := &Dashboard{
		source:   source,
		settings: settings,
		logger:   logger,
		metrics:  metrics,
	}
	if settings.CacheSize > 0 {
		d.cache = gcache.New(settings.CacheSize).LRU().Build()
	}
	return d
}

// Normalize applies defaults and checks ranges. Regions are trimmed,
// deduplicated and sorted so equivalent selections share a cache entry.
func (d *Dashboard) Normalize(q Query) (Query, error) {
	out := Query{
		Year:    q.Year,
		ColorBy: strings.TrimSpace(q.ColorBy),
		TopN:    q.TopN,
		Bins:    q.Bins,
	}
	for _, r := range q.Regions {
		if r = strings.TrimSpace(r); r != "" {
			out.Regions = append(out.Regions, r)
		}
	}
	slices.Sort(out.Regions)
	out.Regions = slices.Compact(out.Regions)

	if out.Year == 0 {
		out.Year = domain.LastYear
	}
	if !domain.ValidYear(out.Year) {
		return Query{}, fmt.Errorf("%w: %d (want %d..%d)", domain.ErrUnknownYear, out.Year, domain.FirstYear, domain.LastYear)
	}
	if out.ColorBy == "" {
		out.ColorBy = d.settings.DefaultColorBy
	}
	if out.TopN == 0 {
		out.TopN = d.settings.DefaultTopN
	}
	if out.TopN < 1 || out.TopN > MaxTopN {
		return Query{}, fmt.Errorf("%w: n must be in 1..%d", ErrInvalidQuery, MaxTopN)
	}
	if out.Bins == 0 {
		out.Bins = d.settings.HistogramBins
	}
	if out.Bins < 1 || out.Bins > MaxBins {
		return Query{}, fmt.Errorf("%w: bins must be in 1..%d", ErrInvalidQuery, MaxBins)
	}
	return out, nil
}

// Years returns the selectable years, most recent first.
func (d *Dashboard) Years() []int {
	years := domain.Years()
	slices.Reverse(years)
	return years
}

// Regions returns the sorted region names of the dataset.
func (d *Dashboard) Regions(ctx context.Context) ([]string, error) {
	v, err := d.cached(ctx, "regions", Query{}, func(ds *loader.Dataset, _ Query) (any, error) {
		return domain.Regions(ds.Records), nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// Map computes the marker layer.
func (d *Dashboard) Map(ctx context.Context, q Query) (MapView, error) {
	v, err := d.cached(ctx, "map", q, func(ds *loader.Dataset, q Query) (any, error) {
		return d.mapView(domain.FilterRegions(ds.Records, q.Regions), q), nil
	})
	if err != nil {
		return MapView{}, err
	}
	return v.(MapView), nil
}

// Top computes the top-N ranking.
func (d *Dashboard) Top(ctx context.Context, q Query) (TopView, error) {
	v, err := d.cached(ctx, "top", q, func(ds *loader.Dataset, q Query) (any, error) {
		return topView(domain.FilterRegions(ds.Records, q.Regions), q)
	})
	if err != nil {
		return TopView{}, err
	}
	return v.(TopView), nil
}

// Trend computes the long-format ridership series over every year.
func (d *Dashboard) Trend(ctx context.Context, q Query) ([]domain.TrendPoint, error) {
	v, err := d.cached(ctx, "trend", q, func(ds *loader.Dataset, q Query) (any, error) {
		return domain.Reshape(domain.FilterRegions(ds.Records, q.Regions), domain.Years()), nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.TrendPoint), nil
}

// Covid computes the pandemic impact and recovery distributions.
func (d *Dashboard) Covid(ctx context.Context, q Query) (domain.CovidView, error) {
	v, err := d.cached(ctx, "covid", q, func(ds *loader.Dataset, q Query) (any, error) {
		return domain.AnalyzeCovid(domain.FilterRegions(ds.Records, q.Regions), q.Bins), nil
	})
	if err != nil {
		return domain.CovidView{}, err
	}
	return v.(domain.CovidView), nil
}

// Compute runs one full pass: load, filter, then every view.
func (d *Dashboard) Compute(ctx context.Context, q Query) (*View, error) {
	v, err := d.cached(ctx, "dashboard", q, func(ds *loader.Dataset, q Query) (any, error) {
		filtered := domain.FilterRegions(ds.Records, q.Regions)
		top, err := topView(filtered, q)
		if err != nil {
			return nil, err
		}
		return &View{
			Query:      q,
			Generation: ds.Generation,
			Source:     ds.Source,
			Clustered:  ds.Clustered,
			LoadedAt:   ds.LoadedAt,
			Stations:   filtered.Len(),
			Map:        d.mapView(filtered, q),
			Top:        top,
			Trend:      domain.Reshape(filtered, domain.Years()),
			Covid:      domain.AnalyzeCovid(filtered, q.Bins),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*View), nil
}

// CheckReadiness returns nil when the dataset can be loaded.
func (d *Dashboard) CheckReadiness(ctx context.Context) error {
	_, err := d.source.Load(ctx)
	return err
}

type computeFunc func(ds *loader.Dataset, q Query) (any, error)

// cached normalizes q, loads the dataset and returns the memoized view for
// (generation, view, query), computing it on a miss.
func (d *Dashboard) cached(ctx context.Context, view string, q Query, compute computeFunc) (any, error) {
	start := time.Now()
	v, err := d.lookup(ctx, view, q, compute)
	if err != nil {
		d.metrics.ViewRequests.WithLabelValues(view, "error").Inc()
		return nil, err
	}
	d.metrics.ViewRequests.WithLabelValues(view, "success").Inc()
	d.metrics.ViewDuration.WithLabelValues(view).Observe(time.Since(start).Seconds())
	return v, nil
}

func (d *Dashboard) lookup(ctx context.Context, view string, q Query, compute computeFunc) (any, error) {
	q, err := d.Normalize(q)
	if err != nil {
		return nil, err
	}
	ds, err := d.source.Load(ctx)
	if err != nil {
		return nil, err
	}
	if d.cache == nil {
		return compute(ds, q)
	}

	d.purgeIfStale(ds.Generation)
	key := fmt.Sprintf("%d|%s|%s", ds.Generation, view, q.key())
	if v, err := d.cache.Get(key); err == nil {
		d.metrics.ViewCache.WithLabelValues("hit").Inc()
		return v, nil
	}
	d.metrics.ViewCache.WithLabelValues("miss").Inc()

	v, err := compute(ds, q)
	if err != nil {
		return nil, err
	}
	if err := d.cache.Set(key, v); err != nil {
		d.logger.Warn("view cache set failed", "error", err, "view", view)
	}
	return v, nil
}

// purgeIfStale empties the cache the first time a newer generation is seen.
// A request still holding an older dataset leaves the cache alone.
func (d *Dashboard) purgeIfStale(gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if gen <= d.lastGen {
		return
	}
	if d.lastGen != 0 {
		d.logger.Debug("dataset changed, purging view cache", "from", d.lastGen, "to", gen)
	}
	d.cache.Purge()
	d.lastGen = gen
}

func (d *Dashboard) mapView(view domain.RecordSet, q Query) MapView {
	scale := domain.NewColorScale(view, q.ColorBy, d.settings.Palette)
	lo, hi := scale.Bounds()
	return MapView{
		CenterLat:  domain.MapCenterLat,
		CenterLon:  domain.MapCenterLon,
		Zoom:       domain.MapZoom,
		Year:       q.Year,
		ColorBy:    q.ColorBy,
		Continuous: scale.Continuous(),
		Min:        lo,
		Max:        hi,
		Markers:    domain.BuildMarkers(view, q.ColorBy, q.Year, d.settings.Palette),
	}
}

func topView(view domain.RecordSet, q Query) (TopView, error) {
	top, err := domain.TopStations(view, q.Year, q.TopN)
	if err != nil {
		return TopView{}, err
	}
	out := TopView{Year: q.Year, Stations: make([]RankedStation, len(top))}
	for i, rec := range top {
		out.Stations[i] = RankedStation{
			Rank:      i + 1,
			Name:      rec.Name,
			Region:    rec.Region,
			Cluster:   rec.Cluster,
			Ridership: rec.RidershipIn(q.Year),
		}
	}
	return out, nil
}
