// Package loader owns the in-memory station dataset. It resolves which file
// to read, applies the load-time invariants and keeps the result until the
// file changes or the cache is invalidated.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/station-ridership/internal/domain"
	"github.com/couchcryptid/station-ridership/internal/observability"
)

// Reader decodes a dataset file.
type Reader interface {
	Read(ctx context.Context, path string) (dataframe.DataFrame, error)
}

// Notifier is told about every successful (re)load.
type Notifier interface {
	NotifyLoaded(ctx context.Context, event domain.LoadEvent) error
}

// Dataset is one loaded RecordSet and where it came from. It is never
// modified after Load returns it.
type Dataset struct {
	Records    domain.RecordSet
	Source     string
	Clustered  bool
	Generation uint64
	LoadedAt   time.Time
	Dropped    int
	Derivation domain.Derivation
}

// fileIdentity decides whether a cached dataset is still current.
type fileIdentity struct {
	path    string
	size    int64
	modTime time.Time
}

type source struct {
	fileIdentity
	clustered bool
}

// Option configures a Loader.
type Option func(*Loader)

// WithClock sets the clock used for LoadedAt.
func WithClock(c clockwork.Clock) Option {
	return func(l *Loader) { l.clock = c }
}

// WithNotifier publishes a LoadEvent after each reload.
func WithNotifier(n Notifier) Option {
	return func(l *Loader) { l.notifier = n }
}

// Loader loads the clustered primary file when present, else the raw
// fallback file, and caches the result by file identity.
type Loader struct {
	primary  string
	fallback string
	reader   Reader
	clock    clockwork.Clock
	notifier Notifier
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu         sync.Mutex
	current    *Dataset
	identity   fileIdentity
	generation uint64
}

// New creates a Loader for the given primary and fallback paths.
func New(primary, fallback string, reader Reader, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Loader {
	l := &Loader{
		primary:  primary,
		fallback: fallback,
		reader:   reader,
		clock:    clockwork.NewRealClock(),
		logger:   logger,
		metrics:  metrics,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the current dataset, reading it from disk when nothing is
// cached or the resolved file changed since the last read.
func (l *Loader) Load(ctx context.Context) (*Dataset, error) {
	src, err := l.resolve()
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	if l.current != nil && l.identity == src.fileIdentity {
		ds := l.current
		l.mu.Unlock()
		l.metrics.DatasetCache.WithLabelValues("hit").Inc()
		return ds, nil
	}
	l.metrics.DatasetCache.WithLabelValues("miss").Inc()

	ds, err := l.read(ctx, src)
	if err != nil {
		l.mu.Unlock()
		return nil, err
	}
	l.generation++
	ds.Generation = l.generation
	l.current = ds
	l.identity = src.fileIdentity
	l.mu.Unlock()

	l.logger.Info("dataset loaded",
		"source", ds.Source,
		"clustered", ds.Clustered,
		"rows", ds.Records.Len(),
		"dropped_rows", ds.Dropped,
		"derived", ds.Derivation.Added,
		"generation", ds.Generation,
	)
	l.notify(ctx, ds)
	return ds, nil
}

// Invalidate drops the cached dataset; the next Load reads from disk.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.current = nil
	l.identity = fileIdentity{}
}

// Generation returns the generation of the cached dataset, 0 when nothing is
// cached.
func (l *Loader) Generation() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current == nil {
		return 0
	}
	return l.current.Generation
}

// CheckReadiness returns nil when a dataset can be loaded.
func (l *Loader) CheckReadiness(ctx context.Context) error {
	_, err := l.Load(ctx)
	return err
}

// resolve picks the file to read. The primary wins whenever it exists.
func (l *Loader) resolve() (source, error) {
	if id, ok := statFile(l.primary); ok {
		return source{fileIdentity: id, clustered: true}, nil
	}
	if id, ok := statFile(l.fallback); ok {
		return source{fileIdentity: id}, nil
	}
	return source{}, fmt.Errorf("%w: neither %s nor %s exists", domain.ErrDataUnavailable, l.primary, l.fallback)
}

func statFile(path string) (fileIdentity, bool) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return fileIdentity{}, false
	}
	return fileIdentity{path: path, size: info.Size(), modTime: info.ModTime()}, true
}

func (l *Loader) read(ctx context.Context, src source) (*Dataset, error) {
	start := time.Now()
	label := "fallback"
	if src.clustered {
		label = "primary"
	}

	frame, err := l.reader.Read(ctx, src.path)
	if err != nil {
		l.metrics.DatasetLoads.WithLabelValues(label, "error").Inc()
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", domain.ErrDataUnavailable, err)
		}
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrInvalidDataset, src.path, err)
	}

	records, dropped, err := domain.NewRecordSet(frame)
	if err != nil {
		l.metrics.DatasetLoads.WithLabelValues(label, "error").Inc()
		return nil, fmt.Errorf("load %s: %w", src.path, err)
	}
	if dropped > 0 {
		l.logger.Warn("dropped rows without station name or region", "source", src.path, "dropped_rows", dropped)
		l.metrics.DroppedRows.Add(float64(dropped))
	}

	// The fallback never has clusters; an unclustered primary is treated the same.
	records, _ = domain.WithDefaultCluster(records)
	records, derivation := domain.DeriveMetrics(records)
	for col, n := range derivation.Neutralized {
		l.metrics.UndefinedRatios.WithLabelValues(col).Add(float64(n))
	}

	l.metrics.DatasetLoads.WithLabelValues(label, "success").Inc()
	l.metrics.DatasetRows.Set(float64(records.Len()))
	l.metrics.LoadDuration.Observe(time.Since(start).Seconds())

	return &Dataset{
		Records:    records,
		Source:     src.path,
		Clustered:  src.clustered,
		LoadedAt:   l.clock.Now().UTC(),
		Dropped:    dropped,
		Derivation: derivation,
	}, nil
}

func (l *Loader) notify(ctx context.Context, ds *Dataset) {
	if l.notifier == nil {
		return
	}
	event := domain.LoadEvent{
		ID:        uuid.NewString(),
		Source:    ds.Source,
		Clustered: ds.Clustered,
		Rows:      ds.Records.Len(),
		Dropped:   ds.Dropped,
		Derived:   ds.Derivation.Added,
		LoadedAt:  ds.LoadedAt,
	}
	if err := l.notifier.NotifyLoaded(ctx, event); err != nil {
		l.logger.Warn("publish load event failed", "error", err, "event_id", event.ID)
		l.metrics.LoadEvents.WithLabelValues("error").Inc()
		return
	}
	l.metrics.LoadEvents.WithLabelValues("success").Inc()
}
