package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/station-ridership/internal/domain"
	"github.com/couchcryptid/station-ridership/internal/loader"
	"github.com/couchcryptid/station-ridership/internal/observability"
)

// NoticeSource blocks until the next dataset refresh notice arrives.
type NoticeSource interface {
	FetchNotice(ctx context.Context) (domain.RefreshNotice, error)
}

// Reloader drops the cached dataset and loads it again.
type Reloader interface {
	Invalidate()
	Load(ctx context.Context) (*loader.Dataset, error)
}

// RefreshWatcher invalidates the dataset cache whenever an upstream job
// announces new station files, then reloads so the next request is warm.
type RefreshWatcher struct {
	source  NoticeSource
	target  Reloader
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
}

// NewRefreshWatcher creates a RefreshWatcher.
func NewRefreshWatcher(source NoticeSource, target Reloader, logger *slog.Logger, metrics *observability.Metrics) *RefreshWatcher {
	return &RefreshWatcher{
		source:  source,
		target:  target,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil once the watcher has fetched from the source
// without error at least once.
func (w *RefreshWatcher) CheckReadiness(_ context.Context) error {
	if !w.ready.Load() {
		return errors.New("refresh watcher has not reached the broker yet")
	}
	return nil
}

// Run consumes refresh notices until the context is cancelled.
func (w *RefreshWatcher) Run(ctx context.Context) error {
	w.logger.Info("refresh watcher started")
	w.metrics.WatcherRunning.Set(1)
	defer w.metrics.WatcherRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("refresh watcher stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !w.handleNext(ctx, &backoff, maxBackoff) {
			return nil
		}
	}
}

// handleNext waits for one notice and applies it. Returns false if the
// watcher should stop.
func (w *RefreshWatcher) handleNext(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	notice, err := w.source.FetchNotice(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		w.logger.Error("fetch refresh notice failed", "error", err)
		return w.backoffOrStop(ctx, backoff, maxBackoff)
	}

	w.ready.Store(true)
	*backoff = 200 * time.Millisecond
	w.metrics.RefreshNotices.Inc()

	w.target.Invalidate()
	ds, err := w.target.Load(ctx)
	if err != nil {
		// The files may be mid-replacement; the next request retries the load.
		w.logger.Warn("reload after refresh notice failed",
			"error", err,
			"topic", notice.Topic,
			"partition", notice.Partition,
			"offset", notice.Offset,
		)
	} else {
		w.logger.Info("dataset refreshed",
			"source", ds.Source,
			"generation", ds.Generation,
			"offset", notice.Offset,
		)
	}

	w.commitNotice(ctx, notice)
	return true
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the watcher should stop.
func (w *RefreshWatcher) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

func (w *RefreshWatcher) commitNotice(ctx context.Context, notice domain.RefreshNotice) {
	if notice.Commit == nil {
		return
	}
	if err := notice.Commit(ctx); err != nil {
		w.logger.Warn("commit offset failed", "error", err,
			"topic", notice.Topic, "partition", notice.Partition, "offset", notice.Offset)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
