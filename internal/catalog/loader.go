package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Provider is a live source of catalog entries.
type Provider interface {
	ListMetrics(ctx context.Context) ([]Metric, error)
	ListDimensions(ctx context.Context, metrics []string) ([]Dimension, error)
}

// Recorder observes catalog loads.
type Recorder interface {
	CatalogLoaded(origin string)
}

// LoaderConfig configures a Loader.
type LoaderConfig struct {
	// Provider may be nil, in which case the fallback catalog is always used.
	Provider Provider
	TTL      time.Duration
	Recorder Recorder
	Logger   *slog.Logger
}

// Loader serves a process-wide catalog snapshot. Readers never block one
// another; a stale snapshot is replaced whole, and concurrent refreshes
// collapse into one provider round trip.
type Loader struct {
	provider Provider
	ttl      time.Duration
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time

	snapshot atomic.Pointer[Catalog]
	group    singleflight.Group
}

// NewLoader creates a Loader.
func NewLoader(cfg LoaderConfig) *Loader {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Loader{
		provider: cfg.Provider,
		ttl:      cfg.TTL,
		recorder: cfg.Recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock overrides the time source.
func (l *Loader) SetClock(now func() time.Time) {
	l.now = now
}

var errNoProvider = errors.New("no catalog provider configured")

// LoadMetrics makes one live attempt and falls back to the built-in list on any failure.
func (l *Loader) LoadMetrics(ctx context.Context) ([]Metric, Origin) {
	if l.provider == nil {
		l.warnFallback("metrics", errNoProvider)
		return FallbackMetrics(), OriginFallback
	}
	metrics, err := l.provider.ListMetrics(ctx)
	if err == nil && len(metrics) == 0 {
		err = errors.New("empty metric list")
	}
	if err != nil {
		l.warnFallback("metrics", err)
		return FallbackMetrics(), OriginFallback
	}
	return metrics, OriginLive
}

// LoadDimensions makes one live attempt and falls back to the built-in list on any failure.
func (l *Loader) LoadDimensions(ctx context.Context, metrics []string) ([]Dimension, Origin) {
	if l.provider == nil {
		l.warnFallback("dimensions", errNoProvider)
		return FallbackDimensions(), OriginFallback
	}
	dims, err := l.provider.ListDimensions(ctx, metrics)
	if err == nil && len(dims) == 0 {
		err = errors.New("empty dimension list")
	}
	if err != nil {
		l.warnFallback("dimensions", err)
		return FallbackDimensions(), OriginFallback
	}
	return dims, OriginLive
}

// Snapshot returns the current catalog, refreshing it once its TTL has passed.
func (l *Loader) Snapshot(ctx context.Context) *Catalog {
	if c := l.snapshot.Load(); l.fresh(c) {
		return c
	}

	v, _, _ := l.group.Do("catalog", func() (any, error) {
		if c := l.snapshot.Load(); l.fresh(c) {
			return c, nil
		}
		c := l.load(context.WithoutCancel(ctx))
		l.snapshot.Store(c)
		return c, nil
	})
	return v.(*Catalog)
}

func (l *Loader) fresh(c *Catalog) bool {
	return c != nil && l.now().Sub(c.LoadedAt) < l.ttl
}

func (l *Loader) load(ctx context.Context) *Catalog {
	metrics, metricOrigin := l.LoadMetrics(ctx)
	names := make([]string, 0, len(metrics))
	for _, m := range metrics {
		names = append(names, m.Name)
	}
	dims, dimOrigin := l.LoadDimensions(ctx, names)

	origin := OriginLive
	if metricOrigin == OriginFallback || dimOrigin == OriginFallback {
		origin = OriginFallback
	}
	if l.recorder != nil {
		l.recorder.CatalogLoaded(string(origin))
	}
	l.logger.Debug("catalog loaded", "origin", origin, "metrics", len(metrics), "dimensions", len(dims))

	return &Catalog{
		Metrics:    metrics,
		Dimensions: dims,
		Origin:     origin,
		LoadedAt:   l.now(),
	}
}

func (l *Loader) warnFallback(what string, err error) {
	l.logger.Warn("catalog unavailable, using fallback", "part", what, "error", err)
}
