package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/aretw0/fieldbot/internal/logging"
	"github.com/aretw0/fieldbot/pkg/domain"
	"github.com/aretw0/fieldbot/pkg/ports"
	"golang.org/x/sync/singleflight"
)

// ParseFunc turns raw source bytes into a snapshot.
type ParseFunc func(data []byte) (*domain.Snapshot, error)

// Cache implements ports.DatasetProvider.
type Cache struct {
	source ports.DatasetSource
	parse  ParseFunc

	current atomic.Pointer[domain.Snapshot]
	group   singleflight.Group

	hooks  domain.LifecycleHooks
	logger *slog.Logger
	now    func() time.Time
}

// Option configures the Cache.
type Option func(*Cache)

// WithParser replaces the default workbook parser.
func WithParser(p ParseFunc) Option {
	return func(c *Cache) {
		c.parse = p
	}
}

// WithLogger configures a logger for the Cache.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Cache) {
		c.hooks = hooks
	}
}

// NewCache creates an empty cache reading from source.
func NewCache(source ports.DatasetSource, opts ...Option) *Cache {
	c := &Cache{
		source: source,
		parse:  ParseWorkbook,
		logger: logging.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the held snapshot, loading it first if the cache is empty.
// Errors wrap domain.ErrDataUnavailable.
func (c *Cache) Get(ctx context.Context) (*domain.Snapshot, error) {
	if snap := c.current.Load(); snap != nil {
		return snap, nil
	}
	return c.load(ctx)
}

// Reload fetches the dataset again. On failure the previous snapshot is kept.
func (c *Cache) Reload(ctx context.Context) (*domain.Snapshot, error) {
	return c.load(ctx)
}

// Current returns the held snapshot without loading. It may be nil.
func (c *Cache) Current() *domain.Snapshot {
	return c.current.Load()
}

func (c *Cache) load(ctx context.Context) (*domain.Snapshot, error) {
	ch := c.group.DoChan("load", func() (any, error) {
		// Detached from the first caller so its cancellation does not fail the others.
		return c.fetch(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", domain.ErrDataUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Snapshot), nil
	}
}

func (c *Cache) fetch(ctx context.Context) (*domain.Snapshot, error) {
	start := c.now()
	snap, err := c.fetchAndParse(ctx)
	elapsed := c.now().Sub(start)

	if c.hooks.OnDatasetLoad != nil {
		c.hooks.OnDatasetLoad(ctx, &domain.DatasetLoadEvent{
			EventBase: domain.EventBase{Timestamp: c.now(), Type: domain.EventDatasetLoad},
			Source:    c.source.Location(),
			Records:   snap.Len(),
			Duration:  elapsed,
			Err:       err,
		})
	}

	if err != nil {
		c.logger.Error("dataset load failed",
			"source", c.source.Location(),
			"err", err,
			"kept_previous", c.current.Load() != nil,
		)
		return nil, err
	}

	c.current.Store(snap)
	c.logger.Info("dataset loaded",
		"source", c.source.Location(),
		"records", snap.Len(),
		"columns", len(snap.Columns),
		"duration", elapsed,
	)
	return snap, nil
}

func (c *Cache) fetchAndParse(ctx context.Context) (*domain.Snapshot, error) {
	raw, err := c.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %w", domain.ErrDataUnavailable, c.source.Location(), err)
	}

	snap, err := c.parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", domain.ErrDataUnavailable, c.source.Location(), err)
	}
	snap.Source = c.source.Location()
	snap.LoadedAt = c.now()
	return snap, nil
}
