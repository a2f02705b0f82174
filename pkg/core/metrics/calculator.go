package metrics

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"fcf_valuation/pkg/core/statement"
)

// Source supplies the statements of one company.
type Source interface {
	// Key identifies the content of the dataset. Equal keys mean equal
	// statements.
	Key() (string, error)
	Load() (*statement.Dataset, error)
}

// DirSource reads a company folder with statement.LoadDir.
type DirSource struct {
	Dir string
}

func (s DirSource) Key() (string, error) { return statement.HashDir(s.Dir) }

func (s DirSource) Load() (*statement.Dataset, error) { return statement.LoadDir(s.Dir) }

// DatasetSource serves an already-loaded dataset.
type DatasetSource struct {
	Dataset *statement.Dataset
}

func (s DatasetSource) Key() (string, error) { return s.Dataset.Hash, nil }

func (s DatasetSource) Load() (*statement.Dataset, error) { return s.Dataset, nil }

// SnapshotStore persists built snapshots. Keys combine the dataset key with
// the locator threshold and catalog version. Load returns nil, nil on a miss.
type SnapshotStore interface {
	Load(ctx context.Context, key string) (*Snapshot, error)
	Save(ctx context.Context, key string, snap *Snapshot) error
}

// generation is one build of the snapshot. Reload swaps in a fresh one.
type generation struct {
	once sync.Once
	snap *Snapshot
	err  error
}

// Calculator owns the metrics snapshot of one dataset. The snapshot is
// built on first use and shared by every later call until Reload.
type Calculator struct {
	src     Source
	locator *statement.Locator
	store   SnapshotStore
	logger  zerolog.Logger

	mu     sync.Mutex
	gen    *generation
	builds int
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithStore reuses persisted snapshots whose key matches the dataset.
func WithStore(store SnapshotStore) Option {
	return func(c *Calculator) { c.store = store }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Calculator) { c.logger = logger }
}

// NewCalculator creates a calculator over src. A nil locator uses the
// default similarity threshold.
func NewCalculator(src Source, locator *statement.Locator, opts ...Option) *Calculator {
	c := &Calculator{
		src:    src,
		logger: log.Logger,
		gen:    &generation{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", "metrics").Logger()
	if locator == nil {
		locator = statement.NewLocator(statement.DefaultSimilarityThreshold, c.logger)
	}
	c.locator = locator
	return c
}

// Snapshot returns the snapshot, building it on the first call. A failed
// build is not cached; the next call tries again.
func (c *Calculator) Snapshot(ctx context.Context) (*Snapshot, error) {
	c.mu.Lock()
	g := c.gen
	c.mu.Unlock()

	g.once.Do(func() {
		g.snap, g.err = c.build(ctx)
	})

	if g.err != nil {
		c.mu.Lock()
		if c.gen == g {
			c.gen = &generation{}
		}
		c.mu.Unlock()
		return nil, g.err
	}
	return g.snap, nil
}

// Reload discards the current snapshot. The next Snapshot call rebuilds it.
func (c *Calculator) Reload() {
	c.mu.Lock()
	c.gen = &generation{}
	c.mu.Unlock()
	c.logger.Info().Msg("snapshot invalidated")
}

// Builds returns how many snapshots have been materialised, from the
// statements or from the store.
func (c *Calculator) Builds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.builds
}

func (c *Calculator) build(ctx context.Context) (*Snapshot, error) {
	key, err := c.src.Key()
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint dataset: %w", err)
	}

	storeKey := c.storeKey(key)
	if c.store != nil && key != "" {
		cached, err := c.store.Load(ctx, storeKey)
		if err != nil {
			c.logger.Warn().Err(err).Str("key", storeKey).Msg("snapshot store lookup failed")
		} else if cached != nil {
			c.countBuild()
			c.logger.Debug().Str("key", storeKey).Msg("snapshot loaded from store")
			return cached, nil
		}
	}

	ds, err := c.src.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load statements: %w", err)
	}

	snap := Build(ds, c.locator)
	if snap.Key == "" {
		snap.Key = key
	}
	c.countBuild()
	c.logger.Info().
		Str("key", snap.Key).
		Int("warnings", len(snap.Warnings)).
		Int("trailing_applied", len(snap.Trailing)).
		Msg("snapshot built")

	if c.store != nil && key != "" {
		if err := c.store.Save(ctx, storeKey, snap); err != nil {
			c.logger.Warn().Err(err).Str("key", storeKey).Msg("failed to persist snapshot")
		}
	}
	return snap, nil
}

// storeKey extends the dataset key with everything else that shapes the
// snapshot, so a stored snapshot is only reused under the same matching
// rules.
func (c *Calculator) storeKey(key string) string {
	return fmt.Sprintf("%s|t=%g|c=%s", key, c.locator.Threshold(), catalogVersion)
}

func (c *Calculator) countBuild() {
	c.mu.Lock()
	c.builds++
	c.mu.Unlock()
}
