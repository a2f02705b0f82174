// Package store persists metric snapshots and valuation reports.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"fcf_valuation/pkg/core/metrics"
)

// SnapshotCache stores metric snapshots keyed by dataset content hash.
// Supports a hybrid vault: DB (primary) + file system (fallback/local).
type SnapshotCache struct {
	pool    *pgxpool.Pool
	fileDir string
}

var _ metrics.SnapshotStore = (*SnapshotCache)(nil)

// NewSnapshotCache creates a cache. With a nil pool and an empty dir it
// defaults to .cache/snapshots.
func NewSnapshotCache(pool *pgxpool.Pool, dir string) *SnapshotCache {
	if pool == nil && dir == "" {
		dir = filepath.Join(".cache", "snapshots")
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("snapshot cache dir unavailable")
		}
	}
	return &SnapshotCache{pool: pool, fileDir: dir}
}

// CacheEntry is the file representation of a cached snapshot.
type CacheEntry struct {
	ID         string            `json:"id"`
	DatasetKey string            `json:"dataset_key"`
	Snapshot   *metrics.Snapshot `json:"snapshot"`
	CachedAt   time.Time         `json:"cached_at"`
}

// Load returns the snapshot stored under key, or nil, nil on a miss.
func (c *SnapshotCache) Load(ctx context.Context, key string) (*metrics.Snapshot, error) {
	// 1. Try DB
	if c.pool != nil {
		var data []byte
		err := c.pool.QueryRow(ctx, `SELECT data FROM metric_snapshots WHERE dataset_key = $1`, key).Scan(&data)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			// fall through to the file cache
		case err != nil:
			return nil, fmt.Errorf("failed to query snapshot: %w", err)
		default:
			var snap metrics.Snapshot
			if err := json.Unmarshal(data, &snap); err != nil {
				return nil, fmt.Errorf("failed to unmarshal db cached snapshot: %w", err)
			}
			return &snap, nil
		}
	}

	// 2. Try file system
	if c.fileDir == "" {
		return nil, nil
	}
	entry, err := c.loadEntry(c.keyPath(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry.Snapshot, nil
}

// Save stores snap under key in every configured backend.
func (c *SnapshotCache) Save(ctx context.Context, key string, snap *metrics.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	// 1. Save to DB
	if c.pool != nil {
		query := `
			INSERT INTO metric_snapshots (id, dataset_key, data)
			VALUES ($1, $2, $3)
			ON CONFLICT (dataset_key)
			DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
		`
		if _, err := c.pool.Exec(ctx, query, uuid.New(), key, data); err != nil {
			return fmt.Errorf("failed to save to db cache: %w", err)
		}
	}

	// 2. Save to file
	if c.fileDir != "" {
		entry := CacheEntry{
			ID:         uuid.NewString(),
			DatasetKey: key,
			Snapshot:   snap,
			CachedAt:   time.Now().UTC(),
		}
		fileBytes, err := json.MarshalIndent(entry, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal cache entry: %w", err)
		}
		if err := os.WriteFile(c.keyPath(key), fileBytes, 0o644); err != nil {
			return fmt.Errorf("failed to save to file cache: %w", err)
		}
	}
	return nil
}

// Exists reports whether a snapshot is cached under key.
func (c *SnapshotCache) Exists(ctx context.Context, key string) bool {
	if c.pool != nil {
		var one int
		if err := c.pool.QueryRow(ctx, `SELECT 1 FROM metric_snapshots WHERE dataset_key = $1`, key).Scan(&one); err == nil {
			return true
		}
	}
	if c.fileDir != "" {
		if _, err := os.Stat(c.keyPath(key)); err == nil {
			return true
		}
	}
	return false
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

func (c *SnapshotCache) keyPath(key string) string {
	return filepath.Join(c.fileDir, unsafeKeyChars.ReplaceAllString(key, "_")+".json")
}

func (c *SnapshotCache) loadEntry(path string) (*CacheEntry, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entry CacheEntry
	if err := json.Unmarshal(bytes, &entry); err != nil {
		return nil, fmt.Errorf("failed to parse cache entry %s: %w", filepath.Base(path), err)
	}
	return &entry, nil
}
