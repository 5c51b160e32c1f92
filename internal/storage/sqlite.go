package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hammamikhairi/recipevoice/internal/domain"
	"github.com/hammamikhairi/recipevoice/internal/logger"
)

// Compile-time interface check.
var _ domain.RecipeCache = (*SQLiteCache)(nil)

// SQLiteCache persists results in a local SQLite file, so a single-host
// backend keeps its cache across restarts. Timestamps are unix milliseconds.
type SQLiteCache struct {
	db  *sql.DB
	now func() time.Time
	log *logger.Logger
}

// NewSQLiteCache opens (or creates) the database at path.
func NewSQLiteCache(path string, log *logger.Logger) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)

	c := &SQLiteCache{db: db, now: time.Now, log: log}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	log.Info("cache: sqlite cache at %s", path)
	return c, nil
}

func (c *SQLiteCache) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS recipe_cache (
        key        TEXT PRIMARY KEY,
        recipes    TEXT NOT NULL,
        created_at INTEGER NOT NULL,
        expires_at INTEGER
    );

    CREATE INDEX IF NOT EXISTS idx_recipe_cache_expires ON recipe_cache(expires_at);
    `
	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Get returns the recipes stored under key, or domain.ErrNotFound when
// there is none or it has expired.
func (c *SQLiteCache) Get(ctx context.Context, key string) ([]domain.Recipe, error) {
	var (
		raw     string
		expires sql.NullInt64
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT recipes, expires_at FROM recipe_cache WHERE key = ?`, key).Scan(&raw, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	if expires.Valid && c.now().UnixMilli() >= expires.Int64 {
		if _, err := c.db.ExecContext(ctx, `DELETE FROM recipe_cache WHERE key = ?`, key); err != nil {
			c.log.Warn("cache: failed to delete expired %s: %v", key, err)
		}
		return nil, domain.ErrNotFound
	}

	var recipes []domain.Recipe
	if err := json.Unmarshal([]byte(raw), &recipes); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	if recipes == nil {
		recipes = []domain.Recipe{}
	}
	return recipes, nil
}

// Put stores recipes under key, replacing any previous entry. A ttl of
// zero or less never expires.
func (c *SQLiteCache) Put(ctx context.Context, key string, recipes []domain.Recipe, ttl time.Duration) error {
	if recipes == nil {
		recipes = []domain.Recipe{}
	}
	raw, err := json.Marshal(recipes)
	if err != nil {
		return fmt.Errorf("encode recipes: %w", err)
	}

	now := c.now()
	var expires sql.NullInt64
	if ttl > 0 {
		expires = sql.NullInt64{Int64: now.Add(ttl).UnixMilli(), Valid: true}
	}

	_, err = c.db.ExecContext(ctx, `
        INSERT INTO recipe_cache (key, recipes, created_at, expires_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(key) DO UPDATE SET
            recipes = excluded.recipes,
            created_at = excluded.created_at,
            expires_at = excluded.expires_at`,
		key, string(raw), now.UnixMilli(), expires)
	if err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	c.log.Debug("cache: stored %s in sqlite (%d recipes, ttl=%s)", key, len(recipes), ttl)
	return nil
}

// Purge deletes every expired entry and returns how many went.
func (c *SQLiteCache) Purge(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM recipe_cache WHERE expires_at IS NOT NULL AND expires_at <= ?`, c.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
