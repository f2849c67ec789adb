// Package cache provides two SQLite-backed caches used by the RAG
// pipeline: a query cache with a TTL and hit counter, and an embedding
// cache with no expiry (embeddings of a given text never change).
// Both key on the SHA-256 of their normalized input, grounded on the
// corpus's content-addressed storage convention (vector_store.go keys
// documents by content hash for dedup).
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/antigravity-dev/banking-platform/internal/apierrors"
	_ "modernc.org/sqlite"
)

const defaultQueryTTL = 3600 * time.Second

// Key returns the SHA-256 hex digest of the normalized (trimmed,
// lowercased) input, used as the cache key for both caches.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(strings.ToLower(strings.TrimSpace(p))))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Cache is the SQLite-backed store shared by QueryCache and EmbeddingCache.
type Cache struct {
	db    *sql.DB
	table string
	ttl   time.Duration
}

// OpenQueryCache opens the query_cache table with the default one-hour TTL.
func OpenQueryCache(db *sql.DB) (*Cache, error) {
	return openCache(db, "query_cache", defaultQueryTTL)
}

// OpenEmbeddingCache opens the embedding_cache table with no expiry.
func OpenEmbeddingCache(db *sql.DB) (*Cache, error) {
	return openCache(db, "embedding_cache", 0)
}

func openCache(db *sql.DB, table string, ttl time.Duration) (*Cache, error) {
	c := &Cache{db: db, ttl: ttl}
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		cache_key TEXT PRIMARY KEY,
		value_json TEXT NOT NULL,
		hit_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		expires_at TIMESTAMP
	);
	`, table)
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("%s schema: %w", table, err)
	}
	c.table = table
	return c, nil
}

// Get looks up key, unmarshalling its stored JSON value into dest.
// Returns apierrors.NotFound if absent or expired (expired entries are
// lazily deleted on lookup).
func (c *Cache) Get(key string, dest interface{}) error {
	row := c.db.QueryRow(fmt.Sprintf(
		`SELECT value_json, expires_at FROM %s WHERE cache_key = ?`, c.table), key)
	var valueJSON string
	var expiresAt sql.NullTime
	if err := row.Scan(&valueJSON, &expiresAt); err != nil {
		if err == sql.ErrNoRows {
			return apierrors.NotFound("cache key %s", key)
		}
		return apierrors.Data(err, "scan cache entry %s", key)
	}
	if expiresAt.Valid && time.Now().UTC().After(expiresAt.Time) {
		_, _ = c.db.Exec(fmt.Sprintf(`DELETE FROM %s WHERE cache_key = ?`, c.table), key)
		return apierrors.NotFound("cache key %s (expired)", key)
	}
	if _, err := c.db.Exec(fmt.Sprintf(`UPDATE %s SET hit_count = hit_count + 1 WHERE cache_key = ?`, c.table), key); err != nil {
		return apierrors.Data(err, "increment hit count for %s", key)
	}
	if err := json.Unmarshal([]byte(valueJSON), dest); err != nil {
		return apierrors.Data(err, "unmarshal cache entry %s", key)
	}
	return nil
}

// Set stores value under key, applying the cache's configured TTL (if any).
func (c *Cache) Set(key string, value interface{}) error {
	b, err := json.Marshal(value)
	if err != nil {
		return apierrors.Data(err, "marshal cache entry %s", key)
	}
	now := time.Now().UTC()
	var expires interface{}
	if c.ttl > 0 {
		expires = now.Add(c.ttl)
	}
	_, err = c.db.Exec(fmt.Sprintf(
		`INSERT INTO %s (cache_key, value_json, hit_count, created_at, expires_at) VALUES (?, ?, 0, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET value_json = excluded.value_json, created_at = excluded.created_at, expires_at = excluded.expires_at`,
		c.table), key, string(b), now, expires)
	if err != nil {
		return apierrors.Data(err, "store cache entry %s", key)
	}
	return nil
}

// Sweep deletes every expired entry and returns the count removed. It
// is a no-op (returning 0) on a cache with no TTL.
func (c *Cache) Sweep() (int, error) {
	if c.ttl <= 0 {
		return 0, nil
	}
	res, err := c.db.Exec(fmt.Sprintf(
		`DELETE FROM %s WHERE expires_at IS NOT NULL AND expires_at < ?`, c.table), time.Now().UTC())
	if err != nil {
		return 0, apierrors.Data(err, "sweep %s", c.table)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apierrors.Data(err, "count swept rows in %s", c.table)
	}
	return int(n), nil
}
