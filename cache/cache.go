// Package cache remembers minification results between runs. Results are
// keyed by hash of the source, minifier options and program version, so
// changing any of them makes previous entries unreachable.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"cssmin/misc"
)

const schema = `
CREATE TABLE IF NOT EXISTS results (
	key     TEXT PRIMARY KEY,
	result  TEXT NOT NULL,
	created INTEGER NOT NULL
);
`

// Cache is a sqlite backed store of minified stylesheets. Nil *Cache is a
// valid disabled cache: it never hits and silently ignores stores.
type Cache struct {
	mu     sync.Mutex
	conn   *sqlite.Conn
	log    *zap.Logger
	hits   int
	misses int
}

// Open opens (creating when necessary) cache database at path. Special name
// ":memory:" gives private in-memory cache.
func Open(path string, log *zap.Logger) (*Cache, error) {
	if log == nil {
		log = zap.NewNop()
	}

	flags := []sqlite.OpenFlags{sqlite.OpenReadWrite, sqlite.OpenCreate}
	if path == ":memory:" {
		flags = append(flags, sqlite.OpenMemory)
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("unable to create cache directory: %w", err)
		}
		flags = append(flags, sqlite.OpenWAL)
	}

	conn, err := sqlite.OpenConn(path, flags...)
	if err != nil {
		return nil, fmt.Errorf("unable to open cache (%s): %w", path, err)
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to prepare cache (%s): %w", path, err)
	}

	log = log.Named("cache")
	log.Debug("Cache opened", zap.String("path", path))
	return &Cache{conn: conn, log: log}, nil
}

// Key computes cache key for source data minified with options identified by
// fingerprint.
func Key(data []byte, fingerprint string) string {
	h := sha256.New()
	h.Write([]byte(misc.GetVersion()))
	h.Write([]byte{0})
	h.Write([]byte(fingerprint))
	h.Write([]byte{0})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns previously stored result for key.
func (c *Cache) Get(key string) (string, bool, error) {
	if c == nil {
		return "", false, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var (
		result string
		found  bool
	)
	err := sqlitex.Execute(c.conn, `SELECT result FROM results WHERE key = ?`,
		&sqlitex.ExecOptions{
			Args: []any{key},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				result, found = stmt.ColumnText(0), true
				return nil
			}})
	if err != nil {
		return "", false, fmt.Errorf("unable to read cache: %w", err)
	}
	if found {
		c.hits++
	} else {
		c.misses++
	}
	c.log.Debug("Cache lookup", zap.String("key", key), zap.Bool("hit", found))
	return result, found, nil
}

// Put stores result under key replacing whatever was there.
func (c *Cache) Put(key, result string) error {
	if c == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	err := sqlitex.Execute(c.conn, `INSERT OR REPLACE INTO results (key, result, created) VALUES (?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{key, result, time.Now().Unix()}})
	if err != nil {
		return fmt.Errorf("unable to write cache: %w", err)
	}
	return nil
}

// Len returns number of stored results.
func (c *Cache) Len() (int, error) {
	if c == nil {
		return 0, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var n int
	err := sqlitex.Execute(c.conn, `SELECT count(*) FROM results`,
		&sqlitex.ExecOptions{ResultFunc: func(stmt *sqlite.Stmt) error {
			n = stmt.ColumnInt(0)
			return nil
		}})
	if err != nil {
		return 0, fmt.Errorf("unable to count cache entries: %w", err)
	}
	return n, nil
}

// Prune removes results stored before cutoff and reports how many were
// removed.
func (c *Cache) Prune(cutoff time.Time) (int, error) {
	if c == nil {
		return 0, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	err := sqlitex.Execute(c.conn, `DELETE FROM results WHERE created < ?`,
		&sqlitex.ExecOptions{Args: []any{cutoff.Unix()}})
	if err != nil {
		return 0, fmt.Errorf("unable to prune cache: %w", err)
	}
	return c.conn.Changes(), nil
}

// Clear removes all stored results.
func (c *Cache) Clear() (int, error) {
	if c == nil {
		return 0, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := sqlitex.Execute(c.conn, `DELETE FROM results`, nil); err != nil {
		return 0, fmt.Errorf("unable to clear cache: %w", err)
	}
	return c.conn.Changes(), nil
}

// Stats returns number of lookups which hit and missed.
func (c *Cache) Stats() (hits, misses int) {
	if c == nil {
		return 0, 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Close releases database connection.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.log.Debug("Cache closed", zap.Int("hits", c.hits), zap.Int("misses", c.misses))
	return c.conn.Close()
}
