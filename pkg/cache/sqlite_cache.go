package cache

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/evosearch/demova/pkg/errors"
	"github.com/evosearch/demova/pkg/logging"
)

// SQLiteCache persists fitness results across search restarts. With WAL
// enabled, multiple workers of one process share the file safely.
type SQLiteCache struct {
	db        *sql.DB
	config    Config
	stats     Stats
	mu        sync.RWMutex
	closeChan chan struct{}
	cleanupWG sync.WaitGroup
	vacuumWG  sync.WaitGroup
	logger    *logging.Logger
}

// NewSQLiteCache creates a SQLite-backed cache.
func NewSQLiteCache(config Config) (*SQLiteCache, error) {
	if config.SQLite.Path == "" {
		config.SQLite.Path = "demova_cache.db"
	}

	db, err := sql.Open("sqlite3", config.SQLite.Path)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.FileSystemError, "failed to open cache database"),
			errors.Fields{"path": config.SQLite.Path})
	}

	if config.SQLite.MaxConnections > 0 {
		db.SetMaxOpenConns(config.SQLite.MaxConnections)
	} else {
		db.SetMaxOpenConns(10)
	}
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	c := &SQLiteCache{
		db:        db,
		config:    config,
		closeChan: make(chan struct{}),
		logger:    logging.GetLogger(),
	}

	if err := c.initDB(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.FileSystemError, "failed to initialize cache schema")
	}

	if config.SQLite.EnableWAL {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, errors.Wrap(err, errors.FileSystemError, "failed to enable WAL mode")
		}
	}

	pragmas := []string{
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=10000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			c.logger.Warn(context.Background(), "failed to set pragma %s: %v", pragma, err)
		}
	}

	c.cleanupWG.Add(1)
	go c.cleanupRoutine()

	if config.SQLite.VacuumInterval > 0 {
		c.vacuumWG.Add(1)
		go c.vacuumRoutine()
	}

	c.loadStats()
	return c, nil
}

func (c *SQLiteCache) initDB() error {
	query := `
	CREATE TABLE IF NOT EXISTS evaluations (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		expires_at INTEGER,
		created_at INTEGER NOT NULL,
		accessed_at INTEGER NOT NULL,
		size INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_expires_at ON evaluations(expires_at) WHERE expires_at > 0;
	CREATE INDEX IF NOT EXISTS idx_accessed_at ON evaluations(accessed_at);
	`
	_, err := c.db.Exec(query)
	return err
}

func (c *SQLiteCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	query := `
	SELECT value FROM evaluations
	WHERE key = ? AND (expires_at = 0 OR expires_at > ?)
	`

	var value []byte
	now := time.Now().UnixNano()

	err := c.db.QueryRowContext(ctx, query, key, now).Scan(&value)
	if err == sql.ErrNoRows {
		atomic.AddInt64(&c.stats.Misses, 1)
		return nil, false, nil
	}
	if err != nil {
		atomic.AddInt64(&c.stats.Misses, 1)
		return nil, false, errors.Wrap(err, errors.Unknown, "failed to read cache entry")
	}

	if _, err := c.db.ExecContext(ctx, `UPDATE evaluations SET accessed_at = ? WHERE key = ?`, now, key); err != nil {
		c.logger.Warn(ctx, "failed to update cache access time: %v", err)
	}

	atomic.AddInt64(&c.stats.Hits, 1)
	c.mu.Lock()
	c.stats.LastAccess = time.Now()
	c.mu.Unlock()
	return value, true, nil
}

func (c *SQLiteCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := time.Now()
	var expiresAt int64
	if ttl > 0 {
		expiresAt = now.Add(ttl).UnixNano()
	} else if c.config.DefaultTTL > 0 {
		expiresAt = now.Add(c.config.DefaultTTL).UnixNano()
	}

	size := int64(len(value))

	var existingSize int64
	err := c.db.QueryRowContext(ctx, `SELECT size FROM evaluations WHERE key = ?`, key).Scan(&existingSize)
	exists := err == nil

	if c.config.MaxSize > 0 {
		needed := size
		if exists {
			needed = size - existingSize
		}
		if atomic.LoadInt64(&c.stats.Size)+needed > c.config.MaxSize {
			if err := c.evictEntries(ctx, needed); err != nil {
				return errors.Wrap(err, errors.Unknown, "failed to evict cache entries")
			}
		}
	}

	_, err = c.db.ExecContext(ctx, `
	INSERT OR REPLACE INTO evaluations (key, value, expires_at, created_at, accessed_at, size)
	VALUES (?, ?, ?, ?, ?, ?)
	`, key, value, expiresAt, now.UnixNano(), now.UnixNano(), size)
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to write cache entry")
	}

	atomic.AddInt64(&c.stats.Sets, 1)
	if exists {
		atomic.AddInt64(&c.stats.Size, size-existingSize)
	} else {
		atomic.AddInt64(&c.stats.Size, size)
	}
	c.mu.Lock()
	c.stats.LastAccess = now
	c.mu.Unlock()
	return nil
}

func (c *SQLiteCache) Delete(ctx context.Context, key string) error {
	var size int64
	err := c.db.QueryRowContext(ctx, `SELECT size FROM evaluations WHERE key = ?`, key).Scan(&size)
	if err != nil && err != sql.ErrNoRows {
		return errors.Wrap(err, errors.Unknown, "failed to read cache entry size")
	}

	result, err := c.db.ExecContext(ctx, `DELETE FROM evaluations WHERE key = ?`, key)
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to delete cache entry")
	}

	if affected, _ := result.RowsAffected(); affected > 0 {
		atomic.AddInt64(&c.stats.Deletes, 1)
		atomic.AddInt64(&c.stats.Size, -size)
	}
	return nil
}

func (c *SQLiteCache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM evaluations`); err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to clear cache")
	}

	atomic.StoreInt64(&c.stats.Hits, 0)
	atomic.StoreInt64(&c.stats.Misses, 0)
	atomic.StoreInt64(&c.stats.Sets, 0)
	atomic.StoreInt64(&c.stats.Deletes, 0)
	atomic.StoreInt64(&c.stats.Size, 0)

	if _, err := c.db.Exec("VACUUM"); err != nil {
		c.logger.Warn(ctx, "failed to vacuum after clear: %v", err)
	}
	return nil
}

func (c *SQLiteCache) Stats() Stats {
	c.mu.RLock()
	lastAccess := c.stats.LastAccess
	c.mu.RUnlock()

	return Stats{
		Hits:       atomic.LoadInt64(&c.stats.Hits),
		Misses:     atomic.LoadInt64(&c.stats.Misses),
		Sets:       atomic.LoadInt64(&c.stats.Sets),
		Deletes:    atomic.LoadInt64(&c.stats.Deletes),
		Size:       atomic.LoadInt64(&c.stats.Size),
		MaxSize:    c.config.MaxSize,
		LastAccess: lastAccess,
	}
}

func (c *SQLiteCache) Close() error {
	close(c.closeChan)
	c.cleanupWG.Wait()
	c.vacuumWG.Wait()
	return c.db.Close()
}

// evictEntries removes the least recently accessed rows until the new value
// fits under MaxSize.
func (c *SQLiteCache) evictEntries(ctx context.Context, neededSpace int64) error {
	for {
		if atomic.LoadInt64(&c.stats.Size)+neededSpace <= c.config.MaxSize {
			return nil
		}

		var oldestKey string
		var oldestSize int64
		err := c.db.QueryRowContext(ctx,
			`SELECT key, size FROM evaluations ORDER BY accessed_at ASC LIMIT 1`).
			Scan(&oldestKey, &oldestSize)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return err
		}

		result, err := c.db.ExecContext(ctx, `DELETE FROM evaluations WHERE key = ?`, oldestKey)
		if err != nil {
			return err
		}
		if affected, _ := result.RowsAffected(); affected > 0 {
			atomic.AddInt64(&c.stats.Size, -oldestSize)
		} else {
			return nil
		}
	}
}

func (c *SQLiteCache) cleanupRoutine() {
	defer c.cleanupWG.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.closeChan:
			return
		case <-ticker.C:
			c.cleanupExpired()
		}
	}
}

func (c *SQLiteCache) cleanupExpired() {
	now := time.Now().UnixNano()

	var expiredSize int64
	if err := c.db.QueryRow(
		`SELECT COALESCE(SUM(size), 0) FROM evaluations WHERE expires_at > 0 AND expires_at < ?`,
		now).Scan(&expiredSize); err != nil {
		c.logger.Warn(context.Background(), "failed to sum expired cache entries: %v", err)
		return
	}
	if expiredSize == 0 {
		return
	}

	result, err := c.db.Exec(`DELETE FROM evaluations WHERE expires_at > 0 AND expires_at < ?`, now)
	if err != nil {
		c.logger.Warn(context.Background(), "failed to delete expired cache entries: %v", err)
		return
	}
	if affected, _ := result.RowsAffected(); affected > 0 {
		atomic.AddInt64(&c.stats.Size, -expiredSize)
	}
}

func (c *SQLiteCache) vacuumRoutine() {
	defer c.vacuumWG.Done()

	ticker := time.NewTicker(c.config.SQLite.VacuumInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.closeChan:
			return
		case <-ticker.C:
			if _, err := c.db.Exec("VACUUM"); err != nil {
				c.logger.Warn(context.Background(), "failed to vacuum cache database: %v", err)
			}
		}
	}
}

func (c *SQLiteCache) loadStats() {
	var totalSize int64
	if err := c.db.QueryRow(`SELECT COALESCE(SUM(size), 0) FROM evaluations`).Scan(&totalSize); err != nil {
		c.logger.Warn(context.Background(), "failed to load cache size: %v", err)
		return
	}
	atomic.StoreInt64(&c.stats.Size, totalSize)
}
