package cache

import (
	"context"
	"sync"
	"time"

	"github.com/evosearch/demova/pkg/errors"
)

// MemoryCache is an in-memory cache with LRU eviction, suitable for a single
// search process.
type MemoryCache struct {
	config    Config
	mu        sync.Mutex
	entries   map[string]*memoryEntry
	lru       *lruList
	stats     Stats
	closeChan chan struct{}
	cleanupWG sync.WaitGroup
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
	size      int64
	element   *lruElement
}

// Intrusive doubly-linked LRU list with sentinel head/tail.
type lruElement struct {
	key  string
	prev *lruElement
	next *lruElement
}

type lruList struct {
	head *lruElement
	tail *lruElement
	size int
}

func newLRUList() *lruList {
	head := &lruElement{}
	tail := &lruElement{}
	head.next = tail
	tail.prev = head
	return &lruList{head: head, tail: tail}
}

func (l *lruList) moveToFront(elem *lruElement) {
	if elem.prev == l.head {
		return
	}
	elem.prev.next = elem.next
	elem.next.prev = elem.prev
	elem.prev = l.head
	elem.next = l.head.next
	l.head.next.prev = elem
	l.head.next = elem
}

func (l *lruList) pushFront(key string) *lruElement {
	elem := &lruElement{key: key}
	elem.prev = l.head
	elem.next = l.head.next
	l.head.next.prev = elem
	l.head.next = elem
	l.size++
	return elem
}

func (l *lruList) remove(elem *lruElement) {
	elem.prev.next = elem.next
	elem.next.prev = elem.prev
	l.size--
}

func (l *lruList) back() *lruElement {
	if l.tail.prev == l.head {
		return nil
	}
	return l.tail.prev
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(config Config) (*MemoryCache, error) {
	if config.Memory.CleanupInterval == 0 {
		config.Memory.CleanupInterval = time.Minute
	}
	c := &MemoryCache{
		config:    config,
		entries:   make(map[string]*memoryEntry),
		lru:       newLRUList(),
		closeChan: make(chan struct{}),
		stats:     Stats{MaxSize: config.MaxSize},
	}

	c.cleanupWG.Add(1)
	go c.cleanupRoutine()

	return c, nil
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		c.stats.Misses++
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		c.lru.remove(entry.element)
		c.stats.Size -= entry.size
		c.stats.Misses++
		return nil, false, nil
	}

	c.lru.moveToFront(entry.element)
	c.stats.Hits++
	c.stats.LastAccess = time.Now()
	return entry.value, true, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	size := int64(len(value))
	if c.config.MaxSize > 0 && size > c.config.MaxSize {
		return errors.WithFields(
			errors.New(errors.InvalidInput, "value exceeds maximum cache size"),
			errors.Fields{"size": size, "max_size": c.config.MaxSize})
	}

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	} else if c.config.DefaultTTL > 0 {
		expiresAt = time.Now().Add(c.config.DefaultTTL)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, exists := c.entries[key]; exists {
		c.stats.Size += size - existing.size
		existing.value = value
		existing.size = size
		existing.expiresAt = expiresAt
		c.lru.moveToFront(existing.element)
	} else {
		if c.config.MaxSize > 0 && c.stats.Size+size > c.config.MaxSize {
			c.evictLRU(size)
		}
		c.entries[key] = &memoryEntry{
			value:     value,
			expiresAt: expiresAt,
			size:      size,
			element:   c.lru.pushFront(key),
		}
		c.stats.Size += size
	}

	c.stats.Sets++
	c.stats.LastAccess = time.Now()
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, exists := c.entries[key]; exists {
		delete(c.entries, key)
		c.lru.remove(entry.element)
		c.stats.Size -= entry.size
		c.stats.Deletes++
	}
	return nil
}

func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*memoryEntry)
	c.lru = newLRUList()
	c.stats = Stats{MaxSize: c.config.MaxSize}
	return nil
}

func (c *MemoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *MemoryCache) Close() error {
	close(c.closeChan)
	c.cleanupWG.Wait()
	return nil
}

// evictLRU drops entries from the cold end until the new value fits.
// Callers hold the mutex.
func (c *MemoryCache) evictLRU(neededSpace int64) {
	target := c.config.MaxSize - neededSpace
	for c.stats.Size > target && c.lru.size > 0 {
		elem := c.lru.back()
		if elem == nil {
			break
		}
		if entry, exists := c.entries[elem.key]; exists {
			delete(c.entries, elem.key)
			c.lru.remove(elem)
			c.stats.Size -= entry.size
		}
	}
}

func (c *MemoryCache) cleanupRoutine() {
	defer c.cleanupWG.Done()

	ticker := time.NewTicker(c.config.Memory.CleanupInterval)
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

func (c *MemoryCache) cleanupExpired() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, entry := range c.entries {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			delete(c.entries, key)
			c.lru.remove(entry.element)
			c.stats.Size -= entry.size
		}
	}
}
