package cache

import (
	"context"
	"math"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/evosearch/demova/pkg/demography"
	"github.com/evosearch/demova/pkg/engines"
)

// CachedEngine wraps a fitness engine with memoization. Evaluate is pure by
// the engines.Engine contract, so a hit can be served without staleness
// concerns.
type CachedEngine struct {
	inner   engines.Engine
	cache   Cache
	keys    *KeyGenerator
	ttl     time.Duration
	enabled atomic.Bool
}

// CachedEngineOption adjusts a CachedEngine.
type CachedEngineOption func(*CachedEngine)

// WithTTL bounds how long results stay cached; zero keeps them until
// evicted.
func WithTTL(ttl time.Duration) CachedEngineOption {
	return func(e *CachedEngine) { e.ttl = ttl }
}

// WithKeyPrefix sets a custom cache key prefix.
func WithKeyPrefix(prefix string) CachedEngineOption {
	return func(e *CachedEngine) { e.keys = NewKeyGenerator(prefix) }
}

// NewCachedEngine wraps inner with the given cache.
func NewCachedEngine(inner engines.Engine, cache Cache, opts ...CachedEngineOption) *CachedEngine {
	e := &CachedEngine{
		inner: inner,
		cache: cache,
		keys:  NewKeyGenerator(""),
	}
	e.enabled.Store(true)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *CachedEngine) Name() string { return e.inner.Name() }

// Evaluate serves the log-likelihood from the cache when possible and
// delegates to the wrapped engine otherwise. Cache trouble never fails an
// evaluation; the engine result always wins.
func (e *CachedEngine) Evaluate(ctx context.Context, model *demography.Model, values map[string]demography.Value, grid []int) (float64, error) {
	if !e.enabled.Load() || e.cache == nil {
		return e.inner.Evaluate(ctx, model, values, grid)
	}

	key := e.keys.Key(e.inner.Name(), grid, model, values)
	if data, found, err := e.cache.Get(ctx, key); found && err == nil {
		if ll, ok := decodeFloat(data); ok {
			return ll, nil
		}
	}

	ll, err := e.inner.Evaluate(ctx, model, values, grid)
	if err != nil {
		return 0, err
	}
	_ = e.cache.Set(ctx, key, encodeFloat(ll), e.ttl)
	return ll, nil
}

// SetEnabled toggles memoization at runtime.
func (e *CachedEngine) SetEnabled(enabled bool) { e.enabled.Store(enabled) }

// Stats reports the underlying cache counters.
func (e *CachedEngine) Stats() Stats {
	if e.cache == nil {
		return Stats{}
	}
	return e.cache.Stats()
}

// Close closes the underlying cache.
func (e *CachedEngine) Close() error {
	if e.cache == nil {
		return nil
	}
	return e.cache.Close()
}

// Float payloads are stored as their exact bit pattern in decimal form, so
// the round trip is lossless.
func encodeFloat(x float64) []byte {
	return []byte(strconv.FormatUint(math.Float64bits(x), 16))
}

func decodeFloat(data []byte) (float64, bool) {
	bits, err := strconv.ParseUint(string(data), 16, 64)
	if err != nil {
		return 0, false
	}
	return math.Float64frombits(bits), true
}
