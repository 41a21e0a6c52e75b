// Package runner executes a pool of independent search runs: each worker
// owns one GA trajectory, publishes its best candidates into a shared
// registry, and a single supervisor polls the registry to report progress
// and pick the global winner.
package runner

import (
	"sort"
	"sync"

	"github.com/evosearch/demova/pkg/optimize"
)

// Entry pairs a run identifier with that run's current best candidate.
type Entry struct {
	Run       string
	Candidate *optimize.Candidate
}

// Registry is the shared best-candidate store. Each worker writes only under
// its own key; the supervisor reads snapshots. Values are stored and
// returned as independent copies, so no engine-internal state ever aliases
// the registry.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*optimize.Candidate
	order   []string // first-publication order, used as ranking tie-break
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*optimize.Candidate)}
}

// Publish stores a copy of the candidate under the run key. It implements
// optimize.BestSink.
func (r *Registry) Publish(key string, c *optimize.Candidate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, seen := r.entries[key]; !seen {
		r.order = append(r.order, key)
	}
	r.entries[key] = c.Clone()
}

// Get returns a copy of the current best for the run, if any.
func (r *Registry) Get(key string) (*optimize.Candidate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.entries[key]
	if !ok {
		return nil, false
	}
	return c.Clone(), true
}

// Len reports the number of runs that have published at least once.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Snapshot returns defensive copies of all entries in first-publication
// order. A snapshot of an empty registry is empty, not nil-unsafe.
func (r *Registry) Snapshot() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, Entry{Run: key, Candidate: r.entries[key].Clone()})
	}
	return out
}

// Ranked returns a snapshot sorted by fitness ascending (best first). Ties
// keep first-publication order, so the earliest run wins.
func (r *Registry) Ranked() []Entry {
	entries := r.Snapshot()
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Candidate.Fitness < entries[j].Candidate.Fitness
	})
	return entries
}
