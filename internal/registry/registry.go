package registry

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/KeystonCloud/satellite/internal/model"
)

// ErrNotFound is returned when heartbeating a node that is not registered.
var ErrNotFound = errors.New("node not found")

type Registry struct {
	mu    sync.RWMutex
	nodes map[string]model.NodeRecord
	now   func() time.Time
}

type Option func(*Registry)

// WithClock overrides the time source used for heartbeat timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

func New(opts ...Option) *Registry {
	r := &Registry{
		nodes: make(map[string]model.NodeRecord),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register inserts or replaces the record for id. The node is immediately
// visible to Snapshot and Live.
func (r *Registry) Register(id string, addr model.Address) model.NodeRecord {
	rec := model.NodeRecord{ID: id, Address: addr, LastHeartbeat: r.now()}

	r.mu.Lock()
	r.nodes[id] = rec
	r.mu.Unlock()

	return rec
}

// Heartbeat refreshes the last-heartbeat time of a registered node. The
// timestamp never moves backwards.
func (r *Registry) Heartbeat(id string) (model.NodeRecord, error) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.nodes[id]
	if !ok {
		return model.NodeRecord{}, ErrNotFound
	}
	if now.After(rec.LastHeartbeat) {
		rec.LastHeartbeat = now
		r.nodes[id] = rec
	}
	return rec, nil
}

// Snapshot returns a copy of every registered record, ordered by ID. The
// result may be stale by the time the caller acts on it.
func (r *Registry) Snapshot() []model.NodeRecord {
	r.mu.RLock()
	out := make([]model.NodeRecord, 0, len(r.nodes))
	for _, rec := range r.nodes {
		out = append(out, rec)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Live returns the records whose last heartbeat is within threshold. Entries
// that went stale since the last sweep are excluded even if not yet evicted.
func (r *Registry) Live(threshold time.Duration) []model.NodeRecord {
	now := r.now()
	all := r.Snapshot()

	live := all[:0]
	for _, rec := range all {
		if rec.Age(now) <= threshold {
			live = append(live, rec)
		}
	}
	return live
}

// Get returns the record for id.
func (r *Registry) Get(id string) (model.NodeRecord, bool) {
	r.mu.RLock()
	rec, ok := r.nodes[id]
	r.mu.RUnlock()
	return rec, ok
}

// Evict removes id and reports whether it was present.
func (r *Registry) Evict(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.nodes[id]; !ok {
		return false
	}
	delete(r.nodes, id)
	return true
}

// EvictIfStale removes id only if its current record, read under the write
// lock, is older than threshold at now. A heartbeat that landed after the
// caller's snapshot keeps the node alive.
func (r *Registry) EvictIfStale(id string, threshold time.Duration, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.nodes[id]
	if !ok || rec.Age(now) <= threshold {
		return false
	}
	delete(r.nodes, id)
	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// Now returns the registry's notion of the current time.
func (r *Registry) Now() time.Time {
	return r.now()
}
