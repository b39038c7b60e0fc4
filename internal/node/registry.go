package node

import (
	"hash/fnv"
	"sync"

	"github.com/bayardsearch/bayard/internal/engine"
)

// Key identifies one local shard engine: an (index_name, shard_id) pair.
type Key struct {
	IndexName string
	ShardID   string
}

const registryBuckets = 16

// registry is the concurrent map of per-(index, shard) engines. The
// reconciler and request handlers both hit it at high frequency, so it is
// bucketed with a per-bucket RWMutex rather than guarded by one global
// lock; buckets are picked by the FNV-1a hash of the (index, shard) key.
type registry struct {
	buckets [registryBuckets]bucket
}

type bucket struct {
	mu sync.RWMutex
	m  map[Key]*engine.Engine
}

func newRegistry() *registry {
	r := &registry{}
	for i := range r.buckets {
		r.buckets[i].m = make(map[Key]*engine.Engine)
	}
	return r
}

func (r *registry) bucketFor(k Key) *bucket {
	h := fnv.New32a()
	h.Write([]byte(k.IndexName))
	h.Write([]byte{0})
	h.Write([]byte(k.ShardID))
	return &r.buckets[h.Sum32()%registryBuckets]
}

func (r *registry) Get(k Key) (*engine.Engine, bool) {
	b := r.bucketFor(k)
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.m[k]
	return e, ok
}

func (r *registry) Store(k Key, e *engine.Engine) {
	b := r.bucketFor(k)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.m[k] = e
}

// Delete removes and returns the engine for k, if present.
func (r *registry) Delete(k Key) (*engine.Engine, bool) {
	b := r.bucketFor(k)
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.m[k]
	if ok {
		delete(b.m, k)
	}
	return e, ok
}

// KeysForIndex returns every key currently held whose IndexName matches.
func (r *registry) KeysForIndex(indexName string) []Key {
	var out []Key
	for i := range r.buckets {
		b := &r.buckets[i]
		b.mu.RLock()
		for k := range b.m {
			if k.IndexName == indexName {
				out = append(out, k)
			}
		}
		b.mu.RUnlock()
	}
	return out
}

// Keys returns every key currently held, across all indices.
func (r *registry) Keys() []Key {
	var out []Key
	for i := range r.buckets {
		b := &r.buckets[i]
		b.mu.RLock()
		for k := range b.m {
			out = append(out, k)
		}
		b.mu.RUnlock()
	}
	return out
}
