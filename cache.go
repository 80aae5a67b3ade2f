// cache.go: public Cache[K, V] facade wiring the shard map, policy and buffers
//
// Copyright (c) 2026 cacheforge
// SPDX-License-Identifier: MPL-2.0

package wtlfu

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stats is a snapshot of a Cache's running request counters, per spec.md
// §4.12.
type Stats struct {
	RequestCount uint64
	HitCount     uint64
	MissCount    uint64
	HitRate      float64
}

// Cache is an in-process, thread-safe key/value cache with bounded
// capacity, optional per-entry TTL, and Window-TinyLFU admission and
// eviction, per spec.md §1-§4. It wires together a sharded key map, a
// single-threaded policy, a striped lossy read buffer and a bounded
// write buffer exactly the way agilira-metis/wtinylfu.go's WTinyLFUCache
// wires its own shard/policy/pool split — generalized here to generic
// K/V and to the buffer-decoupled design spec.md §4.7-§4.9 calls for.
type Cache[K comparable, V any] struct {
	capacity int64
	hasher   keyHasher[K]

	shards   *shardMap[K, V]
	policy   *policy
	policyMu sync.Mutex
	readBuf  *readBuffer
	writeBuf *writeBuffer

	timeProvider TimeProvider
	logger       Logger

	closed  atomic.Bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// New constructs a Cache bounded to capacity entries. capacity must be
// greater than zero.
func New[K comparable, V any](capacity int64, opts ...Option) (*Cache[K, V], error) {
	if capacity < 1 {
		return nil, NewErrInvalidCapacity(capacity)
	}

	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}

	now := cfg.timeProvider.Now
	c := &Cache[K, V]{
		capacity:     capacity,
		hasher:       newKeyHasher[K](),
		shards:       newShardMap[K, V](capacity, cfg.shardHint, cfg.noLock),
		policy:       newPolicy(capacity, now),
		readBuf:      newReadBuffer(),
		writeBuf:     newWriteBuffer(),
		timeProvider: cfg.timeProvider,
		logger:       cfg.logger,
		closeCh:      make(chan struct{}),
	}

	c.wg.Add(1)
	go c.maintain()

	return c, nil
}

// Get looks up key, recording the access for the admission policy's
// frequency estimate. A successful lookup of an expired entry is treated
// as a miss and the entry is evicted on the spot, per spec.md §4.6.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	fp := c.hasher.fingerprint(key)
	sh := c.shards.forFP(fp)
	value, ok := sh.get(key, c.timeProvider.Now())
	if ok {
		if drained := c.readBuf.add(fp); drained != nil {
			c.policyMu.Lock()
			c.policy.access(drained)
			c.policyMu.Unlock()
		}
	}
	return value, ok
}

// Set stores key/value, with an optional TTL (omitted means no
// expiration). Set, Get and Delete all keep working after Close — only
// the background maintenance task (TTL sweeps, buffer force-drains)
// stops, per spec.md §4.10's Open→Closed state machine.
func (c *Cache[K, V]) Set(key K, value V, ttl ...time.Duration) error {
	var ttlNs int64
	if len(ttl) > 0 {
		// Absent means no expiration; an explicit zero or negative
		// duration is a caller error, per spec.md §4.12/§6 ("ttl is a
		// duration; absent or null means no expiration; zero → error;
		// negative → error").
		if ttl[0] <= 0 {
			return NewErrInvalidTTL(ttl[0])
		}
		ttlNs = ttl[0].Nanoseconds()
	}

	fp := c.hasher.fingerprint(key)
	now := c.timeProvider.Now()
	sh := c.shards.forFP(fp)
	sh.set(key, fp, value, ttlNs, now)

	c.applyWrite(writeRecord{fp: fp, ttl: ttlNs})
	return nil
}

// Delete removes key if present, returning whether it was.
func (c *Cache[K, V]) Delete(key K) bool {
	fp := c.hasher.fingerprint(key)
	sh := c.shards.forFP(fp)
	sh.mu.Lock()
	holder, ok := sh.byFP[fp]
	removed := ok && holder == key
	if removed {
		sh.deleteLocked(key)
	}
	sh.mu.Unlock()
	if removed {
		c.applyWrite(writeRecord{fp: fp, ttl: -1})
	}
	return removed
}

// applyWrite enqueues rec on the write buffer and, if that fills the
// buffer, applies the drained batch to the policy under the policy lock
// and evicts any resulting victims from their owning shards, per
// spec.md §4.8-§4.9.
func (c *Cache[K, V]) applyWrite(rec writeRecord) {
	drained := c.writeBuf.add(rec)
	if drained == nil {
		return
	}
	c.applyBatch(drained)
}

func (c *Cache[K, V]) applyBatch(batch []writeRecord) {
	c.policyMu.Lock()
	evicted := c.policy.set(batch)
	c.policyMu.Unlock()
	for _, fp := range evicted {
		c.shards.forFP(fp).remove(fp)
	}
}

// Clear empties the cache: every shard, the policy's segments, sketch
// and timer wheel, and both buffers.
func (c *Cache[K, V]) Clear() {
	c.writeBuf.drain()
	c.readBuf.drainAll()
	c.policyMu.Lock()
	c.policy.clear()
	c.policyMu.Unlock()
	c.shards.clear()
}

// ForceDrain flushes the write buffer and read buffer into the policy
// and advances the timer wheel immediately, without waiting for the next
// maintenance tick. Exposed for tests that need deterministic,
// synchronous-looking behavior after a burst of Sets, per spec.md §4.10's
// `_force_drain` test hook.
func (c *Cache[K, V]) ForceDrain() {
	c.sweep()
}

// Close stops the background maintenance goroutine. Get, Set and Delete
// keep working after Close; only the periodic TTL sweep and buffer
// force-drain stop running, per spec.md §4.10's Open→Closed state
// machine.
func (c *Cache[K, V]) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	close(c.closeCh)
	c.wg.Wait()
}

// Len returns the number of live entries across all shards.
func (c *Cache[K, V]) Len() int64 {
	return int64(c.shards.len())
}

// Stats returns a snapshot of the cache's hit/miss counters.
func (c *Cache[K, V]) Stats() Stats {
	hits, misses := c.shards.hitsMisses()
	total := hits + misses
	var rate float64
	if total > 0 {
		rate = float64(hits) / float64(total)
	}
	return Stats{
		RequestCount: total,
		HitCount:     hits,
		MissCount:    misses,
		HitRate:      rate,
	}
}

// maintain periodically drives the timer wheel forward, force-drains the
// write buffer so no pending update is stuck indefinitely behind a
// quiet period, and drains any partially-filled read stripes, per
// spec.md §4.9.
func (c *Cache[K, V]) maintain() {
	defer c.wg.Done()
	ticker := time.NewTicker(maintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.closeCh:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *Cache[K, V]) sweep() {
	if pending := c.writeBuf.drain(); pending != nil {
		c.applyBatch(pending)
	}
	if sampled := c.readBuf.drainAll(); sampled != nil {
		c.policyMu.Lock()
		c.policy.access(sampled)
		c.policyMu.Unlock()
	}

	c.policyMu.Lock()
	expired := c.policy.advance()
	c.policyMu.Unlock()

	now := c.timeProvider.Now()
	for _, fp := range expired {
		c.shards.forFP(fp).removeExpired(fp, now)
	}
}
