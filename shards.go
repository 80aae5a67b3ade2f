// shards.go: the fixed array of shards a Cache spreads its keys across
//
// Copyright (c) 2026 cacheforge
// SPDX-License-Identifier: MPL-2.0

package wtlfu

import "runtime"

// shardCount picks a power of two between 16 and 128, the next power of
// two above GOMAXPROCS and clamped to that range, per spec.md §4.6.
func shardCount() int {
	n := runtime.GOMAXPROCS(0)
	c := 16
	for c < n && c < 128 {
		c <<= 1
	}
	if c < 16 {
		c = 16
	}
	if c > 128 {
		c = 128
	}
	return c
}

// shardMap is the fixed array of shards a cache spreads its keys across.
// Shard selection masks the low bits of the already-spread fingerprint
// (hash.go's spread mixes entropy across the whole word first), matching
// agilira-metis's shard-index derivation.
type shardMap[K comparable, V any] struct {
	shards []*shard[K, V]
	mask   uint64
}

func newShardMap[K comparable, V any](capacityHint int64, shardHint int, noLock bool) *shardMap[K, V] {
	n := shardHint
	if n <= 0 {
		n = shardCount()
	} else {
		n = int(nextPow2(uint64(n)))
	}
	perShardHint := int(capacityHint) / n
	if perShardHint < 1 {
		perShardHint = 1
	}
	sm := &shardMap[K, V]{
		shards: make([]*shard[K, V], n),
		mask:   uint64(n - 1),
	}
	for i := range sm.shards {
		sm.shards[i] = newShard[K, V](perShardHint, noLock)
	}
	return sm
}

func (sm *shardMap[K, V]) forFP(fp uint64) *shard[K, V] {
	return sm.shards[fp&sm.mask]
}

func (sm *shardMap[K, V]) len() int {
	total := 0
	for _, s := range sm.shards {
		total += s.len()
	}
	return total
}

func (sm *shardMap[K, V]) clear() {
	for _, s := range sm.shards {
		s.clear()
	}
}

// hitsMisses sums the per-shard atomic counters into a single snapshot.
func (sm *shardMap[K, V]) hitsMisses() (hits, misses uint64) {
	for _, s := range sm.shards {
		hits += s.hits.Load()
		misses += s.misses.Load()
	}
	return hits, misses
}
