// keys.go: generic cache key fingerprinting
//
// Copyright (c) 2026 cacheforge
// SPDX-License-Identifier: MPL-2.0

package wtlfu

import "github.com/dolthub/maphash"

// Fingerprinter lets a key type override the cache's default hashing with
// its own 64-bit identity. Most keys never need this; it exists for cases
// like testing fingerprint-collision handling, where several distinct
// keys must deliberately share one fingerprint, per spec.md §8's S4.
type Fingerprinter interface {
	Fingerprint() uint64
}

// keyHasher turns a Cache's comparable key type into the 64-bit
// fingerprint the policy, shards and timer wheel index by. It wraps
// dolthub/maphash's generic Hasher[K], which hashes the key's raw memory
// representation directly (no fmt.Sprintf/string round-trip), keeping
// Get/Set on the hot path allocation-free for ordinary key types (ints,
// strings, small structs) — a different, cheaper derivation than the
// Group memoizer's structural multi-argument hashing (see memoize.go),
// since a Cache key is always a single already-comparable value. Keys
// implementing Fingerprinter bypass maphash entirely.
type keyHasher[K comparable] struct {
	h maphash.Hasher[K]
}

func newKeyHasher[K comparable]() keyHasher[K] {
	return keyHasher[K]{h: maphash.NewHasher[K]()}
}

func (kh keyHasher[K]) fingerprint(key K) uint64 {
	if fp, ok := any(key).(Fingerprinter); ok {
		return fp.Fingerprint()
	}
	return spread(kh.h.Hash(key))
}
