// Package wtlfu implements an in-process, thread-safe key/value cache with
// bounded capacity, optional per-entry time-to-live, and a Window-TinyLFU
// (W-TinyLFU) admission/eviction policy.
//
// The engine is built from a fixed set of striped shards that hold the
// actual key/value pairs, plus a single-threaded admission/eviction policy
// fed through lossy striped read samples and a small coalesced write queue.
// A Get or Set touches the policy only when its read stripe or the write
// buffer fills, and then applies that whole batch of already applied
// operations under the policy lock, keeping the policy's own bookkeeping (a
// Count-Min Sketch and three segmented LRU lists) in sync with what the
// shards already show.
//
// A secondary facade, Group, wraps a producer function with single-flight
// deduplication: concurrent callers computing the same key observe exactly
// one invocation of the producer and share its result or its error.
//
// Package wtlfu carries no persistence, no wire format and no cross-process
// coherence; it is meant to be embedded directly in a single process.
//
// Copyright (c) 2026 cacheforge
// SPDX-License-Identifier: MPL-2.0
package wtlfu
