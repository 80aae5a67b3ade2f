// cache_test.go: tests for the Cache[K, V] facade, including capacity/TTL/collision scenarios
//
// Copyright (c) 2026 cacheforge
// SPDX-License-Identifier: MPL-2.0

package wtlfu

import (
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"
)

// manualClock is a TimeProvider test double that advances only when told
// to, letting TTL tests assert expiry without sleeping.
type manualClock struct {
	ns atomic.Int64
}

func newManualClock(startNs int64) *manualClock {
	c := &manualClock{}
	c.ns.Store(startNs)
	return c
}

func (c *manualClock) Now() int64 { return c.ns.Load() }

func (c *manualClock) advance(d time.Duration) { c.ns.Add(int64(d)) }

func TestCache_New_RejectsNonPositiveCapacity(t *testing.T) {
	if _, err := New[string, string](0); err == nil {
		t.Fatalf("expected error for capacity 0")
	}
	if _, err := New[string, string](-1); err == nil {
		t.Fatalf("expected error for negative capacity")
	}
}

func TestCache_SetGetRoundTrip(t *testing.T) {
	c, err := New[string, string](10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if err := c.Set("a", "1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok := c.Get("a")
	if !ok || v != "1" {
		t.Fatalf("Get(a) = (%q, %v), want (1, true)", v, ok)
	}

	if err := c.Set("a", "2"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok = c.Get("a")
	if !ok || v != "2" {
		t.Fatalf("Get(a) after overwrite = (%q, %v), want (2, true)", v, ok)
	}
}

func TestCache_DeleteThenGetMisses(t *testing.T) {
	c, _ := New[string, string](10)
	defer c.Close()

	c.Set("a", "1")
	if !c.Delete("a") {
		t.Fatalf("expected Delete to report true")
	}
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected miss after delete")
	}
}

func TestCache_ClearEmptiesCache(t *testing.T) {
	c, _ := New[string, string](10)
	defer c.Close()

	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("key:%d", i), "v")
	}
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("Len() = %d after Clear, want 0", c.Len())
	}
}

func TestCache_SetRejectsZeroAndNegativeTTL(t *testing.T) {
	c, _ := New[string, string](10)
	defer c.Close()

	if err := c.Set("a", "1", 0); !IsInvalidTTL(err) {
		t.Fatalf("expected InvalidTTL for zero TTL, got %v", err)
	}
	if err := c.Set("a", "1", -time.Second); !IsInvalidTTL(err) {
		t.Fatalf("expected InvalidTTL for negative TTL, got %v", err)
	}
}

func TestCache_TTLExpiryMonotonicity(t *testing.T) {
	clock := newManualClock(0)
	c, _ := New[string, string](10, WithTimeProvider(clock))
	defer c.Close()

	if err := c.Set("a", "1", 5*time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("expected hit before expiry, got (%q, %v)", v, ok)
	}

	clock.advance(6 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected miss strictly after ttl has elapsed")
	}
}

// TestCache_S1_CapacityEnforcement reproduces the capacity-enforcement
// scenario: 20 keys fit comfortably under a capacity of 100, then 100 more
// distinct keys push total insertions past capacity, and after a force
// drain the live count is capped exactly at 100.
func TestCache_S1_CapacityEnforcement(t *testing.T) {
	c, err := New[string, string](100)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	for i := 0; i < 20; i++ {
		key := fmt.Sprintf("key:%d", i)
		if err := c.Set(key, key); err != nil {
			t.Fatalf("Set(%s): %v", key, err)
		}
	}
	for i := 0; i < 20; i++ {
		key := fmt.Sprintf("key:%d", i)
		if v, ok := c.Get(key); !ok || v != key {
			t.Fatalf("Get(%s) = (%q, %v), want (%s, true)", key, v, ok, key)
		}
	}

	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("key:%d:v2", i)
		c.Set(key, key)
	}
	c.ForceDrain()

	if got := c.Len(); got != 100 {
		t.Fatalf("Len() = %d after overfilling, want 100", got)
	}
}

// TestCache_S2_RandomSaturation reproduces the random-saturation scenario:
// far more random keys than capacity, capped exactly at capacity after a
// force drain.
func TestCache_S2_RandomSaturation(t *testing.T) {
	c, err := New[int, int](500)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100_000; i++ {
		k := rng.Int()
		c.Set(k, k)
	}
	c.ForceDrain()

	if got := c.Len(); got != 500 {
		t.Fatalf("Len() = %d after random saturation, want 500", got)
	}
}

// TestCache_S3_TTLExpiryWaves reproduces the TTL-expiry-waves scenario: a
// fast-expiring wave of keys (1..30s) alongside a slow-expiring wave
// (100..129s). After the fast wave has fully expired, only the slow wave
// remains live and every one of its keys is still a hit.
func TestCache_S3_TTLExpiryWaves(t *testing.T) {
	clock := newManualClock(0)
	c, err := New[string, string](500, WithTimeProvider(clock))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	for i := 0; i < 30; i++ {
		fast := fmt.Sprintf("key:%d", i)
		slow := fmt.Sprintf("key:%d:2", i)
		if err := c.Set(fast, fast, time.Duration(i+1)*time.Second); err != nil {
			t.Fatalf("Set(%s): %v", fast, err)
		}
		if err := c.Set(slow, slow, time.Duration(i+100)*time.Second); err != nil {
			t.Fatalf("Set(%s): %v", slow, err)
		}
	}
	c.ForceDrain()

	if got := c.Len(); got != 60 {
		t.Fatalf("Len() = %d immediately after the writes, want 60", got)
	}

	prev := c.Len()
	for elapsed := time.Duration(0); elapsed <= 31*time.Second; elapsed += 5 * time.Second {
		clock.advance(5 * time.Second)
		c.ForceDrain()
		if cur := c.Len(); cur > prev {
			t.Fatalf("Len() increased from %d to %d while the fast wave was expiring", prev, cur)
		}
		prev = c.Len()
		if prev <= 30 {
			break
		}
	}
	if prev > 30 {
		t.Fatalf("Len() = %d, want <= 30 once the fast wave has fully expired", prev)
	}

	for i := 0; i < 30; i++ {
		slow := fmt.Sprintf("key:%d:2", i)
		if v, ok := c.Get(slow); !ok || v != slow {
			t.Fatalf("Get(%s) = (%q, %v), want (%s, true)", slow, v, ok, slow)
		}
	}
}

// collisionKey is a user key type whose Fingerprint always reports the
// same value, deliberately colliding every instance into a single
// fingerprint bucket, per spec.md §8's S4.
type collisionKey struct {
	id int
}

func (collisionKey) Fingerprint() uint64 { return 0xC0111510 }

// TestCache_S4_FingerprintCollision reproduces the collision scenario:
// every key maps to the same fingerprint, so only the most recently set
// one can survive.
func TestCache_S4_FingerprintCollision(t *testing.T) {
	c, err := New[collisionKey, int](500)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	var last collisionKey
	for i := 0; i < 30; i++ {
		k := collisionKey{id: i}
		if err := c.Set(k, i, time.Duration(i+5)*time.Second); err != nil {
			t.Fatalf("Set(%v): %v", k, err)
		}
		last = k
	}
	c.ForceDrain()

	if got := c.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1 (every key shares one fingerprint)", got)
	}
	v, ok := c.Get(last)
	if !ok || v != last.id {
		t.Fatalf("Get(last) = (%d, %v), want (%d, true)", v, ok, last.id)
	}
}

func TestCache_StatsTracksHitsAndMisses(t *testing.T) {
	c, _ := New[string, string](10)
	defer c.Close()

	c.Set("a", "1")
	c.Get("a")      // hit
	c.Get("a")      // hit
	c.Get("missing") // miss

	stats := c.Stats()
	if stats.HitCount != 2 || stats.MissCount != 1 || stats.RequestCount != 3 {
		t.Fatalf("Stats() = %+v, want HitCount=2 MissCount=1 RequestCount=3", stats)
	}
	if stats.HitRate < 0.66 || stats.HitRate > 0.67 {
		t.Fatalf("HitRate = %v, want ~0.667", stats.HitRate)
	}
}

func TestCache_CloseStopsMaintenanceButNotOperations(t *testing.T) {
	c, _ := New[string, string](10)
	c.Close()
	c.Close() // idempotent

	if err := c.Set("a", "1"); err != nil {
		t.Fatalf("Set after Close: %v", err)
	}
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("Get after Close = (%q, %v), want (1, true)", v, ok)
	}
	if !c.Delete("a") {
		t.Fatalf("Delete after Close should still report true")
	}
}
