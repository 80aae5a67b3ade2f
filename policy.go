// policy.go: single-threaded Window-TinyLFU admission/eviction policy
//
// Copyright (c) 2026 cacheforge
// SPDX-License-Identifier: MPL-2.0

package wtlfu

// writeRecord is the unit of work the write buffer hands to the policy: a
// fingerprint plus a TTL in nanoseconds, using the write buffer's own
// sentinels (0 = no TTL, -1 = delete), per spec.md §3 and §4.8.
type writeRecord struct {
	fp  uint64
	ttl int64
}

// policy is the single-threaded W-TinyLFU admission/eviction state
// machine. Every method must be called with the owning cache's policy
// lock held; the type itself does no locking, matching
// agilira-metis/wtinylfu.go's shard-owns-the-mutex split between data
// structure and concurrency wrapper.
type policy struct {
	capacity     int64
	windowCap    int
	protectedCap int

	arena      *nodeArena
	window     *segList
	probation  *segList
	protected  *segList
	sketch     *sketch
	wheel      *timerWheel
	rngState   uint64
	nowNs      func() int64
}

func newPolicy(capacity int64, nowNs func() int64) *policy {
	if capacity < 1 {
		capacity = 1
	}
	windowCap := int(capacity / 100)
	if windowCap < 1 {
		windowCap = 1
	}
	mainCap := int(capacity) - windowCap
	if mainCap < 0 {
		mainCap = 0
	}
	protectedCap := mainCap * 80 / 100

	arena := newNodeArena(int(capacity))
	return &policy{
		capacity:     capacity,
		windowCap:    windowCap,
		protectedCap: protectedCap,
		arena:        arena,
		window:       newSegList(arena),
		probation:    newSegList(arena),
		protected:    newSegList(arena),
		sketch:       newSketch(capacity),
		wheel:        newTimerWheel(arena, nowNs()),
		rngState:     uint64(nowNs()) | 1,
		nowNs:        nowNs,
	}
}

func (p *policy) total() int {
	return p.window.len() + p.probation.len() + p.protected.len()
}

func (p *policy) nextRand() uint64 {
	p.rngState ^= p.rngState << 13
	p.rngState ^= p.rngState >> 7
	p.rngState ^= p.rngState << 17
	return p.rngState
}

// access records fingerprints sampled off the read buffer: each known node
// is recorded in the sketch and promoted/touched according to its current
// segment, per spec.md §4.4. Unknown fingerprints (evicted since the read
// buffer captured them) are silently ignored.
func (p *policy) access(fps []uint64) {
	for _, fp := range fps {
		idx, ok := p.arena.find(fp)
		if !ok {
			continue
		}
		p.sketch.record(fp)
		p.touch(idx)
	}
}

// touch applies the segment-specific promotion rule for a re-accessed
// node: Window entries move to front, Probation entries promote into
// Protected (demoting Protected's tail back to Probation's front if that
// overflows protectedCap), and Protected entries move to front.
func (p *policy) touch(idx int32) {
	n := p.arena.get(idx)
	switch n.segment {
	case segWindow:
		p.window.moveToFront(idx)
	case segProbation:
		p.probation.remove(idx)
		n.segment = segProtected
		p.protected.pushFront(idx)
		if p.protected.len() > p.protectedCap {
			demoted := p.protected.popBack()
			p.arena.get(demoted).segment = segProbation
			p.probation.pushFront(demoted)
		}
	case segProtected:
		p.protected.moveToFront(idx)
	}
}

// set applies a drained batch of write-buffer records and returns the
// fingerprints of any nodes evicted as a result, per spec.md §4.4.
func (p *policy) set(records []writeRecord) []uint64 {
	var evicted []uint64
	for _, rec := range records {
		if rec.ttl == -1 {
			p.delete(rec.fp)
			continue
		}
		p.sketch.record(rec.fp)

		if idx, ok := p.arena.find(rec.fp); ok {
			p.rescheduleTTL(idx, rec.ttl)
			p.touch(idx)
			continue
		}

		idx := p.arena.alloc(rec.fp)
		p.arena.get(idx).segment = segWindow
		p.window.pushFront(idx)
		if rec.ttl > 0 {
			p.wheel.insert(idx, p.nowNs()+rec.ttl)
		}

		if p.window.len() > p.windowCap {
			v := p.window.popBack()
			p.arena.get(v).segment = segProbation
			p.probation.pushFront(v)

			if p.total() > int(p.capacity) {
				if victim := p.selectVictim(v); victim != nilIdx {
					fp := p.arena.get(victim).fp
					p.removeFromSegment(victim)
					p.wheel.cancel(victim)
					p.arena.release(victim)
					evicted = append(evicted, fp)
				}
			}
		}
	}
	return evicted
}

// selectVictim runs the TinyLFU admission test between the window-evicted
// candidate v (now sitting at Probation's front) and Probation's LRU tail
// p: the entry with the lower estimated frequency is evicted. Exact ties
// are broken with a small amount of randomness, per spec.md §4.4.
func (p *policy) selectVictim(v int32) int32 {
	tail := p.probation.back()
	if tail == nilIdx || tail == v {
		return v
	}
	cFreq := p.sketch.estimate(p.arena.get(v).fp)
	pFreq := p.sketch.estimate(p.arena.get(tail).fp)
	switch {
	case cFreq > pFreq:
		return tail
	case cFreq < pFreq:
		return v
	default:
		if p.nextRand()&1 == 0 {
			return v
		}
		return tail
	}
}

func (p *policy) removeFromSegment(idx int32) {
	switch p.arena.get(idx).segment {
	case segWindow:
		p.window.remove(idx)
	case segProbation:
		p.probation.remove(idx)
	case segProtected:
		p.protected.remove(idx)
	}
}

func (p *policy) rescheduleTTL(idx int32, ttl int64) {
	if ttl <= 0 {
		p.wheel.cancel(idx)
		p.arena.get(idx).expireNs = 0
		return
	}
	p.wheel.reschedule(idx, p.nowNs()+ttl)
}

// delete removes a node (if present) from its segment and the timer
// wheel, per spec.md §4.4.
func (p *policy) delete(fp uint64) {
	idx, ok := p.arena.find(fp)
	if !ok {
		return
	}
	p.removeFromSegment(idx)
	p.wheel.cancel(idx)
	p.arena.release(idx)
}

// advance asks the timer wheel for every node whose deadline has passed
// and removes them from their segment, returning their fingerprints so the
// caller can evict them from the owning shards.
func (p *policy) advance() []uint64 {
	expired := p.wheel.advance(p.nowNs())
	for _, fp := range expired {
		if idx, ok := p.arena.find(fp); ok {
			p.removeFromSegment(idx)
			p.arena.release(idx)
		}
	}
	return expired
}

func (p *policy) clear() {
	p.window.clear()
	p.probation.clear()
	p.protected.clear()
	p.wheel.clear()
	p.arena.clear()
	p.sketch = newSketch(p.capacity)
}
