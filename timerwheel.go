// timerwheel.go: hierarchical timer wheel for TTL expiration
//
// Copyright (c) 2026 cacheforge
// SPDX-License-Identifier: MPL-2.0

package wtlfu

import "time"

// timerWheel is a hierarchical timing wheel keyed by absolute deadline in
// nanoseconds, covering a bounded horizon with four cascading levels — the
// standard design spec.md §9's Open Questions section points implementers
// toward ("64-slot wheels at 1 s, 1 min, 1 h, 1 day") since no wheel
// implementation ships anywhere in the reference pack to copy directly.
//
// Each non-zero-TTL policyNode sits in exactly one (level, slot) bucket.
// advance walks the finest level one tick at a time; whenever a level's
// cursor completes a lap, the level above it advances one slot and that
// bucket is cascaded down — every node in it is re-inserted, which places
// it into a finer level now that its remaining delta is smaller.
type timerWheel struct {
	arena  *nodeArena
	levels [4]wheelLevel
	nowNs  int64
}

type wheelLevel struct {
	resolutionNs int64
	numSlots     int32
	slots        []int32 // head index per slot, nilIdx if empty
	cursor       int32
}

func newTimerWheel(a *nodeArena, nowNs int64) *timerWheel {
	mk := func(resolution time.Duration, slots int32) wheelLevel {
		return wheelLevel{
			resolutionNs: int64(resolution),
			numSlots:     slots,
			slots:        newSlotSlice(slots),
		}
	}
	return &timerWheel{
		arena: a,
		levels: [4]wheelLevel{
			mk(time.Second, 64),
			mk(time.Minute, 64),
			mk(time.Hour, 24),
			mk(24*time.Hour, 366),
		},
		nowNs: nowNs,
	}
}

func newSlotSlice(n int32) []int32 {
	s := make([]int32, n)
	for i := range s {
		s[i] = nilIdx
	}
	return s
}

// bucketPush / bucketRemove operate on the timerPrev/timerNext linkage,
// independent of the segment-list prev/next fields so a node can sit in a
// segment list and a timer bucket at once.
func (w *timerWheel) bucketPush(level int8, slot int32, idx int32) {
	n := w.arena.get(idx)
	n.wheelLevel = level
	n.wheelSlot = slot
	n.hasDeadline = true
	head := w.levels[level].slots[slot]
	n.timerPrev = nilIdx
	n.timerNext = head
	if head != nilIdx {
		w.arena.get(head).timerPrev = idx
	}
	w.levels[level].slots[slot] = idx
}

func (w *timerWheel) bucketRemove(idx int32) {
	n := w.arena.get(idx)
	if !n.hasDeadline {
		return
	}
	lvl, slot := n.wheelLevel, n.wheelSlot
	if n.timerPrev != nilIdx {
		w.arena.get(n.timerPrev).timerNext = n.timerNext
	} else {
		w.levels[lvl].slots[slot] = n.timerNext
	}
	if n.timerNext != nilIdx {
		w.arena.get(n.timerNext).timerPrev = n.timerPrev
	}
	n.timerPrev, n.timerNext = nilIdx, nilIdx
	n.hasDeadline = false
}

// insert places idx into the finest level whose span covers its
// deadline (the last level if none does), relative to the wheel's current
// cursor position in that level.
// Zero-TTL nodes (deadlineNs == 0) are never inserted, per spec.md §4.5.
func (w *timerWheel) insert(idx int32, deadlineNs int64) {
	if deadlineNs == 0 {
		return
	}
	delta := deadlineNs - w.nowNs
	if delta < 0 {
		delta = 0
	}
	for lvl := range w.levels {
		level := &w.levels[lvl]
		span := level.resolutionNs * int64(level.numSlots)
		last := lvl == len(w.levels)-1
		if delta < span || last {
			ticks := delta / level.resolutionNs
			// advance always increments the cursor before draining, so
			// slot 0 ticks ahead is the one just drained, not the next
			// one due; a deadline landing on it would sit unreaped for
			// a full lap instead of the next tick.
			if ticks < 1 {
				ticks = 1
			}
			if ticks >= int64(level.numSlots) {
				ticks = int64(level.numSlots) - 1
			}
			slot := (level.cursor + int32(ticks)) % level.numSlots
			w.arena.get(idx).expireNs = deadlineNs
			w.bucketPush(int8(lvl), slot, idx)
			return
		}
	}
}

// reschedule removes idx from its current bucket (if any) and re-inserts
// it at the new deadline.
func (w *timerWheel) reschedule(idx int32, deadlineNs int64) {
	w.bucketRemove(idx)
	w.arena.get(idx).expireNs = deadlineNs
	w.insert(idx, deadlineNs)
}

// cancel removes idx from the wheel entirely.
func (w *timerWheel) cancel(idx int32) {
	w.bucketRemove(idx)
}

// advance walks due buckets at the finest level up to nowNs, cascading a
// coarser level down each time the level below it completes a lap, and
// returns the
// fingerprints of every node whose deadline is now due.
func (w *timerWheel) advance(nowNs int64) []uint64 {
	var expired []uint64
	level0 := &w.levels[0]
	ticks := (nowNs - w.nowNs) / level0.resolutionNs
	if ticks <= 0 {
		return nil
	}
	// Cap a single call's work so a long-sleeping maintainer cannot spin
	// forever; any remaining ticks are caught on the next advance call.
	const maxTicksPerCall = int64(1) << 20
	if ticks > maxTicksPerCall {
		ticks = maxTicksPerCall
	}
	for i := int64(0); i < ticks; i++ {
		w.nowNs += level0.resolutionNs
		level0.cursor = (level0.cursor + 1) % level0.numSlots
		expired = w.drainBucket(0, level0.cursor, expired)
		if level0.cursor == 0 {
			w.cascade(1, &expired)
		}
	}
	return expired
}

// drainBucket pops every node in (level, slot), appending due fingerprints
// to out and releasing the node's bucket linkage. A node whose deadline is
// still ahead of the wheel's clock (insert rounds its delta down to whole
// ticks) is re-inserted instead of reported.
func (w *timerWheel) drainBucket(level int8, slot int32, out []uint64) []uint64 {
	idx := w.levels[level].slots[slot]
	for idx != nilIdx {
		next := w.arena.get(idx).timerNext
		n := w.arena.get(idx)
		n.timerPrev, n.timerNext = nilIdx, nilIdx
		n.hasDeadline = false
		if n.expireNs > w.nowNs {
			w.insert(idx, n.expireNs)
		} else {
			out = append(out, n.fp)
		}
		idx = next
	}
	w.levels[level].slots[slot] = nilIdx
	return out
}

// cascade advances a coarser level by one tick once the level below it
// wraps, re-inserting every node in the newly-current bucket so it lands
// in a finer level now that its remaining delta is smaller.
func (w *timerWheel) cascade(level int, expired *[]uint64) {
	if level >= len(w.levels) {
		return
	}
	lvl := &w.levels[level]
	lvl.cursor = (lvl.cursor + 1) % lvl.numSlots
	idx := lvl.slots[lvl.cursor]
	lvl.slots[lvl.cursor] = nilIdx
	for idx != nilIdx {
		next := w.arena.get(idx).timerNext
		n := w.arena.get(idx)
		n.timerPrev, n.timerNext = nilIdx, nilIdx
		n.hasDeadline = false
		deadline := n.expireNs
		if deadline <= w.nowNs {
			*expired = append(*expired, n.fp)
		} else {
			w.insert(idx, deadline)
		}
		idx = next
	}
	if lvl.cursor == 0 {
		w.cascade(level+1, expired)
	}
}

func (w *timerWheel) clear() {
	for i := range w.levels {
		w.levels[i].slots = newSlotSlice(w.levels[i].numSlots)
		w.levels[i].cursor = 0
	}
}
