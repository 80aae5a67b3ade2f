// readbuffer.go: striped lossy read-access buffer
//
// Copyright (c) 2026 cacheforge
// SPDX-License-Identifier: MPL-2.0

package wtlfu

import (
	"runtime"
	"sync"
)

// stripeCapacity is the number of fingerprints a single stripe holds
// before it is considered full and ready to drain into the policy, per
// spec.md §4.7 and theine/striped_buffer.py's fixed ring size.
const stripeCapacity = 16

// readBuffer is a striped, lossy recorder of read accesses: Get calls
// record a fingerprint here instead of taking the policy lock directly,
// so concurrent readers on different keys rarely contend with each
// other or with the maintenance goroutine. A stripe that is already
// locked drops the record rather than blocking, matching theine's
// StripedBuffer.add try-lock-or-skip behavior — losing an occasional
// read sample only blurs the LFU estimate slightly, per spec.md §4.7's
// "recency/frequency signal may be approximate" note.
type readBuffer struct {
	stripes []*rbStripe
	mask    uint64
}

type rbStripe struct {
	mu  sync.Mutex
	buf []uint64
}

// newReadBuffer sizes the stripe count off the CPU count the way
// theine's StripedBuffer does (next power of two, floor 4, ceiling 64),
// trading memory for reduced contention under wide parallel Get load.
func newReadBuffer() *readBuffer {
	n := nextPow2(uint64(runtime.GOMAXPROCS(0)))
	if n < 4 {
		n = 4
	}
	if n > 64 {
		n = 64
	}
	rb := &readBuffer{
		stripes: make([]*rbStripe, n),
		mask:    n - 1,
	}
	for i := range rb.stripes {
		rb.stripes[i] = &rbStripe{buf: make([]uint64, 0, stripeCapacity)}
	}
	return rb
}

// add records fp in its stripe, returning a drained batch if the stripe
// just filled up. The caller is expected to hand a non-nil result to
// policy.access under the policy lock.
func (rb *readBuffer) add(fp uint64) []uint64 {
	s := rb.stripes[spread(fp)&rb.mask]
	if !s.mu.TryLock() {
		return nil
	}
	defer s.mu.Unlock()

	s.buf = append(s.buf, fp)
	if len(s.buf) < stripeCapacity {
		return nil
	}
	drained := make([]uint64, len(s.buf))
	copy(drained, s.buf)
	s.buf = s.buf[:0]
	return drained
}

// drainAll force-drains every stripe regardless of fill level, used by
// maintenance sweeps and tests that need the buffer's contents visible
// to the policy immediately.
func (rb *readBuffer) drainAll() []uint64 {
	var out []uint64
	for _, s := range rb.stripes {
		s.mu.Lock()
		if len(s.buf) > 0 {
			out = append(out, s.buf...)
			s.buf = s.buf[:0]
		}
		s.mu.Unlock()
	}
	return out
}
