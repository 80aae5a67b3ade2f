// sketch.go: four-row Count-Min Sketch frequency estimator
//
// Copyright (c) 2026 cacheforge
// SPDX-License-Identifier: MPL-2.0

package wtlfu

// sketch is a four row Count-Min Sketch with 4-bit saturating counters,
// packed 16-to-a-word the way agilira-balios/sketch.go packs its single-row
// table, generalized here to the four independent rows spec'd for W-TinyLFU
// admission (see dgraph-io/ristretto's cmSketch for the classic single-row
// shape this extends).
//
// Each record halves every counter once the sample count crosses the
// reset threshold, giving the estimator exponential decay so that old
// popularity stops dominating fresh access patterns.
type sketch struct {
	rows           [4][]uint64 // each row holds width/16 packed words
	mask           uint64      // width-1, width is a power of two
	seeds          [4]uint64
	sample         int64
	resetThreshold int64
}

const (
	seed0 = 0x9e3779b97f4a7c15
	seed1 = 0xbf58476d1ce4e5b9
	seed2 = 0x94d049bb133111eb
	seed3 = 0xd6e8feb86659fd93
)

// newSketch builds a sketch sized off the cache capacity: width is the next
// power of two at least 10x capacity (clamped to a sensible floor), per
// spec.md §2 and §4.2.
func newSketch(capacity int64) *sketch {
	width := nextPow2(uint64(capacity) * 10)
	if width < 64 {
		width = 64
	}
	s := &sketch{
		mask:           width - 1,
		seeds:          [4]uint64{seed0, seed1, seed2, seed3},
		resetThreshold: int64(width),
	}
	words := width / 16
	if words < 1 {
		words = 1
	}
	for i := range s.rows {
		s.rows[i] = make([]uint64, words)
	}
	return s
}

func (s *sketch) index(fp uint64, row int) uint64 {
	h := spread(fp ^ s.seeds[row])
	return h & s.mask
}

// record increments the minimum-saturating counter for fp in every row and
// ages the whole sketch once the sample counter crosses resetThreshold.
func (s *sketch) record(fp uint64) {
	for row := range s.rows {
		idx := s.index(fp, row)
		word, shift := idx/16, (idx%16)*4
		counters := s.rows[row]
		v := (counters[word] >> shift) & 0xf
		if v < 15 {
			counters[word] += 1 << shift
		}
	}
	s.sample++
	if s.sample >= s.resetThreshold {
		s.reset()
	}
}

// estimate returns the minimum counter across the four rows, the standard
// Count-Min Sketch frequency estimator.
func (s *sketch) estimate(fp uint64) uint8 {
	min := uint8(15)
	for row := range s.rows {
		idx := s.index(fp, row)
		word, shift := idx/16, (idx%16)*4
		v := uint8((s.rows[row][word] >> shift) & 0xf)
		if v < min {
			min = v
		}
	}
	return min
}

// reset halves every counter, providing aging/decay.
func (s *sketch) reset() {
	for row := range s.rows {
		counters := s.rows[row]
		for i := range counters {
			counters[i] = (counters[i] >> 1) & 0x7777777777777777
		}
	}
	s.sample = 0
}

// nextPow2 rounds v up to the next power of two, matching the mechanism
// used across the pack (agilira-balios/sketch.go's nextPowerOf2,
// theine/utils.py's round_up_power_of_2).
func nextPow2(v uint64) uint64 {
	if v == 0 {
		return 1
	}
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v |= v >> 32
	v++
	return v
}
