// memoize.go: variadic-argument memoization helper built on Group
//
// Copyright (c) 2026 cacheforge
// SPDX-License-Identifier: MPL-2.0

package wtlfu

import (
	"fmt"
	"reflect"

	"github.com/dolthub/maphash"
)

// structuralSeed is fixed once per process so StructuralKey is
// deterministic across calls: two invocations with equal arguments must
// produce the same key, which a freshly randomized maphash.Seed per call
// would break.
var structuralSeed = maphash.MakeSeed()

// StructuralKey derives a single string key from a tuple of arbitrary
// arguments by hashing their Go-syntax representation, generalizing
// CPython's functools._make_key (imported as theine.py's Memoize key
// function in the original implementation) into an idiomatic structural
// hash, per spec.md's Design Notes ("pluggable key function with a
// default based on structural hashing of argument tuples"). When typed
// is true, each argument's dynamic type name is folded into the hash so
// e.g. int64(1) and "1" never collide, matching functools.lru_cache's
// typed=True mode.
func StructuralKey(typed bool, args ...interface{}) string {
	var acc uint64
	for _, a := range args {
		repr := fmt.Sprintf("%#v", a)
		if typed {
			repr = reflect.TypeOf(a).String() + ":" + repr
		}
		acc ^= maphash.String(structuralSeed, repr) + 0x9e3779b97f4a7c15 + (acc << 6) + (acc >> 2)
	}
	return fmt.Sprintf("%016x", acc)
}

// Memoize wraps fn so repeated calls with equal arguments are
// deduplicated and cached through g, deriving the cache key from the
// arguments via StructuralKey. This is the variadic-argument convenience
// form of Group[string, V].Do for callers who don't want to name their
// own keys, per spec.md §4.11a.
func Memoize[V any](g *Group[string, V], typed bool, fn func(args ...interface{}) (V, error)) func(args ...interface{}) (V, error) {
	return func(args ...interface{}) (V, error) {
		key := StructuralKey(typed, args...)
		return g.Do(key, func() (V, error) { return fn(args...) })
	}
}
