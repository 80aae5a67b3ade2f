// config.go: functional Options, Logger and TimeProvider seams
//
// Copyright (c) 2026 cacheforge
// SPDX-License-Identifier: MPL-2.0

package wtlfu

import (
	"time"

	"github.com/agilira/go-timecache"
)

// Logger defines a minimal, allocation-free logging interface. Grounded on
// agilira-balios/interfaces.go's Logger, generalized from the single-struct
// cache to wtlfu's shard/policy/maintenance split so every layer can log
// through the same small seam.
type Logger interface {
	Debug(msg string, keyvals ...interface{})
	Info(msg string, keyvals ...interface{})
	Warn(msg string, keyvals ...interface{})
	Error(msg string, keyvals ...interface{})
}

// NoOpLogger discards everything; it is the default so callers never pay
// for logging they didn't ask for.
type NoOpLogger struct{}

func (NoOpLogger) Debug(msg string, keyvals ...interface{}) {}
func (NoOpLogger) Info(msg string, keyvals ...interface{})  {}
func (NoOpLogger) Warn(msg string, keyvals ...interface{})  {}
func (NoOpLogger) Error(msg string, keyvals ...interface{}) {}

// TimeProvider supplies the monotonic-ish nanosecond clock the policy and
// shards use for TTL arithmetic. Grounded on agilira-balios/config.go's
// systemTimeProvider, which wraps go-timecache.CachedTimeNano for a cached
// clock read instead of a time.Now() syscall on every hot-path call.
type TimeProvider interface {
	Now() int64
}

type systemTimeProvider struct{}

func (systemTimeProvider) Now() int64 { return timecache.CachedTimeNano() }

// maintenanceInterval is how often the background goroutine drives the
// timer wheel and force-drains the write buffer, per spec.md §4.9.
const maintenanceInterval = time.Second

// settings collects the knobs New/NewGroup accept as functional Options,
// matching the teacher pack's Option-function convention (e.g.
// agilira-balios's Config plus functional setters) rather than a single
// exported Config struct, since wtlfu's constructor takes a fixed
// capacity positionally per spec.md §4.1.
type settings struct {
	logger       Logger
	timeProvider TimeProvider
	shardHint    int
	noLock       bool
}

func defaultSettings() settings {
	return settings{
		logger:       NoOpLogger{},
		timeProvider: systemTimeProvider{},
	}
}

// Option configures a Cache at construction time.
type Option func(*settings)

// WithLogger installs a custom Logger in place of NoOpLogger.
func WithLogger(l Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTimeProvider installs a custom clock, primarily for deterministic
// tests that need to control TTL expiration without sleeping.
func WithTimeProvider(tp TimeProvider) Option {
	return func(s *settings) {
		if tp != nil {
			s.timeProvider = tp
		}
	}
}

// WithShardHint overrides the automatic GOMAXPROCS-derived shard count,
// useful for tests that want deterministic, low shard counts.
func WithShardHint(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.shardHint = n
		}
	}
}

// WithNoLock disables per-shard locking entirely. Only safe when the
// caller already guarantees the Cache is never accessed from more than
// one goroutine at a time (e.g. wrapped by an external lock, or used
// strictly single-threaded); it trades away concurrency safety for the
// allocation/contention-free path agilira-metis's lockless build mode
// targets.
func WithNoLock() Option {
	return func(s *settings) { s.noLock = true }
}
