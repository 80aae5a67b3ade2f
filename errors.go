// errors.go: structured error handling for wtlfu cache operations
//
// Grounded on agilira-balios/errors.go's use of github.com/agilira/go-errors
// for coded, contextual errors, generalized from Balios's cache-specific
// error set to the two error kinds spec.md §7 actually defines: InvalidTTL
// and ProducerFailed. Everything else is either a normal result or, for
// invariant violations, a panic.
//
// Copyright (c) 2026 cacheforge
// SPDX-License-Identifier: MPL-2.0
package wtlfu

import (
	goerrors "errors"

	"github.com/agilira/go-errors"
)

// Error codes for wtlfu operations.
const (
	ErrCodeInvalidCapacity errors.ErrorCode = "WTLFU_INVALID_CAPACITY"
	ErrCodeInvalidTTL      errors.ErrorCode = "WTLFU_INVALID_TTL"
	ErrCodeProducerFailed  errors.ErrorCode = "WTLFU_PRODUCER_FAILED"
)

const (
	msgInvalidCapacity = "invalid capacity: must be greater than 0"
	msgInvalidTTL      = "invalid ttl: absent means no expiration; zero and negative are errors"
	msgProducerFailed  = "memoize producer function failed"
)

// NewErrInvalidCapacity reports a non-positive capacity passed to New.
func NewErrInvalidCapacity(capacity int64) error {
	return errors.NewWithContext(ErrCodeInvalidCapacity, msgInvalidCapacity, map[string]interface{}{
		"provided_capacity": capacity,
		"minimum_required":  1,
	})
}

// NewErrInvalidTTL reports a zero or negative TTL passed to Set, per
// spec.md §4.12 ("TTL values of exactly zero raise an invalid TTL error
// ... negative TTL on set raises invalid TTL").
func NewErrInvalidTTL(ttl interface{}) error {
	return errors.NewWithField(ErrCodeInvalidTTL, msgInvalidTTL, "provided_ttl", ttl)
}

// NewErrProducerFailed wraps a memoize producer's own error so every
// waiter in the single-flight group observes an identical, code-tagged
// failure, per spec.md §4.13.
func NewErrProducerFailed(key string, cause error) error {
	return errors.Wrap(cause, ErrCodeProducerFailed, msgProducerFailed).
		WithContext("key", key)
}

// IsInvalidTTL reports whether err is an InvalidTTL failure.
func IsInvalidTTL(err error) bool {
	return errors.HasCode(err, ErrCodeInvalidTTL)
}

// IsProducerFailed reports whether err wraps a memoize producer failure.
func IsProducerFailed(err error) bool {
	return errors.HasCode(err, ErrCodeProducerFailed)
}

// GetErrorCode extracts the structured error code from err, if any.
func GetErrorCode(err error) errors.ErrorCode {
	if err == nil {
		return ""
	}
	var coder errors.ErrorCoder
	if goerrors.As(err, &coder) {
		return coder.ErrorCode()
	}
	return ""
}
