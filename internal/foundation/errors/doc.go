// Package errors provides foundational, type-safe error primitives used across the cache engine.
//
// This package contains classified error types and helpers for robust error handling,
// including a fluent builder API for constructing ClassifiedError values with context.
//
// Key features:
//   - ErrorCategory: the engine's error taxonomy (config, cache miss, transport, restore, etc.)
//   - ErrorSeverity: Impact level (error, warning, info)
//   - RetryStrategy: Retry behavior (should-retry, no-retry, backoff)
//   - ClassifiedError: Structured error with category, severity, and context
//   - ErrorBuilder: Fluent API for creating classified errors
//   - HTTP and CLI adapters for error presentation
//
// Example usage:
//
//	err := errors.WrapError(originalErr, errors.CategoryCacheTransport, "remote GET failed").
//		WithSeverity(errors.SeverityError).
//		Retryable().
//		WithContext("url", remoteURL).
//		Build()
package errors
