package domain

import "errors"

var (
	// ErrNotFound: the locator does not resolve to any product or image.
	ErrNotFound = errors.New("not found")

	// ErrMalformedLocator: the locator token cannot be decoded.
	ErrMalformedLocator = errors.New("malformed locator")

	// ErrProviderFailure: a single provider call or poll failed.
	// Recovered inside the orchestrator by falling through the chain.
	ErrProviderFailure = errors.New("provider failure")

	// ErrPollTimeout: the queue provider polling ceiling was reached.
	// Treated as a provider failure for fallback purposes.
	ErrPollTimeout = errors.New("poll timeout")

	// ErrAllProvidersFailed: every applicable provider was exhausted.
	ErrAllProvidersFailed = errors.New("all providers failed")

	// ErrInvalidTransition: the requested status change breaks the
	// pending -> processing -> {completed|failed} lifecycle.
	ErrInvalidTransition = errors.New("invalid status transition")
)
