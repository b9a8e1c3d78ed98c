package services

import "errors"

// Rejected-request errors surface to the caller immediately and are never
// retried or logged as anomalies.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrMissingFile  = errors.New("missing file")
)

// ErrStorage is an infrastructure fault on the fatal intake path; the request
// has no side effects to roll back since persistence is the first durable step.
var ErrStorage = errors.New("storage error")

// Enrichment/provider errors. Provider failures surface to the direct caller as
// typed failures; consumers degrade rather than abort.
var (
	ErrUnparsableFormat    = errors.New("unparsable image format")
	ErrUnreadableImage     = errors.New("unreadable image")
	ErrNotConfigured       = errors.New("provider not configured")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrProviderError       = errors.New("provider error")
)
