package ai

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed scoring call. The retry policy backs off only
// on KindRateLimited; other kinds are retried immediately until the attempt
// budget runs out.
type ErrorKind int

const (
	// KindTransport covers connection failures and unexpected HTTP statuses.
	KindTransport ErrorKind = iota
	// KindRateLimited marks HTTP-level rate limiting by the scoring backend.
	KindRateLimited
	// KindMalformedResponse marks a response body that did not parse into the
	// expected per-item result shape after best-effort cleanup.
	KindMalformedResponse
	// KindTimeout marks a call that exceeded its wall-clock deadline.
	KindTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindMalformedResponse:
		return "malformed_response"
	case KindTimeout:
		return "timeout"
	default:
		return "transport"
	}
}

// Error wraps a scoring failure with its classification.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("scoring failed (%s): %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err with the given kind.
func NewError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf extracts the classification from err, defaulting to KindTransport
// for errors that did not originate in a scoring client.
func KindOf(err error) ErrorKind {
	var scoringErr *Error
	if errors.As(err, &scoringErr) {
		return scoringErr.Kind
	}
	return KindTransport
}

// IsRateLimited reports whether err is a rate-limiting failure.
func IsRateLimited(err error) bool {
	return KindOf(err) == KindRateLimited
}
