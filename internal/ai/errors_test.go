package ai

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfUnwrapsWrappedErrors(t *testing.T) {
	t.Parallel()

	base := NewError(KindRateLimited, errors.New("429"))
	wrapped := fmt.Errorf("attempt 2: %w", base)

	if !IsRateLimited(wrapped) {
		t.Fatalf("expected wrapped error to stay rate-limited")
	}

	if KindOf(errors.New("plain")) != KindTransport {
		t.Fatalf("expected plain errors to classify as transport")
	}
}

func TestErrorKindStrings(t *testing.T) {
	t.Parallel()

	cases := map[ErrorKind]string{
		KindTransport:         "transport",
		KindRateLimited:       "rate_limited",
		KindMalformedResponse: "malformed_response",
		KindTimeout:           "timeout",
	}

	for kind, expect := range cases {
		if kind.String() != expect {
			t.Fatalf("kind %d: expected %q, got %q", kind, expect, kind.String())
		}
	}
}
