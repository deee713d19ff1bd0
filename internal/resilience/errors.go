// Package resilience classifies provider failures so the orchestrator
// can dispatch on a stable tag instead of vendor SDK wording.
package resilience

import (
	"errors"
	"strings"
)

// RateLimitError tags a provider failure as rate-limit-class (HTTP 429,
// quota exhaustion). The orchestrator answers exactly these with its
// one-shot fallback model.
type RateLimitError struct {
	Provider string
	Err      error
}

func (e *RateLimitError) Error() string {
	return e.Provider + ": rate limited: " + e.Err.Error()
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// NewRateLimitError wraps a vendor error as rate-limit-class.
func NewRateLimitError(provider string, err error) *RateLimitError {
	return &RateLimitError{Provider: provider, Err: err}
}

// rateLimitPatterns are lowercase substrings that mark rate-limit-class
// failures in vendor error messages. Heuristic safety net for errors
// that reach us already flattened to strings.
var rateLimitPatterns = []string{
	"429",
	"rate limit",
	"rate_limit",
	"too many requests",
	"quota",
	"resource exhausted",
	"resource_exhausted",
	"overloaded",
}

// IsRateLimited reports whether the error chain carries a
// RateLimitError, or failing that, whether the message matches a known
// rate-limit pattern.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}

	var rle *RateLimitError
	if errors.As(err, &rle) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range rateLimitPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
