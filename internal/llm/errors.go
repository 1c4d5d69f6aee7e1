package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// ErrorClass is the fixed provider error taxonomy.
type ErrorClass string

const (
	ClassQuotaExceeded ErrorClass = "quota_exceeded"
	ClassInvalidKey    ErrorClass = "invalid_key"
	ClassTransient     ErrorClass = "transient"
	ClassUnknown       ErrorClass = "unknown"
)

// ProviderError is an error reported by the remote inference provider.
type ProviderError struct {
	Class  ErrorClass
	Status int
	Msg    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error (%s, status %d): %s", e.Class, e.Status, e.Msg)
}

// Classify maps an error onto the taxonomy. Network and timeout failures are
// transient; everything unrecognized is unknown.
func Classify(err error) ErrorClass {
	if err == nil {
		return ""
	}

	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Class
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassTransient
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return ClassTransient
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTransient
	}
	if errors.Is(err, context.Canceled) {
		return ClassUnknown
	}

	return ClassUnknown
}

// Retryable reports whether another attempt can help. Quota and credential
// errors fail fast; unknown errors are treated as non-retryable.
func Retryable(err error) bool {
	return Classify(err) == ClassTransient
}
