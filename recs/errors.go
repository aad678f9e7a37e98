package recs

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvalidInput is returned when the caller's product data is
// unusable. This is the only error that crosses the pipeline boundary;
// every other failure degrades to synthesized data.
var ErrInvalidInput = errors.New("invalid input: product title is required")

// ErrAuthentication is returned when the upstream generator rejects or
// lacks credentials. Never retried.
var ErrAuthentication = errors.New("upstream authentication failed")

// UpstreamError is a non-success answer from the text generator after
// the retry budget is exhausted. It keeps the last status and body for
// diagnostics.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream generator returned status %d: %s", e.StatusCode, e.Body)
}

// ErrUpstreamTimeout is returned when every attempt exceeded the
// per-attempt bound.
var ErrUpstreamTimeout = errors.New("upstream generator timed out")
