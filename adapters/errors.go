package adapters

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRetriesExhausted is wrapped by the UpstreamError returned when a
// BackoffPolicy with MaxAttempts gives up on a rate-limited request.
var ErrRetriesExhausted = errors.New("rate limit retries exhausted")

// maxErrorBody caps how much of an upstream error body is kept for reporting.
const maxErrorBody = 512

// UpstreamError reports a non-success HTTP status from an upstream API.
type UpstreamError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: upstream status %d", e.Op, e.StatusCode)
	if e.Body != "" {
		b.WriteString(": ")
		b.WriteString(e.Body)
	}
	if e.Err != nil {
		b.WriteString(" (")
		b.WriteString(e.Err.Error())
		b.WriteString(")")
	}
	return b.String()
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func newUpstreamError(op string, resp Response, cause error) *UpstreamError {
	body := strings.TrimSpace(string(resp.Body))
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody] + "..."
	}
	return &UpstreamError{Op: op, StatusCode: resp.StatusCode, Body: body, Err: cause}
}

// StatusCode returns the upstream status carried by err, or 0 when err is not
// (and does not wrap) an UpstreamError.
func StatusCode(err error) int {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.StatusCode
	}
	return 0
}
