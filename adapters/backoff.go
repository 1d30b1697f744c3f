package adapters

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultRetryDelay is the fixed wait applied after an HTTP 429.
const DefaultRetryDelay = 1500 * time.Millisecond

// BackoffPolicy controls how the Fetcher reacts to HTTP 429.
//
// The zero MaxAttempts keeps retrying forever: a persistently throttling
// upstream makes the run hang rather than fail. Set MaxAttempts to bound it.
type BackoffPolicy struct {
	// Delay is the fixed wait between attempts.
	Delay time.Duration
	// MaxAttempts is the total number of attempts, first one included. 0 = unbounded.
	MaxAttempts int
	// RespectRetryAfter waits for the response's Retry-After when it is longer than Delay.
	RespectRetryAfter bool
}

// DefaultBackoff returns the unbounded fixed-delay policy.
func DefaultBackoff() BackoffPolicy {
	return BackoffPolicy{Delay: DefaultRetryDelay}
}

func (p BackoffPolicy) exhausted(attempt int) bool {
	return p.MaxAttempts > 0 && attempt >= p.MaxAttempts
}

func (p BackoffPolicy) wait(h http.Header) time.Duration {
	d := p.Delay
	if d < 0 {
		d = 0
	}
	if p.RespectRetryAfter {
		if ra := parseRetryAfter(h, time.Now()); ra > d {
			d = ra
		}
	}
	return d
}

// parseRetryAfter understands both delta-seconds and HTTP-date forms.
func parseRetryAfter(h http.Header, now time.Time) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// Pause blocks for d or until ctx is done, whichever comes first.
func Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
