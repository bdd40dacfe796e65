package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrUnavailable is returned when the upstream could not be reached, kept
// returning server errors, or the circuit breaker refused the call.
var ErrUnavailable = errors.New("upstream: service unavailable")

// Breaker trips after a run of consecutive failures and rejects calls until
// the cool-off period expires. A single success closes it again.
type Breaker struct {
	mu        sync.Mutex
	threshold int
	coolOff   time.Duration
	failures  int
	openUntil time.Time
}

// NewBreaker constructs a breaker that opens after threshold consecutive
// failures and stays open for coolOff.
func NewBreaker(threshold int, coolOff time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if coolOff <= 0 {
		coolOff = 30 * time.Second
	}
	return &Breaker{threshold: threshold, coolOff: coolOff}
}

func (b *Breaker) allow(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return now.After(b.openUntil)
}

func (b *Breaker) report(ok bool, now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ok {
		b.failures = 0
		b.openUntil = time.Time{}
		return
	}
	b.failures++
	if b.failures >= b.threshold {
		b.openUntil = now.Add(b.coolOff)
		b.failures = 0
	}
}

// Client fetches JSON documents from one upstream target with retry, timeout
// and circuit-breaker protection. Lookup failures are non-fatal for callers:
// they surface as ErrUnavailable and the dependent dropdown stays empty.
type Client struct {
	Target      string
	HTTP        *http.Client
	Breaker     *Breaker
	MaxAttempts int
	BaseBackoff time.Duration
	Timeout     time.Duration
	Logger      *zerolog.Logger
	Now         func() time.Time
}

func (c *Client) now() time.Time {
	if c != nil && c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Client) logger() *zerolog.Logger {
	if c != nil && c.Logger != nil {
		return c.Logger
	}
	nop := zerolog.Nop()
	return &nop
}

// GetJSON fetches url and decodes the response body into dst.
func (c *Client) GetJSON(ctx context.Context, url string, dst any) error {
	if c == nil || c.HTTP == nil {
		return errors.New("upstream: client not configured")
	}
	maxAttempts := c.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	baseBackoff := c.BaseBackoff
	if baseBackoff <= 0 {
		baseBackoff = 100 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if c.Breaker != nil && !c.Breaker.allow(c.now()) {
			recordFetch(c.Target, "rejected")
			return fmt.Errorf("%w: circuit open for %s", ErrUnavailable, c.Target)
		}
		lastErr = c.getOnce(ctx, url, dst)
		if lastErr == nil {
			if c.Breaker != nil {
				c.Breaker.report(true, c.now())
			}
			recordFetch(c.Target, "ok")
			return nil
		}
		if c.Breaker != nil {
			c.Breaker.report(false, c.now())
		}
		recordFetch(c.Target, "error")
		c.logger().Warn().Err(lastErr).Str("target", c.Target).Int("attempt", attempt).Msg("upstream fetch failed")
		if attempt == maxAttempts || !retryable(lastErr) {
			break
		}
		timer := time.NewTimer(backoff(baseBackoff, attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, c.Target, lastErr)
}

func (c *Client) getOnce(ctx context.Context, url string, dst any) error {
	callCtx := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return &statusError{code: resp.StatusCode}
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

// retryable reports whether another attempt can help. Client errors are
// definitive; network failures and 5xx responses are worth retrying.
func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= http.StatusInternalServerError
	}
	return true
}

func backoff(base time.Duration, attempt int) time.Duration {
	d := base << (attempt - 1)
	jitter := time.Duration(rand.Int63n(int64(base)))
	return d + jitter
}
