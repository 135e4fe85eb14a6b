package embedding

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/sony/gobreaker"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
	"github.com/custodia-labs/clever-documents/internal/logger"
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the real-clock Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
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

// StatusError carries an HTTP status from an embedding backend.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("embedding backend returned status %d: %s", e.StatusCode, e.Body)
}

// Classify maps a backend HTTP status onto the domain taxonomy.
// 408, 429 and 5xx are transient; other 4xx are invalid requests.
func Classify(status int, body string) error {
	err := &StatusError{StatusCode: status, Body: body}
	switch {
	case status == 429:
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
	case status == 408 || status >= 500:
		return err
	case status >= 400:
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingRequestInvalid, err)
	}
	return err
}

// IsTransient reports whether err is worth retrying.
// Anything not explicitly marked as an invalid request is transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, domain.ErrEmbeddingRequestInvalid) || errors.Is(err, domain.ErrRecordCountMismatch) {
		return false
	}
	if errors.Is(err, domain.ErrRateLimited) || errors.Is(err, gobreaker.ErrOpenState) ||
		errors.Is(err, gobreaker.ErrTooManyRequests) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == 408 || statusErr.StatusCode == 429 || statusErr.StatusCode >= 500
	}
	return true
}

// Retrier runs a call under a RetryPolicy.
type Retrier struct {
	Policy domain.RetryPolicy
	Sleep  Sleeper
}

// Do calls fn until it succeeds, fails permanently, or attempts run out.
// Exhaustion returns domain.ErrEmbeddingServiceUnavailable wrapping the last cause.
// Cancellation of ctx stops retrying and returns the context error.
func (r Retrier) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	sleep := r.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	attempts := max(r.Policy.MaxAttempts, 1)

	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := r.Policy.Delay(attempt - 1)
			logger.Debug("retrying embedding call", "op", op, "attempt", attempt, "delay", delay, "cause", last)
			if err := sleep(ctx, delay); err != nil {
				return err
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		// The caller went away; a deadline on the call itself stays transient.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !IsTransient(err) {
			return err
		}
		last = err
	}

	return fmt.Errorf("%w: %s after %d attempts: %w", domain.ErrEmbeddingServiceUnavailable, op, attempts, last)
}
