// Package retry expresses bounded-attempt retry loops as policies.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// ErrExhausted is returned by Do when every attempt failed.
var ErrExhausted = errors.New("retry attempts exhausted")

// Policy bounds a retry loop.
type Policy interface {
	// Attempts is the maximum number of calls, including the first one.
	Attempts() int
	// Delay is the pause taken after the given failed attempt (1-based).
	Delay(attempt int) time.Duration
}

// Fixed retries up to MaxAttempts times with a constant pause.
type Fixed struct {
	MaxAttempts int
	Pause       time.Duration
}

// Attempts implements Policy.
func (f Fixed) Attempts() int {
	if f.MaxAttempts < 1 {
		return 1
	}
	return f.MaxAttempts
}

// Delay implements Policy.
func (f Fixed) Delay(int) time.Duration {
	return f.Pause
}

// Exponential doubles the pause after every failed attempt, capped at Max,
// and draws the actual pause from [d/2, d).
type Exponential struct {
	MaxAttempts int
	Base        time.Duration
	// Max caps the pause. Zero leaves it uncapped.
	Max time.Duration
}

// Attempts implements Policy.
func (e Exponential) Attempts() int {
	if e.MaxAttempts < 1 {
		return 1
	}
	return e.MaxAttempts
}

// Delay implements Policy.
func (e Exponential) Delay(attempt int) time.Duration {
	if e.Base <= 0 {
		return 0
	}
	d := e.Base
	for i := 1; i < attempt && (e.Max <= 0 || d < e.Max); i++ {
		d *= 2
	}
	if e.Max > 0 && d > e.Max {
		d = e.Max
	}
	half := d / 2
	return half + rand.N(d-half)
}

// Do calls fn until it succeeds, the policy runs out of attempts, or ctx is
// done. The returned error wraps both ErrExhausted and the last failure.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error) error {
	attempts := p.Attempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		if err := Sleep(ctx, p.Delay(attempt)); err != nil {
			return fmt.Errorf("retry aborted after %d attempts: %w", attempt, err)
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, lastErr)
}

// Sleep pauses for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
