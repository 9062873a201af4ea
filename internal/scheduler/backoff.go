package scheduler

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Backoff implements bounded exponential backoff with jitter, used for
// transient failures at the browser primitive level before they count
// against the circuit breaker.
type Backoff struct {
	Base   time.Duration
	Max    time.Duration
	Factor float64
	Jitter bool

	attempt   int
	sleep     func(ctx context.Context, d time.Duration) error
	randFloat func() float64
}

// NewBackoff returns a Backoff with the usual defaults: 1s base, 60s cap,
// doubling, jittered.
func NewBackoff() *Backoff {
	return &Backoff{
		Base:      time.Second,
		Max:       60 * time.Second,
		Factor:    2.0,
		Jitter:    true,
		sleep:     sleepContext,
		randFloat: rand.Float64,
	}
}

// Wait sleeps for the next backoff interval, honoring cancellation.
func (b *Backoff) Wait(ctx context.Context) error {
	if b.sleep == nil {
		b.sleep = sleepContext
	}
	if b.randFloat == nil {
		b.randFloat = rand.Float64
	}

	delay := time.Duration(float64(b.Base) * math.Pow(b.Factor, float64(b.attempt)))
	if delay > b.Max || delay <= 0 {
		delay = b.Max
	}
	if b.Jitter {
		delay = time.Duration(float64(delay) * (0.5 + b.randFloat()))
	}

	b.attempt++
	return b.sleep(ctx, delay)
}

// Reset zeroes the attempt counter.
func (b *Backoff) Reset() { b.attempt = 0 }

// Retry runs fn up to attempts times, backing off between failures.
// Returns the last error when every attempt fails.
func (b *Backoff) Retry(ctx context.Context, attempts int, fn func() error) error {
	var last error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if last = fn(); last == nil {
			return nil
		}
		if i < attempts-1 {
			if err := b.Wait(ctx); err != nil {
				return err
			}
		}
	}
	return last
}
