// Package scheduler gates every externally observable action behind a
// daily application cap, human-like jittered delays, and a circuit breaker.
package scheduler

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ActionKind classifies an admitted action.
type ActionKind string

const (
	ActionSearch ActionKind = "search"
	ActionView   ActionKind = "view"
	ActionApply  ActionKind = "apply"
)

var (
	// ErrDailyLimitExceeded is a scheduling signal, not a failure: the job
	// stays queued for a future run.
	ErrDailyLimitExceeded = errors.New("daily application limit reached")
	// ErrCircuitOpen rejects all admissions while the breaker cools down.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// BreakerState is the circuit breaker's three-state machine.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half-open"
)

// DelayRange bounds the uniform random delay for one action kind.
type DelayRange struct {
	Min time.Duration
	Max time.Duration
}

// Options configures a Scheduler.
type Options struct {
	DailyLimit       int
	SearchDelay      DelayRange
	ApplyDelay       DelayRange
	MinCooldown      time.Duration
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// Scheduler is the single writer of the process-wide rate limiter state.
// The daily counter is seeded from the repository at startup so a restart
// cannot silently exceed the cap.
type Scheduler struct {
	mu   sync.Mutex
	opts Options

	applicationsToday int
	lastReset         time.Time
	lastAction        time.Time

	breakerState    BreakerState
	failureCount    int
	lastFailureTime time.Time
	trialInFlight   bool

	logger *zap.Logger

	// injected for tests
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
	randFloat func() float64
}

const dailyWindow = 24 * time.Hour

// New builds a Scheduler. appliedToday seeds the daily counter from durable
// history (CountAppliedSince on the store).
func New(opts Options, appliedToday int, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		opts:              opts,
		applicationsToday: appliedToday,
		breakerState:      BreakerClosed,
		logger:            logger,
		now:               time.Now,
		sleep:             sleepContext,
		randFloat:         rand.Float64,
	}
	s.lastReset = s.now()
	return s
}

// Permit represents one granted action. Report must be called with the
// outcome of the downstream execution so the circuit breaker sees it.
type Permit struct {
	Kind  ActionKind
	trial bool
	s     *Scheduler
	done  bool
}

// Admit blocks for the action's jittered delay and grants a Permit, or
// rejects per the daily cap / circuit breaker. The daily window reset is
// checked lazily here; correctness does not depend on a background timer.
func (s *Scheduler) Admit(ctx context.Context, kind ActionKind) (*Permit, error) {
	s.mu.Lock()
	s.resetIfElapsed()

	trial, err := s.checkBreaker()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	if kind == ActionApply && s.applicationsToday >= s.opts.DailyLimit {
		if trial {
			s.trialInFlight = false
		}
		s.mu.Unlock()
		return nil, ErrDailyLimitExceeded
	}

	delay := s.pickDelay(kind)
	if wait := s.cooldownWait(); wait > delay {
		delay = wait
	}
	s.mu.Unlock()

	if err := s.sleep(ctx, delay); err != nil {
		s.mu.Lock()
		if trial {
			s.trialInFlight = false
		}
		s.mu.Unlock()
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if kind == ActionApply {
		s.applicationsToday++
	}
	s.lastAction = s.now()

	s.logger.Debug("action admitted",
		zap.String("kind", string(kind)),
		zap.Duration("delay", delay),
		zap.Bool("trial", trial),
	)

	return &Permit{Kind: kind, trial: trial, s: s}, nil
}

// Report feeds the execution outcome back into the circuit breaker.
// Calling it more than once is a no-op.
func (p *Permit) Report(err error) {
	if p == nil || p.done {
		return
	}
	p.done = true

	s := p.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.trial {
		s.trialInFlight = false
	}

	if err == nil {
		if p.trial {
			s.logger.Info("circuit breaker closed after successful trial")
		}
		s.breakerState = BreakerClosed
		s.failureCount = 0
		return
	}

	s.failureCount++
	s.lastFailureTime = s.now()

	if p.trial || s.failureCount >= s.opts.BreakerThreshold {
		if s.breakerState != BreakerOpen {
			s.logger.Warn("circuit breaker opened",
				zap.Int("failures", s.failureCount),
				zap.Duration("cooldown", s.opts.BreakerCooldown),
			)
		}
		s.breakerState = BreakerOpen
	}
}

// checkBreaker enforces the Open state and promotes to HalfOpen when the
// cool-down has elapsed. Returns whether this admission is the trial call.
// Caller holds the lock.
func (s *Scheduler) checkBreaker() (bool, error) {
	switch s.breakerState {
	case BreakerClosed:
		return false, nil
	case BreakerHalfOpen:
		if s.trialInFlight {
			return false, ErrCircuitOpen
		}
		s.trialInFlight = true
		return true, nil
	case BreakerOpen:
		if s.now().Sub(s.lastFailureTime) < s.opts.BreakerCooldown {
			return false, ErrCircuitOpen
		}
		s.breakerState = BreakerHalfOpen
		s.trialInFlight = true
		s.logger.Info("circuit breaker half-open, admitting trial")
		return true, nil
	}
	return false, nil
}

// resetIfElapsed zeroes the daily counter once the 24h window has passed.
// Caller holds the lock.
func (s *Scheduler) resetIfElapsed() {
	if s.now().Sub(s.lastReset) >= dailyWindow {
		s.applicationsToday = 0
		s.lastReset = s.now()
	}
}

func (s *Scheduler) pickDelay(kind ActionKind) time.Duration {
	r := s.opts.SearchDelay
	if kind == ActionApply {
		r = s.opts.ApplyDelay
	}
	span := r.Max - r.Min
	if span <= 0 {
		return r.Min
	}
	return r.Min + time.Duration(s.randFloat()*float64(span))
}

// cooldownWait returns how long until the minimum inter-action spacing is
// satisfied. Caller holds the lock.
func (s *Scheduler) cooldownWait() time.Duration {
	if s.lastAction.IsZero() || s.opts.MinCooldown <= 0 {
		return 0
	}
	elapsed := s.now().Sub(s.lastAction)
	if elapsed >= s.opts.MinCooldown {
		return 0
	}
	return s.opts.MinCooldown - elapsed
}

// Remaining reports how many applications are left in the current window.
func (s *Scheduler) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetIfElapsed()
	left := s.opts.DailyLimit - s.applicationsToday
	if left < 0 {
		return 0
	}
	return left
}

// State returns the breaker state for status reporting.
func (s *Scheduler) State() BreakerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.breakerState
}

func sleepContext(ctx context.Context, d time.Duration) error {
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
