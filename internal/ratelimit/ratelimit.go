// Package ratelimit bounds provider dispatch rates. AgentLimiter enforces
// per-agent sliding windows; RunLimiter caps the whole crew with a token
// bucket. Both block until a slot frees instead of rejecting.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// AgentLimiterConfig configures the sliding-window limiter.
type AgentLimiterConfig struct {
	// Window is the sliding window length. Defaults to one minute, which
	// makes SetLimit a requests-per-minute knob.
	Window time.Duration

	// Now overrides the clock for tests.
	Now func() time.Time
}

// AgentLimiter tracks dispatch timestamps per key inside a sliding window.
// Keys without a configured limit pass through untouched.
type AgentLimiter struct {
	mu     sync.Mutex
	limits map[string]int
	stamps map[string][]time.Time
	window time.Duration
	now    func() time.Time
	logger *zap.Logger

	// onWait, when set, observes every blocking wait. Used for metrics.
	onWait func(key string, wait time.Duration)
}

// NewAgentLimiter creates a sliding-window limiter.
func NewAgentLimiter(cfg AgentLimiterConfig, logger *zap.Logger) *AgentLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &AgentLimiter{
		limits: make(map[string]int),
		stamps: make(map[string][]time.Time),
		window: window,
		now:    now,
		logger: logger.With(zap.String("component", "ratelimit")),
	}
}

// SetLimit caps dispatches for key inside the window. Zero or negative
// removes the cap.
func (l *AgentLimiter) SetLimit(key string, maxPerWindow int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if maxPerWindow <= 0 {
		delete(l.limits, key)
		delete(l.stamps, key)
		return
	}
	l.limits[key] = maxPerWindow
}

// OnWait registers an observer for blocking waits.
func (l *AgentLimiter) OnWait(fn func(key string, wait time.Duration)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onWait = fn
}

// Acquire blocks until key may dispatch, then records the dispatch. It
// returns early only when ctx is cancelled.
func (l *AgentLimiter) Acquire(ctx context.Context, key string) error {
	for {
		wait := l.reserve(key)
		if wait <= 0 {
			return nil
		}

		l.mu.Lock()
		onWait := l.onWait
		l.mu.Unlock()
		if onWait != nil {
			onWait(key, wait)
		}
		l.logger.Debug("rate limit reached, waiting",
			zap.String("key", key),
			zap.Duration("wait", wait),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// reserve prunes expired timestamps and either records a dispatch
// (returning zero) or reports how long until the oldest stamp leaves the
// window.
func (l *AgentLimiter) reserve(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	limit, ok := l.limits[key]
	if !ok {
		return 0
	}

	now := l.now()
	cutoff := now.Add(-l.window)

	kept := l.stamps[key][:0]
	for _, stamp := range l.stamps[key] {
		if stamp.After(cutoff) {
			kept = append(kept, stamp)
		}
	}

	if len(kept) < limit {
		kept = append(kept, now)
		l.stamps[key] = kept
		return 0
	}

	l.stamps[key] = kept
	return kept[0].Sub(cutoff)
}

// Remaining reports how many dispatches key has left in the current
// window. Unlimited keys report -1.
func (l *AgentLimiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	limit, ok := l.limits[key]
	if !ok {
		return -1
	}

	cutoff := l.now().Add(-l.window)
	count := 0
	for _, stamp := range l.stamps[key] {
		if stamp.After(cutoff) {
			count++
		}
	}
	if remaining := limit - count; remaining > 0 {
		return remaining
	}
	return 0
}

// RunLimiter caps crew-wide dispatch throughput with a token bucket sized
// to maxPerWindow, refilling at maxPerWindow per window.
type RunLimiter struct {
	limiter *rate.Limiter
}

// NewRunLimiter creates a crew-level limiter. A zero or negative
// maxPerWindow disables limiting.
func NewRunLimiter(maxPerWindow int, window time.Duration) *RunLimiter {
	if maxPerWindow <= 0 {
		return &RunLimiter{}
	}
	if window <= 0 {
		window = time.Minute
	}
	per := rate.Limit(float64(maxPerWindow) / window.Seconds())
	return &RunLimiter{limiter: rate.NewLimiter(per, maxPerWindow)}
}

// Acquire blocks until a dispatch slot is available or ctx is cancelled.
func (l *RunLimiter) Acquire(ctx context.Context) error {
	if l == nil || l.limiter == nil {
		return nil
	}
	return l.limiter.Wait(ctx)
}

// Tokens reports the currently available slots. Unlimited limiters
// report -1.
func (l *RunLimiter) Tokens() float64 {
	if l == nil || l.limiter == nil {
		return -1
	}
	return l.limiter.Tokens()
}
