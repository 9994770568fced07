package auth

import (
	"errors"
	"sync"
	"time"
)

// ErrClientLocked is returned while a client address sits in lockout.
var ErrClientLocked = errors.New("client locked out")

// Progressive delays per consecutive failure, then a hard lockout.
const (
	delayFirstFailure  = 1 * time.Second
	delaySecondFailure = 2 * time.Second
	delayThirdFailure  = 5 * time.Second
	lockoutDuration    = 60 * time.Second

	// trackerIdleThreshold is how long an inactive tracker is retained.
	trackerIdleThreshold = 5 * time.Minute

	// trackerSweepInterval is how often idle trackers are reaped.
	trackerSweepInterval = 2 * time.Minute
)

// attemptTracker counts consecutive failures for one client address.
type attemptTracker struct {
	count       int
	lastFailed  time.Time
	lockedUntil time.Time
}

func (t *attemptTracker) locked(now time.Time) bool {
	return now.Before(t.lockedUntil)
}

// RateLimiter slows online password guessing with progressive delays per
// client address: 1s, 2s, 5s after the first three failures, then 60s
// lockouts. A successful login clears the tracker. Safe for concurrent
// use.
type RateLimiter struct {
	mu       sync.RWMutex
	attempts map[string]*attemptTracker
	stopCh   chan struct{}
}

// NewRateLimiter creates a limiter with background cleanup of idle
// trackers.
func NewRateLimiter() *RateLimiter {
	rl := &RateLimiter{
		attempts: make(map[string]*attemptTracker),
		stopCh:   make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

// Check reports whether a client address may start an exchange now. When
// it may not, retryAfter says how long to tell the client to wait.
func (rl *RateLimiter) Check(clientAddr string) (retryAfter time.Duration, err error) {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	tracker, ok := rl.attempts[clientAddr]
	if !ok {
		return 0, nil
	}
	now := time.Now()
	if tracker.locked(now) {
		return time.Until(tracker.lockedUntil), ErrClientLocked
	}
	if tracker.count >= 3 {
		// Lockout expired but the count never reset: the next failure
		// locks again, the next success clears.
		return lockoutDuration, ErrClientLocked
	}
	return 0, nil
}

// RecordFailure notes a failed exchange and returns the delay to enforce
// before answering the client.
func (rl *RateLimiter) RecordFailure(clientAddr string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	tracker, ok := rl.attempts[clientAddr]
	if !ok {
		tracker = &attemptTracker{}
		rl.attempts[clientAddr] = tracker
	}
	tracker.count++
	tracker.lastFailed = time.Now()

	switch tracker.count {
	case 1:
		return delayFirstFailure
	case 2:
		return delaySecondFailure
	case 3:
		return delayThirdFailure
	default:
		tracker.lockedUntil = time.Now().Add(lockoutDuration)
		return lockoutDuration
	}
}

// RecordSuccess clears all tracking for a client address.
func (rl *RateLimiter) RecordSuccess(clientAddr string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.attempts, clientAddr)
}

// FailureCount returns the consecutive failure count for a client
// address.
func (rl *RateLimiter) FailureCount(clientAddr string) int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	if tracker, ok := rl.attempts[clientAddr]; ok {
		return tracker.count
	}
	return 0
}

// Stop terminates the background sweeper.
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(trackerSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweep(time.Now())
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) sweep(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := now.Add(-trackerIdleThreshold)
	for addr, tracker := range rl.attempts {
		if tracker.lastFailed.Before(cutoff) && !tracker.locked(now) {
			delete(rl.attempts, addr)
		}
	}
}

// RetryAfterSeconds rounds a delay up to whole seconds for the
// Retry-After header.
func RetryAfterSeconds(d time.Duration) int {
	seconds := int(d.Seconds())
	if d%time.Second > 0 {
		seconds++
	}
	return seconds
}
