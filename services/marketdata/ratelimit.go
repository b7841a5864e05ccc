package marketdata

import (
	"sync"
	"time"
)

// RateLimiter bounds outbound quote API calls to max per rolling window.
// Allow never blocks; callers treat a denial as "defer or fail".
type RateLimiter struct {
	mu          sync.Mutex
	count       int
	windowStart time.Time
	max         int
	window      time.Duration
	now         func() time.Time
}

// NewRateLimiter creates a rate limiter allowing max calls per window.
func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		max:    max,
		window: window,
		now:    time.Now,
	}
}

// Allow reports whether another call may be made right now, counting the
// call when it is allowed. The counter resets once the window elapses.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if rl.windowStart.IsZero() || now.Sub(rl.windowStart) >= rl.window {
		rl.windowStart = now
		rl.count = 0
	}

	if rl.count >= rl.max {
		return false
	}
	rl.count++
	return true
}

// Remaining returns how many calls are left in the current window.
func (rl *RateLimiter) Remaining() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.windowStart.IsZero() || rl.now().Sub(rl.windowStart) >= rl.window {
		return rl.max
	}
	remaining := rl.max - rl.count
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Status is a point-in-time snapshot of the limiter for the operator
// surface.
type Status struct {
	Max          int           `json:"max"`
	Remaining    int           `json:"remaining"`
	Window       time.Duration `json:"-"`
	WindowSecs   int           `json:"window_seconds"`
	ResetsInSecs int           `json:"resets_in_seconds"`
}

// Status returns the limiter's current usage.
func (rl *RateLimiter) Status() Status {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	s := Status{
		Max:        rl.max,
		Remaining:  rl.max,
		Window:     rl.window,
		WindowSecs: int(rl.window.Seconds()),
	}
	if !rl.windowStart.IsZero() && now.Sub(rl.windowStart) < rl.window {
		s.Remaining = rl.max - rl.count
		if s.Remaining < 0 {
			s.Remaining = 0
		}
		s.ResetsInSecs = int((rl.window - now.Sub(rl.windowStart)).Seconds())
	}
	return s
}
