package middleware

import "time"

// SetClock replaces the limiter's clock for tests.
func (l *RateLimiter) SetClock(now func() time.Time) { l.now = now }

func (l *RateLimiter) Tracked() int { return l.tracked() }
