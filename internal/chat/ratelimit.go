package chat

import (
	"sync"
	"time"
)

// lineLimiter bounds how fast one connection may submit lines. A client may
// burst up to Burst lines, then is held to one line per refill step, where
// the step is RefillInterval divided evenly across the burst. When a line is
// rejected the limiter reports how long until the next one will be accepted,
// so the connection can tell the client instead of silently dropping.
type lineLimiter struct {
	mu         sync.Mutex
	tokens     int
	burst      int
	step       time.Duration
	lastRefill time.Time
}

func newLineLimiter(cfg RateLimitConfig) *lineLimiter {
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	interval := cfg.RefillInterval
	if interval <= 0 {
		interval = time.Second
	}
	step := interval / time.Duration(burst)
	if step <= 0 {
		step = time.Nanosecond
	}
	return &lineLimiter{
		tokens:     burst,
		burst:      burst,
		step:       step,
		lastRefill: time.Now(),
	}
}

// allow consumes a token when one is available. When the bucket is empty it
// returns false and the wait until the next token.
func (l *lineLimiter) allow() (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if refilled := int(now.Sub(l.lastRefill) / l.step); refilled > 0 {
		l.tokens += refilled
		if l.tokens > l.burst {
			l.tokens = l.burst
		}
		// Advance by whole steps only, so the fractional remainder keeps
		// counting toward the next token.
		l.lastRefill = l.lastRefill.Add(time.Duration(refilled) * l.step)
	}

	if l.tokens == 0 {
		wait := l.step - now.Sub(l.lastRefill)
		if wait < 0 {
			wait = 0
		}
		return false, wait
	}
	l.tokens--
	return true, 0
}
