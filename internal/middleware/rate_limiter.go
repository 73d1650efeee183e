package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// EventThrottle is a per-user token bucket in front of event intake.
type EventThrottle struct {
	limiters map[string]*userLimiter
	mu       sync.Mutex

	rate  rate.Limit
	burst int
	idle  time.Duration
}

type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewEventThrottle allows perMinute events per user with the given burst.
func NewEventThrottle(perMinute, burst int) *EventThrottle {
	return &EventThrottle{
		limiters: make(map[string]*userLimiter),
		rate:     rate.Limit(float64(perMinute) / 60),
		burst:    burst,
		idle:     10 * time.Minute,
	}
}

// Allow reports whether userID may submit another event now.
func (t *EventThrottle) Allow(userID string) bool {
	return t.AllowAt(userID, time.Now())
}

// AllowAt is Allow with an explicit clock.
func (t *EventThrottle) AllowAt(userID string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	ul, exists := t.limiters[userID]
	if !exists {
		ul = &userLimiter{limiter: rate.NewLimiter(t.rate, t.burst)}
		t.limiters[userID] = ul
	}
	ul.lastSeen = now
	return ul.limiter.AllowN(now, 1)
}

// Tracked returns the number of users with a live bucket.
func (t *EventThrottle) Tracked() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.limiters)
}

// Prune drops buckets idle since before now minus the idle window. An idle
// bucket is full again, so dropping it changes nothing for the user.
func (t *EventThrottle) Prune(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for userID, ul := range t.limiters {
		if now.Sub(ul.lastSeen) > t.idle {
			delete(t.limiters, userID)
		}
	}
}

// StartCleanup prunes idle buckets every interval until ctx is done.
func (t *EventThrottle) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				t.Prune(now)
			}
		}
	}()
}

// Reset clears all buckets (useful for testing)
func (t *EventThrottle) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.limiters = make(map[string]*userLimiter)
}
