package middleware

import (
	"testing"
	"time"
)

func TestEventThrottle_Burst(t *testing.T) {
	throttle := NewEventThrottle(60, 3)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if !throttle.AllowAt("athlete-1", now) {
			t.Fatalf("event %d rejected inside burst", i+1)
		}
	}
	if throttle.AllowAt("athlete-1", now) {
		t.Error("event beyond burst was allowed")
	}

	// Other users have their own bucket.
	if !throttle.AllowAt("athlete-2", now) {
		t.Error("second user throttled by first user's traffic")
	}

	// 60/min refills one token per second.
	if !throttle.AllowAt("athlete-1", now.Add(time.Second)) {
		t.Error("token not refilled after one second")
	}
}

func TestEventThrottle_Prune(t *testing.T) {
	throttle := NewEventThrottle(60, 1)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	throttle.AllowAt("old", now)
	throttle.AllowAt("recent", now.Add(9*time.Minute))

	throttle.Prune(now.Add(11 * time.Minute))
	if got := throttle.Tracked(); got != 1 {
		t.Errorf("Tracked() = %d, want 1", got)
	}

	throttle.Reset()
	if got := throttle.Tracked(); got != 0 {
		t.Errorf("Tracked() after Reset = %d, want 0", got)
	}
}
