package ratelimit

import (
	"testing"
	"time"
)

func TestKeyedRateLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		rps      float64
		burst    int
		key      string
		calls    int
		wantPass int
	}{
		{
			name:     "burst allows initial requests",
			rps:      1,
			burst:    3,
			key:      "test",
			calls:    3,
			wantPass: 3,
		},
		{
			name:     "exceeding burst blocks",
			rps:      1,
			burst:    2,
			key:      "test",
			calls:    5,
			wantPass: 2,
		},
		{
			name:     "different keys are independent",
			rps:      1,
			burst:    1,
			key:      "key1",
			calls:    1,
			wantPass: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := New(tt.rps, tt.burst, 0)
			defer rl.Stop()

			passed := 0
			for range tt.calls {
				if rl.Allow(tt.key) {
					passed++
				}
			}

			if passed != tt.wantPass {
				t.Errorf("Allow() passed %d, want %d", passed, tt.wantPass)
			}
		})
	}
}

func TestKeyedRateLimiter_IndependentKeys(t *testing.T) {
	rl := New(1, 1, 0)
	defer rl.Stop()

	// Exhaust key1
	rl.Allow("key1")
	if rl.Allow("key1") {
		t.Error("key1 should be exhausted")
	}

	// key2 should still work
	if !rl.Allow("key2") {
		t.Error("key2 should be independent and allowed")
	}
}

func TestKeyedRateLimiter_Sweep(t *testing.T) {
	rl := New(1, 1, time.Hour)
	defer rl.Stop()

	rl.Allow("old")
	rl.Allow("new")

	if n := rl.sweep(time.Now().Add(time.Minute)); n != 2 {
		t.Errorf("sweep() removed %d keys, want 2", n)
	}
	if rl.Len() != 0 {
		t.Errorf("Len() = %d after sweep, want 0", rl.Len())
	}

	// A forgotten key starts over with a full bucket.
	if !rl.Allow("old") {
		t.Error("swept key should be allowed again")
	}
}

func TestKeyedRateLimiter_BackgroundCleanup(t *testing.T) {
	rl := New(1, 1, 20*time.Millisecond)
	defer rl.Stop()

	rl.Allow("key")

	deadline := time.Now().Add(2 * time.Second)
	for rl.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if rl.Len() != 0 {
		t.Error("idle key was never swept")
	}
}

func TestKeyedRateLimiter_StopTwice(t *testing.T) {
	rl := New(1, 1, time.Minute)
	rl.Stop()
	rl.Stop()
}
