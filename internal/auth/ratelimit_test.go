package auth

import (
	"testing"
	"time"
)

func TestAllowWithinWindow(t *testing.T) {
	now := time.Now()
	limiter := NewRateLimiter()
	limiter.clock = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !limiter.Allow("k", time.Minute, 3) {
			t.Fatalf("attempt %d denied under the limit", i+1)
		}
	}
	if limiter.Allow("k", time.Minute, 3) {
		t.Fatalf("attempt over the limit allowed")
	}

	// Window elapses, counter resets.
	now = now.Add(time.Minute)
	if !limiter.Allow("k", time.Minute, 3) {
		t.Fatalf("attempt denied after window reset")
	}
}

func TestAllowKeysAreIndependent(t *testing.T) {
	now := time.Now()
	limiter := NewRateLimiter()
	limiter.clock = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		limiter.AllowLogin("10.0.0.1")
	}
	if limiter.AllowLogin("10.0.0.1") {
		t.Fatalf("sixth login attempt allowed")
	}
	if !limiter.AllowLogin("10.0.0.2") {
		t.Fatalf("other address blocked")
	}
	// A different action from the exhausted address still passes.
	if !limiter.AllowHostCreate("10.0.0.1") {
		t.Fatalf("host create blocked by login counter")
	}
}

func TestSocketLimits(t *testing.T) {
	now := time.Now()
	limiter := NewRateLimiter()
	limiter.clock = func() time.Time { return now }

	cases := []struct {
		name  string
		allow func(string) bool
		max   int
	}{
		{"player join", limiter.AllowPlayerJoin, PlayerJoinMax},
		{"host create", limiter.AllowHostCreate, HostActionMax},
		{"host join", limiter.AllowHostJoin, HostActionMax},
		{"get state", limiter.AllowHostGetState, HostGetStateMax},
	}
	for _, tc := range cases {
		for i := 0; i < tc.max; i++ {
			if !tc.allow("addr") {
				t.Fatalf("%s: attempt %d denied under the limit", tc.name, i+1)
			}
		}
		if tc.allow("addr") {
			t.Fatalf("%s: attempt over the limit allowed", tc.name)
		}
	}
}

func TestRateLimiterSweep(t *testing.T) {
	now := time.Now()
	limiter := NewRateLimiter()
	limiter.clock = func() time.Time { return now }

	limiter.Allow("short", time.Minute, 5)
	limiter.Allow("long", time.Hour, 5)

	now = now.Add(2 * time.Minute)
	if removed := limiter.Sweep(); removed != 1 {
		t.Fatalf("expected 1 entry swept, got %d", removed)
	}
	if len(limiter.attempts) != 1 {
		t.Fatalf("expected 1 live entry, got %d", len(limiter.attempts))
	}
}
