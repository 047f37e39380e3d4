// Package ratelimit implements a fixed-window request counter keyed by
// client identifier. It is deliberately a fixed window, not a sliding
// log or token bucket: bursts at window boundaries are an accepted
// trade-off for simplicity. State is in-process and best-effort only; a
// horizontally scaled deployment needs a shared store instead.
package ratelimit

import (
	"math/rand"
	"sync"
	"time"
)

// Profile pairs a request limit with its window length.
type Profile struct {
	Limit  int
	Window time.Duration
}

// Endpoint sensitivity classes.
var (
	Permissive = Profile{Limit: 100, Window: time.Minute} // analytics/telemetry
	Moderate   = Profile{Limit: 10, Window: time.Minute}  // general API
	Strict     = Profile{Limit: 5, Window: time.Minute}   // user submissions
)

// Decision reports the outcome of one admission check, with the values
// needed for X-RateLimit response headers.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type record struct {
	count     int
	resetTime time.Time
}

// Limiter is shared across requests; the map is mutex-guarded because
// this runtime is multi-threaded.
type Limiter struct {
	mu      sync.Mutex
	records map[string]*record
	profile Profile
}

func New(profile Profile) *Limiter {
	return &Limiter{
		records: make(map[string]*record),
		profile: profile,
	}
}

// sweepProbability is the fraction of Allow calls that also sweep stale
// records, bounding memory without a background task.
const sweepProbability = 0.01

// Allow decides whether the request identified by key may proceed. A
// missing or expired record starts a fresh window with count 1.
func (l *Limiter) Allow(key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()

	if rand.Float64() < sweepProbability {
		l.sweepLocked(now)
	}

	rec, ok := l.records[key]
	if !ok || now.After(rec.resetTime) {
		l.records[key] = &record{count: 1, resetTime: now.Add(l.profile.Window)}
		return Decision{
			Allowed:    true,
			Limit:      l.profile.Limit,
			Remaining:  l.profile.Limit - 1,
			RetryAfter: l.profile.Window,
		}
	}

	rec.count++
	remaining := l.profile.Limit - rec.count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:    rec.count <= l.profile.Limit,
		Limit:      l.profile.Limit,
		Remaining:  remaining,
		RetryAfter: rec.resetTime.Sub(now),
	}
}

// sweepLocked drops records whose window has elapsed. Caller holds mu.
func (l *Limiter) sweepLocked(now time.Time) {
	for key, rec := range l.records {
		if now.After(rec.resetTime) {
			delete(l.records, key)
		}
	}
}
