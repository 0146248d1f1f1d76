package checker

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// defaultBackoffDelay is applied the first time an origin is rate-limited
// with no usable Retry-After header.
const defaultBackoffDelay = 60 * time.Second

// courtesyRate is the default minimum pacing applied to successful requests
// against a single origin, independent of any back-off in effect. It never
// changes a result's classification, only when the next attempt is allowed
// to start.
const courtesyRate = 4 // requests per second per origin

// RateLimiter is the single source of truth for per-origin pacing. Every
// worker consults it before issuing a request. Safe for concurrent use.
type RateLimiter struct {
	mu      sync.Mutex
	entries map[string]*rateLimiterEntry
	cap     time.Duration
}

type rateLimiterEntry struct {
	RateLimit
	courtesy *rate.Limiter
}

// NewRateLimiter builds a RateLimiter whose exponential back-off is capped
// at cap (rate_limit_timeout in spec.md terms); a non-positive cap means 300s.
func NewRateLimiter(cap time.Duration) *RateLimiter {
	if cap <= 0 {
		cap = 300 * time.Second
	}
	return &RateLimiter{entries: make(map[string]*rateLimiterEntry), cap: cap}
}

// NextCheck reports the currently recorded next-check time for origin, if
// any. Workers re-read this at dequeue time so a fresher, lower value can
// supersede an earlier pessimistic one (spec.md §9).
func (r *RateLimiter) NextCheck(origin string) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[origin]
	if !ok || e.NextCheck.IsZero() {
		return time.Time{}, false
	}
	return e.NextCheck, true
}

// Clear removes any back-off state for origin, called on a successful
// response. The origin's courtesy pacing limiter, if any, is kept.
func (r *RateLimiter) Clear(origin string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[origin]
	if !ok {
		return
	}
	if e.courtesy == nil {
		delete(r.entries, origin)
		return
	}
	e.RateLimit = RateLimit{}
}

// Wait blocks until the courtesy pacing limiter for origin admits the next
// request. This is the soft, always-on spacing layer described in
// SPEC_FULL.md §4.3; it is independent of the hard back-off gate the worker
// checks via NextCheck.
func (r *RateLimiter) Wait(origin string) {
	r.mu.Lock()
	e, ok := r.entries[origin]
	if !ok {
		e = &rateLimiterEntry{courtesy: rate.NewLimiter(rate.Limit(courtesyRate), 1)}
		r.entries[origin] = e
	}
	limiter := e.courtesy
	r.mu.Unlock()
	if limiter != nil {
		_ = limiter.Wait(context.Background())
	}
}

// Record applies the reaction to an HTTP 429 response: honor Retry-After if
// present and parseable (numeric seconds or an HTTP-date), otherwise double
// the previous back-off (or start at defaultBackoffDelay), capped at r.cap.
// Returns the computed next-check time, or ok=false if the back-off would
// exceed the cap and the caller should give up instead of waiting.
func (r *RateLimiter) Record(origin string, retryAfter string) (next time.Time, ok bool) {
	now := time.Now()

	var delay time.Duration
	var haveExplicit bool

	if retryAfter != "" {
		if secs, err := strconv.ParseFloat(retryAfter, 64); err == nil {
			delay = time.Duration(secs * float64(time.Second))
			next = now.Add(delay)
			haveExplicit = true
		} else if when, err := http.ParseTime(retryAfter); err == nil {
			next = when
			delay = when.Sub(now)
			haveExplicit = true
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !haveExplicit {
		prev, hasPrev := r.entries[origin]
		// An entry created by Wait alone carries no back-off yet.
		if !hasPrev || prev.NextCheck.IsZero() {
			delay = defaultBackoffDelay
		} else {
			prevDelay := prev.Delay
			delay = 2 * prevDelay
			if delay > r.cap && prevDelay < r.cap {
				delay = r.cap
			}
		}
		if delay > r.cap {
			return time.Time{}, false
		}
		next = now.Add(delay)
	}

	e, existing := r.entries[origin]
	if !existing {
		e = &rateLimiterEntry{}
		r.entries[origin] = e
	}
	e.Delay = delay
	e.NextCheck = next
	return next, true
}
