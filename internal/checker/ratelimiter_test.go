package checker

import (
	"testing"
	"time"
)

func TestRateLimiterRecordNumericRetryAfter(t *testing.T) {
	rl := NewRateLimiter(300 * time.Second)
	before := time.Now()
	next, ok := rl.Record("example.com", "2")
	if !ok {
		t.Fatalf("Record returned ok=false")
	}
	if d := next.Sub(before); d < 2*time.Second || d > 3*time.Second {
		t.Fatalf("expected ~2s delay, got %v", d)
	}
}

func TestRateLimiterRecordHTTPDate(t *testing.T) {
	rl := NewRateLimiter(300 * time.Second)
	future := time.Now().Add(90 * time.Second).UTC().Format("Mon, 02 Jan 2006 15:04:05 GMT")
	next, ok := rl.Record("example.com", future)
	if !ok {
		t.Fatalf("Record returned ok=false")
	}
	if next.Sub(time.Now()) < 80*time.Second {
		t.Fatalf("expected next-check near future date, got %v", next)
	}
}

func TestRateLimiterRecordExponentialBackoff(t *testing.T) {
	rl := NewRateLimiter(300 * time.Second)
	first, ok := rl.Record("example.com", "")
	if !ok || first.Sub(time.Now()) < 50*time.Second {
		t.Fatalf("expected default 60s backoff, got %v ok=%v", first, ok)
	}
	second, ok := rl.Record("example.com", "")
	if !ok {
		t.Fatalf("second Record returned ok=false")
	}
	if second.Sub(time.Now()) < first.Sub(time.Now()) {
		t.Fatalf("expected doubled backoff to exceed the first")
	}
}

func TestRateLimiterRecordCapExceeded(t *testing.T) {
	rl := NewRateLimiter(30 * time.Second)
	_, ok := rl.Record("example.com", "")
	if ok {
		t.Fatalf("expected default 60s backoff to exceed a 30s cap and ok=false")
	}
}

func TestRateLimiterClear(t *testing.T) {
	rl := NewRateLimiter(300 * time.Second)
	rl.Record("example.com", "60")
	rl.Clear("example.com")
	if _, ok := rl.NextCheck("example.com"); ok {
		t.Fatalf("expected no entry after Clear")
	}
}

func TestRateLimiterNextCheckUnknownOrigin(t *testing.T) {
	rl := NewRateLimiter(300 * time.Second)
	if _, ok := rl.NextCheck("never-seen.example"); ok {
		t.Fatalf("expected ok=false for unseen origin")
	}
}
