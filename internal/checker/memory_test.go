package checker

import "testing"

func TestMemoryWatcherDisabledAtZeroLimit(t *testing.T) {
	mw := newMemoryWatcher(0)
	if level := mw.Check(); level != throttleNormal {
		t.Fatalf("level = %v, want throttleNormal with a disabled watcher", level)
	}
}

func TestMemoryWatcherNormalAtGenerousLimit(t *testing.T) {
	mw := newMemoryWatcher(1024)
	if level := mw.Check(); level != throttleNormal {
		t.Fatalf("level = %v, want throttleNormal with a 1GB limit", level)
	}
}

func TestMemoryWatcherThrottlesAtTinyLimit(t *testing.T) {
	mw := newMemoryWatcher(1)
	if level := mw.Check(); level == throttleNormal {
		t.Fatal("expected throttle level above normal with a 1MB limit")
	}
}

func TestPauseForLevels(t *testing.T) {
	if d := pauseFor(throttleNormal); d != 0 {
		t.Fatalf("pauseFor(throttleNormal) = %v, want 0", d)
	}
	if d := pauseFor(throttleWarning); d <= 0 {
		t.Fatal("expected a nonzero pause at throttleWarning")
	}
	if d := pauseFor(throttleCritical); d <= pauseFor(throttleWarning) {
		t.Fatal("expected throttleCritical pause to exceed throttleWarning pause")
	}
}
