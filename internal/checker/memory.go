package checker

import (
	"runtime"
	"runtime/debug"
	"sync"
	"time"
)

// throttleLevel indicates memory pressure severity for the worker pool.
type throttleLevel int

const (
	throttleNormal throttleLevel = iota
	throttleWarning
	throttleCritical
)

// memoryWatcher monitors heap pressure and tells runWorker when to pause
// between requests, adapted from the teacher's crawler.MemoryWatcher: a
// document tree's HTML/Markdown harvesting and the anchor tokenizer's
// streaming re-parse (anchor.go) can both hold a lot of response bodies in
// flight, so the worker pool backs off rather than growing the heap
// unbounded when checking a very large link set.
type memoryWatcher struct {
	mu         sync.RWMutex
	limitBytes int64
	lastLevel  throttleLevel
}

// newMemoryWatcher creates a watcher with the given soft limit in MB. A
// limit of 0 disables the watcher (Check always reports throttleNormal).
func newMemoryWatcher(limitMB int64) *memoryWatcher {
	limitBytes := limitMB * 1024 * 1024
	if limitBytes > 0 {
		debug.SetMemoryLimit(limitBytes)
	}
	return &memoryWatcher{limitBytes: limitBytes}
}

// Check reports the current heap usage against the limit.
func (m *memoryWatcher) Check() throttleLevel {
	if m.limitBytes <= 0 {
		return throttleNormal
	}

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	usedPercent := float64(stats.HeapAlloc) / float64(m.limitBytes) * 100

	var level throttleLevel
	switch {
	case usedPercent >= 90:
		level = throttleCritical
	case usedPercent >= 75:
		level = throttleWarning
	default:
		level = throttleNormal
	}

	m.mu.Lock()
	m.lastLevel = level
	m.mu.Unlock()
	return level
}

// pauseFor returns how long a worker should sleep before its next request
// given the current throttle level: none at throttleNormal, a short pause
// at throttleWarning, a longer one at throttleCritical to let GC catch up.
func pauseFor(level throttleLevel) time.Duration {
	switch level {
	case throttleCritical:
		return 500 * time.Millisecond
	case throttleWarning:
		return 100 * time.Millisecond
	default:
		return 0
	}
}
