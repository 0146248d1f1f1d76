// Package checker implements the concurrent hyperlink availability checker:
// the worker pool, work/result queues, per-origin rate limiting, retrieval
// fallback, and classification logic.
package checker

import "time"

// Hyperlink is a single harvested occurrence of a URI. Immutable: once
// constructed it is never mutated, including by workers.
type Hyperlink struct {
	URI     string
	Docname string
	Lineno  int // 0 means absent
}

// Status classifies the outcome of checking a hyperlink.
type Status string

const (
	StatusWorking    Status = "working"
	StatusBroken     Status = "broken"
	StatusRedirected Status = "redirected"
	StatusIgnored    Status = "ignored"
	StatusUnchecked  Status = "unchecked"
	StatusLocal      Status = "local"
)

// CheckResult is the outcome of checking one hyperlink occurrence.
type CheckResult struct {
	URI     string
	Docname string
	Lineno  int
	Status  Status
	Message string
	Code    int
}

// CheckRequest is an entry in the priority work queue. A nil Hyperlink is
// the shutdown sentinel.
type CheckRequest struct {
	NextCheck time.Time
	Hyperlink *Hyperlink
}

// RateLimit is the per-origin back-off record.
type RateLimit struct {
	Delay     time.Duration
	NextCheck time.Time
}

// DocResolver maps a docname to the directory its source file lives in, so
// the classifier can resolve local relative paths. Harvesters that index
// their source tree implement this.
type DocResolver interface {
	SourceDir(docname string) (dir string, ok bool)
}
