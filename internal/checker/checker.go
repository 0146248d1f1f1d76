package checker

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ProgressEvent reports the running state of one Check call, sent after
// every result (network-checked or synchronously classified) to whatever
// channel a caller attached with WithProgress.
type ProgressEvent struct {
	URI     string
	Status  Status
	Checked int
	Broken  int
}

// Option configures a Check call.
type Option func(*options)

type options struct {
	progress chan<- ProgressEvent
}

// WithProgress attaches a secondary progress channel: Check sends one
// ProgressEvent per result and closes ch when the check completes. ch
// should be buffered or drained promptly, since Check never drops an
// event — a slow consumer backpressures result delivery.
func WithProgress(ch chan<- ProgressEvent) Option {
	return func(o *options) { o.progress = ch }
}

// Check runs every hyperlink in links through the checker and returns a
// channel of results. Ignored-by-pattern links are classified synchronously
// and emitted before any network activity begins, mirroring the original
// implementation's up-front filtering pass. The returned channel is closed
// once every hyperlink (network-checked or not) has produced exactly one
// result. ctx is propagated down to each HTTP request: cancelling it aborts
// in-flight requests (which then classify as broken), but it does not stop
// the workers, which keep draining the queue.
func Check(ctx context.Context, cfg Config, links map[string]Hyperlink, opts ...Option) <-chan CheckResult {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	raw := make(chan CheckResult, len(links))
	out := make(chan CheckResult, len(links))
	rl := NewRateLimiter(cfg.RateLimitTimeout)
	wq := newWorkQueue()
	client := newHTTPClient()
	mw := newMemoryWatcher(cfg.MemoryLimitMB)

	for _, hl := range links {
		if isIgnored(cfg, hl.URI) {
			raw <- CheckResult{URI: hl.URI, Docname: hl.Docname, Lineno: hl.Lineno, Status: StatusIgnored}
			continue
		}
		hl := hl
		wq.Push(CheckRequest{Hyperlink: &hl})
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	// Worker lifecycle is managed with an errgroup, the same pattern the
	// teacher's crawler.Run uses for its fetch pool: every worker is a group
	// member, and the group's Wait is what the shutdown goroutine blocks on
	// before it's safe to close the result channel.
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			runWorker(gctx, wq, raw, rl, cfg, client, mw)
			return nil
		})
	}

	go func() {
		wq.Join()
		for i := 0; i < workers; i++ {
			wq.Push(CheckRequest{})
		}
		_ = g.Wait()
		close(raw)
	}()

	go fanOut(raw, out, o.progress)

	return out
}

// fanOut forwards every result from raw to out, tallying a running
// checked/broken count and, when progress is non-nil, emitting one
// ProgressEvent per result before forwarding it.
func fanOut(raw <-chan CheckResult, out chan<- CheckResult, progress chan<- ProgressEvent) {
	defer close(out)
	if progress != nil {
		defer close(progress)
	}

	checked, broken := 0, 0
	for res := range raw {
		checked++
		if res.Status == StatusBroken {
			broken++
		}
		if progress != nil {
			progress <- ProgressEvent{URI: res.URI, Status: res.Status, Checked: checked, Broken: broken}
		}
		out <- res
	}
}
