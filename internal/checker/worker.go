package checker

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// queuePollInterval is how long a worker sleeps before re-enqueuing a
// request that is still inside its origin's rate-limit window, so it
// yields the CPU instead of busy-waiting (spec.md §4.2 step 3).
const queuePollInterval = 1 * time.Second

type hopRecorderKey struct{}

// hopRecorder captures the status code of the last redirect hop seen while
// following a request's redirect chain. One instance per logical request;
// only the worker goroutine issuing that request touches it.
type hopRecorder struct {
	code int
	seen bool
}

// recordingTransport wraps a base RoundTripper and records 3xx hops into
// whatever hopRecorder is attached to the request's context, so callers can
// recover "the status code of the last redirect hop" after following
// redirects (net/http's Client otherwise discards intermediate responses).
type recordingTransport struct {
	base http.RoundTripper
}

func (t *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err == nil && resp.StatusCode >= 300 && resp.StatusCode < 400 && resp.Header.Get("Location") != "" {
		if rec, ok := req.Context().Value(hopRecorderKey{}).(*hopRecorder); ok {
			rec.code = resp.StatusCode
			rec.seen = true
		}
	}
	return resp, err
}

// newHTTPClient builds the shared client used by every worker. The dial
// timeout is the closest Go equivalent to the original implementation's
// process-wide socket.setdefaulttimeout(5.0) safety net.
func newHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
	}
	return &http.Client{
		Transport: &recordingTransport{base: transport},
	}
}

// runWorker is the main loop of one worker goroutine: dequeue, rate-gate,
// classify-and-check, emit. It terminates when it pops a shutdown sentinel.
func runWorker(ctx context.Context, wq *workQueue, results chan<- CheckResult, rl *RateLimiter, cfg Config, client *http.Client, mw *memoryWatcher) {
	for {
		req := wq.Pop()
		if req.Hyperlink == nil {
			wq.Done()
			return
		}

		if mw != nil {
			if pause := pauseFor(mw.Check()); pause > 0 {
				time.Sleep(pause)
			}
		}

		hl := *req.Hyperlink
		origin := originOf(hl.URI)

		nextCheck := req.NextCheck
		if nc, ok := rl.NextCheck(origin); ok {
			// A fresher rate-limit entry may supersede (lower or raise)
			// the value this request was queued with (spec.md §9).
			nextCheck = nc
		}
		if !nextCheck.IsZero() && nextCheck.After(time.Now()) {
			if cfg.RateLimitObserver != nil {
				cfg.RateLimitObserver(origin, nextCheck)
			}
			time.Sleep(queuePollInterval)
			wq.Push(CheckRequest{NextCheck: nextCheck, Hyperlink: req.Hyperlink})
			wq.Done()
			continue
		}

		res, requeued := classifyAndCheck(ctx, client, rl, wq, cfg, hl)
		if requeued {
			wq.Done()
			continue
		}
		results <- res
		wq.Done()
	}
}

// classifyAndCheck runs pre-network triage, then (for http/https URIs)
// retries the network check up to cfg.Retries times while the outcome is
// "broken" (spec.md §4.2.2).
func classifyAndCheck(ctx context.Context, client *http.Client, rl *RateLimiter, wq *workQueue, cfg Config, hl Hyperlink) (CheckResult, bool) {
	if res, ok := triage(cfg, hl.URI, hl.Docname); ok {
		res.Lineno = hl.Lineno
		return res, false
	}

	retries := cfg.Retries
	if retries <= 0 {
		retries = 1
	}

	var res CheckResult
	for attempt := 0; attempt < retries; attempt++ {
		var requeued, noRetry bool
		res, requeued, noRetry = checkURI(ctx, client, rl, wq, cfg, hl)
		if requeued {
			return CheckResult{}, true
		}
		if res.Status != StatusBroken || noRetry {
			break
		}
	}
	return res, false
}

// checkURI performs one "attempt" of spec.md §4.2.2: iterate the retrieval
// methods in order, stopping at the first terminal outcome.
func checkURI(ctx context.Context, client *http.Client, rl *RateLimiter, wq *workQueue, cfg Config, hl Hyperlink) (result CheckResult, requeued bool, noRetry bool) {
	reqURL, anchor := splitAnchor(hl.URI, cfg.AnchorsIgnore)
	reqURL = asciiEscapeURL(reqURL)
	origin := originOf(reqURL)

	var lastMessage string
	for _, method := range retrievalMethods(cfg, anchor) {
		out := tryMethod(ctx, client, rl, wq, cfg, hl, reqURL, anchor, origin, method)
		if out.requeued {
			return CheckResult{}, true, false
		}
		if out.stop {
			return out.result, false, out.noRetry
		}
		lastMessage = out.result.Message
	}

	return CheckResult{
		URI: hl.URI, Docname: hl.Docname, Lineno: hl.Lineno,
		Status: StatusBroken, Message: lastMessage,
	}, false, false
}

type methodOutcome struct {
	result   CheckResult
	requeued bool
	stop     bool
	noRetry  bool
}

// tryMethod issues a single HTTP attempt (HEAD or GET) and classifies the
// outcome per spec.md §4.2.2 steps 5-8.
func tryMethod(ctx context.Context, client *http.Client, rl *RateLimiter, wq *workQueue, cfg Config, hl Hyperlink, reqURL, anchor, origin string, method retrievalMethod) methodOutcome {
	reqCtx := ctx
	var cancel context.CancelFunc
	if cfg.Timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	rec := &hopRecorder{}
	reqCtx = context.WithValue(reqCtx, hopRecorderKey{}, rec)

	req, err := http.NewRequestWithContext(reqCtx, method.verb, reqURL, nil)
	if err != nil {
		return methodOutcome{result: brokenResult(hl, err.Error()), stop: true}
	}
	req.Header.Set("User-Agent", cfg.UserAgent)
	if headers := headersFor(cfg, hl.URI); headers != nil {
		for k, v := range headers {
			req.Header.Set(k, v)
		}
	}
	if creds, ok := authFor(cfg, hl.URI); ok {
		req.SetBasicAuth(creds.Username, creds.Password)
	}

	rl.Wait(origin)

	resp, err := client.Do(req)
	if err != nil {
		if isTLSError(err) {
			return methodOutcome{result: brokenResult(hl, err.Error()), stop: true, noRetry: true}
		}
		// Connection refused, DNS failure, too-many-redirects: try the
		// next retrieval method.
		return methodOutcome{result: brokenResult(hl, err.Error())}
	}
	defer resp.Body.Close()

	status := resp.StatusCode

	if status < 400 {
		if anchor != "" && !StreamContains(resp.Body, anchor) {
			return methodOutcome{
				result: brokenResult(hl, fmt.Sprintf("Anchor %q not found", decodeAnchor(anchor))),
				stop:   true,
			}
		}

		finalURL := resp.Request.URL.String()
		rl.Clear(origin)

		if trimSlash(finalURL) == trimSlash(reqURL) || allowedRedirect(cfg, reqURL, finalURL) {
			return methodOutcome{result: CheckResult{
				URI: hl.URI, Docname: hl.Docname, Lineno: hl.Lineno, Status: StatusWorking,
			}, stop: true}
		}
		if rec.seen {
			return methodOutcome{result: CheckResult{
				URI: hl.URI, Docname: hl.Docname, Lineno: hl.Lineno,
				Status: StatusRedirected, Message: finalURL, Code: rec.code,
			}, stop: true}
		}
		return methodOutcome{result: CheckResult{
			URI: hl.URI, Docname: hl.Docname, Lineno: hl.Lineno,
			Status: StatusRedirected, Message: finalURL,
		}, stop: true}
	}

	switch status {
	case http.StatusUnauthorized:
		return methodOutcome{result: CheckResult{
			URI: hl.URI, Docname: hl.Docname, Lineno: hl.Lineno,
			Status: StatusWorking, Message: "unauthorized",
		}, stop: true}

	case http.StatusTooManyRequests:
		next, ok := rl.Record(origin, resp.Header.Get("Retry-After"))
		if ok {
			if cfg.RateLimitObserver != nil {
				cfg.RateLimitObserver(origin, next)
			}
			wq.Push(CheckRequest{NextCheck: next, Hyperlink: &hl})
			return methodOutcome{requeued: true}
		}
		return methodOutcome{
			result: brokenResult(hl, fmt.Sprintf("%d %s", status, http.StatusText(status))),
			stop:   true,
		}

	case http.StatusServiceUnavailable:
		return methodOutcome{result: CheckResult{
			URI: hl.URI, Docname: hl.Docname, Lineno: hl.Lineno,
			Status: StatusIgnored, Message: "service unavailable",
		}, stop: true}

	default:
		// Other 4xx/5xx: try the next retrieval method.
		return methodOutcome{result: brokenResult(hl, fmt.Sprintf("%d %s", status, http.StatusText(status)))}
	}
}

func brokenResult(hl Hyperlink, message string) CheckResult {
	return CheckResult{URI: hl.URI, Docname: hl.Docname, Lineno: hl.Lineno, Status: StatusBroken, Message: message}
}

func trimSlash(u string) string {
	return strings.TrimSuffix(u, "/")
}

func allowedRedirect(cfg Config, from, to string) bool {
	for _, rule := range cfg.AllowedRedirects {
		if rule.From.MatchString(from) && rule.To.MatchString(to) {
			return true
		}
	}
	return false
}

func decodeAnchor(anchor string) string {
	m := NewAnchorMatcher(anchor)
	return m.target
}

// isTLSError reports whether err represents a TLS/certificate failure,
// which spec.md §4.2.2 treats as an immediate, non-retryable broken result.
func isTLSError(err error) bool {
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return true
	}
	var unknownAuth x509.UnknownAuthorityError
	if errors.As(err, &unknownAuth) {
		return true
	}
	var hostnameErr x509.HostnameError
	if errors.As(err, &hostnameErr) {
		return true
	}
	var certInvalid x509.CertificateInvalidError
	if errors.As(err, &certInvalid) {
		return true
	}
	var recordHeaderErr tls.RecordHeaderError
	if errors.As(err, &recordHeaderErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "x509:") || strings.Contains(msg, "tls:")
}
