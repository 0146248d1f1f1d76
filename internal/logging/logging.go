// Package logging provides the structured, leveled logging hyperguard uses
// for worker lifecycle, rate-limiter decisions, and classification
// outcomes, in the register the original implementation's logger.info/
// logger.warning calls use: one line per result, level elevated for
// results worth a human's attention.
package logging

import (
	"log/slog"
	"os"
	"time"

	"github.com/arnewalsh/hyperguard/internal/checker"
)

// New builds the logger hyperguard uses throughout, writing leveled,
// key-value text to w (typically os.Stderr so stdout stays free for
// machine-readable output). verbose raises the minimum level to Debug;
// otherwise only Info and above are emitted.
func New(w *os.File, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

// Result logs one classified hyperlink at the level its status warrants:
// Warn for broken links, and for redirects when hasAllowedRedirects is true
// (any allowed_redirects rule is configured, so a redirect that reached this
// point matched none of them); Info for redirects when no rule is
// configured, and for everything else.
func Result(log *slog.Logger, res checker.CheckResult, hasAllowedRedirects bool) {
	attrs := []any{
		slog.String("uri", res.URI),
		slog.String("docname", res.Docname),
		slog.Int("lineno", res.Lineno),
		slog.String("status", string(res.Status)),
	}
	if res.Message != "" {
		attrs = append(attrs, slog.String("message", res.Message))
	}
	if res.Code != 0 {
		attrs = append(attrs, slog.Int("code", res.Code))
	}

	switch res.Status {
	case checker.StatusBroken:
		log.Warn("broken link", attrs...)
	case checker.StatusRedirected:
		if hasAllowedRedirects {
			log.Warn("redirect", attrs...)
		} else {
			log.Info("redirect", attrs...)
		}
	default:
		log.Info("checked", attrs...)
	}
}

// RateLimited logs a worker deferring a request because origin is rate
// limited, wired as a checker.Config.RateLimitObserver.
func RateLimited(log *slog.Logger, origin string, next time.Time) {
	log.Info("rate limited", slog.String("origin", origin), slog.Time("next_check", next))
}
