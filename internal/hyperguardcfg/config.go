// Package hyperguardcfg loads checker.Config from a YAML file.
package hyperguardcfg

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/arnewalsh/hyperguard/internal/checker"
	"gopkg.in/yaml.v3"
)

// file mirrors the YAML document shape; field names match the recognized
// option names from SPEC_FULL.md §4.7 (the same names the original
// implementation's linkcheck_* config values use, minus the prefix).
type file struct {
	IgnoreURIs       []string          `yaml:"ignore_uris"`
	ExcludeDocuments []string          `yaml:"exclude_documents"`
	AllowedRedirects map[string]string `yaml:"allowed_redirects"`
	Auth             []authEntry       `yaml:"auth"`
	RequestHeaders   map[string]map[string]string `yaml:"request_headers"`
	Retries          *int              `yaml:"retries"`
	Timeout          *float64          `yaml:"timeout"`
	Workers          *int              `yaml:"workers"`
	Anchors          *bool             `yaml:"anchors"`
	AnchorsIgnore    []string          `yaml:"anchors_ignore"`
	RateLimitTimeout *float64          `yaml:"rate_limit_timeout"`
	UserAgent        *string           `yaml:"user_agent"`
}

type authEntry struct {
	Pattern  string `yaml:"pattern"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Load reads and validates a Config from the YAML file at path, applying
// the documented defaults (checker.DefaultConfig) to any field the file
// leaves absent. Every regular expression is compiled eagerly, erroring out
// on a bad pattern instead of failing later mid-check, mirroring the
// original's compile_linkcheck_allowed_redirects.
func Load(path string) (checker.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return checker.Config{}, fmt.Errorf("hyperguardcfg: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a Config directly from YAML bytes, for callers that already
// have the document in memory (tests, embedded defaults).
func Parse(data []byte) (checker.Config, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return checker.Config{}, fmt.Errorf("hyperguardcfg: parse: %w", err)
	}

	cfg := checker.DefaultConfig()

	var err error
	if cfg.IgnoreURIs, err = compileAll(f.IgnoreURIs); err != nil {
		return checker.Config{}, fmt.Errorf("hyperguardcfg: ignore_uris: %w", err)
	}
	if cfg.ExcludeDocuments, err = compileAll(f.ExcludeDocuments); err != nil {
		return checker.Config{}, fmt.Errorf("hyperguardcfg: exclude_documents: %w", err)
	}
	if len(f.AnchorsIgnore) > 0 {
		if cfg.AnchorsIgnore, err = compileAll(f.AnchorsIgnore); err != nil {
			return checker.Config{}, fmt.Errorf("hyperguardcfg: anchors_ignore: %w", err)
		}
	}

	if len(f.AllowedRedirects) > 0 {
		cfg.AllowedRedirects = make([]checker.RedirectRule, 0, len(f.AllowedRedirects))
		for from, to := range f.AllowedRedirects {
			fromRe, err := regexp.Compile(from)
			if err != nil {
				return checker.Config{}, fmt.Errorf("hyperguardcfg: allowed_redirects key %q: %w", from, err)
			}
			toRe, err := regexp.Compile(to)
			if err != nil {
				return checker.Config{}, fmt.Errorf("hyperguardcfg: allowed_redirects value %q: %w", to, err)
			}
			cfg.AllowedRedirects = append(cfg.AllowedRedirects, checker.RedirectRule{From: fromRe, To: toRe})
		}
	}

	for _, a := range f.Auth {
		pat, err := regexp.Compile(a.Pattern)
		if err != nil {
			return checker.Config{}, fmt.Errorf("hyperguardcfg: auth pattern %q: %w", a.Pattern, err)
		}
		cfg.Auth = append(cfg.Auth, checker.AuthRule{
			Pattern:     pat,
			Credentials: checker.Credentials{Username: a.Username, Password: a.Password},
		})
	}

	for prefix, headers := range f.RequestHeaders {
		cfg.RequestHeaders = append(cfg.RequestHeaders, checker.HeaderRule{Prefix: prefix, Headers: headers})
	}

	if f.Retries != nil {
		cfg.Retries = *f.Retries
	}
	if f.Timeout != nil {
		cfg.Timeout = time.Duration(*f.Timeout * float64(time.Second))
	}
	if f.Workers != nil {
		cfg.Workers = *f.Workers
	}
	if f.Anchors != nil {
		cfg.Anchors = *f.Anchors
	}
	if f.RateLimitTimeout != nil {
		cfg.RateLimitTimeout = time.Duration(*f.RateLimitTimeout * float64(time.Second))
	}
	if f.UserAgent != nil {
		cfg.UserAgent = *f.UserAgent
	}

	return cfg, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}
