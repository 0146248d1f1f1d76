package checker

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// schemeRe matches "foo://" or the protocol-relative "//" prefix, the same
// pattern the original implementation uses to recognize unsupported but
// well-formed URI schemes (ftp://, file://, and the like). A scheme without
// "//" (data:, javascript:) does not match and falls through to the
// local-path branch.
var schemeRe = regexp.MustCompile(`^([a-z]+:)?//`)

// triage performs the pre-network checks of spec.md §4.2.1, in order. It
// returns ok=false when the network should still be consulted.
func triage(cfg Config, uri, docname string) (CheckResult, bool) {
	for _, pat := range cfg.ExcludeDocuments {
		if pat.MatchString(docname) {
			return CheckResult{
				URI: uri, Docname: docname, Status: StatusIgnored,
				Message: fmt.Sprintf("%s matched %s from exclude_documents", docname, pat.String()),
			}, true
		}
	}

	if uri == "" || strings.HasPrefix(uri, "#") || strings.HasPrefix(uri, "mailto:") || strings.HasPrefix(uri, "tel:") {
		return CheckResult{URI: uri, Docname: docname, Status: StatusUnchecked}, true
	}

	if !strings.HasPrefix(uri, "http:") && !strings.HasPrefix(uri, "https:") {
		if schemeRe.MatchString(uri) {
			return CheckResult{URI: uri, Docname: docname, Status: StatusUnchecked}, true
		}
		return localResult(cfg, uri, docname), true
	}

	return CheckResult{}, false
}

// localResult resolves a relative URI against the directory of the source
// file containing docname (spec.md §4.2.1's local-path branch).
func localResult(cfg Config, uri, docname string) CheckResult {
	dir := "."
	if cfg.Resolver != nil {
		if d, ok := cfg.Resolver.SourceDir(docname); ok {
			dir = d
		}
	}
	if _, err := os.Stat(filepath.Join(dir, uri)); err == nil {
		return CheckResult{URI: uri, Docname: docname, Status: StatusWorking}
	}
	return CheckResult{URI: uri, Docname: docname, Status: StatusBroken}
}

// isIgnored reports whether uri matches any ignore_uris pattern.
func isIgnored(cfg Config, uri string) bool {
	for _, pat := range cfg.IgnoreURIs {
		if pat.MatchString(uri) {
			return true
		}
	}
	return false
}
