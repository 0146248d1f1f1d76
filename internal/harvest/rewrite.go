package harvest

import (
	"net/url"
	"strings"
)

// RewriteGitHubAnchor is a RewriteFunc that canonicalizes github.com
// fragments before they reach the checker. GitHub renders anchor names
// dynamically (its markdown-to-HTML pipeline prefixes heading ids with
// "user-content-"), so a hand-written link to "#installation" never matches
// the rendered page's actual id unless rewritten first. Ported from
// rewrite_github_anchor in the original implementation.
func RewriteGitHubAnchor(uri string) (string, bool) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return uri, false
	}
	if parsed.Hostname() != "github.com" || parsed.Fragment == "" {
		return uri, false
	}
	if strings.HasPrefix(parsed.Fragment, "user-content-") {
		return uri, false
	}
	parsed.Fragment = "user-content-" + parsed.Fragment
	return parsed.String(), true
}
