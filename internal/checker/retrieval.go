package checker

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// retrievalMethod is a verb + "does this read the body" bundle. HEAD is
// non-streaming, GET is streaming (and required whenever the response body
// must be scanned for an anchor).
type retrievalMethod struct {
	verb   string
	stream bool
}

// retrievalMethods returns the ordered sequence of attempts for one
// request, per spec.md §4.2.2: GET-only when an anchor must be verified,
// otherwise HEAD followed by GET as a fallback.
func retrievalMethods(cfg Config, anchor string) []retrievalMethod {
	if cfg.Anchors && anchor != "" {
		return []retrievalMethod{{verb: http.MethodGet, stream: true}}
	}
	return []retrievalMethod{
		{verb: http.MethodHead, stream: false},
		{verb: http.MethodGet, stream: true},
	}
}

// splitAnchor splits uri on the first '#' into a request URL and an
// anchor, discarding the anchor if it matches any anchorsIgnore pattern.
func splitAnchor(uri string, anchorsIgnore []*regexp.Regexp) (reqURL, anchor string) {
	reqURL, anchor, found := strings.Cut(uri, "#")
	if !found {
		return reqURL, ""
	}
	for _, pat := range anchorsIgnore {
		if pat.MatchString(anchor) {
			return reqURL, ""
		}
	}
	return reqURL, anchor
}

// asciiEscapeURL percent-encodes the non-ASCII bytes of a URL, leaving any
// already-percent-encoded ASCII content untouched.
func asciiEscapeURL(raw string) string {
	isASCII := true
	for i := 0; i < len(raw); i++ {
		if raw[i] > 127 {
			isASCII = false
			break
		}
	}
	if isASCII {
		return raw
	}
	var b strings.Builder
	for _, r := range raw {
		if r <= 127 {
			b.WriteRune(r)
			continue
		}
		for _, c := range []byte(string(r)) {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

// originOf returns the scheme-authority pair (host[:port]) used as the
// rate-limiter key for uri.
func originOf(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return uri
	}
	return u.Host
}

// headersFor computes the request headers for uri: the first matching key
// among "scheme://netloc", "scheme://netloc/", the full uri, and "*" wins
// and is merged over the default Accept header. No match means no headers
// at all (not even the default).
func headersFor(cfg Config, uri string) map[string]string {
	var candidates []string
	if u, err := url.Parse(uri); err == nil && u.Scheme != "" && u.Host != "" {
		candidates = []string{
			u.Scheme + "://" + u.Host,
			u.Scheme + "://" + u.Host + "/",
			uri,
			"*",
		}
	} else {
		candidates = []string{uri, "*"}
	}

	for _, candidate := range candidates {
		for _, rule := range cfg.RequestHeaders {
			if rule.Prefix == candidate {
				merged := map[string]string{"Accept": defaultAcceptHeader}
				for k, v := range rule.Headers {
					merged[k] = v
				}
				return merged
			}
		}
	}
	return nil
}

// authFor returns the first auth rule matching uri, in configured order.
func authFor(cfg Config, uri string) (Credentials, bool) {
	for _, rule := range cfg.Auth {
		if rule.Pattern.MatchString(uri) {
			return rule.Credentials, true
		}
	}
	return Credentials{}, false
}
