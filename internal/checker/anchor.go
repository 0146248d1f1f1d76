package checker

import (
	"bytes"
	"io"
	"net/url"

	"golang.org/x/net/html"
)

// anchorChunkSize is the read size used while streaming a response body
// looking for a matching anchor; small enough to close the connection
// early on a hit without downloading the whole page.
const anchorChunkSize = 4096

// AnchorMatcher streams HTML input looking for an element whose id or name
// attribute equals a target anchor. It accepts partial input fed chunk by
// chunk (Feed) and supports early termination: once Found reports true the
// caller can stop feeding it and abandon the rest of the response body.
type AnchorMatcher struct {
	target string
	buf    bytes.Buffer
	found  bool
}

// NewAnchorMatcher builds a matcher for the given (percent-encoded) anchor
// name. The target is percent-decoded once up front, matching the original
// implementation's unquote(anchor) call.
func NewAnchorMatcher(anchor string) *AnchorMatcher {
	target := anchor
	if decoded, err := url.PathUnescape(anchor); err == nil {
		target = decoded
	}
	return &AnchorMatcher{target: target}
}

// Feed appends the next chunk of response body and re-scans for the anchor.
func (m *AnchorMatcher) Feed(chunk []byte) {
	if m.found {
		return
	}
	m.buf.Write(chunk)
	m.scan()
}

func (m *AnchorMatcher) scan() {
	tok := html.NewTokenizer(bytes.NewReader(m.buf.Bytes()))
	for {
		tt := tok.Next()
		if tt == html.ErrorToken {
			return
		}
		if tt == html.StartTagToken || tt == html.SelfClosingTagToken {
			t := tok.Token()
			for _, attr := range t.Attr {
				if (attr.Key == "id" || attr.Key == "name") && attr.Val == m.target {
					m.found = true
					return
				}
			}
		}
	}
}

// Found reports whether the target anchor has been seen so far.
func (m *AnchorMatcher) Found() bool {
	return m.found
}

// StreamContains drains body in anchorChunkSize chunks looking for anchor,
// stopping as soon as a match is found so the caller can abandon the
// connection instead of downloading the remainder of the page.
func StreamContains(body io.Reader, anchor string) bool {
	m := NewAnchorMatcher(anchor)
	buf := make([]byte, anchorChunkSize)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			m.Feed(buf[:n])
			if m.Found() {
				break
			}
		}
		if err != nil {
			break
		}
	}
	return m.Found()
}
