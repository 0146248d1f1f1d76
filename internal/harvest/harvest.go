// Package harvest walks a documentation tree and collects the hyperlinks it
// contains, ready to hand to internal/checker.
package harvest

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/arnewalsh/hyperguard/internal/checker"
	"golang.org/x/net/html"
)

// RewriteFunc transforms a harvested URI before it is inserted into the
// result map, once per occurrence. A false second return value leaves the
// URI unchanged.
type RewriteFunc func(uri string) (string, bool)

// DocIndex maps a docname (the source tree's logical document identifier,
// here its path relative to root with the extension stripped) to the path
// of its source file. Implements checker.DocResolver.
type DocIndex map[string]string

// SourceDir returns the directory containing docname's source file, used
// by classify.go's localResult to resolve a relative local-path link.
func (idx DocIndex) SourceDir(docname string) (string, bool) {
	path, ok := idx[docname]
	if !ok {
		return "", false
	}
	return filepath.Dir(path), true
}

// SourcePath returns the path of docname's source file itself, used by
// internal/report to print the "{filename}:{line}" report prefix
// (spec.md §6), matching the original implementation's
// env.doc2path(docname).
func (idx DocIndex) SourcePath(docname string) (string, bool) {
	path, ok := idx[docname]
	return path, ok
}

var (
	sourceExtensions = map[string]bool{".md": true, ".rst": true, ".html": true, ".htm": true}
	mdLinkRe         = regexp.MustCompile(`\[[^\]]*\]\(([^)\s]+)\)`)
	bareURLRe        = regexp.MustCompile(`https?://[^\s)\]"'<>]+`)
)

// Walk walks root for Markdown/reStructuredText/HTML-ish source files,
// harvesting every hyperlink occurrence into a deduplicated
// map[string]Hyperlink keyed by URI (Invariant 1 of SPEC_FULL.md §3: a
// single occurrence per distinct URI survives). rewrite, if non-nil, runs
// once per raw URI before dedup and insertion — this is the "URI-rewrite
// hook" hyperguard exposes so callers can canonicalize fragments (see
// RewriteGitHubAnchor) before the checker ever sees them.
//
// For large trees, Walk also checks a bounded-memory bloom filter before
// doing the (more expensive) map lookup; see dedup.go.
func Walk(root string, rewrite RewriteFunc) (map[string]checker.Hyperlink, DocIndex, error) {
	links := make(map[string]checker.Hyperlink)
	index := make(DocIndex)
	dedup, err := newDedupAccelerator()
	if err != nil {
		return nil, nil, fmt.Errorf("harvest: %w", err)
	}
	defer dedup.Close()

	walkErr := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if !sourceExtensions[ext] {
			return nil
		}

		docname := docnameFor(root, path)
		index[docname] = path

		occurrences, err := collect(path, ext)
		if err != nil {
			return fmt.Errorf("harvest %s: %w", path, err)
		}

		for _, occ := range occurrences {
			uri := normalizeCase(occ.uri)
			if rewrite != nil {
				if rewritten, ok := rewrite(uri); ok {
					uri = rewritten
				}
			}
			// The bloom filter has no false negatives: if it reports a URI
			// as definitely new, skip the map lookup entirely and insert.
			// A "maybe seen" report defers to the map, the sole source of
			// truth, so a false positive can at worst cost an extra lookup
			// on a URI that really was a duplicate — never drop a distinct
			// one (SPEC_FULL.md §4.6).
			if dedup.MaybeSeen(uri) {
				if _, exists := links[uri]; exists {
					continue
				}
			}
			dedup.Mark(uri)
			links[uri] = checker.Hyperlink{URI: uri, Docname: docname, Lineno: occ.lineno}
		}
		return nil
	})
	if walkErr != nil {
		return nil, nil, fmt.Errorf("harvest: walk %s: %w", root, walkErr)
	}

	return links, index, nil
}

// normalizeCase lowercases a URI's scheme and host so two occurrences that
// differ only in case collapse to one dedup key, adapted from the teacher's
// urlutil.Normalize. Unlike that function this never touches the fragment:
// a fragment is an anchor to verify (splitAnchor in internal/checker), not
// cruft to discard, so two occurrences differing only by fragment must
// remain distinct hyperlinks. Local paths and non-http(s) schemes are
// returned unchanged since url.Parse's notion of "host" doesn't apply.
func normalizeCase(uri string) string {
	parsed, err := url.Parse(uri)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return uri
	}
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	return parsed.String()
}

func docnameFor(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	return strings.TrimSuffix(rel, filepath.Ext(rel))
}

type occurrence struct {
	uri    string
	lineno int
}

// collect extracts hyperlink occurrences from a single source file. HTML
// files are tokenized (grounded on the teacher's ExtractLinks use of
// golang.org/x/net/html.Tokenizer); Markdown/reST files are scanned
// line-by-line for inline link syntax and bare http(s) URLs, mirroring
// original_source's reference-node/raw-node collection, since hyperguard
// harvests from plain text source, not a parsed doctree.
func collect(path, ext string) ([]occurrence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if ext == ".html" || ext == ".htm" {
		return collectHTML(f)
	}
	return collectText(f)
}

func collectHTML(f *os.File) ([]occurrence, error) {
	var occurrences []occurrence
	tokenizer := html.NewTokenizer(f)
	lineno := 1
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return occurrences, nil
		case html.TextToken:
			lineno += strings.Count(string(tokenizer.Text()), "\n")
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := tokenizer.Token()
			attrKey := hrefAttrFor(tok.Data)
			if attrKey == "" {
				continue
			}
			for _, attr := range tok.Attr {
				if attr.Key == attrKey && attr.Val != "" {
					occurrences = append(occurrences, occurrence{uri: attr.Val, lineno: lineno})
				}
			}
		}
	}
}

func hrefAttrFor(tag string) string {
	switch tag {
	case "a", "link":
		return "href"
	case "img", "script":
		return "src"
	default:
		return ""
	}
}

func collectText(f *os.File) ([]occurrence, error) {
	var occurrences []occurrence
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := scanner.Text()
		for _, m := range mdLinkRe.FindAllStringSubmatch(line, -1) {
			occurrences = append(occurrences, occurrence{uri: m[1], lineno: lineno})
		}
		for _, m := range bareURLRe.FindAllString(line, -1) {
			occurrences = append(occurrences, occurrence{uri: m, lineno: lineno})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return occurrences, nil
}
