// Package report writes CheckResult streams to the text and JSON-lines
// outputs described in SPEC_FULL.md §4.8, ported line-for-line from the
// original implementation's write_entry/write_linkstat/process_result.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/arnewalsh/hyperguard/internal/checker"
	"github.com/arnewalsh/hyperguard/internal/harvest"
)

// redirectText maps a redirect's hop status code to the phrase used in
// both report outputs, ported verbatim from process_result's lookup table.
var redirectText = map[int]string{
	301: "permanently",
	302: "with Found",
	303: "with See Other",
	307: "temporarily",
	308: "permanently",
}

func redirectPhrase(code int) string {
	if text, ok := redirectText[code]; ok {
		return text
	}
	return "with unknown code"
}

// jsonLine is the shape written by WriteJSONL, matching process_result's
// linkstat dict field-for-field.
type jsonLine struct {
	Filename string `json:"filename"`
	Lineno   int    `json:"lineno"`
	Status   string `json:"status"`
	Code     int    `json:"code"`
	URI      string `json:"uri"`
	Info     string `json:"info"`
	Text     string `json:"text,omitempty"`
}

// filenameFor resolves res.Docname to its source file path via index,
// falling back to the docname itself when the index has no entry (e.g. a
// hyperlink harvested from a document that no longer exists by report
// time), matching process_result's filename = env.doc2path(docname).
func filenameFor(index harvest.DocIndex, docname string) string {
	if index == nil {
		return docname
	}
	if path, ok := index.SourcePath(docname); ok {
		return path
	}
	return docname
}

// WriteJSONL writes one JSON line for res, unconditionally — every result
// gets a linkstat entry regardless of status, matching process_result's
// write_linkstat call which runs before any status branching.
func WriteJSONL(w io.Writer, index harvest.DocIndex, res checker.CheckResult) error {
	line := jsonLine{
		Filename: filenameFor(index, res.Docname),
		Lineno:   res.Lineno,
		Status:   string(res.Status),
		Code:     res.Code,
		URI:      res.URI,
		Info:     res.Message,
	}
	if res.Status == checker.StatusRedirected {
		line.Text = redirectPhrase(res.Code)
	}

	data, err := json.Marshal(line)
	if err != nil {
		return fmt.Errorf("report: marshal linkstat: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("report: write linkstat: %w", err)
	}
	return nil
}

// WriteText writes a human-readable entry for res to w, in the format
// "{filename}:{line}: [{kind}] {uri}[: {message}]". Matching
// process_result, working, ignored and unchecked results never produce a
// text line; only local, broken and redirected results do. (The "old"
// Message check on working results mirrors process_result; hyperguard's
// checker never sets that message.)
func WriteText(w io.Writer, index harvest.DocIndex, res checker.CheckResult) error {
	filename := filenameFor(index, res.Docname)

	switch res.Status {
	case checker.StatusUnchecked:
		return nil
	case checker.StatusWorking:
		if res.Message == "old" {
			return nil
		}
		return nil
	case checker.StatusIgnored:
		return nil
	case checker.StatusLocal:
		return writeEntry(w, "local", filename, res.Lineno, res.URI)
	case checker.StatusBroken:
		return writeEntry(w, "broken", filename, res.Lineno, res.URI+": "+res.Message)
	case checker.StatusRedirected:
		text := redirectPhrase(res.Code)
		return writeEntry(w, "redirected "+text, filename, res.Lineno, res.URI+" to "+res.Message)
	default:
		panic(fmt.Sprintf("report: unknown status %q", res.Status))
	}
}

func writeEntry(w io.Writer, kind, filename string, lineno int, uri string) error {
	if _, err := fmt.Fprintf(w, "%s:%d: [%s] %s\n", filename, lineno, kind, uri); err != nil {
		return fmt.Errorf("report: write entry: %w", err)
	}
	return nil
}
