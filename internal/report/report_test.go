package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/arnewalsh/hyperguard/internal/checker"
	"github.com/arnewalsh/hyperguard/internal/harvest"
)

func TestWriteTextBroken(t *testing.T) {
	var buf bytes.Buffer
	res := checker.CheckResult{URI: "https://example.com/x", Docname: "index", Lineno: 12, Status: checker.StatusBroken, Message: "404 Not Found"}
	if err := WriteText(&buf, nil, res); err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}
	got := buf.String()
	want := "index:12: [broken] https://example.com/x: 404 Not Found\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestWriteTextUsesFullSourcePathNotDirectory(t *testing.T) {
	var buf bytes.Buffer
	index := harvest.DocIndex{"guide": "docs/guide.md"}
	res := checker.CheckResult{URI: "https://example.com/x", Docname: "guide", Lineno: 12, Status: checker.StatusBroken, Message: "404 Not Found"}
	if err := WriteText(&buf, index, res); err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}
	want := "docs/guide.md:12: [broken] https://example.com/x: 404 Not Found\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestWriteTextRedirected(t *testing.T) {
	var buf bytes.Buffer
	res := checker.CheckResult{URI: "https://example.com/old", Docname: "index", Lineno: 3, Status: checker.StatusRedirected, Message: "https://example.com/new", Code: 301}
	if err := WriteText(&buf, nil, res); err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}
	if !strings.Contains(buf.String(), "[redirected permanently] https://example.com/old to https://example.com/new") {
		t.Fatalf("got %q", buf.String())
	}
}

func TestWriteTextRedirectedUnknownCode(t *testing.T) {
	var buf bytes.Buffer
	res := checker.CheckResult{URI: "https://example.com/old", Docname: "index", Status: checker.StatusRedirected, Message: "https://example.com/new", Code: 399}
	if err := WriteText(&buf, nil, res); err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}
	if !strings.Contains(buf.String(), "[redirected with unknown code]") {
		t.Fatalf("got %q", buf.String())
	}
}

func TestWriteTextUncheckedProducesNothing(t *testing.T) {
	var buf bytes.Buffer
	res := checker.CheckResult{URI: "mailto:a@example.com", Docname: "index", Status: checker.StatusUnchecked}
	if err := WriteText(&buf, nil, res); err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output for unchecked, got %q", buf.String())
	}
}

func TestWriteTextIgnoredWithoutMessageProducesNothing(t *testing.T) {
	var buf bytes.Buffer
	res := checker.CheckResult{URI: "https://example.com", Docname: "index", Status: checker.StatusIgnored}
	if err := WriteText(&buf, nil, res); err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output for a message-less ignored result, got %q", buf.String())
	}
}

func TestWriteTextUnknownStatusPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic for an unknown status")
		}
	}()
	var buf bytes.Buffer
	_ = WriteText(&buf, nil, checker.CheckResult{Status: checker.Status("bogus")})
}

func TestWriteJSONLFields(t *testing.T) {
	var buf bytes.Buffer
	res := checker.CheckResult{URI: "https://example.com/old", Docname: "index", Lineno: 5, Status: checker.StatusRedirected, Message: "https://example.com/new", Code: 302}
	if err := WriteJSONL(&buf, nil, res); err != nil {
		t.Fatalf("WriteJSONL failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded["status"] != "redirected" || decoded["text"] != "with Found" {
		t.Fatalf("got %+v", decoded)
	}
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Fatalf("expected a trailing newline")
	}
}

func TestWriteJSONLEveryStatusWritesALine(t *testing.T) {
	for _, status := range []checker.Status{checker.StatusWorking, checker.StatusBroken, checker.StatusIgnored, checker.StatusUnchecked} {
		var buf bytes.Buffer
		if err := WriteJSONL(&buf, nil, checker.CheckResult{URI: "x", Status: status}); err != nil {
			t.Fatalf("status %s: %v", status, err)
		}
		if buf.Len() == 0 {
			t.Fatalf("status %s: expected a linkstat line regardless of status", status)
		}
	}
}
