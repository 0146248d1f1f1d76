package checker

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
)

func TestTriageExcludedDocument(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExcludeDocuments = []*regexp.Regexp{regexp.MustCompile(`^draft/`)}
	res, ok := triage(cfg, "https://example.com", "draft/wip")
	if !ok || res.Status != StatusIgnored {
		t.Fatalf("expected ignored, got %+v ok=%v", res, ok)
	}
}

func TestTriageMailtoAndFragmentAndEmpty(t *testing.T) {
	cfg := DefaultConfig()
	for _, uri := range []string{"", "#top", "mailto:a@example.com", "tel:+15551234567"} {
		res, ok := triage(cfg, uri, "index")
		if !ok || res.Status != StatusUnchecked {
			t.Fatalf("uri %q: expected unchecked, got %+v ok=%v", uri, res, ok)
		}
	}
}

func TestTriageUnsupportedScheme(t *testing.T) {
	cfg := DefaultConfig()
	res, ok := triage(cfg, "ftp://example.com/file", "index")
	if !ok || res.Status != StatusUnchecked {
		t.Fatalf("expected unchecked for unsupported scheme, got %+v ok=%v", res, ok)
	}
}

func TestTriageHTTPPassesThrough(t *testing.T) {
	cfg := DefaultConfig()
	if _, ok := triage(cfg, "https://example.com", "index"); ok {
		t.Fatalf("expected http(s) uri to require a network check")
	}
}

func TestTriageLocalExisting(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "present.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	cfg.Resolver = staticResolver{dir: dir}
	res, ok := triage(cfg, "present.txt", "index")
	if !ok || res.Status != StatusWorking {
		t.Fatalf("expected working for existing local file, got %+v ok=%v", res, ok)
	}
}

func TestTriageLocalMissing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Resolver = staticResolver{dir: t.TempDir()}
	res, ok := triage(cfg, "missing.txt", "index")
	if !ok || res.Status != StatusBroken {
		t.Fatalf("expected broken for missing local file, got %+v ok=%v", res, ok)
	}
}

func TestIsIgnored(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IgnoreURIs = []*regexp.Regexp{regexp.MustCompile(`^https://internal\.example`)}
	if !isIgnored(cfg, "https://internal.example/x") {
		t.Fatalf("expected match")
	}
	if isIgnored(cfg, "https://public.example/x") {
		t.Fatalf("did not expect match")
	}
}

type staticResolver struct{ dir string }

func (r staticResolver) SourceDir(docname string) (string, bool) { return r.dir, true }
