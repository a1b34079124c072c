package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"retroboston/extractor"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Harbor Tunnel Reopens!", "harbor-tunnel-reopens"},
		{"  Snow   Day  ", "snow-day"},
		{"", "story"},
		{"!!!", "story"},
		{"Red Sox 7, Yankees 3", "red-sox-7-yankees-3"},
	}
	for _, tt := range tests {
		got := Slug(tt.input)
		if got != tt.want {
			t.Errorf("Slug(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSlugTruncates(t *testing.T) {
	got := Slug(strings.Repeat("word ", 40))

	if len(got) > maxSlugLength {
		t.Fatalf("slug longer than %d: %d", maxSlugLength, len(got))
	}
	if strings.HasSuffix(got, "-") || strings.HasPrefix(got, "-") {
		t.Fatalf("slug has dangling dash: %q", got)
	}
	for _, r := range got {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-') {
			t.Fatalf("slug contains %q: %q", r, got)
		}
	}
}

func TestRender(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "docs", "stories")
	r, err := NewRenderer(outDir, "")
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	rel, err := r.Render(extractor.Article{
		Title:        "Harbor Tunnel Reopens",
		Dek:          "Commuters <rejoice>",
		Author:       "Pat Reporter",
		HeroImageURL: "https://www.example.com/hero.jpg",
		BodyHTML:     "<p>Body <b>text</b></p>",
	}, "https://www.example.com/harbor")
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	if rel != "stories/harbor-tunnel-reopens.html" {
		t.Fatalf("rel path = %q", rel)
	}

	data, err := os.ReadFile(filepath.Join(outDir, "harbor-tunnel-reopens.html"))
	if err != nil {
		t.Fatalf("read page: %v", err)
	}
	page := string(data)
	for _, want := range []string{
		"<h1>Harbor Tunnel Reopens</h1>",
		"Commuters &lt;rejoice&gt;",
		"<p>Body <b>text</b></p>",
		`src="https://www.example.com/hero.jpg"`,
		`href="https://www.example.com/harbor"`,
	} {
		if !strings.Contains(page, want) {
			t.Errorf("page does not contain %q", want)
		}
	}
}

func TestRenderCustomTemplate(t *testing.T) {
	dir := t.TempDir()
	tmplPath := filepath.Join(dir, "story.tmpl")
	if err := os.WriteFile(tmplPath, []byte(`{{.Title}}|{{.SourceURL}}`), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}

	r, err := NewRenderer(filepath.Join(dir, "out"), tmplPath)
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	rel, err := r.Render(extractor.Article{Title: ""}, "https://x.example/a")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if rel != "out/story.html" {
		t.Fatalf("rel path = %q", rel)
	}

	data, err := os.ReadFile(filepath.Join(dir, "out", "story.html"))
	if err != nil {
		t.Fatalf("read page: %v", err)
	}
	if string(data) != "|https://x.example/a" {
		t.Fatalf("unexpected page %q", data)
	}
}

func TestNewRendererMissingTemplate(t *testing.T) {
	if _, err := NewRenderer(t.TempDir(), filepath.Join(t.TempDir(), "missing.tmpl")); err == nil {
		t.Fatal("expected error for missing template")
	}
}
