package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"retroboston/extractor"
)

//go:embed templates/story.html.tmpl
var templatesFS embed.FS

const defaultTemplate = "templates/story.html.tmpl"

// Page is the data handed to the story template.
type Page struct {
	Title        string
	Dek          string
	Author       string
	PublishedAt  string
	HeroImageURL string
	Body         template.HTML
	SourceURL    string
}

// Renderer writes one static page per article into a single directory.
type Renderer struct {
	tmpl       *template.Template
	outDir     string
	linkPrefix string
}

// NewRenderer loads templatePath, or the built-in story template when it is
// empty. Pages are written to outDir and linked as "<base of outDir>/<file>".
func NewRenderer(outDir string, templatePath string) (*Renderer, error) {
	var (
		tmpl *template.Template
		err  error
	)
	if templatePath == "" {
		tmpl, err = template.ParseFS(templatesFS, defaultTemplate)
	} else {
		tmpl, err = template.ParseFiles(templatePath)
	}
	if err != nil {
		return nil, fmt.Errorf("load story template: %w", err)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	return &Renderer{
		tmpl:       tmpl,
		outDir:     outDir,
		linkPrefix: filepath.Base(filepath.Clean(outDir)),
	}, nil
}

// Render writes the page for article and returns its site-relative path.
// Pages whose titles share a slug overwrite each other.
func (r *Renderer) Render(article extractor.Article, sourceURL string) (string, error) {
	page := Page{
		Title:        article.Title,
		Dek:          article.Dek,
		Author:       article.Author,
		PublishedAt:  article.PublishedAt,
		HeroImageURL: article.HeroImageURL,
		// BodyHTML has already been through the article sanitizer.
		Body:      template.HTML(article.BodyHTML),
		SourceURL: sourceURL,
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, page); err != nil {
		return "", fmt.Errorf("execute story template: %w", err)
	}

	name := Slug(article.Title) + ".html"
	if err := os.WriteFile(filepath.Join(r.outDir, name), buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write story page: %w", err)
	}

	slog.Debug("render: page written", "file", name, "source", sourceURL)

	return path.Join(r.linkPrefix, name), nil
}
