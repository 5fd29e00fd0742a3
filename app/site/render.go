package site

import (
	"bytes"
	"fmt"
	"io"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
	"gopkg.in/yaml.v3"
)

// FrontMatter is the yaml header of a markdown page.
type FrontMatter struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Draft       bool   `yaml:"draft"`
}

// Renderer converts markdown to HTML with GFM extensions and class-based code highlighting.
type Renderer struct {
	md    goldmark.Markdown
	style string
}

// NewRenderer makes a renderer highlighting code with the given chroma style.
func NewRenderer(style string) *Renderer {
	if styles.Get(style) == styles.Fallback {
		style = "monokailight"
	}
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle(style),
				// use CSS classes for theme-aware styling
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
					chromahtml.WithLineNumbers(false),
				),
			),
		),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(goldmarkhtml.WithUnsafe()),
	)
	return &Renderer{md: md, style: style}
}

// Render converts a markdown source, optionally starting with a front matter block.
func (r *Renderer) Render(src []byte) (FrontMatter, []byte, error) {
	fm, body, err := splitFrontMatter(src)
	if err != nil {
		return FrontMatter{}, nil, err
	}
	var buf bytes.Buffer
	if err := r.md.Convert(body, &buf); err != nil {
		return FrontMatter{}, nil, fmt.Errorf("convert markdown: %w", err)
	}
	return fm, buf.Bytes(), nil
}

// WriteCSS writes the stylesheet for highlighted code blocks.
func (r *Renderer) WriteCSS(w io.Writer) error {
	formatter := chromahtml.New(chromahtml.WithClasses(true))
	if err := formatter.WriteCSS(w, styles.Get(r.style)); err != nil {
		return fmt.Errorf("write highlight css: %w", err)
	}
	return nil
}

var fmDelim = []byte("---")

// splitFrontMatter separates a leading "---" delimited yaml block from the markdown body.
func splitFrontMatter(src []byte) (FrontMatter, []byte, error) {
	var fm FrontMatter
	src = bytes.TrimPrefix(src, []byte("\xef\xbb\xbf"))
	first, rest, found := bytes.Cut(src, []byte("\n"))
	if !found || !bytes.Equal(bytes.TrimSpace(first), fmDelim) {
		return fm, src, nil
	}

	var header []byte
	for len(rest) > 0 {
		var line []byte
		line, rest, _ = bytes.Cut(rest, []byte("\n"))
		if bytes.Equal(bytes.TrimSpace(line), fmDelim) {
			if err := yaml.Unmarshal(header, &fm); err != nil {
				return FrontMatter{}, nil, fmt.Errorf("parse front matter: %w", err)
			}
			return fm, rest, nil
		}
		header = append(header, line...)
		header = append(header, '\n')
	}
	// no closing delimiter, treat everything as markdown
	return FrontMatter{}, src, nil
}
