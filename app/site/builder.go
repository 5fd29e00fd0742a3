package site

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	log "github.com/go-pkgz/lgr"
	"github.com/natefinch/atomic"
	"golang.org/x/net/html"

	"github.com/umputun/folio/app/caption"
)

//go:embed templates
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// StaticFS returns the embedded static assets.
func StaticFS() (fs.FS, error) {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to get static sub-filesystem: %w", err)
	}
	return sub, nil
}

// Stats summarizes a build.
type Stats struct {
	Pages   int // pages written
	Figures int // figures created by the caption transform
	Skipped int // drafts left out
}

// Builder renders the pages of a site directory.
type Builder struct {
	root     string
	cfg      Config
	renderer *Renderer
	captions *caption.Transformer
	layout   *template.Template
}

// NewBuilder makes a builder for the site at root.
func NewBuilder(root string, cfg Config) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	layout, err := template.ParseFS(templatesFS, "templates/page.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	return &Builder{
		root:     root,
		cfg:      cfg,
		renderer: NewRenderer(cfg.HighlightStyle),
		captions: cfg.Captions(),
		layout:   layout,
	}, nil
}

// Config returns the configuration the builder was made with.
func (b *Builder) Config() Config { return b.cfg }

// Renderer returns the markdown renderer.
func (b *Builder) Renderer() *Renderer { return b.renderer }

// Sources returns the site-relative paths matched by the content patterns, sorted and
// without duplicates. Files under the output directory are never sources.
func (b *Builder) Sources() ([]string, error) {
	fsys := os.DirFS(b.root)
	out := path.Clean(filepath.ToSlash(b.cfg.Output))
	seen := map[string]bool{}
	var res []string
	for _, pattern := range b.cfg.Content {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			if seen[m] || (out != "." && (m == out || strings.HasPrefix(m, out+"/"))) {
				continue
			}
			seen[m] = true
			res = append(res, m)
		}
	}
	slices.Sort(res)
	return res, nil
}

// OutputPath maps a source path to the path it is published at: markdown becomes html
// and a leading underscore of the top directory is dropped, so "_posts/a.md" is "posts/a.html".
func OutputPath(rel string) string {
	if strings.HasSuffix(rel, ".md") {
		rel = strings.TrimSuffix(rel, ".md") + ".html"
	}
	if dir, rest, ok := strings.Cut(rel, "/"); ok && strings.HasPrefix(dir, "_") {
		rel = strings.TrimPrefix(dir, "_") + "/" + rest
	}
	return rel
}

// Lookup finds the source published at urlPath. "/" and directory paths resolve to
// index pages, extensionless paths to ".html".
func (b *Builder) Lookup(urlPath string) (string, bool) {
	want := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	switch {
	case want == "" || strings.HasSuffix(urlPath, "/"):
		want = path.Join(want, "index.html")
	case path.Ext(want) == "":
		want += ".html"
	}

	sources, err := b.Sources()
	if err != nil {
		log.Printf("[WARN] can't list sources: %v", err)
		return "", false
	}
	for _, src := range sources {
		if OutputPath(src) == want {
			return src, true
		}
	}
	return "", false
}

// Page is a loaded source document.
type Page struct {
	Source  string
	Doc     *html.Node
	Meta    FrontMatter
	Figures int // figures created by the caption transform
}

// Page loads the source at rel as a document tree with captions applied.
// Markdown is rendered into the page layout, html sources are used as they are.
func (b *Builder) Page(rel string) (Page, error) {
	data, err := os.ReadFile(filepath.Join(b.root, filepath.FromSlash(rel)))
	if err != nil {
		return Page{}, fmt.Errorf("read %s: %w", rel, err)
	}

	var fm FrontMatter
	if strings.HasSuffix(rel, ".md") {
		var body []byte
		if fm, body, err = b.renderer.Render(data); err != nil {
			return Page{}, fmt.Errorf("render %s: %w", rel, err)
		}
		if data, err = b.layoutPage(fm, body); err != nil {
			return Page{}, fmt.Errorf("layout %s: %w", rel, err)
		}
	}

	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return Page{}, fmt.Errorf("parse %s: %w", rel, err)
	}
	n := b.captions.Transform(doc)
	if n > 0 {
		log.Printf("[DEBUG] %s: %d captioned figures", rel, n)
	}
	return Page{Source: rel, Doc: doc, Meta: fm, Figures: n}, nil
}

// Build renders every source into the output directory. Drafts are skipped.
func (b *Builder) Build(ctx context.Context) (Stats, error) {
	sources, err := b.Sources()
	if err != nil {
		return Stats{}, err
	}
	outDir := filepath.Join(b.root, b.cfg.Output)

	var stats Stats
	for _, rel := range sources {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("build canceled: %w", err)
		}

		page, err := b.Page(rel)
		if err != nil {
			return stats, err
		}
		if page.Meta.Draft {
			log.Printf("[DEBUG] skip draft %s", rel)
			stats.Skipped++
			continue
		}
		stats.Figures += page.Figures

		var buf bytes.Buffer
		if err := html.Render(&buf, page.Doc); err != nil {
			return stats, fmt.Errorf("render %s: %w", rel, err)
		}
		if err := writeFile(filepath.Join(outDir, filepath.FromSlash(OutputPath(rel))), buf.Bytes()); err != nil {
			return stats, err
		}
		stats.Pages++
	}

	if err := b.writeAssets(filepath.Join(outDir, "static")); err != nil {
		return stats, err
	}
	log.Printf("[INFO] built %d pages (%d figures, %d drafts skipped) into %s", stats.Pages, stats.Figures, stats.Skipped, outDir)
	return stats, nil
}

type pageData struct {
	SiteTitle    string
	Title        string
	Description  string
	ContentClass string
	Content      template.HTML
	Menus        []Menu
	Dropdown     DropdownConfig
}

func (b *Builder) layoutPage(fm FrontMatter, body []byte) ([]byte, error) {
	opts := b.cfg.DropdownOptions()
	data := pageData{
		SiteTitle:    b.cfg.Title,
		Title:        fm.Title,
		Description:  fm.Description,
		ContentClass: b.captions.ContentClass,
		Content:      template.HTML(body), //nolint:gosec // rendered from site-owned markdown
		Menus:        b.cfg.Menus,
		Dropdown:     DropdownConfig{Container: opts.ContainerClass, Toggle: opts.ToggleClass, Active: opts.ActiveClass},
	}
	if data.ContentClass == "" {
		data.ContentClass = "post-content"
	}
	var buf bytes.Buffer
	if err := b.layout.ExecuteTemplate(&buf, "page.html", data); err != nil {
		return nil, fmt.Errorf("execute layout: %w", err)
	}
	return buf.Bytes(), nil
}

func (b *Builder) writeAssets(dir string) error {
	static, err := StaticFS()
	if err != nil {
		return err
	}
	err = fs.WalkDir(static, ".", func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() {
			return walkErr
		}
		data, err := fs.ReadFile(static, p)
		if err != nil {
			return fmt.Errorf("read asset %s: %w", p, err)
		}
		return writeFile(filepath.Join(dir, filepath.FromSlash(p)), data)
	})
	if err != nil {
		return fmt.Errorf("copy assets: %w", err)
	}

	var css bytes.Buffer
	if err := b.renderer.WriteCSS(&css); err != nil {
		return err
	}
	return writeFile(filepath.Join(dir, "highlight.css"), css.Bytes())
}

// writeFile replaces name atomically.
func writeFile(name string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(name), 0o750); err != nil {
		return fmt.Errorf("make dir for %s: %w", name, err)
	}
	if err := atomic.WriteFile(name, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
