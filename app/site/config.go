// Package site builds the static pages: it scans content with glob patterns, renders markdown,
// applies the caption transform and lays pages out for serving or writing to disk.
package site

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	log "github.com/go-pkgz/lgr"
	"gopkg.in/yaml.v3"

	"github.com/umputun/folio/app/caption"
	"github.com/umputun/folio/app/dropdown"
)

//go:generate go run ./internal/schema ../../site.schema.json

// Config is the site configuration file (folio.yml).
type Config struct {
	Title          string         `yaml:"title"`
	Content        []string       `yaml:"content"`         // glob patterns of pages, relative to the site root
	Output         string         `yaml:"output"`          // build output directory, relative to the site root
	HighlightStyle string         `yaml:"highlight_style"` // chroma style for code blocks
	Caption        CaptionConfig  `yaml:"caption"`
	Dropdown       DropdownConfig `yaml:"dropdown"`
	Menus          []Menu         `yaml:"menus"`
}

// CaptionConfig configures the image caption transform.
type CaptionConfig struct {
	ContentClass string `yaml:"content_class"`
	FigureClass  string `yaml:"figure_class"`
	AltFallback  *bool  `yaml:"alt_fallback"`
}

// DropdownConfig names the classes of the dropdown markup contract.
type DropdownConfig struct {
	Container string `yaml:"container"`
	Toggle    string `yaml:"toggle"`
	Active    string `yaml:"active"`
}

// Menu is a navigation dropdown rendered by the page layout.
type Menu struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
	Items []Link `yaml:"items"`
}

// Link is a single menu entry.
type Link struct {
	Title string `yaml:"title"`
	URL   string `yaml:"url"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Title: "folio",
		Content: []string{
			"_posts/*.md",
			"_drafts/**/*.html",
			"*.md",
			"*.html",
		},
		Output:         "_site",
		HighlightStyle: "monokailight",
		Caption:        CaptionConfig{ContentClass: "post-content", FigureClass: "md-figure"},
		Dropdown: DropdownConfig{
			Container: "dropdown",
			Toggle:    "dropdown-toggle",
			Active:    "active",
		},
	}
}

// LoadConfig reads the config file at path on top of the defaults.
// An empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // path comes from cli flag
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks content patterns and menus.
func (c Config) Validate() error {
	if len(c.Content) == 0 {
		return errors.New("no content patterns")
	}
	for _, p := range c.Content {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("bad content pattern %q", p)
		}
	}
	ids := map[string]bool{}
	for _, m := range c.Menus {
		if m.ID == "" {
			return fmt.Errorf("menu %q has no id", m.Title)
		}
		if ids[m.ID] {
			return fmt.Errorf("duplicate menu id %q", m.ID)
		}
		ids[m.ID] = true
	}
	return nil
}

// Captions returns the caption transformer configured by c.
func (c Config) Captions() *caption.Transformer {
	tr := caption.New()
	if c.Caption.ContentClass != "" {
		tr.ContentClass = c.Caption.ContentClass
	}
	if c.Caption.FigureClass != "" {
		tr.FigureClass = c.Caption.FigureClass
	}
	if c.Caption.AltFallback != nil {
		tr.AltFallback = *c.Caption.AltFallback
	}
	return tr
}

// DropdownOptions returns the dropdown classes configured by c, defaults for unset ones.
func (c Config) DropdownOptions() dropdown.Options {
	opts := dropdown.DefaultOptions()
	if c.Dropdown.Container != "" {
		opts.ContainerClass = c.Dropdown.Container
	}
	if c.Dropdown.Toggle != "" {
		opts.ToggleClass = c.Dropdown.Toggle
	}
	if c.Dropdown.Active != "" {
		opts.ActiveClass = c.Dropdown.Active
	}
	return opts
}

// WatchConfig reloads the config file when it changes and hands valid configs to onChange.
// Invalid edits are logged and ignored. The watcher stops when ctx is canceled.
func WatchConfig(ctx context.Context, path string, onChange func(Config)) error {
	if path == "" {
		return errors.New("config path not set")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	// watch the directory, editors replace files with atomic renames
	dir := filepath.Dir(path)
	filename := filepath.Base(path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	log.Printf("[INFO] watching site config %s for changes", path)

	go func() {
		defer watcher.Close()

		var debounceTimer *time.Timer
		const debounceDelay = 100 * time.Millisecond

		for {
			select {
			case <-ctx.Done():
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				log.Printf("[INFO] site config watcher stopped")
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != filename {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDelay, func() {
					cfg, err := LoadConfig(path)
					if err != nil {
						log.Printf("[WARN] failed to reload site config: %v", err)
						return
					}
					log.Printf("[INFO] site config reloaded from %s", path)
					onChange(cfg)
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[WARN] site config watcher error: %v", err)
			}
		}
	}()

	return nil
}
