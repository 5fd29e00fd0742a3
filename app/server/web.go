package server

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"golang.org/x/net/html"

	"github.com/umputun/folio/app/dropdown"
	"github.com/umputun/folio/app/store"
	"github.com/umputun/folio/app/theme"
)

// handlePage renders a site page with the visitor's theme applied to the document root.
// GET /{path...}, optional ?menu=<id> renders that dropdown open.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	b := s.site()
	src, ok := b.Lookup(r.URL.Path)
	if !ok {
		http.Error(w, "page not found", http.StatusNotFound)
		return
	}

	page, err := b.Page(src)
	if err != nil {
		log.Printf("[ERROR] failed to load page %s: %v", src, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if page.Meta.Draft {
		// drafts are not published by build either
		http.Error(w, "page not found", http.StatusNotFound)
		return
	}

	visitor := s.visitor(w, r)
	active := s.themeController(r, visitor, theme.NewNodeTarget(page.Doc)).Initialize()
	log.Printf("[DEBUG] page %s for visitor %s, theme %s", src, visitor, active)

	if menu := r.URL.Query().Get("menu"); menu != "" {
		dd := dropdown.Bind(page.Doc, b.Config().DropdownOptions())
		if !dd.Open(menu) {
			log.Printf("[DEBUG] no dropdown %q on %s", menu, src)
		}
	}

	w.Header().Set("Accept-CH", theme.HintHeader)
	w.Header().Add("Vary", theme.HintHeader)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := html.Render(w, page.Doc); err != nil {
		log.Printf("[ERROR] failed to render page %s: %v", src, err)
	}
}

// handleThemeToggle flips the visitor's theme and sends them back to the page they came from.
// POST /web/theme
func (s *Server) handleThemeToggle(w http.ResponseWriter, r *http.Request) {
	next := s.toggleTheme(w, r)
	log.Printf("[DEBUG] theme toggled to %s", next)

	if r.Header.Get("HX-Request") == "true" {
		// trigger full page refresh
		w.Header().Set("HX-Refresh", "true")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, backURL(r), http.StatusSeeOther)
}

// handleThemeGet returns the visitor's active theme.
// GET /api/theme
func (s *Server) handleThemeGet(w http.ResponseWriter, r *http.Request) {
	visitor := s.visitor(w, r)
	active := s.themeController(r, visitor, theme.Attrs{}).Initialize()
	rest.RenderJSON(w, rest.JSON{"theme": active})
}

// handleThemeToggleAPI flips the visitor's theme and returns the new one.
// POST /api/theme/toggle
func (s *Server) handleThemeToggleAPI(w http.ResponseWriter, r *http.Request) {
	rest.RenderJSON(w, rest.JSON{"theme": s.toggleTheme(w, r)})
}

// handleThemeForget removes the visitor's stored theme, the next page falls back to the system preference.
// DELETE /api/theme
func (s *Server) handleThemeForget(w http.ResponseWriter, r *http.Request) {
	visitor := s.visitor(w, r)
	err := s.store.Delete(r.Context(), theme.PrefsPrefix(visitor)+theme.StoreKey)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Printf("[WARN] failed to forget theme of visitor %s: %v", visitor, err)
		rest.SendErrorJSON(w, r, log.Default(), http.StatusInternalServerError, err, "failed to forget preference")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePrefsList returns the visitor's stored preferences, newest first.
// GET /api/prefs
func (s *Server) handlePrefsList(w http.ResponseWriter, r *http.Request) {
	visitor := s.visitor(w, r)
	prefix := theme.PrefsPrefix(visitor)
	keys, err := s.store.List(r.Context(), prefix)
	if err != nil {
		log.Printf("[WARN] failed to list preferences of visitor %s: %v", visitor, err)
		rest.SendErrorJSON(w, r, log.Default(), http.StatusInternalServerError, err, "failed to list preferences")
		return
	}
	for i := range keys {
		keys[i].Key = strings.TrimPrefix(keys[i].Key, prefix)
	}
	rest.RenderJSON(w, keys)
}

// handleHighlightCSS serves the stylesheet for highlighted code blocks.
// GET /static/highlight.css
func (s *Server) handleHighlightCSS(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	if err := s.site().Renderer().WriteCSS(w); err != nil {
		log.Printf("[WARN] failed to write highlight css: %v", err)
	}
}

// themeController binds a theme controller to the visitor's stored preferences and the request's
// color scheme hint, rendering on target.
func (s *Server) themeController(r *http.Request, visitor string, target theme.DisplayTarget) *theme.Controller {
	prefs := theme.NewGuarded(theme.NewKVPreferences(r.Context(), s.store, visitor))
	return theme.New(prefs, target, theme.HintFromRequest(r))
}

// toggleTheme resolves the visitor's current theme, runs the bound toggle and returns the result.
func (s *Server) toggleTheme(w http.ResponseWriter, r *http.Request) string {
	ctrl := s.themeController(r, s.visitor(w, r), theme.Attrs{})
	ctrl.Initialize()
	toggle := ctrl.Toggle()
	toggle()
	return ctrl.Active()
}

// backURL returns the same-site referer path to redirect to, or "/".
func backURL(r *http.Request) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Path == "" || (ref.Host != "" && ref.Host != r.Host) {
		return "/"
	}
	back := ref.EscapedPath()
	if strings.HasPrefix(back, "//") || strings.HasPrefix(back, "/\\") {
		// protocol-relative location would leave the site
		return "/"
	}
	if ref.RawQuery != "" {
		back += "?" + ref.RawQuery
	}
	return back
}
