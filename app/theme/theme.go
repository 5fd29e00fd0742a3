// Package theme resolves, applies and toggles the light/dark display theme.
//
// The controller never touches global state directly. It reads and writes the persisted
// preference through a PreferenceStore, reflects the active theme through a DisplayTarget
// and consults a SystemPreference only when nothing is persisted.
package theme

import (
	"sync"

	"github.com/umputun/folio/app/enum"
)

const (
	// StoreKey is the persisted preference key.
	StoreKey = "theme"
	// Attribute is the document root attribute carrying the active theme.
	Attribute = "data-theme"
)

// PreferenceStore is a best-effort key-value store for the persisted preference.
// Get reports false when the key is absent or the store is unavailable.
type PreferenceStore interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// DisplayTarget is the element the active theme is rendered on.
type DisplayTarget interface {
	SetAttribute(name, value string)
	Attribute(name string) string
}

// SystemPreference reports the ambient color scheme of the visitor's system.
type SystemPreference interface {
	PrefersDark() bool
}

// SystemFunc adapts a plain function to SystemPreference.
type SystemFunc func() bool

// PrefersDark calls f.
func (f SystemFunc) PrefersDark() bool { return f() }

// Controller owns the theme state of a single page view.
type Controller struct {
	store  PreferenceStore
	target DisplayTarget
	system SystemPreference

	initOnce sync.Once
}

// New makes a controller. A nil store behaves as an always-empty store,
// a nil system preference behaves as "prefers light".
func New(st PreferenceStore, target DisplayTarget, sys SystemPreference) *Controller {
	if st == nil {
		st = nopStore{}
	}
	return &Controller{store: st, target: target, system: sys}
}

// ResolveInitialTheme returns the persisted preference unchanged if there is one,
// otherwise dark when the system prefers dark and light in every other case.
func (c *Controller) ResolveInitialTheme() string {
	if saved, ok := c.store.Get(StoreKey); ok && saved != "" {
		return saved
	}
	if c.system != nil && c.system.PrefersDark() {
		return enum.ThemeDark.String()
	}
	return enum.ThemeLight.String()
}

// ApplyTheme renders theme on the display target and persists it.
func (c *Controller) ApplyTheme(theme string) {
	c.target.SetAttribute(Attribute, theme)
	c.store.Set(StoreKey, theme)
}

// Initialize resolves and applies the initial theme. Only the first call has an effect,
// every call returns the active theme.
func (c *Controller) Initialize() string {
	c.initOnce.Do(func() {
		c.ApplyTheme(c.ResolveInitialTheme())
	})
	return c.Active()
}

// ToggleTheme flips the active theme. Anything other than "dark" is treated as light.
func (c *Controller) ToggleTheme() {
	c.ApplyTheme(enum.ToggleName(c.Active()))
}

// Toggle returns the toggle entry point bound to this controller,
// for wiring into whatever control triggers it.
func (c *Controller) Toggle() func() {
	return c.ToggleTheme
}

// Active returns the theme currently set on the display target.
func (c *Controller) Active() string {
	return c.target.Attribute(Attribute)
}

type nopStore struct{}

func (nopStore) Get(string) (string, bool) { return "", false }
func (nopStore) Set(string, string)        {}
