package theme

import (
	"errors"
	"fmt"

	log "github.com/go-pkgz/lgr"
)

// ErrNoPreference is returned by a FallibleStore when the key is simply absent.
var ErrNoPreference = errors.New("no preference stored")

// FallibleStore is a preference backend that can fail, e.g. a database or a disabled browser store.
type FallibleStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// Guarded turns a FallibleStore into a PreferenceStore. Failed reads, including panics,
// are reported as absent and failed writes are dropped, so store trouble never stops
// the theme from being resolved.
type Guarded struct {
	store FallibleStore
}

// NewGuarded wraps st.
func NewGuarded(st FallibleStore) *Guarded {
	return &Guarded{store: st}
}

// Get returns the stored value, or false if it is absent or unreadable.
func (g *Guarded) Get(key string) (value string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[WARN] preference store panic on get %q: %v", key, r)
			value, ok = "", false
		}
	}()

	v, err := g.store.Get(key)
	if errors.Is(err, ErrNoPreference) {
		return "", false
	}
	if err != nil {
		log.Printf("[WARN] can't read preference %q, treating as absent: %v", key, err)
		return "", false
	}
	return v, true
}

// Set writes the value, logging and dropping any failure.
func (g *Guarded) Set(key, value string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[WARN] preference store panic on set %q: %v", key, r)
		}
	}()

	if err := g.store.Set(key, value); err != nil {
		log.Printf("[WARN] can't persist preference %q=%q: %v", key, value, fmt.Errorf("store set: %w", err))
	}
}
