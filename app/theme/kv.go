package theme

import (
	"context"
	"errors"
	"fmt"

	"github.com/umputun/folio/app/store"
)

// KVStore is the subset of the persistent store used for preferences.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// KVPreferences keeps one visitor's preferences in the persistent store
// under the "prefs/<visitor>/" namespace.
type KVPreferences struct {
	ctx    context.Context
	kv     KVStore
	prefix string
}

// NewKVPreferences scopes kv to visitor. ctx bounds every store call.
func NewKVPreferences(ctx context.Context, kv KVStore, visitor string) *KVPreferences {
	return &KVPreferences{ctx: ctx, kv: kv, prefix: PrefsPrefix(visitor)}
}

// PrefsPrefix returns the key namespace of a visitor.
func PrefsPrefix(visitor string) string {
	return "prefs/" + store.NormalizeKey(visitor) + "/"
}

// Get reads key, returning ErrNoPreference if it was never written.
func (p *KVPreferences) Get(key string) (string, error) {
	val, err := p.kv.Get(p.ctx, p.prefix+key)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrNoPreference
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return string(val), nil
}

// Set writes key.
func (p *KVPreferences) Set(key, value string) error {
	if err := p.kv.Set(p.ctx, p.prefix+key, []byte(value)); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
