package ports

import "errors"

// ErrPreferenceNotFound is returned by PreferenceStore.Get for unknown keys.
var ErrPreferenceNotFound = errors.New("preference not found")

// PreferenceStore persists small user preferences across sessions.
type PreferenceStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Close() error
}
