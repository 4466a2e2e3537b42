package app

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/xoelrdgz/trafficradar/internal/ports"
)

type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"

	DefaultTheme = ThemeDark

	themePreferenceKey = "theme"
)

var ErrUnknownTheme = errors.New("unknown theme")

func ParseTheme(s string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case ThemeDark:
		return ThemeDark, nil
	case ThemeLight:
		return ThemeLight, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTheme, s)
	}
}

// ThemeStore holds the active theme. It starts from the persisted preference
// and every change goes through SetTheme.
type ThemeStore struct {
	mu        sync.RWMutex
	theme     Theme
	store     ports.PreferenceStore
	listeners []func(Theme)
}

// NewThemeStore loads the persisted theme. A missing, unreadable or unknown
// value falls back to DefaultTheme. store may be nil.
func NewThemeStore(store ports.PreferenceStore) *ThemeStore {
	s := &ThemeStore{theme: DefaultTheme, store: store}
	if store == nil {
		return s
	}

	raw, err := store.Get(themePreferenceKey)
	if err != nil {
		if !errors.Is(err, ports.ErrPreferenceNotFound) {
			log.Warn().Err(err).Msg("Failed to read theme preference, using default")
		}
		return s
	}
	theme, err := ParseTheme(raw)
	if err != nil {
		log.Warn().Str("value", raw).Msg("Ignoring unknown persisted theme")
		return s
	}
	s.theme = theme
	return s
}

func (s *ThemeStore) Theme() Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme
}

// SetTheme switches to t and persists it. The in-memory theme changes even
// if persisting fails; the persist error is returned.
func (s *ThemeStore) SetTheme(t Theme) error {
	theme, err := ParseTheme(string(t))
	if err != nil {
		return err
	}

	s.mu.Lock()
	changed := s.theme != theme
	s.theme = theme
	listeners := make([]func(Theme), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	if changed {
		for _, fn := range listeners {
			fn(theme)
		}
	}

	if s.store != nil {
		if err := s.store.Set(themePreferenceKey, string(theme)); err != nil {
			return fmt.Errorf("persist theme: %w", err)
		}
	}
	return nil
}

// Toggle flips between dark and light.
func (s *ThemeStore) Toggle() (Theme, error) {
	next := ThemeLight
	if s.Theme() == ThemeLight {
		next = ThemeDark
	}
	return next, s.SetTheme(next)
}

// OnChange registers fn to run after every theme change.
func (s *ThemeStore) OnChange(fn func(Theme)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}
