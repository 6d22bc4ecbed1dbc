// ABOUTME: Typed accessors for device preferences kept in a Store
// ABOUTME: Theme, do-not-disturb, onboarding flag, and notification check time

package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Theme is the UI colour scheme preference
type Theme string

const (
	ThemeSystem Theme = "system"
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
)

// ParseTheme validates a theme name
func ParseTheme(s string) (Theme, error) {
	switch Theme(s) {
	case ThemeSystem, ThemeLight, ThemeDark:
		return Theme(s), nil
	}
	return "", fmt.Errorf("unknown theme %q (want light, dark or system)", s)
}

// Prefs wraps a Store with typed preference getters and setters
type Prefs struct {
	s Store
}

// NewPrefs creates a Prefs view over s
func NewPrefs(s Store) *Prefs {
	return &Prefs{s: s}
}

// Theme returns the stored theme, or ThemeSystem when unset
func (p *Prefs) Theme(ctx context.Context) (Theme, error) {
	v, err := p.s.Get(ctx, KeyTheme)
	if errors.Is(err, ErrNotFound) {
		return ThemeSystem, nil
	}
	if err != nil {
		return "", err
	}
	t, err := ParseTheme(v)
	if err != nil {
		return ThemeSystem, nil
	}
	return t, nil
}

func (p *Prefs) SetTheme(ctx context.Context, t Theme) error {
	return p.s.Set(ctx, KeyTheme, string(t))
}

// DoNotDisturb reports whether notifications are muted
func (p *Prefs) DoNotDisturb(ctx context.Context) (bool, error) {
	return p.getBool(ctx, KeyDoNotDisturb)
}

func (p *Prefs) SetDoNotDisturb(ctx context.Context, on bool) error {
	return p.s.Set(ctx, KeyDoNotDisturb, strconv.FormatBool(on))
}

// InstructionsShown reports whether the first-run instructions were displayed
func (p *Prefs) InstructionsShown(ctx context.Context) (bool, error) {
	return p.getBool(ctx, KeyInstructionsShown)
}

func (p *Prefs) MarkInstructionsShown(ctx context.Context) error {
	return p.s.Set(ctx, KeyInstructionsShown, "true")
}

// LastNotificationCheck returns the zero time when never checked
func (p *Prefs) LastNotificationCheck(ctx context.Context) (time.Time, error) {
	v, err := p.s.Get(ctx, KeyLastNotificationCheck)
	if errors.Is(err, ErrNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, nil
	}
	return t, nil
}

func (p *Prefs) SetLastNotificationCheck(ctx context.Context, t time.Time) error {
	return p.s.Set(ctx, KeyLastNotificationCheck, t.UTC().Format(time.RFC3339))
}

func (p *Prefs) getBool(ctx context.Context, key string) (bool, error) {
	v, err := p.s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, nil
	}
	return b, nil
}
