// Package theme handles the visitor's light/dark preference and maps it to
// one of the page's visual variants.
package theme

import (
	"context"
	"fmt"
)

// Key is the storage key the preference lives under.
const Key = "theme"

type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"

	Default = Dark
)

// Parse accepts exactly "light" or "dark".
func Parse(s string) (Theme, bool) {
	switch Theme(s) {
	case Light, Dark:
		return Theme(s), true
	}
	return "", false
}

// Toggle returns the opposite theme.
func (t Theme) Toggle() Theme {
	if t == Dark {
		return Light
	}
	return Dark
}

// Variant is a cosmetic palette of the page.
type Variant string

const (
	Zinc  Variant = "zinc"
	Cream Variant = "cream"
	Amber Variant = "amber"
)

// ParseVariant accepts a known variant name; "" means follow the theme.
func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case "", Zinc, Cream, Amber:
		return Variant(s), nil
	}
	return "", fmt.Errorf("unknown theme variant %q", s)
}

// VariantFor picks the palette for t. A non-empty forced variant wins.
func VariantFor(t Theme, forced Variant) Variant {
	if forced != "" {
		return forced
	}
	if t == Light {
		return Cream
	}
	return Zinc
}

// Store is a string key-value store scoped per owner (a visitor id).
type Store interface {
	GetPreference(ctx context.Context, owner, key string) (value string, ok bool, err error)
	SetPreference(ctx context.Context, owner, key, value string) error
}

// Preferences reads and writes the theme for visitors.
type Preferences struct {
	store Store
}

func NewPreferences(store Store) *Preferences {
	return &Preferences{store: store}
}

// Load returns the stored theme, or Default when none is stored or the
// stored value is not a valid theme.
func (p *Preferences) Load(ctx context.Context, owner string) (Theme, error) {
	v, ok, err := p.store.GetPreference(ctx, owner, Key)
	if err != nil {
		return Default, fmt.Errorf("load theme: %w", err)
	}
	if !ok {
		return Default, nil
	}
	t, ok := Parse(v)
	if !ok {
		return Default, nil
	}
	return t, nil
}

// Set stores t for owner.
func (p *Preferences) Set(ctx context.Context, owner string, t Theme) error {
	if _, ok := Parse(string(t)); !ok {
		return fmt.Errorf("invalid theme %q", t)
	}
	if err := p.store.SetPreference(ctx, owner, Key, string(t)); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	return nil
}

// Toggle flips the stored theme and returns the new one.
func (p *Preferences) Toggle(ctx context.Context, owner string) (Theme, error) {
	cur, err := p.Load(ctx, owner)
	if err != nil {
		return cur, err
	}
	next := cur.Toggle()
	if err := p.Set(ctx, owner, next); err != nil {
		return cur, err
	}
	return next, nil
}
