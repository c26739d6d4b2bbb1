// Package moderation rejects user content that any configured language
// detector flags.
package moderation

import (
	"fmt"

	"inkpost/internal/models"
)

// Gate runs every detector over a piece of content.
type Gate struct {
	detectors []Detector
	onReject  func(locale string)
}

// Option configures a Gate.
type Option func(*Gate)

// WithRejectHook registers fn to be called with the locale of each rejection.
func WithRejectHook(fn func(locale string)) Option {
	return func(g *Gate) { g.onReject = fn }
}

// NewGate returns a Gate over the given detectors.
func NewGate(detectors []Detector, opts ...Option) *Gate {
	g := &Gate{detectors: detectors}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewDefaultGate builds the English and Turkish gate from the built-in
// wordlists, extended with extra terms per locale.
func NewDefaultGate(extra map[string][]string, opts ...Option) (*Gate, error) {
	var detectors []Detector
	for _, locale := range []string{"en", "tr"} {
		wl, err := LoadWordlist(locale)
		if err != nil {
			return nil, err
		}
		detectors = append(detectors, NewWordlistDetector(wl, extra[locale]...))
	}
	return NewGate(detectors, opts...), nil
}

// Check returns a validation error naming the first locale that flags text.
// text itself is never modified.
func (g *Gate) Check(text string) error {
	for _, d := range g.detectors {
		if !d.Flagged(text) {
			continue
		}
		if g.onReject != nil {
			g.onReject(d.Locale())
		}
		return models.NewValidationError("Comment contains inappropriate language.").
			WithRule(fmt.Sprintf("moderation.%s", d.Locale()))
	}
	return nil
}
