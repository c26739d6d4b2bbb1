package moderation

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Detector flags text that violates one language's content rules.
type Detector interface {
	Locale() string
	Flagged(text string) bool
}

// WordlistDetector flags text containing a listed word, compared after
// locale-aware lower-casing.
type WordlistDetector struct {
	locale   string
	tag      language.Tag
	terms    map[string]struct{}
	prefixes []string
	strip    *bluemonday.Policy
}

// NewWordlistDetector builds a detector from wl plus any extra terms.
func NewWordlistDetector(wl Wordlist, extraTerms ...string) *WordlistDetector {
	tag := language.Make(wl.Locale)
	d := &WordlistDetector{
		locale: wl.Locale,
		tag:    tag,
		terms:  make(map[string]struct{}, len(wl.Terms)+len(extraTerms)),
		strip:  bluemonday.StrictPolicy(),
	}
	for _, t := range append(append([]string{}, wl.Terms...), extraTerms...) {
		if t = d.fold(strings.TrimSpace(t)); t != "" {
			d.terms[t] = struct{}{}
		}
	}
	for _, p := range wl.Prefixes {
		if p = d.fold(strings.TrimSpace(p)); p != "" {
			d.prefixes = append(d.prefixes, p)
		}
	}
	return d
}

// Locale returns the language tag this detector covers.
func (d *WordlistDetector) Locale() string { return d.locale }

// Flagged reports whether any word of text is on the list. Both the raw
// text and its markup-free rendering are scanned: stripping joins words
// split by tags, while the raw pass sees words hidden in tag names,
// attributes, comments and script bodies.
func (d *WordlistDetector) Flagged(text string) bool {
	return d.scan(text) || d.scan(d.plain(text))
}

func (d *WordlistDetector) scan(text string) bool {
	for _, tok := range tokenize(d.fold(text)) {
		if d.listed(tok) {
			return true
		}
		// Turkish text typed on ASCII keyboards upper-cases i as I, which
		// folds to the dotless ı.
		if dotted := strings.ReplaceAll(tok, "ı", "i"); dotted != tok && d.listed(dotted) {
			return true
		}
	}
	return false
}

func (d *WordlistDetector) listed(tok string) bool {
	if _, ok := d.terms[tok]; ok {
		return true
	}
	for _, p := range d.prefixes {
		if strings.HasPrefix(tok, p) {
			return true
		}
	}
	return false
}

// plain drops markup so tags cannot split words. The result is only
// scanned, never returned to callers.
func (d *WordlistDetector) plain(text string) string {
	return html.UnescapeString(d.strip.Sanitize(text))
}

// fold lower-cases with the detector's language rules. Casers carry state,
// so one is built per call.
func (d *WordlistDetector) fold(s string) string {
	return cases.Lower(d.tag).String(s)
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsMark(r)
	})
}
