package moderation

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed wordlists/*.yaml
var wordlistFS embed.FS

// Wordlist is the vocabulary a detector flags. A token is flagged when it
// equals one of Terms or starts with one of Prefixes.
type Wordlist struct {
	Locale   string   `yaml:"locale"`
	Terms    []string `yaml:"terms"`
	Prefixes []string `yaml:"prefixes"`
}

// LoadWordlist reads the built-in list for locale.
func LoadWordlist(locale string) (Wordlist, error) {
	raw, err := wordlistFS.ReadFile("wordlists/" + locale + ".yaml")
	if err != nil {
		return Wordlist{}, fmt.Errorf("no built-in wordlist for locale %q: %w", locale, err)
	}
	return ParseWordlist(raw)
}

// ParseWordlist decodes a YAML wordlist document.
func ParseWordlist(raw []byte) (Wordlist, error) {
	var wl Wordlist
	if err := yaml.Unmarshal(raw, &wl); err != nil {
		return Wordlist{}, fmt.Errorf("parse wordlist: %w", err)
	}
	if wl.Locale == "" {
		return Wordlist{}, fmt.Errorf("wordlist is missing a locale")
	}
	return wl, nil
}
