// Package tokenizer turns raw whitespace-delimited words into index keywords.
// A keyword is a lower-cased word made of ASCII letters, optionally followed
// by a single run of trailing punctuation that is stripped, and not in the
// noise-word set.
package tokenizer

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalizer rejects or canonicalizes raw words. It is immutable after
// construction and safe for concurrent use.
type Normalizer struct {
	noise map[string]struct{}
}

// NewNormalizer builds a Normalizer over the given noise words. The set is
// copied, so later changes by the caller do not leak in.
func NewNormalizer(noiseWords map[string]struct{}) *Normalizer {
	noise := make(map[string]struct{}, len(noiseWords))
	for w := range noiseWords {
		noise[w] = struct{}{}
	}
	return &Normalizer{noise: noise}
}

// IsNoise reports whether word is a noise word.
func (n *Normalizer) IsNoise(word string) bool {
	_, ok := n.noise[word]
	return ok
}

// NoiseWords returns the number of noise words.
func (n *Normalizer) NoiseWords() int {
	return len(n.noise)
}

// Keyword returns the keyword for raw, or false if raw is not one.
func (n *Normalizer) Keyword(raw string) (string, bool) {
	candidate, ok := Trim(raw)
	if !ok {
		return "", false
	}
	if n.IsNoise(candidate) {
		return "", false
	}
	return candidate, true
}

// Trim lower-cases raw and strips trailing punctuation without consulting any
// noise words. It rejects words with punctuation before a letter, such as
// "don't" or "e.g", and words that are empty once trimmed.
func Trim(raw string) (string, bool) {
	// cases.Caser carries state, so each call gets its own.
	lower := cases.Lower(language.Und).String(raw)
	runes := []rune(lower)
	cut := -1
	for i, r := range runes {
		if !isLetter(r) {
			cut = i
			break
		}
	}
	if cut >= 0 {
		if cut < len(runes)-1 && isLetter(runes[cut+1]) {
			return "", false
		}
		lower = string(runes[:cut])
	}
	if strings.TrimSpace(lower) == "" {
		return "", false
	}
	return lower, true
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
