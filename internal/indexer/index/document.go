package index

import "fmt"

// Tokens is a forward-only stream of raw words, in the style of bufio.Scanner.
type Tokens interface {
	Next() bool
	Token() string
	Err() error
}

// Normalizer maps a raw word to its keyword, or reports that it is not one.
type Normalizer interface {
	Keyword(raw string) (string, bool)
}

// DocumentKeywords is the keyword frequency table of a single document. It
// remembers the order in which keywords were first seen so merges are
// deterministic.
type DocumentKeywords struct {
	DocID string
	order []string
	freq  map[string]int
}

// NewDocumentKeywords returns an empty table for docID.
func NewDocumentKeywords(docID string) *DocumentKeywords {
	return &DocumentKeywords{
		DocID: docID,
		freq:  make(map[string]int),
	}
}

// Add counts one more occurrence of keyword.
func (d *DocumentKeywords) Add(keyword string) {
	if _, seen := d.freq[keyword]; !seen {
		d.order = append(d.order, keyword)
	}
	d.freq[keyword]++
}

// Occurrence returns the document's occurrence for keyword.
func (d *DocumentKeywords) Occurrence(keyword string) (Occurrence, bool) {
	f, ok := d.freq[keyword]
	if !ok {
		return Occurrence{}, false
	}
	return Occurrence{DocID: d.DocID, Frequency: f}, true
}

// Keywords returns the keywords in first-seen order.
func (d *DocumentKeywords) Keywords() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// Len returns the number of distinct keywords.
func (d *DocumentKeywords) Len() int {
	return len(d.order)
}

// CountKeywords drains tokens and counts the keywords n accepts.
func CountKeywords(docID string, tokens Tokens, n Normalizer) (*DocumentKeywords, error) {
	dk := NewDocumentKeywords(docID)
	for tokens.Next() {
		if kw, ok := n.Keyword(tokens.Token()); ok {
			dk.Add(kw)
		}
	}
	if err := tokens.Err(); err != nil {
		return nil, fmt.Errorf("reading words of %s: %w", docID, err)
	}
	return dk, nil
}
