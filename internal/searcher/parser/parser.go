// Package parser turns a raw query string into a two-keyword query plan.
package parser

import (
	"net/http"
	"strings"
	"unicode"

	apperrors "github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/errors"
)

// MaxKeywords is the number of keywords a query may name.
const MaxKeywords = 2

// Normalizer maps a raw word to its keyword.
type Normalizer interface {
	Keyword(raw string) (string, bool)
}

// QueryPlan is a disjunction of at most two keywords. An empty keyword matches
// nothing; it is what a noise word or a malformed word normalizes to.
type QueryPlan struct {
	Keyword1 string `json:"keyword1"`
	Keyword2 string `json:"keyword2"`
	RawQuery string `json:"raw_query"`
}

// Keywords returns the non-empty keywords of the plan, without repeats.
func (p *QueryPlan) Keywords() []string {
	out := make([]string, 0, MaxKeywords)
	if p.Keyword1 != "" {
		out = append(out, p.Keyword1)
	}
	if p.Keyword2 != "" && p.Keyword2 != p.Keyword1 {
		out = append(out, p.Keyword2)
	}
	return out
}

// Empty reports whether the plan can match no document.
func (p *QueryPlan) Empty() bool {
	return p.Keyword1 == "" && p.Keyword2 == ""
}

// Parse accepts "kw", "kw1 kw2" and "kw1 OR kw2". The OR is matched without
// regard to case.
func Parse(n Normalizer, query string) (*QueryPlan, error) {
	words := strings.Fields(query)
	if len(words) == 3 && strings.EqualFold(words[1], "OR") {
		words = []string{words[0], words[2]}
	}
	switch len(words) {
	case 0:
		return nil, apperrors.New(apperrors.ErrInvalidQuery, http.StatusBadRequest, "query is empty")
	case 1:
		return build(n, query, words[0], ""), nil
	case 2:
		return build(n, query, words[0], words[1]), nil
	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidQuery, http.StatusBadRequest,
			"query names %d words, at most %d keywords are supported", len(words), MaxKeywords)
	}
}

// FromKeywords builds a plan from two explicit keyword parameters. At least one
// must be non-blank, and neither may contain whitespace.
func FromKeywords(n Normalizer, kw1, kw2 string) (*QueryPlan, error) {
	kw1, kw2 = strings.TrimSpace(kw1), strings.TrimSpace(kw2)
	if kw1 == "" && kw2 == "" {
		return nil, apperrors.New(apperrors.ErrInvalidQuery, http.StatusBadRequest, "no keywords given")
	}
	if strings.ContainsFunc(kw1+kw2, unicode.IsSpace) {
		return nil, apperrors.New(apperrors.ErrInvalidQuery, http.StatusBadRequest, "a keyword must be a single word")
	}
	raw := strings.TrimSpace(kw1 + " OR " + kw2)
	if kw1 == "" || kw2 == "" {
		raw = kw1 + kw2
	}
	return build(n, raw, kw1, kw2), nil
}

func build(n Normalizer, raw, w1, w2 string) *QueryPlan {
	plan := &QueryPlan{RawQuery: raw}
	if w1 != "" {
		plan.Keyword1, _ = n.Keyword(w1)
	}
	if w2 != "" {
		plan.Keyword2, _ = n.Keyword(w2)
	}
	return plan
}
