package index

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/indexer/tokenizer"
)

type sliceTokens struct {
	words []string
	pos   int
	err   error
}

func words(text string) *sliceTokens {
	return &sliceTokens{words: strings.Fields(text), pos: -1}
}

func (s *sliceTokens) Next() bool {
	s.pos++
	return s.pos < len(s.words)
}

func (s *sliceTokens) Token() string { return s.words[s.pos] }
func (s *sliceTokens) Err() error    { return s.err }

func normalizer(noiseWords ...string) *tokenizer.Normalizer {
	set := make(map[string]struct{}, len(noiseWords))
	for _, w := range noiseWords {
		set[w] = struct{}{}
	}
	return tokenizer.NewNormalizer(set)
}

func TestCountKeywords(t *testing.T) {
	dk, err := CountKeywords("a.txt", words("The cat sat. The cat ran!"), normalizer("the", "is"))
	require.NoError(t, err)

	assert.Equal(t, "a.txt", dk.DocID)
	assert.Equal(t, []string{"cat", "sat", "ran"}, dk.Keywords())
	assert.Equal(t, 3, dk.Len())

	cat, ok := dk.Occurrence("cat")
	require.True(t, ok)
	assert.Equal(t, Occurrence{DocID: "a.txt", Frequency: 2}, cat)

	sat, _ := dk.Occurrence("sat")
	assert.Equal(t, 1, sat.Frequency)

	_, ok = dk.Occurrence("the")
	assert.False(t, ok)
}

func TestCountKeywordsStreamError(t *testing.T) {
	toks := words("alpha beta")
	toks.err = errors.New("disk went away")

	_, err := CountKeywords("b.txt", toks, normalizer())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b.txt")
}

func TestKeywordsReturnsCopy(t *testing.T) {
	dk := NewDocumentKeywords("c")
	dk.Add("x")
	kws := dk.Keywords()
	kws[0] = "mutated"
	assert.Equal(t, []string{"x"}, dk.Keywords())
}
