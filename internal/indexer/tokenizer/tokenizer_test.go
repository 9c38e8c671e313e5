package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func noise(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func TestKeyword(t *testing.T) {
	n := NewNormalizer(noise("the", "is"))

	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"Cat", "cat", true},
		{"sat.", "sat", true},
		{"ran!", "ran", true},
		{"WORLD?", "world", true},
		{"clause;", "clause", true},
		{"wait!?", "wait", true},
		{"end...", "end", true},
		{"The", "", false},
		{"is,", "", false},
		{"don't", "", false},
		{"e.g.", "", false},
		{"r2d2", "", false},
		{"abc123", "abc", true},
		{".", "", false},
		{"?!", "", false},
		{"", "", false},
		{"naïve", "", false},
		{"café", "caf", true},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			got, ok := n.Keyword(tc.raw)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestKeywordIdempotent(t *testing.T) {
	n := NewNormalizer(noise("the"))
	for _, raw := range []string{"Alice.", "rabbit", "HOLE!", "wonderland,"} {
		once, ok := n.Keyword(raw)
		if !assert.True(t, ok, raw) {
			continue
		}
		twice, ok := n.Keyword(once)
		assert.True(t, ok)
		assert.Equal(t, once, twice)
	}
}

func TestNoiseWordsAreCopied(t *testing.T) {
	set := noise("the")
	n := NewNormalizer(set)
	set["cat"] = struct{}{}

	assert.True(t, n.IsNoise("the"))
	assert.False(t, n.IsNoise("cat"))
	assert.Equal(t, 1, n.NoiseWords())
}

func TestTrimIgnoresNoise(t *testing.T) {
	got, ok := Trim("The.")
	assert.True(t, ok)
	assert.Equal(t, "the", got)
}
