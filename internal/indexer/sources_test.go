package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/config"
)

func TestSourcesFromConfigResolvesRelativeDocuments(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"docs.txt":       "a.txt\nb.txt\n",
		"noisewords.txt": "the\nis\n",
		"a.txt":          "The cat sat. The cat ran!",
		"b.txt":          "cat is here",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}

	src, err := SourcesFromConfig(config.CorpusConfig{
		ManifestSource:  config.ManifestSourceFile,
		ManifestPath:    filepath.Join(dir, "docs.txt"),
		NoiseWordsPath:  filepath.Join(dir, "noisewords.txt"),
		ResolveRelative: true,
	}, nil)
	require.NoError(t, err)

	snap, err := NewEngine(src, nil).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, index.OccurrenceList{
		{DocID: "a.txt", Frequency: 2},
		{DocID: "b.txt", Frequency: 1},
	}, snap.Occurrences("cat"))
	assert.False(t, snap.Contains("is"))
}

func TestSourcesFromConfigPostgresNeedsClient(t *testing.T) {
	_, err := SourcesFromConfig(config.CorpusConfig{ManifestSource: config.ManifestSourcePostgres}, nil)
	assert.Error(t, err)
}
