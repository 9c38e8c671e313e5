package indexer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/indexer/source"
	apperrors "github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/metrics"
)

func memoryEngine(corpus *source.Memory, m *metrics.Metrics) *Engine {
	return NewEngine(Sources{Manifest: corpus, NoiseWords: corpus, Documents: corpus}, m)
}

func TestBuildSingleDocument(t *testing.T) {
	corpus := &source.Memory{
		Manifest: []string{"a.txt"},
		Docs:     map[string]string{"a.txt": "The cat sat. The cat ran!"},
		Noise:    []string{"the", "is"},
	}
	e := memoryEngine(corpus, nil)

	snap, err := e.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, index.OccurrenceList{{DocID: "a.txt", Frequency: 2}}, snap.Occurrences("cat"))
	assert.Equal(t, index.OccurrenceList{{DocID: "a.txt", Frequency: 1}}, snap.Occurrences("sat"))
	assert.Equal(t, index.OccurrenceList{{DocID: "a.txt", Frequency: 1}}, snap.Occurrences("ran"))
	assert.False(t, snap.Contains("the"))
	assert.Equal(t, index.Stats{Documents: 1, Keywords: 3, Occurrences: 3}, snap.Stats())

	require.NotNil(t, e.Normalizer())
	assert.True(t, e.Normalizer().IsNoise("is"))
	assert.Equal(t, 2, e.Report().NoiseWords)
	for _, phase := range []string{"noise_words", "manifest", "documents", "freeze"} {
		assert.Contains(t, e.Report().Phases, phase)
	}
}

func TestBuildKeepsManifestOrderOnTies(t *testing.T) {
	corpus := &source.Memory{
		Manifest: []string{"A", "B", "C"},
		Docs: map[string]string{
			"A": "cat cat cat",
			"B": "cat Cat CAT.",
			"C": "cat cat cat cat",
		},
	}
	snap, err := memoryEngine(corpus, nil).Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, index.OccurrenceList{
		{DocID: "C", Frequency: 4},
		{DocID: "A", Frequency: 3},
		{DocID: "B", Frequency: 3},
	}, snap.Occurrences("cat"))
	assert.Equal(t, []string{"A", "B", "C"}, snap.Documents())
}

func TestBuildSkipsDuplicateManifestEntries(t *testing.T) {
	corpus := &source.Memory{
		Manifest: []string{"a", "b", "a"},
		Docs:     map[string]string{"a": "alice alice", "b": "alice"},
	}
	e := memoryEngine(corpus, nil)
	snap, err := e.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, index.OccurrenceList{
		{DocID: "a", Frequency: 2},
		{DocID: "b", Frequency: 1},
	}, snap.Occurrences("alice"))
	assert.Equal(t, []string{"a"}, e.Report().Skipped)
	assert.Equal(t, 2, e.Report().Documents)
}

func TestBuildEmptyManifest(t *testing.T) {
	corpus := &source.Memory{Manifest: []string{}}
	snap, err := memoryEngine(corpus, nil).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, index.Stats{}, snap.Stats())
	assert.Nil(t, snap.Occurrences("alice"))
}

type failingNoise struct{}

func (failingNoise) Load(context.Context) (map[string]struct{}, error) {
	return nil, apperrors.New(apperrors.ErrNoiseWordsNotFound, 0, "no noise words")
}

func TestBuildAborts(t *testing.T) {
	t.Run("noise words", func(t *testing.T) {
		corpus := &source.Memory{Manifest: []string{}}
		e := NewEngine(Sources{Manifest: corpus, NoiseWords: failingNoise{}, Documents: corpus}, nil)
		snap, err := e.Build(context.Background())
		assert.Nil(t, snap)
		assert.True(t, errors.Is(err, apperrors.ErrNoiseWordsNotFound))
		assert.Nil(t, e.Normalizer())
	})

	t.Run("manifest", func(t *testing.T) {
		snap, err := memoryEngine(&source.Memory{}, nil).Build(context.Background())
		assert.Nil(t, snap)
		assert.True(t, errors.Is(err, apperrors.ErrManifestNotFound))
	})

	t.Run("document", func(t *testing.T) {
		corpus := &source.Memory{
			Manifest: []string{"a", "missing", "b"},
			Docs:     map[string]string{"a": "alice", "b": "rabbit"},
		}
		snap, err := memoryEngine(corpus, nil).Build(context.Background())
		assert.Nil(t, snap)
		assert.True(t, errors.Is(err, apperrors.ErrDocumentNotFound))
		assert.Contains(t, err.Error(), "missing")
	})

	t.Run("context", func(t *testing.T) {
		corpus := &source.Memory{
			Manifest: []string{"a"},
			Docs:     map[string]string{"a": "alice"},
		}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		snap, err := memoryEngine(corpus, nil).Build(ctx)
		assert.Nil(t, snap)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

func TestBuildRecordsMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	corpus := &source.Memory{
		Manifest: []string{"a", "b", "c"},
		Docs: map[string]string{
			"a": "alice rabbit",
			"b": "alice alice",
			"c": "alice",
		},
	}
	e := memoryEngine(corpus, m)
	_, err := e.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.DocsIndexedTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.KeywordsIndexed))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.OccurrencesIndexed))
	// "alice" grew from one to three entries: one probe, then two.
	assert.Equal(t, 3, e.Report().Probes)
	assert.Equal(t, 1, testutil.CollectAndCount(m.InsertProbes, "index_insert_probes"))
}

func TestBuildLogsPhaseDurationsItReports(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	corpus := &source.Memory{
		Manifest: []string{"a", "b"},
		Docs:     map[string]string{"a": "alice rabbit", "b": "alice"},
	}
	e := memoryEngine(corpus, nil)
	_, err := e.Build(context.Background())
	require.NoError(t, err)

	logged := map[string]time.Duration{}
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var rec struct {
			Msg      string `json:"msg"`
			Span     string `json:"span"`
			Duration int64  `json:"duration"`
		}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		if rec.Msg == "span" {
			logged[rec.Span] = time.Duration(rec.Duration)
		}
	}

	phases := e.Report().Phases
	for _, name := range []string{"noise_words", "manifest", "documents", "freeze"} {
		assert.Equal(t, phases[name], logged[name], name)
	}
	assert.LessOrEqual(t, logged["documents"], logged["index_build"])
}
