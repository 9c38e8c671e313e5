package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.DocsIndexedTotal.Add(3)
	m.QueriesTotal.WithLabelValues("hit").Inc()
	m.KeywordsIndexed.Set(42)
	m.InsertProbes.Observe(2)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.DocsIndexedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues("hit")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.KeywordsIndexed))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["docs_indexed_total"])
	assert.True(t, names["index_insert_probes"])
}

func TestNewPanicsOnDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
