package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/errors"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func drain(t *testing.T, ts TokenStream) []string {
	t.Helper()
	defer ts.Close()
	var out []string
	for ts.Next() {
		out = append(out, ts.Token())
	}
	require.NoError(t, ts.Err())
	return out
}

func TestFilesOpen(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "The cat sat.\n\tThe  cat ran!\n")

	ts, err := Files{Root: dir}.Open(context.Background(), "a.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"The", "cat", "sat.", "The", "cat", "ran!"}, drain(t, ts))
}

func TestFilesOpenAbsolutePathIgnoresRoot(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "b.txt", "alice")

	ts, err := Files{Root: "/nowhere"}.Open(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, drain(t, ts))
}

func TestFilesOpenMissing(t *testing.T) {
	_, err := Files{Root: t.TempDir()}.Open(context.Background(), "missing.txt")
	assert.True(t, errors.Is(err, apperrors.ErrDocumentNotFound))
}

func TestManifestFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "docs.txt", "AliceCh1.txt\nWowCh1.txt\n\njabberwocky.txt\n")

	m := ManifestFile{Path: path}
	docs, err := m.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"AliceCh1.txt", "WowCh1.txt", "jabberwocky.txt"}, docs)
	assert.Equal(t, dir, m.Dir())

	_, err = ManifestFile{Path: filepath.Join(dir, "nope.txt")}.List(context.Background())
	assert.True(t, errors.Is(err, apperrors.ErrManifestNotFound))
}

func TestNoiseWordFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "noisewords.txt", "the\nIs\na\n")

	set, err := NoiseWordFile{Path: path}.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, set, 3)
	assert.Contains(t, set, "is")

	_, err = NoiseWordFile{Path: filepath.Join(dir, "nope.txt")}.Load(context.Background())
	assert.True(t, errors.Is(err, apperrors.ErrNoiseWordsNotFound))
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := &Memory{
		Manifest: []string{"a", "b"},
		Docs:     map[string]string{"a": "one two", "b": ""},
		Noise:    []string{"The"},
	}

	docs, err := m.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, docs)

	noise, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Contains(t, noise, "the")

	ts, err := m.Open(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, drain(t, ts))
	assert.False(t, ts.Next())

	ts, err = m.Open(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, drain(t, ts))

	_, err = m.Open(ctx, "c")
	assert.True(t, errors.Is(err, apperrors.ErrDocumentNotFound))

	_, err = (&Memory{}).List(ctx)
	assert.True(t, errors.Is(err, apperrors.ErrManifestNotFound))
}
