package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func corpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"docs.txt":       "doc1.txt doc2.txt doc3.txt",
		"noisewords.txt": "the\nand\n",
		"doc1.txt":       "Alice and the rabbit. Alice ran; Alice hid!",
		"doc2.txt":       "The rabbit.",
		"doc3.txt":       "Rabbit rabbit, alice.",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func TestRunSearchPromptsAndLoops(t *testing.T) {
	dir := corpus(t)
	in := strings.NewReader(filepath.Join(dir, "docs.txt") + "\nalice OR rabbit\nthe\na b c\n")
	var out bytes.Buffer

	err := runSearch(context.Background(), []string{
		"-noise", filepath.Join(dir, "noisewords.txt"), "-relative",
	}, in, &out)
	require.NoError(t, err)

	got := out.String()
	assert.Contains(t, got, "Enter file name:")
	assert.Contains(t, got, "1. doc1.txt (alice x3)\n2. doc3.txt (rabbit x2)\n3. doc2.txt (rabbit x1)\n")
	assert.Contains(t, got, "no documents")
	assert.Contains(t, got, "invalid query:")
}

func TestRunSearchSingleQuery(t *testing.T) {
	dir := corpus(t)
	var out bytes.Buffer

	err := runSearch(context.Background(), []string{
		"-manifest", filepath.Join(dir, "docs.txt"),
		"-noise", filepath.Join(dir, "noisewords.txt"),
		"-relative", "-k", "1",
		"rabbit",
	}, strings.NewReader(""), &out)
	require.NoError(t, err)
	assert.Equal(t, "1. doc3.txt (rabbit x2)\n", out.String())
}

func TestRunSearchMissingManifest(t *testing.T) {
	dir := corpus(t)
	err := runSearch(context.Background(), []string{
		"-manifest", filepath.Join(dir, "nope.txt"),
		"-noise", filepath.Join(dir, "noisewords.txt"),
	}, strings.NewReader(""), &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRunSearchAbsentKeywordFallsBackToOther(t *testing.T) {
	dir := corpus(t)
	var out bytes.Buffer

	require.NoError(t, runSearch(context.Background(), []string{
		"-manifest", filepath.Join(dir, "docs.txt"),
		"-noise", filepath.Join(dir, "noisewords.txt"),
		"-relative",
		"jabberwock", "alice",
	}, strings.NewReader(""), &out))
	assert.Equal(t, "1. doc1.txt (alice x3)\n2. doc3.txt (alice x1)\n", out.String())
}
