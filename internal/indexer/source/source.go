// Package source supplies the index build with its inputs: the ordered list
// of documents, the noise words, and the raw words of each document.
package source

import (
	"context"
	"net/http"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/errors"
)

// TokenStream yields the whitespace-separated words of one document. It is
// consumed once; re-reading a document means opening it again.
type TokenStream interface {
	Next() bool
	Token() string
	Err() error
	Close() error
}

// TokenSource opens documents by ID.
type TokenSource interface {
	Open(ctx context.Context, docID string) (TokenStream, error)
}

// ManifestSource lists the documents to index, in indexing order.
type ManifestSource interface {
	List(ctx context.Context) ([]string, error)
}

// NoiseWordSource loads the words that are never keywords.
type NoiseWordSource interface {
	Load(ctx context.Context) (map[string]struct{}, error)
}

// Memory is an in-process corpus. It serves as all three sources.
type Memory struct {
	Manifest []string
	Docs     map[string]string
	Noise    []string
}

func (m *Memory) List(ctx context.Context) ([]string, error) {
	if m.Manifest == nil {
		return nil, apperrors.New(apperrors.ErrManifestNotFound, http.StatusNotFound, "in-memory corpus has no manifest")
	}
	out := make([]string, len(m.Manifest))
	copy(out, m.Manifest)
	return out, nil
}

func (m *Memory) Load(ctx context.Context) (map[string]struct{}, error) {
	set := make(map[string]struct{}, len(m.Noise))
	for _, w := range m.Noise {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set, nil
}

func (m *Memory) Open(ctx context.Context, docID string) (TokenStream, error) {
	text, ok := m.Docs[docID]
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrDocumentNotFound, http.StatusNotFound, "document %s", docID)
	}
	return &fieldStream{words: strings.Fields(text), pos: -1}, nil
}

type fieldStream struct {
	words []string
	pos   int
}

func (s *fieldStream) Next() bool {
	if s.pos < len(s.words) {
		s.pos++
	}
	return s.pos < len(s.words)
}

func (s *fieldStream) Token() string {
	if s.pos < 0 || s.pos >= len(s.words) {
		return ""
	}
	return s.words[s.pos]
}

func (s *fieldStream) Err() error   { return nil }
func (s *fieldStream) Close() error { return nil }
