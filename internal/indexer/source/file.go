package source

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/errors"
)

// maxWordSize bounds a single whitespace-free run in a document.
const maxWordSize = 1 << 20

// Files reads documents from disk. Relative document IDs are resolved
// against Root when it is set, otherwise against the working directory.
type Files struct {
	Root string
}

func (f Files) Open(ctx context.Context, docID string) (TokenStream, error) {
	path := docID
	if f.Root != "" && !filepath.IsAbs(path) {
		path = filepath.Join(f.Root, path)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrDocumentNotFound, http.StatusNotFound, "opening %s: %v", path, err)
	}
	sc := bufio.NewScanner(file)
	sc.Buffer(make([]byte, 0, 64*1024), maxWordSize)
	sc.Split(bufio.ScanWords)
	return &fileStream{file: file, scanner: sc}, nil
}

type fileStream struct {
	file    *os.File
	scanner *bufio.Scanner
}

func (s *fileStream) Next() bool    { return s.scanner.Scan() }
func (s *fileStream) Token() string { return s.scanner.Text() }
func (s *fileStream) Err() error    { return s.scanner.Err() }
func (s *fileStream) Close() error  { return s.file.Close() }

// ManifestFile lists documents from a file of whitespace-separated names.
type ManifestFile struct {
	Path string
}

func (m ManifestFile) List(ctx context.Context) ([]string, error) {
	words, err := readWords(m.Path)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrManifestNotFound, http.StatusNotFound, "%v", err)
	}
	return words, nil
}

// Dir is the directory relative document names are resolved against when
// the corpus is configured to resolve relative to the manifest.
func (m ManifestFile) Dir() string {
	return filepath.Dir(m.Path)
}

// NoiseWordFile loads noise words from a file of whitespace-separated words.
// Words are lower-cased so they compare equal to normalized keywords.
type NoiseWordFile struct {
	Path string
}

func (n NoiseWordFile) Load(ctx context.Context) (map[string]struct{}, error) {
	words, err := readWords(n.Path)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrNoiseWordsNotFound, http.StatusNotFound, "%v", err)
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set, nil
}

func readWords(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()
	sc := bufio.NewScanner(file)
	sc.Split(bufio.ScanWords)
	words := make([]string, 0, 64)
	for sc.Scan() {
		words = append(words, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return words, nil
}
