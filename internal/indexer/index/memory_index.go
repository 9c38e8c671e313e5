package index

import (
	"fmt"
	"hash/fnv"
	"slices"

	apperrors "github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/errors"
)

// MergeStats describes what a single MergeDocument call did.
type MergeStats struct {
	Keywords    int
	NewKeywords int
	Probes      int
}

// MemoryIndex accumulates documents into keyword occurrence lists. It is the
// build-phase view of the index and is not safe for concurrent use; Freeze
// hands the result to readers.
type MemoryIndex struct {
	index  map[string]OccurrenceList
	docs   []string
	seen   map[string]struct{}
	occs   int
	sealed bool
	probe  func(n int)
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		index: make(map[string]OccurrenceList),
		seen:  make(map[string]struct{}),
	}
}

// OnProbe registers fn to receive the probe count of every insertion that
// needed a search.
func (m *MemoryIndex) OnProbe(fn func(n int)) {
	m.probe = fn
}

// MergeDocument folds one document's keywords into the index, visiting them
// in the order the document first used them. Each keyword's list stays ranked
// after the merge.
func (m *MemoryIndex) MergeDocument(dk *DocumentKeywords) (MergeStats, error) {
	var stats MergeStats
	if m.sealed {
		return stats, apperrors.ErrIndexSealed
	}
	if _, dup := m.seen[dk.DocID]; dup {
		return stats, apperrors.Newf(apperrors.ErrDocumentExists, 0, "document %s", dk.DocID)
	}
	m.seen[dk.DocID] = struct{}{}
	m.docs = append(m.docs, dk.DocID)

	for _, kw := range dk.order {
		occ := Occurrence{DocID: dk.DocID, Frequency: dk.freq[kw]}
		list, exists := m.index[kw]
		if !exists {
			m.index[kw] = OccurrenceList{occ}
			stats.NewKeywords++
		} else {
			list = append(list, occ)
			probes := InsertLast(list)
			m.index[kw] = list
			stats.Probes += len(probes)
			if m.probe != nil {
				m.probe(len(probes))
			}
		}
		stats.Keywords++
		m.occs++
	}
	return stats, nil
}

// Search returns a copy of the occurrence list for keyword.
func (m *MemoryIndex) Search(keyword string) OccurrenceList {
	list, ok := m.index[keyword]
	if !ok {
		return nil
	}
	out := make(OccurrenceList, len(list))
	copy(out, list)
	return out
}

func (m *MemoryIndex) DocCount() int {
	return len(m.docs)
}

// Freeze seals the index and returns its read-only Snapshot. Later merges
// fail with ErrIndexSealed.
func (m *MemoryIndex) Freeze() *Snapshot {
	m.sealed = true
	docs := make([]string, len(m.docs))
	copy(docs, m.docs)
	snap := &Snapshot{
		index: m.index,
		docs:  docs,
		stats: Stats{
			Documents:   len(m.docs),
			Keywords:    len(m.index),
			Occurrences: m.occs,
		},
	}
	snap.fingerprint = snap.hash()
	return snap
}

// Snapshot is a built keyword index. It is never modified, so any number of
// goroutines may query it.
type Snapshot struct {
	index       map[string]OccurrenceList
	docs        []string
	stats       Stats
	fingerprint string
}

// Occurrences returns the ranked list for keyword, or nil when the keyword is
// not indexed. The returned slice is shared with the snapshot and must not be
// modified; its capacity is clipped so appends reallocate.
func (s *Snapshot) Occurrences(keyword string) OccurrenceList {
	list, ok := s.index[keyword]
	if !ok {
		return nil
	}
	return list[:len(list):len(list)]
}

// Contains reports whether keyword is indexed.
func (s *Snapshot) Contains(keyword string) bool {
	_, ok := s.index[keyword]
	return ok
}

// Documents returns the indexed document IDs in merge order.
func (s *Snapshot) Documents() []string {
	out := make([]string, len(s.docs))
	copy(out, s.docs)
	return out
}

func (s *Snapshot) Stats() Stats {
	return s.stats
}

// Fingerprint identifies the snapshot's contents: the merged documents in
// order and every keyword's ranked occurrence list. Rebuilding from an
// unchanged corpus gives the same value, and an edited one whose counts
// happen to match still gets a new one.
func (s *Snapshot) Fingerprint() string {
	return s.fingerprint
}

func (s *Snapshot) hash() string {
	h := fnv.New64a()
	for _, d := range s.docs {
		h.Write([]byte(d))
		h.Write([]byte{0})
	}
	keywords := make([]string, 0, len(s.index))
	for kw := range s.index {
		keywords = append(keywords, kw)
	}
	slices.Sort(keywords)
	for _, kw := range keywords {
		fmt.Fprintf(h, "%s\x00", kw)
		for _, occ := range s.index[kw] {
			fmt.Fprintf(h, "%s\x00%d\x00", occ.DocID, occ.Frequency)
		}
		h.Write([]byte{1})
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
