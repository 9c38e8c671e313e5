// Package merger combines the ranked occurrence lists of two keywords into a
// single top-k document ranking.
package merger

import "github.com/Adithya-Monish-Kumar-K/keyword-search/internal/indexer/index"

// DefaultK is the result count used when a caller asks for none.
const DefaultK = 5

// Hit is one ranked document and the occurrence that placed it.
type Hit struct {
	DocID     string `json:"doc_id"`
	Frequency int    `json:"frequency"`
	Keyword   string `json:"keyword"`
}

// Term is a keyword together with its ranked occurrence list.
type Term struct {
	Keyword     string
	Occurrences index.OccurrenceList
}

// TopK walks both lists from their heads, always taking the occurrence with
// the larger frequency and preferring t1 on equal frequencies. A document
// already taken is skipped when its other occurrence comes up. The walk stops
// after k documents or when both lists are exhausted. The lists are only read.
func TopK(t1, t2 Term, k int) []Hit {
	if k <= 0 {
		k = DefaultK
	}
	l1, l2 := t1.Occurrences, t2.Occurrences
	hits := make([]Hit, 0, min(k, len(l1)+len(l2)))
	seen := make(map[string]struct{}, cap(hits))
	i, j := 0, 0
	for len(hits) < k && (i < len(l1) || j < len(l2)) {
		var occ index.Occurrence
		var kw string
		if j >= len(l2) || (i < len(l1) && l1[i].Frequency >= l2[j].Frequency) {
			occ, kw = l1[i], t1.Keyword
			i++
		} else {
			occ, kw = l2[j], t2.Keyword
			j++
		}
		if _, dup := seen[occ.DocID]; dup {
			continue
		}
		seen[occ.DocID] = struct{}{}
		hits = append(hits, Hit{DocID: occ.DocID, Frequency: occ.Frequency, Keyword: kw})
	}
	return hits
}

// DocIDs returns the document IDs of hits in rank order.
func DocIDs(hits []Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.DocID
	}
	return out
}
