package index

// Occurrence records that a document contains a keyword Frequency times.
type Occurrence struct {
	DocID     string `json:"doc_id"`
	Frequency int    `json:"frequency"`
}

// OccurrenceList is one keyword's occurrences, one per document, ordered by
// non-increasing Frequency. Equal frequencies keep the order in which their
// documents were merged.
type OccurrenceList []Occurrence

// IsRanked reports whether the list is ordered by non-increasing frequency.
func (l OccurrenceList) IsRanked() bool {
	for i := 1; i < len(l); i++ {
		if l[i].Frequency > l[i-1].Frequency {
			return false
		}
	}
	return true
}

// Stats summarizes a built index.
type Stats struct {
	Documents   int `json:"documents"`
	Keywords    int `json:"keywords"`
	Occurrences int `json:"occurrences"`
}
