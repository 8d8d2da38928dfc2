package ranking

import (
	"github.com/jastley/resume-ranker/internal/ai"
	"github.com/jastley/resume-ranker/internal/recordstore"
)

// SourceRecord is one résumé to be scored. GlobalIndex is assigned once when
// records are built and is the sole link between a scored item and its source.
// Records are immutable after partitioning.
type SourceRecord struct {
	GlobalIndex int
	Text        string
	Original    *recordstore.Candidate
}

// Batch is a contiguous slice of source records. StartIndex is the global
// index of its first member; batches are never reordered once created.
type Batch struct {
	StartIndex int
	Records    []SourceRecord
}

func (b Batch) Len() int { return len(b.Records) }

// ScoredItem is the outcome of scoring one record, either produced by the
// scoring backend or synthesized as a fallback when scoring permanently failed.
type ScoredItem struct {
	ai.ItemScore
	Fallback bool `json:"is_fallback"`
}

// RankedCandidate is a scored item re-attached to its source record, with
// extracted fields merged over the stored ones.
type RankedCandidate struct {
	ScoredItem
	CandidateID string `json:"candidate_id,omitempty"`
	Title       string `json:"title,omitempty"`
	Location    string `json:"location,omitempty"`

	// source keeps the stored record at hand for the post-run field diff.
	source *recordstore.Candidate
}

// BuildRecords assigns stable global indices to the candidates and bounds
// each résumé text to maxTextLen runes. Truncation is deterministic: the same
// input always yields the same record set.
func BuildRecords(candidates []*recordstore.Candidate, maxTextLen int) []SourceRecord {
	records := make([]SourceRecord, 0, len(candidates))
	for i, candidate := range candidates {
		records = append(records, SourceRecord{
			GlobalIndex: i,
			Text:        truncateText(candidate.Text, maxTextLen),
			Original:    candidate,
		})
	}
	return records
}

func truncateText(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
