package ai

import "context"

// Item is one résumé text handed to the scoring backend, tagged with the
// stable global index of its source record.
type Item struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// ItemScore is the structured result the scoring backend returns for one item.
type ItemScore struct {
	CandidateIndex int      `json:"candidate_index"`
	Name           string   `json:"name,omitempty"`
	Email          string   `json:"email,omitempty"`
	Skills         []string `json:"skills,omitempty"`
	Experience     string   `json:"experience,omitempty"`
	Score          float64  `json:"score"`
	Reasoning      string   `json:"reasoning,omitempty"`
	Strengths      []string `json:"strengths,omitempty"`
	Concerns       []string `json:"concerns,omitempty"`
}

// BatchScorer scores a whole batch of items against one criterion in a single
// remote call. Implementations hold no per-call state and are safe for
// concurrent use.
type BatchScorer interface {
	ScoreBatch(ctx context.Context, criterion string, items []Item) ([]*ItemScore, error)
}
