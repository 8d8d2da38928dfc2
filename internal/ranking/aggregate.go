package ranking

import "sort"

// Aggregator accumulates scored items across all batches. Each worker owns one
// bucket (indexed by worker ordinal), so accumulation needs no locking; the
// buckets are merged exactly once, after every worker loop has joined.
type Aggregator struct {
	buckets [][]*RankedCandidate
}

func NewAggregator(workers int) *Aggregator {
	if workers < 1 {
		workers = 1
	}
	return &Aggregator{buckets: make([][]*RankedCandidate, workers)}
}

// Collect re-attaches the batch's scored items to their source records,
// merging extracted fields over the stored ones, stores them in the worker's
// bucket and returns the merged entries for the partial event. Must be called
// with the calling worker's own ordinal only.
func (a *Aggregator) Collect(worker int, batch Batch, items []ScoredItem) []*RankedCandidate {
	merged := make([]*RankedCandidate, 0, len(items))
	for _, item := range items {
		local := item.CandidateIndex - batch.StartIndex
		if local < 0 || local >= batch.Len() {
			// The retry policy already aligned indices; anything left out of
			// range has no source record to attach to.
			continue
		}
		merged = append(merged, mergeItem(item, batch.Records[local]))
	}

	a.buckets[worker] = append(a.buckets[worker], merged...)

	return merged
}

// Finalize merges all buckets into the final ranked list: deduplicated by
// candidate index (first occurrence wins) and sorted by score descending,
// index ascending on ties. Call only after all workers have stopped.
func (a *Aggregator) Finalize() []*RankedCandidate {
	size := 0
	for _, bucket := range a.buckets {
		size += len(bucket)
	}

	seen := make(map[int]bool, size)
	result := make([]*RankedCandidate, 0, size)
	for _, bucket := range a.buckets {
		for _, entry := range bucket {
			if seen[entry.CandidateIndex] {
				continue
			}
			seen[entry.CandidateIndex] = true
			result = append(result, entry)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].CandidateIndex < result[j].CandidateIndex
	})

	return result
}

// mergeItem prefers the scoring output's extracted fields and falls back to
// the stored record's fields when the extraction came back empty.
func mergeItem(item ScoredItem, record SourceRecord) *RankedCandidate {
	entry := &RankedCandidate{ScoredItem: item}

	original := record.Original
	if original == nil {
		return entry
	}

	entry.CandidateID = original.ID
	entry.Title = original.Title
	entry.Location = original.Location
	entry.source = original

	if entry.Name == "" {
		entry.Name = original.Name
	}
	if entry.Email == "" {
		entry.Email = original.Email
	}
	if len(entry.Skills) == 0 {
		entry.Skills = original.Skills
	}
	if entry.Experience == "" {
		entry.Experience = original.Experience
	}

	return entry
}
