package ranking

import (
	"strings"
	"testing"

	"github.com/jastley/resume-ranker/internal/recordstore"
	"pgregory.net/rapid"
)

func makeRecords(n int) []SourceRecord {
	candidates := make([]*recordstore.Candidate, 0, n)
	for i := 0; i < n; i++ {
		candidates = append(candidates, &recordstore.Candidate{ID: string(rune('a' + i%26))})
	}
	return BuildRecords(candidates, 0)
}

func TestPartitionTilesIndexSpace(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		total := rapid.IntRange(1, 500).Draw(rt, "total")
		batchSize := rapid.IntRange(1, 50).Draw(rt, "batchSize")

		batches := Partition(makeRecords(total), batchSize)

		expectedCount := (total + batchSize - 1) / batchSize
		if len(batches) != expectedCount {
			rt.Fatalf("expected %d batches, got %d", expectedCount, len(batches))
		}

		next := 0
		for _, batch := range batches {
			if batch.StartIndex != next {
				rt.Fatalf("gap or overlap at index %d: batch starts at %d", next, batch.StartIndex)
			}
			if batch.Len() == 0 || batch.Len() > batchSize {
				rt.Fatalf("invalid batch size %d", batch.Len())
			}
			for offset, record := range batch.Records {
				if record.GlobalIndex != batch.StartIndex+offset {
					rt.Fatalf("record %d carries global index %d", batch.StartIndex+offset, record.GlobalIndex)
				}
			}
			next += batch.Len()
		}

		if next != total {
			rt.Fatalf("batches cover %d records, expected %d", next, total)
		}
	})
}

func TestPartitionEmptyInput(t *testing.T) {
	t.Parallel()

	if batches := Partition(nil, 10); len(batches) != 0 {
		t.Fatalf("expected no batches, got %d", len(batches))
	}
}

func TestPartitionLastBatchShorter(t *testing.T) {
	t.Parallel()

	batches := Partition(makeRecords(23), 10)
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	if batches[0].Len() != 10 || batches[1].Len() != 10 || batches[2].Len() != 3 {
		t.Fatalf("unexpected batch sizes: %d, %d, %d", batches[0].Len(), batches[1].Len(), batches[2].Len())
	}
	if batches[2].StartIndex != 20 {
		t.Fatalf("unexpected last start index: %d", batches[2].StartIndex)
	}
}

func TestBuildRecordsTruncatesDeterministically(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("résumé ", 100)
	candidates := []*recordstore.Candidate{{ID: "1", Text: long}}

	first := BuildRecords(candidates, 50)
	second := BuildRecords(candidates, 50)

	if first[0].Text != second[0].Text {
		t.Fatalf("truncation is not deterministic")
	}
	if got := len([]rune(first[0].Text)); got != 50 {
		t.Fatalf("expected 50 runes, got %d", got)
	}
	if first[0].Original != candidates[0] {
		t.Fatalf("original payload must be carried through unmodified")
	}
}
