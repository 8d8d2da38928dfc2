package ranking

import (
	"sync"
	"testing"

	"pgregory.net/rapid"
)

// The claim operation is the single mutual-exclusion point of the dispatcher:
// under any number of concurrent claimers, every batch index must be handed
// out exactly once.
func TestQueueClaimExactlyOnceUnderConcurrency(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		batchCount := rapid.IntRange(0, 200).Draw(rt, "batchCount")
		// Deliberately allow more claimers than batches.
		claimers := rapid.IntRange(1, 32).Draw(rt, "claimers")

		queue := newBatchQueue(Partition(makeRecords(batchCount), 1))

		var mu sync.Mutex
		claimed := make(map[int]int, batchCount)

		var wg sync.WaitGroup
		for i := 0; i < claimers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					batch, ok := queue.Claim()
					if !ok {
						return
					}
					mu.Lock()
					claimed[batch.StartIndex]++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		if len(claimed) != batchCount {
			rt.Fatalf("expected %d distinct claims, got %d", batchCount, len(claimed))
		}
		for start, count := range claimed {
			if count != 1 {
				rt.Fatalf("batch %d claimed %d times", start, count)
			}
		}
	})
}

func TestQueueClaimsInAscendingOrder(t *testing.T) {
	t.Parallel()

	queue := newBatchQueue(Partition(makeRecords(5), 2))

	starts := []int{}
	for {
		batch, ok := queue.Claim()
		if !ok {
			break
		}
		starts = append(starts, batch.StartIndex)
	}

	expected := []int{0, 2, 4}
	if len(starts) != len(expected) {
		t.Fatalf("expected %d batches, got %d", len(expected), len(starts))
	}
	for i, start := range expected {
		if starts[i] != start {
			t.Fatalf("claim %d: expected start %d, got %d", i, start, starts[i])
		}
	}
}
