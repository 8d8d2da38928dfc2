package ranking

import "sync/atomic"

// batchQueue is the single point of mutual exclusion in the dispatch run: a
// monotonically advancing cursor over the ordered batch list. Claim hands each
// batch to exactly one caller, in ascending order, under concurrent access.
type batchQueue struct {
	batches []Batch
	cursor  atomic.Int64
}

func newBatchQueue(batches []Batch) *batchQueue {
	return &batchQueue{batches: batches}
}

// Claim returns the next unclaimed batch. The second return value is false
// once the queue is drained.
func (q *batchQueue) Claim() (Batch, bool) {
	next := q.cursor.Add(1) - 1
	if next >= int64(len(q.batches)) {
		return Batch{}, false
	}
	return q.batches[next], true
}
