package ranking

// Partition splits the ordered record list into contiguous batches of at most
// batchSize records. The index ranges of the returned batches exactly tile
// [0, len(records)); the last batch may be shorter. Deterministic for a given
// input list and batch size.
func Partition(records []SourceRecord, batchSize int) []Batch {
	if len(records) == 0 {
		return nil
	}
	if batchSize < 1 {
		batchSize = 1
	}

	batches := make([]Batch, 0, (len(records)+batchSize-1)/batchSize)
	for start := 0; start < len(records); start += batchSize {
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}
		batches = append(batches, Batch{
			StartIndex: start,
			Records:    records[start:end],
		})
	}

	return batches
}
