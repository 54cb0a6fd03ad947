package vector

import "context"

// DefaultUpsertBatchSize is the number of records sent per upsert call.
const DefaultUpsertBatchSize = 100

// UpsertBatched splits records into sub-batches of batchSize and upserts them in order.
// The first failing sub-batch stops the write and is reported as a *WriteError
// covering the records that were not confirmed.
func UpsertBatched(ctx context.Context, store Store, records []Record, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = DefaultUpsertBatchSize
	}
	written := 0
	for start := 0; start < len(records); start += batchSize {
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}
		if err := ctx.Err(); err != nil {
			return written, &WriteError{Records: len(records) - written, Err: err}
		}
		if err := store.Upsert(ctx, records[start:end]); err != nil {
			return written, &WriteError{Records: len(records) - written, Err: err}
		}
		written = end
	}
	return written, nil
}
