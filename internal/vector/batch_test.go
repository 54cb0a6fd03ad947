package vector

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStore struct {
	*MemoryStore
	calls  []int
	failAt int
}

func (r *recordingStore) Upsert(ctx context.Context, records []Record) error {
	r.calls = append(r.calls, len(records))
	if r.failAt > 0 && len(r.calls) == r.failAt {
		return errors.New("store unavailable")
	}
	return r.MemoryStore.Upsert(ctx, records)
}

func makeRecords(n int) []Record {
	out := make([]Record, n)
	for i := range out {
		out[i] = Record{ID: fmt.Sprintf("r%d", i), Values: []float32{1, 0, 0}}
	}
	return out
}

func TestUpsertBatched(t *testing.T) {
	t.Run("Should split into sequential sub-batches", func(t *testing.T) {
		mem, _ := NewMemoryStore(3, "")
		store := &recordingStore{MemoryStore: mem}
		written, err := UpsertBatched(context.Background(), store, makeRecords(250), 100)
		require.NoError(t, err)
		assert.Equal(t, 250, written)
		assert.Equal(t, []int{100, 100, 50}, store.calls)
	})
	t.Run("Should stop at the first failing sub-batch", func(t *testing.T) {
		mem, _ := NewMemoryStore(3, "")
		store := &recordingStore{MemoryStore: mem, failAt: 2}
		written, err := UpsertBatched(context.Background(), store, makeRecords(250), 100)
		var werr *WriteError
		require.ErrorAs(t, err, &werr)
		assert.Equal(t, 100, written)
		assert.Equal(t, 150, werr.Records)
		assert.Equal(t, []int{100, 100}, store.calls)
	})
	t.Run("Should default the batch size", func(t *testing.T) {
		mem, _ := NewMemoryStore(3, "")
		store := &recordingStore{MemoryStore: mem}
		_, err := UpsertBatched(context.Background(), store, makeRecords(101), 0)
		require.NoError(t, err)
		assert.Equal(t, []int{DefaultUpsertBatchSize, 1}, store.calls)
	})
}
