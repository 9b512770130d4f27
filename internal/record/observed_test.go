package record

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/at-ishikawa/cantocards/internal/vocab"
)

func TestObserved_Subscribe(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	repo := NewObserved(NewMemoryRepository(), 4)
	events := repo.Subscribe(ctx)

	rec := GenerationRecord{Word: vocab.Word{Simplified: "出路"}, MandarinSentence: "Ma", CantoneseSentence: "Ca"}
	require.NoError(t, repo.Upsert(context.Background(), &rec))
	deleted, err := repo.Delete(context.Background(), "出路")
	require.NoError(t, err)
	require.True(t, deleted)

	// Deleting a missing record publishes nothing.
	_, err = repo.Delete(context.Background(), "出路")
	require.NoError(t, err)
	// Failed writes publish nothing.
	require.Error(t, repo.Upsert(context.Background(), &GenerationRecord{Word: vocab.Word{Simplified: "次序"}}))

	upserted := <-events
	assert.Equal(t, EventUpserted, upserted.Type)
	assert.Equal(t, "Ca", upserted.Record.CantoneseSentence)
	assert.Equal(t, int64(1), upserted.Record.ID)

	removed := <-events
	assert.Equal(t, EventDeleted, removed.Type)
	assert.Equal(t, "出路", removed.Record.Word.Simplified)

	cancel()
	select {
	case _, ok := <-events:
		assert.False(t, ok, "events should be closed")
	case <-time.After(time.Second):
		t.Fatal("events were not closed")
	}
}

func TestObserved_SlowSubscriberDropsOldest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := NewObserved(NewMemoryRepository(), 2)
	events := repo.Subscribe(ctx)

	for _, word := range []string{"A", "B", "C"} {
		rec := GenerationRecord{Word: vocab.Word{Simplified: word}, MandarinSentence: "M", CantoneseSentence: "C"}
		require.NoError(t, repo.Upsert(context.Background(), &rec))
	}

	assert.Equal(t, "B", (<-events).Record.Word.Simplified)
	assert.Equal(t, "C", (<-events).Record.Word.Simplified)
}

func TestObserved_WritesWithoutSubscribers(t *testing.T) {
	repo := NewObserved(NewMemoryRepository(), 1)
	rec := GenerationRecord{Word: vocab.Word{Simplified: "A"}, MandarinSentence: "M", CantoneseSentence: "C"}
	require.NoError(t, repo.Upsert(context.Background(), &rec))

	got, err := repo.Get(context.Background(), "A")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "M", got.MandarinSentence)
}
