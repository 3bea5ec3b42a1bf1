package repository

import (
	"context"
	"testing"

	"psi-rag/internal/models"
	"psi-rag/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryVectorRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryVectorRepository(2)
	require.NoError(t, repo.EnsureCollection(ctx))

	n, err := repo.Upsert(ctx, []*models.Document{
		{ID: "w1", Category: "wechsler", Content: "a", Embedding: []float32{1, 0}},
		{ID: "w2", Category: "wechsler", Content: "b", Embedding: []float32{0.8, 0.6}},
		{ID: "w3", Category: "wechsler", Content: "c", Embedding: []float32{0, 1}},
		{ID: "p1", Category: "personality", Content: "d", Embedding: []float32{1, 0}},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	t.Run("filters by category and threshold, sorted by score", func(t *testing.T) {
		result, err := repo.Search(ctx, []float32{1, 0}, "wechsler", 5, 0.5)
		require.NoError(t, err)
		require.Len(t, result, 2)
		assert.Equal(t, "w1", result[0].Document.ID)
		assert.InDelta(t, 1.0, result[0].Score, 1e-6)
		assert.Equal(t, "w2", result[1].Document.ID)
		assert.InDelta(t, 0.8, result[1].Score, 1e-6)
	})

	t.Run("top_k limits the result", func(t *testing.T) {
		result, err := repo.Search(ctx, []float32{1, 0}, "wechsler", 1, 0)
		require.NoError(t, err)
		require.Len(t, result, 1)
		assert.Equal(t, "w1", result[0].Document.ID)
	})

	t.Run("nothing above threshold is empty, not an error", func(t *testing.T) {
		result, err := repo.Search(ctx, []float32{-1, 0}, "wechsler", 3, 0.7)
		require.NoError(t, err)
		assert.Empty(t, result)
	})

	t.Run("upsert with same id overwrites", func(t *testing.T) {
		_, err := repo.Upsert(ctx, []*models.Document{{ID: "w3", Category: "wechsler", Content: "c2", Embedding: []float32{1, 0}}})
		require.NoError(t, err)
		assert.Equal(t, 4, repo.Len())
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := repo.Upsert(ctx, []*models.Document{{ID: "bad", Category: "wechsler", Embedding: []float32{1}}})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

		_, err = repo.Search(ctx, []float32{1, 0, 0}, "wechsler", 3, 0)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("cancelled search is not a timeout", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := repo.Search(cancelled, []float32{1, 0}, "wechsler", 3, 0)
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, apperrors.ErrUpstreamTimeout)
		assert.False(t, apperrors.IsRetriable(err))
	})

	t.Run("expired deadline is a timeout", func(t *testing.T) {
		expired, cancel := context.WithTimeout(ctx, 0)
		defer cancel()

		_, err := repo.Search(expired, []float32{1, 0}, "wechsler", 3, 0)
		assert.ErrorIs(t, err, apperrors.ErrUpstreamTimeout)
	})
}
