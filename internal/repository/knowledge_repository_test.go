package repository

import (
	"context"
	"testing"

	"psi-rag/internal/models"
	"psi-rag/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestKnowledgeRepository_DimensionMismatch(t *testing.T) {
	// The check runs before any query, so no pool is needed.
	repo := NewKnowledgeRepository(nil, 3, 0, zap.NewNop())
	ctx := context.Background()

	_, err := repo.Search(ctx, []float32{1, 0}, "wechsler", 3, 0.7)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.False(t, apperrors.IsRetriable(err))

	_, err = repo.Upsert(ctx, []*models.Document{
		{ID: "wais_001", Category: "wechsler", Content: "x", Embedding: []float32{1, 0, 0, 0}},
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
