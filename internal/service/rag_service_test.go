package service

import (
	"context"
	"errors"
	"testing"

	"psi-rag/internal/models"
	"psi-rag/pkg/apperrors"
	"psi-rag/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRAGConfig() *config.RAGConfig {
	return &config.RAGConfig{TopK: 3, ScoreThreshold: 0.7, MultiQueryLimit: 3}
}

func TestRAGService_BuildQuery(t *testing.T) {
	svc := NewRAGService(&fakeStore{}, &fakeEmbedder{}, nil, testRAGConfig(), zap.NewNop())

	q := svc.BuildQuery("wechsler",
		map[string]any{"nivel_intelectual": "Média", "idade": 10},
		map[string]any{"idade": 11, "escola": "pública"},
	)

	assert.Equal(t, "wechsler", q.Category)
	assert.Equal(t, 3, q.TopK)
	assert.Equal(t, 0.7, q.ScoreThreshold)
	assert.Equal(t, map[string]any{"nivel_intelectual": "Média", "idade": 11, "escola": "pública"}, q.Context)
}

func TestQueryText(t *testing.T) {
	q := models.RetrievalQuery{
		Category: "wechsler",
		Context: map[string]any{
			"pontos_fortes":     []string{"Compreensão Verbal", "Memória de Trabalho"},
			"escore_total":      112.5,
			"nivel_intelectual": "Média Superior",
		},
	}
	assert.Equal(t,
		"wechsler\nescore_total: 112.5\nnivel_intelectual: Média Superior\npontos_fortes: Compreensão Verbal, Memória de Trabalho",
		QueryText(q))
}

func TestRAGService_Retrieve(t *testing.T) {
	store := &fakeStore{result: models.RetrievalResult{scored("wechsler_001", 0.9, nil)}}
	embedder := &fakeEmbedder{}
	svc := NewRAGService(store, embedder, NewLRUCache(0, 0, zap.NewNop()), testRAGConfig(), zap.NewNop())

	q := svc.BuildQuery("wechsler", map[string]any{"nivel_intelectual": "Média"}, nil)
	for i := 0; i < 2; i++ {
		res, err := svc.Retrieve(context.Background(), q)
		require.NoError(t, err)
		assert.Len(t, res, 1)
	}

	assert.Equal(t, int32(1), embedder.queryCalls.Load())
	assert.Equal(t, int32(1), store.searches.Load())
	assert.Equal(t, "wechsler", store.lastCat)
	assert.Equal(t, 3, store.lastTopK)

	require.NoError(t, svc.ClearCache(context.Background()))
	_, err := svc.Retrieve(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, int32(2), store.searches.Load())
}

func TestRAGService_RetrieveErrors(t *testing.T) {
	t.Run("embedding failure", func(t *testing.T) {
		svc := NewRAGService(&fakeStore{}, &fakeEmbedder{err: apperrors.ErrUpstreamTimeout}, nil, testRAGConfig(), zap.NewNop())
		_, err := svc.Retrieve(context.Background(), models.RetrievalQuery{Category: "wechsler"})
		assert.ErrorIs(t, err, apperrors.ErrUpstreamTimeout)
	})

	t.Run("store failure is not cached", func(t *testing.T) {
		store := &fakeStore{err: apperrors.ErrStoreUnavailable}
		cache := NewLRUCache(0, 0, zap.NewNop())
		svc := NewRAGService(store, &fakeEmbedder{}, cache, testRAGConfig(), zap.NewNop())

		_, err := svc.Retrieve(context.Background(), models.RetrievalQuery{Category: "wechsler"})
		assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
		assert.Zero(t, cache.Len())
	})
}

func TestRAGService_SearchMultiQuery(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"ansiedade": {1, 0, 0},
		"depressão": {2, 0, 0},
	}}
	store := &fakeStore{byVector: map[float32]models.RetrievalResult{
		1: {scored("a", 0.82, nil), scored("b", 0.75, nil), scored("c", 0.71, nil)},
		2: {scored("b", 0.88, nil), scored("d", 0.79, nil), scored("a", 0.72, nil)},
	}}
	svc := NewRAGService(store, embedder, nil, testRAGConfig(), zap.NewNop())

	res, err := svc.SearchMultiQuery(context.Background(), []string{"ansiedade", "depressão"}, "personalidade", 3)
	require.NoError(t, err)

	ids := make([]string, len(res))
	scores := make([]float64, len(res))
	for i, sd := range res {
		ids[i] = sd.Document.ID
		scores[i] = sd.Score
	}
	assert.Equal(t, []string{"b", "a", "d", "c"}, ids)
	assert.Equal(t, []float64{0.88, 0.82, 0.79, 0.71}, scores)
	assert.Equal(t, 3, store.lastTopK)
	assert.Equal(t, "personalidade", store.lastCat)
}

func TestRAGService_SearchMultiQueryFailure(t *testing.T) {
	boom := errors.Join(apperrors.ErrStoreUnavailable, errors.New("connection refused"))
	svc := NewRAGService(&fakeStore{err: boom}, &fakeEmbedder{}, nil, testRAGConfig(), zap.NewNop())

	_, err := svc.SearchMultiQuery(context.Background(), []string{"ansiedade", "depressão"}, "personalidade", 0)
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
}

func TestEnrichPrompt(t *testing.T) {
	result := models.RetrievalResult{
		scored("wechsler_001", 0.9, map[string]any{"source": "Manual WISC-IV", "year": 2013.0}),
		scored("wechsler_002", 0.8, nil),
	}

	got := EnrichPrompt("Prompt base", result)
	want := "Prompt base\n\nConhecimento Específico:\n" +
		"\nconteúdo wechsler_001\nFonte: Manual WISC-IV\nAno: 2013\n" +
		"\nconteúdo wechsler_002\nFonte: N/A\nAno: N/A\n"
	assert.Equal(t, want, got)

	assert.Equal(t, "Prompt base", EnrichPrompt("Prompt base", nil))
}
