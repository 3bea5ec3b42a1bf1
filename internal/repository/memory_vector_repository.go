package repository

import (
	"context"
	"sort"
	"sync"

	"psi-rag/internal/models"
	"psi-rag/pkg/apperrors"
)

// MemoryVectorRepository is a brute-force cosine index kept in process memory.
type MemoryVectorRepository struct {
	mu        sync.RWMutex
	dimension int
	docs      map[string]*models.Document
}

func NewMemoryVectorRepository(dimension int) *MemoryVectorRepository {
	return &MemoryVectorRepository{
		dimension: dimension,
		docs:      make(map[string]*models.Document),
	}
}

func (r *MemoryVectorRepository) EnsureCollection(ctx context.Context) error {
	return nil
}

func (r *MemoryVectorRepository) Upsert(ctx context.Context, docs []*models.Document) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range docs {
		if err := checkDimension(r.dimension, d.Embedding, "document "+d.ID); err != nil {
			return 0, err
		}
	}
	for _, d := range docs {
		r.docs[d.ID] = d.Clone()
	}
	return len(docs), nil
}

func (r *MemoryVectorRepository) Search(ctx context.Context, vector []float32, category string, topK int, threshold float64) (models.RetrievalResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.FromContext(err)
	}
	if err := checkDimension(r.dimension, vector, "query vector"); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := models.RetrievalResult{}
	for _, d := range r.docs {
		if category != "" && d.Category != category {
			continue
		}
		score := cosineSimilarity(vector, d.Embedding)
		if score < threshold {
			continue
		}
		result = append(result, models.ScoredDocument{Document: d.Clone(), Score: score})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Score == result[j].Score {
			return result[i].Document.ID < result[j].Document.ID
		}
		return result[i].Score > result[j].Score
	})
	if topK > 0 && len(result) > topK {
		result = result[:topK]
	}
	return result, nil
}

func (r *MemoryVectorRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}
