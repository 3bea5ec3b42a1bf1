package repository

import (
	"context"
	"fmt"
	"math"

	"psi-rag/internal/models"
	"psi-rag/pkg/apperrors"
	"psi-rag/pkg/config"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// VectorStore is the gateway to the similarity index. Search applies the
// category as an exact-match filter and returns an empty result, not an
// error, when nothing clears the threshold.
type VectorStore interface {
	EnsureCollection(ctx context.Context) error
	Upsert(ctx context.Context, docs []*models.Document) (int, error)
	Search(ctx context.Context, vector []float32, category string, topK int, threshold float64) (models.RetrievalResult, error)
}

// pointNamespace scopes the UUIDv5 point ids derived from document ids.
var pointNamespace = uuid.MustParse("6f1c1a8e-3b0e-4f57-9d8e-6c1f3f1b2a10")

// PointID maps a corpus document id to the store's point id. The mapping is
// deterministic so re-ingesting a document overwrites its point.
func PointID(docID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(docID)).String()
}

// NewVectorStore builds the backend selected by cfg.Backend. db may be nil
// unless the postgres backend is chosen.
func NewVectorStore(cfg *config.VectorStoreConfig, db *pgxpool.Pool, logger *zap.Logger) (VectorStore, error) {
	switch cfg.Backend {
	case "qdrant", "":
		return NewQdrantRepository(cfg, logger), nil
	case "postgres":
		if db == nil {
			return nil, fmt.Errorf("postgres vector store requires a database connection")
		}
		return NewKnowledgeRepository(db, cfg.Dimension, cfg.Timeout, logger), nil
	case "memory":
		return NewMemoryVectorRepository(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown vector store backend %q", cfg.Backend)
	}
}

// checkDimension rejects vectors whose length differs from the configured
// dimension. A non-positive dimension disables the check.
func checkDimension(dimension int, vector []float32, what string) error {
	if dimension > 0 && len(vector) != dimension {
		return fmt.Errorf("%w: %s has %d dimensions, want %d",
			apperrors.ErrInvalidInput, what, len(vector), dimension)
	}
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
