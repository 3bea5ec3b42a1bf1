package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"psi-rag/internal/models"
	"psi-rag/pkg/apperrors"
	"psi-rag/pkg/postgres"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
)

// KnowledgeRepository keeps the corpus vectors in the knowledge_base table
// and searches them with the pgvector cosine distance operator.
type KnowledgeRepository struct {
	db        *pgxpool.Pool
	dimension int
	timeout   time.Duration
	logger    *zap.Logger
}

func NewKnowledgeRepository(db *pgxpool.Pool, dimension int, timeout time.Duration, logger *zap.Logger) *KnowledgeRepository {
	return &KnowledgeRepository{
		db:        db,
		dimension: dimension,
		timeout:   timeout,
		logger:    logger,
	}
}

func (r *KnowledgeRepository) EnsureCollection(ctx context.Context) error {
	if err := postgres.EnsureSchema(ctx, r.db, r.dimension); err != nil {
		return r.storeError(err)
	}
	return nil
}

func (r *KnowledgeRepository) Upsert(ctx context.Context, docs []*models.Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	builder := squirrel.Insert("knowledge_base").
		Columns("id", "category", "content", "metadata", "embedding", "created_at", "updated_at").
		Suffix("ON CONFLICT (id) DO UPDATE SET " +
			"category = EXCLUDED.category, content = EXCLUDED.content, metadata = EXCLUDED.metadata, " +
			"embedding = EXCLUDED.embedding, updated_at = EXCLUDED.updated_at").
		PlaceholderFormat(squirrel.Dollar)

	now := time.Now().UTC()
	for _, d := range docs {
		if len(d.Embedding) == 0 {
			return 0, fmt.Errorf("%w: document %s has no embedding", apperrors.ErrInvalidInput, d.ID)
		}
		if err := checkDimension(r.dimension, d.Embedding, "document "+d.ID); err != nil {
			return 0, err
		}
		metadata := d.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}
		createdAt := d.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		builder = builder.Values(d.ID, d.Category, d.Content, metadata, pgvector.NewVector(d.Embedding), createdAt, now)
	}

	sql, args, err := builder.ToSql()
	if err != nil {
		return 0, err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, r.storeError(err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *KnowledgeRepository) Search(ctx context.Context, vector []float32, category string, topK int, threshold float64) (models.RetrievalResult, error) {
	if err := checkDimension(r.dimension, vector, "query vector"); err != nil {
		return nil, err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	v := pgvector.NewVector(vector)
	query := squirrel.Select("id", "category", "content", "metadata", "created_at").
		Column(squirrel.Expr("1 - (embedding <=> ?) AS score", v)).
		From("knowledge_base").
		Where(squirrel.Expr("1 - (embedding <=> ?) >= ?", v, threshold)).
		OrderByClause("embedding <=> ?", v).
		PlaceholderFormat(squirrel.Dollar)

	if category != "" {
		query = query.Where(squirrel.Eq{"category": category})
	}
	if topK > 0 {
		query = query.Limit(uint64(topK))
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, r.storeError(err)
	}
	defer rows.Close()

	result := models.RetrievalResult{}
	for rows.Next() {
		var d models.Document
		var score float64
		if err := rows.Scan(&d.ID, &d.Category, &d.Content, &d.Metadata, &d.CreatedAt, &score); err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedResponse, err)
		}
		result = append(result, models.ScoredDocument{Document: &d, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, r.storeError(err)
	}

	return result, nil
}

func (r *KnowledgeRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *KnowledgeRepository) storeError(err error) error {
	if apperrors.IsTimeout(err) {
		return fmt.Errorf("%w: knowledge_base: %v", apperrors.ErrUpstreamTimeout, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		r.logger.Error("knowledge_base query failed",
			zap.String("code", pgErr.Code),
			zap.String("message", pgErr.Message),
		)
	}
	return fmt.Errorf("%w: knowledge_base: %v", apperrors.ErrStoreUnavailable, err)
}
