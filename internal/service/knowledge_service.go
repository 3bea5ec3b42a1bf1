package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"psi-rag/internal/models"
	"psi-rag/internal/repository"
	"psi-rag/pkg/apperrors"

	"go.uber.org/zap"
)

// KnowledgeService keeps the vector store and the category files in step.
type KnowledgeService struct {
	corpus   *repository.CorpusRepository
	store    repository.VectorStore
	embedder Embedder
	cache    RetrievalCache
	logger   *zap.Logger
}

func NewKnowledgeService(
	corpus *repository.CorpusRepository,
	store repository.VectorStore,
	embedder Embedder,
	cache RetrievalCache,
	logger *zap.Logger,
) *KnowledgeService {
	if cache == nil {
		cache = NoopCache{}
	}
	return &KnowledgeService{
		corpus:   corpus,
		store:    store,
		embedder: embedder,
		cache:    cache,
		logger:   logger,
	}
}

// AddDocument embeds one document, upserts it and records it in its category
// file. A store failure is returned to the caller; nothing is written to disk
// in that case.
func (s *KnowledgeService) AddDocument(ctx context.Context, doc *models.Document) error {
	if err := validateDocument(doc); err != nil {
		return err
	}
	if doc.Metadata == nil {
		doc.Metadata = map[string]any{}
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	vector, err := s.embedder.EmbedQuery(ctx, doc.Content)
	if err != nil {
		return fmt.Errorf("failed to embed document %s: %w", doc.ID, err)
	}
	doc.Embedding = vector

	if _, err := s.store.Upsert(ctx, []*models.Document{doc}); err != nil {
		return fmt.Errorf("failed to store document %s: %w", doc.ID, err)
	}

	if err := s.corpus.UpsertToCategoryFile(doc); err != nil {
		return fmt.Errorf("failed to update category file: %w", err)
	}

	s.invalidateCache(ctx)
	s.logger.Info("Knowledge document added",
		zap.String("id", doc.ID),
		zap.String("category", doc.Category),
	)
	return nil
}

func validateDocument(doc *models.Document) error {
	switch {
	case doc == nil:
		return fmt.Errorf("%w: document is required", apperrors.ErrInvalidInput)
	case strings.TrimSpace(doc.ID) == "":
		return fmt.Errorf("%w: document id is required", apperrors.ErrInvalidInput)
	case strings.TrimSpace(doc.Category) == "":
		return fmt.Errorf("%w: document category is required", apperrors.ErrInvalidInput)
	case strings.TrimSpace(doc.Content) == "":
		return fmt.Errorf("%w: document content is required", apperrors.ErrInvalidInput)
	}
	return nil
}

// IngestFile loads one category file, embeds every record and upserts the
// ones that got a vector. Records whose batch failed to embed are counted in
// Total but not in Processed.
func (s *KnowledgeService) IngestFile(ctx context.Context, path string) (models.IngestStats, error) {
	stats := models.IngestStats{File: filepath.Base(path)}

	docs, err := s.corpus.Load(path)
	if err != nil {
		stats.Error = err.Error()
		return stats, err
	}
	stats.Total = len(docs)
	if len(docs) == 0 {
		return stats, nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vectors := s.embedder.Embed(ctx, texts)

	now := time.Now().UTC()
	embedded := make([]*models.Document, 0, len(docs))
	for i, d := range docs {
		if i >= len(vectors) || len(vectors[i]) == 0 {
			s.logger.Warn("Skipping document without embedding", zap.String("id", d.ID), zap.String("file", stats.File))
			continue
		}
		d.Embedding = vectors[i]
		if d.CreatedAt.IsZero() {
			d.CreatedAt = now
		}
		embedded = append(embedded, d)
	}

	processed, err := s.store.Upsert(ctx, embedded)
	if err != nil {
		stats.Error = err.Error()
		return stats, fmt.Errorf("failed to store %s: %w", stats.File, err)
	}
	stats.Processed = processed

	s.logger.Info("Corpus file ingested",
		zap.String("file", stats.File),
		zap.Int("total", stats.Total),
		zap.Int("processed", stats.Processed),
		zap.Float64("success_rate", stats.SuccessRate()),
	)
	return stats, nil
}

// IngestDirectory ingests every category file. A file that fails is reported
// in its stats and the rest are still ingested. Only files accepted by keep
// are ingested; a nil keep accepts all.
func (s *KnowledgeService) IngestDirectory(ctx context.Context, keep func(path string) bool) ([]models.IngestStats, error) {
	if err := s.store.EnsureCollection(ctx); err != nil {
		return nil, fmt.Errorf("failed to prepare vector store: %w", err)
	}

	files, err := s.corpus.CategoryFiles()
	if err != nil {
		return nil, err
	}

	all := make([]models.IngestStats, 0, len(files))
	var total, processed int
	for _, path := range files {
		if keep != nil && !keep(path) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return all, apperrors.FromContext(err)
		}

		stats, err := s.IngestFile(ctx, path)
		if err != nil {
			level := s.logger.Error
			if errors.Is(err, apperrors.ErrMalformedCorpus) {
				level = s.logger.Warn
			}
			level("Corpus file skipped", zap.String("file", stats.File), zap.Error(err))
		}
		total += stats.Total
		processed += stats.Processed
		all = append(all, stats)
	}

	if processed > 0 {
		s.invalidateCache(ctx)
	}
	summary := models.IngestStats{Total: total, Processed: processed}
	s.logger.Info("Knowledge base ingested",
		zap.Int("files", len(all)),
		zap.Int("total", total),
		zap.Int("processed", processed),
		zap.Float64("success_rate", summary.SuccessRate()),
	)
	return all, nil
}

// SeedInitialCorpus writes the starter category files that do not exist yet
// and ingests the whole directory.
func (s *KnowledgeService) SeedInitialCorpus(ctx context.Context) ([]models.IngestStats, error) {
	if _, err := s.WriteInitialCorpus(); err != nil {
		return nil, err
	}
	return s.IngestDirectory(ctx, nil)
}

// WriteInitialCorpus creates the starter category files and returns the
// categories it created. Existing files are left alone.
func (s *KnowledgeService) WriteInitialCorpus() ([]string, error) {
	var created []string
	for _, category := range InitialCategories() {
		ok, err := s.corpus.CreateCategoryFile(category, InitialDocuments(category))
		if err != nil {
			return created, fmt.Errorf("failed to create %s corpus: %w", category, err)
		}
		if !ok {
			s.logger.Info("Category file exists, skipping", zap.String("category", category))
			continue
		}
		created = append(created, category)
	}
	return created, nil
}

// Categories lists the categories that have a corpus file.
func (s *KnowledgeService) Categories() ([]string, error) {
	files, err := s.corpus.CategoryFiles()
	if err != nil {
		return nil, err
	}
	categories := make([]string, 0, len(files))
	for _, path := range files {
		categories = append(categories, strings.TrimSuffix(filepath.Base(path), ".json"))
	}
	return categories, nil
}

func (s *KnowledgeService) ClearCache(ctx context.Context) error {
	return s.cache.Clear(ctx)
}

func (s *KnowledgeService) invalidateCache(ctx context.Context) {
	if err := s.cache.Clear(ctx); err != nil {
		s.logger.Warn("Failed to clear retrieval cache", zap.Error(err))
	}
}
