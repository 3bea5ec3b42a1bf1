package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"psi-rag/internal/models"
	"psi-rag/internal/repository"
	"psi-rag/pkg/config"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const knowledgeHeader = "\n\nConhecimento Específico:\n"

type RAGService struct {
	store    repository.VectorStore
	embedder Embedder
	cache    RetrievalCache
	config   *config.RAGConfig
	logger   *zap.Logger
}

func NewRAGService(store repository.VectorStore, embedder Embedder, cache RetrievalCache, cfg *config.RAGConfig, logger *zap.Logger) *RAGService {
	if cache == nil {
		cache = NoopCache{}
	}
	return &RAGService{
		store:    store,
		embedder: embedder,
		cache:    cache,
		config:   cfg,
		logger:   logger,
	}
}

// BuildQuery merges raw results and context into a retrieval query. Context
// values win over raw results with the same key.
func (s *RAGService) BuildQuery(category string, rawResults, extra map[string]any) models.RetrievalQuery {
	merged := make(map[string]any, len(rawResults)+len(extra))
	for k, v := range rawResults {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return models.RetrievalQuery{
		Category:       category,
		Context:        merged,
		TopK:           s.config.TopK,
		ScoreThreshold: s.config.ScoreThreshold,
	}
}

// QueryText serialises a query for embedding: the category line followed by
// the context as sorted "key: value" lines.
func QueryText(query models.RetrievalQuery) string {
	keys := make([]string, 0, len(query.Context))
	for k := range query.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(query.Category)
	for _, k := range keys {
		b.WriteString("\n")
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(FormatValue(query.Context[k]))
	}
	return b.String()
}

// Retrieve returns the documents for a query, serving repeated queries from
// the cache.
func (s *RAGService) Retrieve(ctx context.Context, query models.RetrievalQuery) (models.RetrievalResult, error) {
	return s.cache.GetOrCompute(ctx, query, func(ctx context.Context) (models.RetrievalResult, error) {
		return s.search(ctx, QueryText(query), query.Category, query.TopK, query.ScoreThreshold)
	})
}

// SearchMultiQuery runs every query concurrently against one category and
// merges the hits: one entry per document, best score kept, score descending.
func (s *RAGService) SearchMultiQuery(ctx context.Context, queries []string, category string, limitPerQuery int) (models.RetrievalResult, error) {
	if limitPerQuery <= 0 {
		limitPerQuery = s.config.MultiQueryLimit
	}

	results := make([]models.RetrievalResult, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		g.Go(func() error {
			res, err := s.search(gctx, q, category, limitPerQuery, s.config.ScoreThreshold)
			if err != nil {
				return fmt.Errorf("query %q: %w", q, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := models.MergeResults(results...)
	s.logger.Info("Multi-query search completed",
		zap.Int("queries", len(queries)),
		zap.String("category", category),
		zap.Int("results", len(merged)),
	)
	return merged, nil
}

func (s *RAGService) search(ctx context.Context, text, category string, topK int, threshold float64) (models.RetrievalResult, error) {
	vector, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	result, err := s.store.Search(ctx, vector, category, topK, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to search knowledge base: %w", err)
	}

	s.logger.Debug("Knowledge search completed",
		zap.String("category", category),
		zap.Int("results", len(result)),
	)
	return result, nil
}

// EnrichPrompt appends the retrieved documents with their source and year to
// the base prompt. An empty result leaves the prompt unchanged.
func EnrichPrompt(base string, result models.RetrievalResult) string {
	if len(result) == 0 {
		return base
	}

	var b strings.Builder
	b.WriteString(base)
	b.WriteString(knowledgeHeader)
	for _, sd := range result {
		b.WriteString("\n")
		b.WriteString(sd.Document.Content)
		b.WriteString("\n")
		b.WriteString("Fonte: " + sd.Document.Source() + "\n")
		b.WriteString("Ano: " + sd.Document.Year() + "\n")
	}
	return b.String()
}

func (s *RAGService) ClearCache(ctx context.Context) error {
	return s.cache.Clear(ctx)
}
