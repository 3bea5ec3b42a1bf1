package service

import (
	"context"
	"sync"
	"sync/atomic"

	"psi-rag/internal/models"
)

type fakeEmbedder struct {
	vectors    map[string][]float32
	err        error
	queryCalls atomic.Int32
	embedCalls atomic.Int32
	// failFrom makes Embed return empty vectors from this input index on.
	failFrom int
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) [][]float32 {
	f.embedCalls.Add(1)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if f.err != nil || (f.failFrom > 0 && i >= f.failFrom) {
			out[i] = []float32{}
			continue
		}
		out[i] = f.vector(t)
	}
	return out
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	f.queryCalls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.vector(text), nil
}

func (f *fakeEmbedder) vector(text string) []float32 {
	if v, ok := f.vectors[text]; ok {
		return v
	}
	return []float32{1, 0, 0}
}

// fakeStore answers searches with canned results and records what it saw.
type fakeStore struct {
	mu        sync.Mutex
	result    models.RetrievalResult
	byVector  map[float32]models.RetrievalResult
	err       error
	upsertErr error
	upserted  []*models.Document
	searches  atomic.Int32
	lastTopK  int
	lastCat   string
}

func (s *fakeStore) EnsureCollection(ctx context.Context) error {
	return nil
}

func (s *fakeStore) Upsert(ctx context.Context, docs []*models.Document) (int, error) {
	if s.upsertErr != nil {
		return 0, s.upsertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserted = append(s.upserted, docs...)
	return len(docs), nil
}

func (s *fakeStore) Search(ctx context.Context, vector []float32, category string, topK int, threshold float64) (models.RetrievalResult, error) {
	s.searches.Add(1)
	s.mu.Lock()
	s.lastTopK = topK
	s.lastCat = category
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if s.byVector != nil {
		return s.byVector[vector[0]], nil
	}
	return s.result, nil
}

type fakeChat struct {
	mu       sync.Mutex
	content  string
	model    string
	err      error
	requests []ChatRequest
}

func (c *fakeChat) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	model := c.model
	if model == "" {
		model = req.Model
	}
	return &ChatResponse{Content: c.content, Model: model}, nil
}

func (c *fakeChat) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

func (c *fakeChat) last() ChatRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests[len(c.requests)-1]
}

type memorySink struct {
	mu      sync.Mutex
	entries []*models.AuditEntry
	err     error
}

func (s *memorySink) Record(ctx context.Context, e *models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return s.err
}

func (s *memorySink) all() []*models.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.AuditEntry(nil), s.entries...)
}

func scored(id string, score float64, meta map[string]any) models.ScoredDocument {
	return models.ScoredDocument{
		Document: &models.Document{ID: id, Category: "wechsler", Content: "conteúdo " + id, Metadata: meta},
		Score:    score,
	}
}
