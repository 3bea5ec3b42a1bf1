package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"psi-rag/internal/api/handlers"
	"psi-rag/internal/dto"
	"psi-rag/internal/models"
	"psi-rag/internal/repository"
	"psi-rag/internal/scoring"
	"psi-rag/internal/service"
	"psi-rag/pkg/apperrors"
	"psi-rag/pkg/auth"
	"psi-rag/pkg/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out
}

func (stubEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

type stubChat struct {
	content string
	err     error
}

func (c *stubChat) Complete(ctx context.Context, req service.ChatRequest) (*service.ChatResponse, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &service.ChatResponse{Content: c.content, Model: req.Model}, nil
}

type recordingSink struct {
	mu      sync.Mutex
	entries []*models.AuditEntry
}

func (s *recordingSink) Record(ctx context.Context, e *models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

type testServer struct {
	app   *fiber.App
	chat  *stubChat
	store *repository.MemoryVectorRepository
	sink  *recordingSink
	jwt   *auth.JWTManager
}

func newTestServer(t *testing.T, jwtManager *auth.JWTManager) *testServer {
	t.Helper()
	logger := zap.NewNop()
	ts := &testServer{
		chat:  &stubChat{content: "1. Treino cognitivo\n2. Apoio escolar"},
		store: repository.NewMemoryVectorRepository(3),
		sink:  &recordingSink{},
		jwt:   jwtManager,
	}

	llmCfg := &config.LLMConfig{Model: "gpt-4o", Temperature: 0.7, MaxTokens: 4000}
	templates := service.NewPromptRegistry()
	rag := service.NewRAGService(ts.store, stubEmbedder{}, service.NoopCache{},
		&config.RAGConfig{TopK: 3, ScoreThreshold: 0.5, MultiQueryLimit: 3}, logger)
	auditor := service.NewAuditor(ts.sink, logger)

	interpreter := service.WithAudit(service.NewInterpretationService(templates, rag, ts.chat, llmCfg, logger), auditor)
	recommender := service.NewRecommendationService(templates, rag, ts.chat, auditor, llmCfg, logger)
	scorers := scoring.DefaultRegistry()
	reports := service.NewReportService(scorers, interpreter, recommender, nil, logger)
	corpus := repository.NewCorpusRepository(t.TempDir(), logger)
	knowledge := service.NewKnowledgeService(corpus, ts.store, stubEmbedder{}, service.NoopCache{}, logger)

	ts.app = SetupRouter(Handlers{
		Interpretation: handlers.NewInterpretationHandler(interpreter, recommender, logger),
		Reports:        handlers.NewReportHandler(reports, logger),
		Knowledge:      handlers.NewKnowledgeHandler(knowledge, rag, logger),
		Catalog:        handlers.NewCatalogHandler(templates, scorers, knowledge, logger),
	}, jwtManager, logger)
	return ts
}

func (ts *testServer) seed(t *testing.T, docs ...*models.Document) {
	t.Helper()
	for _, d := range docs {
		d.Embedding = []float32{1, 0, 0}
	}
	_, err := ts.store.Upsert(context.Background(), docs)
	require.NoError(t, err)
}

func (ts *testServer) do(t *testing.T, method, path string, body any, headers ...string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decodeError(t *testing.T, data []byte) dto.ErrorResponse {
	t.Helper()
	var e dto.ErrorResponse
	require.NoError(t, json.Unmarshal(data, &e))
	return e
}

func wechslerResults() map[string]any {
	return map[string]any{
		"test_type":         "WAIS-IV",
		"nivel_intelectual": "Média",
		"perfil_cognitivo":  "Perfil homogêneo",
		"pontos_fortes":     []string{"Compreensão Verbal"},
		"pontos_fracos":     []string{"Nenhum identificado"},
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, data := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(data))
}

func TestInterpretations(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.seed(t,
		&models.Document{ID: "wechsler_001", Category: "wechsler", Content: "Índices WAIS-IV", Metadata: map[string]any{"source": "Manual"}},
		&models.Document{ID: "etica_001", Category: "etica", Content: "Sigilo", Metadata: map[string]any{}},
	)

	resp, data := ts.do(t, http.MethodPost, "/api/v1/interpretations", map[string]any{
		"category":    "wechsler",
		"raw_results": wechslerResults(),
		"context":     map[string]any{"idade": 30},
	}, "X-Request-ID", "req-42")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Equal(t, "req-42", resp.Header.Get("X-Request-ID"))

	var result models.InterpretationResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, "wechsler", result.Category)
	assert.NotEmpty(t, result.NarrativeText)
	assert.False(t, result.RetrievalDegraded)
	require.Len(t, result.CitedSources, 1)
	assert.Equal(t, "wechsler_001", result.CitedSources[0].DocumentID)
	assert.Equal(t, "Manual", result.CitedSources[0].Source)

	require.Len(t, ts.sink.entries, 1)
	assert.Equal(t, "req-42", ts.sink.entries[0].RequestID)
	assert.Equal(t, "anonymous", ts.sink.entries[0].Actor)
}

func TestInterpretationErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     any
		chatErr  error
		status   int
		wantKind string
	}{
		{
			name:     "unsupported category",
			body:     map[string]any{"category": "grafologia", "raw_results": map[string]any{}},
			status:   http.StatusBadRequest,
			wantKind: "unsupported_category",
		},
		{
			name:     "missing raw results",
			body:     map[string]any{"category": "wechsler"},
			status:   http.StatusBadRequest,
			wantKind: "invalid_input",
		},
		{
			name:     "missing template field",
			body:     map[string]any{"category": "wechsler", "raw_results": map[string]any{"test_type": "WAIS-IV"}},
			status:   http.StatusBadRequest,
			wantKind: "missing_field",
		},
		{
			name:     "model timeout",
			body:     map[string]any{"category": "wechsler", "raw_results": wechslerResults()},
			chatErr:  apperrors.ErrUpstreamTimeout,
			status:   http.StatusGatewayTimeout,
			wantKind: "upstream_timeout",
		},
		{
			name:     "model unavailable",
			body:     map[string]any{"category": "wechsler", "raw_results": wechslerResults()},
			chatErr:  apperrors.ErrUpstreamUnavailable,
			status:   http.StatusBadGateway,
			wantKind: "upstream_unavailable",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil)
			ts.chat.err = tt.chatErr

			resp, data := ts.do(t, http.MethodPost, "/api/v1/interpretations", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.wantKind, decodeError(t, data).Kind)
		})
	}
}

func TestRecommendations(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, data := ts.do(t, http.MethodPost, "/api/v1/recommendations", dto.RecommendationRequest{
		Category: "wechsler",
		Results:  map[string]any{"nivel_intelectual": "Média"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	var out dto.RecommendationResponse
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, []string{"Treino cognitivo", "Apoio escolar"}, out.Recommendations)
}

func TestReports(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, data := ts.do(t, http.MethodPost, "/api/v1/reports", map[string]any{
		"category":   "wechsler",
		"instrument": "WAIS-IV",
		"raw_data": map[string]any{
			"Compreensão Verbal":          13,
			"Raciocínio Perceptivo":       10,
			"Memória de Trabalho":         7,
			"Velocidade de Processamento": 10,
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))

	var rep models.Report
	require.NoError(t, json.Unmarshal(data, &rep))
	assert.Equal(t, "WAIS-IV", rep.Instrument)
	assert.Equal(t, 100.0, rep.Scores["total"])
	assert.Equal(t, []string{"Treino cognitivo", "Apoio escolar"}, rep.Recommendations)
	require.NotNil(t, rep.Interpretation)

	resp, data = ts.do(t, http.MethodGet, "/api/v1/reports/"+rep.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", decodeError(t, data).Kind)

	resp, _ = ts.do(t, http.MethodGet, "/api/v1/reports/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, data = ts.do(t, http.MethodGet, "/api/v1/reports?limit=500", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"reports":[],"limit":20,"offset":0}`, string(data))
}

func TestReportInvalidProtocol(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, data := ts.do(t, http.MethodPost, "/api/v1/reports", map[string]any{
		"category": "wechsler",
		"raw_data": map[string]any{"Compreensão Verbal": "alto"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_input", decodeError(t, data).Kind)
}

func TestKnowledge(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, data := ts.do(t, http.MethodPost, "/api/v1/knowledge/documents", dto.AddDocumentRequest{
		ID:       "personalidade_010",
		Category: "personalidade",
		Content:  "Neuroticismo elevado e ansiedade.",
		Metadata: map[string]any{"source": "Costa & McCrae", "year": 1992},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))

	resp, data = ts.do(t, http.MethodPost, "/api/v1/knowledge/search", dto.SearchRequest{
		Queries:  []string{"ansiedade", " ", "depressão"},
		Category: "personalidade",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	var out dto.SearchResponse
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out.Results, 1)
	assert.Equal(t, "personalidade_010", out.Results[0].Document.ID)
	assert.InDelta(t, 1.0, out.Results[0].Score, 1e-9)

	resp, data = ts.do(t, http.MethodGet, "/api/v1/categories", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cats dto.CategoriesResponse
	require.NoError(t, json.Unmarshal(data, &cats))
	assert.Equal(t, []string{"personalidade"}, cats.Knowledge)
	assert.Equal(t, []string{"personality", "projective", "wechsler"}, cats.Interpretation)

	resp, data = ts.do(t, http.MethodDelete, "/api/v1/cache", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"cleared":true}`, string(data))
}

func TestKnowledgeValidation(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, _ := ts.do(t, http.MethodPost, "/api/v1/knowledge/search", dto.SearchRequest{Queries: []string{" "}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, data := ts.do(t, http.MethodPost, "/api/v1/knowledge/documents", dto.AddDocumentRequest{ID: "x", Category: "etica"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_input", decodeError(t, data).Kind)
}

func TestAuthentication(t *testing.T) {
	manager := auth.NewJWTManager("test-secret", time.Hour)
	ts := newTestServer(t, manager)

	resp, data := ts.do(t, http.MethodGet, "/api/v1/categories", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", decodeError(t, data).Kind)

	resp, _ = ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	token, err := manager.Generate("u-1", "ana")
	require.NoError(t, err)
	resp, _ = ts.do(t, http.MethodPost, "/api/v1/interpretations", map[string]any{
		"category":    "wechsler",
		"raw_results": wechslerResults(),
	}, "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, ts.sink.entries, 1)
	assert.Equal(t, "ana", ts.sink.entries[0].Actor)
	assert.NotEmpty(t, ts.sink.entries[0].RequestID)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperrors.ErrInvalidInput, http.StatusBadRequest},
		{apperrors.ErrNotFound, http.StatusNotFound},
		{apperrors.ErrMalformedResponse, http.StatusBadGateway},
		{apperrors.ErrStoreUnavailable, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{io.EOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, handlers.StatusFor(tt.err), tt.err.Error())
	}
}
