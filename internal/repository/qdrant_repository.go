package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"psi-rag/internal/models"
	"psi-rag/pkg/apperrors"
	"psi-rag/pkg/config"

	"go.uber.org/zap"
)

// QdrantRepository is a REST client to a Qdrant collection that uses cosine
// distance. Every call is bounded by the configured timeout. The collection
// is created on first use when EnsureCollection has not succeeded yet.
type QdrantRepository struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	timeout    time.Duration
	client     *http.Client
	logger     *zap.Logger

	ensured atomic.Bool
}

func NewQdrantRepository(cfg *config.VectorStoreConfig, logger *zap.Logger) *QdrantRepository {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &QdrantRepository{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
		timeout:    timeout,
		client:     &http.Client{},
		logger:     logger,
	}
}

type qdrantPoint struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

type qdrantSearchResponse struct {
	Result []struct {
		Score   float64        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

// EnsureCollection creates the collection when it does not exist yet. An
// existing collection is left as is.
func (r *QdrantRepository) EnsureCollection(ctx context.Context) error {
	if r.dimension <= 0 {
		return fmt.Errorf("%w: invalid vector dimension %d", apperrors.ErrInvalidInput, r.dimension)
	}

	status, err := r.do(ctx, http.MethodGet, r.collectionURL(), nil, nil)
	if err != nil && status != http.StatusNotFound {
		return err
	}
	if status == http.StatusOK {
		r.logger.Debug("Qdrant collection exists", zap.String("collection", r.collection))
		r.ensured.Store(true)
		return nil
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     r.dimension,
			"distance": "Cosine",
		},
	}
	if _, err := r.do(ctx, http.MethodPut, r.collectionURL(), body, nil); err != nil {
		return err
	}

	r.logger.Info("Qdrant collection created",
		zap.String("collection", r.collection),
		zap.Int("dimension", r.dimension),
	)
	r.ensured.Store(true)
	return nil
}

func (r *QdrantRepository) ensureCollection(ctx context.Context) error {
	if r.ensured.Load() {
		return nil
	}
	return r.EnsureCollection(ctx)
}

// forget makes the next call check the collection again after Qdrant
// reported it missing.
func (r *QdrantRepository) forget(status int) {
	if status == http.StatusNotFound {
		r.ensured.Store(false)
	}
}

func (r *QdrantRepository) Upsert(ctx context.Context, docs []*models.Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	points := make([]qdrantPoint, 0, len(docs))
	for _, d := range docs {
		if len(d.Embedding) == 0 {
			return 0, fmt.Errorf("%w: document %s has no embedding", apperrors.ErrInvalidInput, d.ID)
		}
		if err := checkDimension(r.dimension, d.Embedding, "document "+d.ID); err != nil {
			return 0, err
		}
		points = append(points, qdrantPoint{
			ID:      PointID(d.ID),
			Vector:  d.Embedding,
			Payload: documentPayload(d),
		})
	}

	if err := r.ensureCollection(ctx); err != nil {
		return 0, err
	}

	body := map[string]any{"points": points}
	status, err := r.do(ctx, http.MethodPut, r.collectionURL()+"/points?wait=true", body, nil)
	if err != nil {
		r.forget(status)
		return 0, err
	}
	return len(points), nil
}

func (r *QdrantRepository) Search(ctx context.Context, vector []float32, category string, topK int, threshold float64) (models.RetrievalResult, error) {
	if err := checkDimension(r.dimension, vector, "query vector"); err != nil {
		return nil, err
	}
	if err := r.ensureCollection(ctx); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 3
	}
	req := map[string]any{
		"vector":          vector,
		"limit":           topK,
		"score_threshold": threshold,
		"with_payload":    true,
	}
	if category != "" {
		req["filter"] = map[string]any{
			"must": []map[string]any{
				{"key": "category", "match": map[string]any{"value": category}},
			},
		}
	}

	var resp qdrantSearchResponse
	status, err := r.do(ctx, http.MethodPost, r.collectionURL()+"/points/search", req, &resp)
	if err != nil {
		r.forget(status)
		return nil, err
	}

	result := make(models.RetrievalResult, 0, len(resp.Result))
	for _, hit := range resp.Result {
		result = append(result, models.ScoredDocument{
			Document: documentFromPayload(hit.Payload),
			Score:    hit.Score,
		})
	}
	return result, nil
}

func (r *QdrantRepository) collectionURL() string {
	return fmt.Sprintf("%s/collections/%s", r.url, r.collection)
}

// do sends one JSON request and decodes the body into out when it is not nil.
// The returned status is 0 when no response was received.
func (r *QdrantRepository) do(ctx context.Context, method, url string, body, out any) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal qdrant request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create qdrant request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("api-key", r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		if apperrors.IsTimeout(err) {
			return 0, fmt.Errorf("%w: qdrant %s %s", apperrors.ErrUpstreamTimeout, method, url)
		}
		return 0, fmt.Errorf("%w: qdrant %s %s: %v", apperrors.ErrStoreUnavailable, method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		r.logger.Warn("Qdrant request failed",
			zap.String("method", method),
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", msg),
		)
		return resp.StatusCode, fmt.Errorf("%w: qdrant %s %s: %s", statusError(resp.StatusCode), method, url, resp.Status)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			if apperrors.IsTimeout(err) {
				return resp.StatusCode, fmt.Errorf("%w: qdrant %s %s", apperrors.ErrUpstreamTimeout, method, url)
			}
			return resp.StatusCode, fmt.Errorf("%w: qdrant response: %v", apperrors.ErrMalformedResponse, err)
		}
	}
	return resp.StatusCode, nil
}

// statusError maps a failed Qdrant status to the taxonomy. A rejected request
// (bad vector size, bad filter) is not retriable; a missing collection,
// throttling and server errors are.
func statusError(status int) error {
	switch {
	case status == http.StatusNotFound,
		status == http.StatusRequestTimeout,
		status == http.StatusTooManyRequests,
		status >= 500:
		return apperrors.ErrStoreUnavailable
	case status >= 400:
		return apperrors.ErrInvalidInput
	default:
		return apperrors.ErrMalformedResponse
	}
}

func documentPayload(d *models.Document) map[string]any {
	metadata := d.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	payload := map[string]any{
		"doc_id":   d.ID,
		"category": d.Category,
		"content":  d.Content,
		"metadata": metadata,
	}
	if !d.CreatedAt.IsZero() {
		payload["created_at"] = d.CreatedAt.UTC().Format(time.RFC3339)
	}
	return payload
}

func documentFromPayload(payload map[string]any) *models.Document {
	d := &models.Document{Metadata: map[string]any{}}
	if v, ok := payload["doc_id"].(string); ok {
		d.ID = v
	}
	if v, ok := payload["category"].(string); ok {
		d.Category = v
	}
	if v, ok := payload["content"].(string); ok {
		d.Content = v
	}
	if v, ok := payload["metadata"].(map[string]any); ok {
		d.Metadata = v
	}
	if v, ok := payload["created_at"].(string); ok {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			d.CreatedAt = ts
		}
	}
	return d
}
