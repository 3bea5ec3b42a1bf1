package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"psi-rag/pkg/apperrors"
	"psi-rag/pkg/config"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Embedder turns text into vectors.
type Embedder interface {
	// Embed returns one vector per input in input order. Inputs of a failed
	// batch get an empty vector.
	Embed(ctx context.Context, texts []string) [][]float32
	// EmbedQuery embeds a single text and reports the failure instead of
	// returning an empty vector.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingService is a client for an OpenAI-compatible /embeddings endpoint.
type EmbeddingService struct {
	baseURL    string
	apiKey     string
	model      string
	batchSize  int
	timeout    time.Duration
	maxRetries int
	limiter    *rate.Limiter
	client     *http.Client
	logger     *zap.Logger
}

func NewEmbeddingService(cfg *config.EmbeddingConfig, logger *zap.Logger) *EmbeddingService {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &EmbeddingService{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		batchSize:  batchSize,
		timeout:    timeout,
		maxRetries: cfg.MaxRetries,
		limiter:    limiter,
		client:     &http.Client{},
		logger:     logger,
	}
}

// WithRetries returns a copy that retries throttled and failed requests up to
// n times. Bulk ingestion uses it; the interpretation path does not.
func (s *EmbeddingService) WithRetries(n int) *EmbeddingService {
	cp := *s
	cp.maxRetries = n
	return &cp
}

func (s *EmbeddingService) Embed(ctx context.Context, texts []string) [][]float32 {
	out := make([][]float32, len(texts))

	for start := 0; start < len(texts); start += s.batchSize {
		end := start + s.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := s.embedBatch(ctx, texts[start:end])
		if err != nil {
			s.logger.Error("Embedding batch failed",
				zap.Int("batch_start", start),
				zap.Int("batch_size", end-start),
				zap.String("kind", apperrors.Kind(err)),
				zap.Error(err),
			)
			for i := start; i < end; i++ {
				out[i] = []float32{}
			}
			continue
		}
		copy(out[start:end], vectors)
	}

	return out
}

func (s *EmbeddingService) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.embedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (s *EmbeddingService) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("%w: empty text at position %d", apperrors.ErrInvalidInput, i)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryDelay(attempt - 1)
			var ra *retryAfterError
			if errors.As(lastErr, &ra) && ra.after > 0 {
				delay = ra.after
			}
			select {
			case <-ctx.Done():
				return nil, apperrors.FromContext(ctx.Err())
			case <-time.After(delay):
			}
		}

		vectors, err := s.doRequest(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		lastErr = err
		var perm *permanentError
		if errors.As(err, &perm) || !apperrors.IsRetriable(err) {
			break
		}
	}

	return nil, lastErr
}

type embeddingRequest struct {
	Model string   `json:"model,omitempty"`
	Input []string `json:"input"`
}

// embeddingResponse covers the OpenAI shape and the plain
// {"embeddings": [[...]]} and {"embedding": [...]} shapes.
type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Embeddings [][]float32 `json:"embeddings"`
	Embedding  []float32   `json:"embedding"`
}

type retryAfterError struct {
	err   error
	after time.Duration
}

func (e *retryAfterError) Error() string { return e.err.Error() }
func (e *retryAfterError) Unwrap() error { return e.err }

// permanentError marks a provider answer that a retry cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func (s *EmbeddingService) doRequest(ctx context.Context, texts []string) ([][]float32, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, apperrors.FromContext(err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	data, err := json.Marshal(embeddingRequest{Model: s.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/embeddings", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if apperrors.IsTimeout(err) {
			return nil, fmt.Errorf("%w: embeddings: %v", apperrors.ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("%w: embeddings: %v", apperrors.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("%w: embeddings returned %s: %s", apperrors.ErrUpstreamUnavailable, resp.Status, strings.TrimSpace(string(body)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, &retryAfterError{err: err, after: parseRetryAfter(resp.Header.Get("Retry-After"))}
		}
		return nil, &permanentError{err: err}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		if apperrors.IsTimeout(err) {
			return nil, fmt.Errorf("%w: embeddings: %v", apperrors.ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("%w: embeddings: %v", apperrors.ErrUpstreamUnavailable, err)
	}

	var out embeddingResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("%w: embeddings: %v", apperrors.ErrMalformedResponse, err)
	}

	vectors, err := out.vectors(len(texts))
	if err != nil {
		return nil, err
	}
	return vectors, nil
}

func (r *embeddingResponse) vectors(n int) ([][]float32, error) {
	var vectors [][]float32
	switch {
	case len(r.Data) > 0:
		vectors = make([][]float32, len(r.Data))
		for i, d := range r.Data {
			idx := d.Index
			if idx < 0 || idx >= len(r.Data) {
				idx = i
			}
			vectors[idx] = d.Embedding
		}
	case len(r.Embeddings) > 0:
		vectors = r.Embeddings
	case len(r.Embedding) > 0 && n == 1:
		vectors = [][]float32{r.Embedding}
	}

	if len(vectors) != n {
		return nil, fmt.Errorf("%w: embeddings: got %d vectors for %d inputs", apperrors.ErrMalformedResponse, len(vectors), n)
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: embeddings: empty vector at position %d", apperrors.ErrMalformedResponse, i)
		}
	}
	return vectors, nil
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if ts, err := http.ParseTime(v); err == nil {
		return time.Until(ts)
	}
	return 0
}

// retryDelay is an exponential backoff starting at 200ms, capped at 5s.
func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := 200 * time.Millisecond << attempt
	if d > 5*time.Second || d <= 0 {
		d = 5 * time.Second
	}
	return d
}
