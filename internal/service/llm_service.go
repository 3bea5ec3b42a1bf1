package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"psi-rag/pkg/apperrors"
	"psi-rag/pkg/config"

	"github.com/Role1776/gigago"
	"go.uber.org/zap"
)

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type ChatResponse struct {
	Content string
	Model   string
}

// ChatModel sends one chat completion. Implementations bound every call by
// their configured timeout and never retry.
type ChatModel interface {
	Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatModelFactory builds a ChatModel from configuration.
type ChatModelFactory func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ChatModel, error)

var (
	providersMu sync.RWMutex
	providers   = map[string]ChatModelFactory{
		"openai": func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ChatModel, error) {
			return NewOpenAIChatModel(&cfg.LLM, logger), nil
		},
		"gigachat": func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ChatModel, error) {
			return NewGigaChatModel(ctx, &cfg.GigaChat, cfg.LLM.Timeout, logger)
		},
	}
)

// RegisterChatProvider makes a provider selectable through LLM_PROVIDER.
func RegisterChatProvider(name string, factory ChatModelFactory) {
	providersMu.Lock()
	defer providersMu.Unlock()
	providers[name] = factory
}

func ChatProviders() []string {
	providersMu.RLock()
	defer providersMu.RUnlock()
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func NewChatModel(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ChatModel, error) {
	providersMu.RLock()
	factory, ok := providers[cfg.LLM.Provider]
	providersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown LLM provider %q (available: %s)", cfg.LLM.Provider, strings.Join(ChatProviders(), ", "))
	}
	return factory(ctx, cfg, logger)
}

// OpenAIChatModel talks to an OpenAI-compatible /chat/completions endpoint.
type OpenAIChatModel struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	client  *http.Client
	logger  *zap.Logger
}

func NewOpenAIChatModel(cfg *config.LLMConfig, logger *zap.Logger) *OpenAIChatModel {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIChatModel{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		timeout: timeout,
		client:  &http.Client{},
		logger:  logger,
	}
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (m *OpenAIChatModel) Complete(ctx context.Context, chatReq ChatRequest) (*ChatResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	data, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	start := time.Now()
	resp, err := m.client.Do(req)
	if err != nil {
		if apperrors.IsTimeout(err) {
			return nil, fmt.Errorf("%w: chat completion after %s", apperrors.ErrUpstreamTimeout, time.Since(start).Round(time.Millisecond))
		}
		return nil, fmt.Errorf("%w: chat completion: %v", apperrors.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		m.logger.Error("Chat completion failed",
			zap.Int("status", resp.StatusCode),
			zap.String("response", string(body)),
		)
		return nil, fmt.Errorf("%w: chat completion returned %s", apperrors.ErrUpstreamUnavailable, resp.Status)
	}

	var out chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if apperrors.IsTimeout(err) {
			return nil, fmt.Errorf("%w: chat completion: %v", apperrors.ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("%w: chat completion: %v", apperrors.ErrMalformedResponse, err)
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("%w: chat completion has no choices", apperrors.ErrMalformedResponse)
	}

	model := out.Model
	if model == "" {
		model = chatReq.Model
	}

	m.logger.Debug("Chat completion done",
		zap.String("model", model),
		zap.Duration("duration", time.Since(start)),
	)
	return &ChatResponse{Content: out.Choices[0].Message.Content, Model: model}, nil
}

// GigaChatModel sends completions through the GigaChat SDK. System messages
// become the model's system instruction and the rest are sent as user turns.
type GigaChatModel struct {
	client  *gigago.Client
	timeout time.Duration
	logger  *zap.Logger
}

func NewGigaChatModel(ctx context.Context, cfg *config.GigaChatConfig, timeout time.Duration, logger *zap.Logger) (*GigaChatModel, error) {
	opts := []gigago.Option{
		gigago.WithCustomScope(cfg.Scope),
	}
	if cfg.InsecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		logger.Warn("GigaChat TLS certificate verification is disabled")
	}

	client, err := gigago.NewClient(ctx, cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create GigaChat client: %v", apperrors.ErrUpstreamUnavailable, err)
	}

	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GigaChatModel{client: client, timeout: timeout, logger: logger}, nil
}

func (m *GigaChatModel) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	name := req.Model
	if name == "" {
		name = "GigaChat"
	}

	// A model value per call keeps concurrent requests from sharing settings.
	model := m.client.GenerativeModel(name)
	setFloat(&model.Temperature, req.Temperature)

	var system []string
	messages := make([]gigago.Message, 0, len(req.Messages))
	for _, msg := range req.Messages {
		if msg.Role == RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		messages = append(messages, gigago.Message{Role: gigago.RoleUser, Content: msg.Content})
	}
	if len(system) > 0 {
		model.SystemInstruction = strings.Join(system, "\n\n")
	}

	resp, err := model.Generate(ctx, messages)
	if err != nil {
		if apperrors.IsTimeout(err) || ctx.Err() != nil {
			return nil, fmt.Errorf("%w: gigachat: %v", apperrors.ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("%w: gigachat: %v", apperrors.ErrUpstreamUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: gigachat returned no choices", apperrors.ErrMalformedResponse)
	}

	return &ChatResponse{Content: resp.Choices[0].Message.Content, Model: name}, nil
}

func (m *GigaChatModel) Close() error {
	if m.client != nil {
		m.client.Close()
	}
	return nil
}

func setFloat[T ~float32 | ~float64](dst *T, v float64) {
	*dst = T(v)
}
