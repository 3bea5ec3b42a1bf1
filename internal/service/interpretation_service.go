package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"psi-rag/internal/models"
	"psi-rag/pkg/apperrors"
	"psi-rag/pkg/config"

	"go.uber.org/zap"
)

const (
	interpretationSystemRole = "Você é um psicólogo especializado em interpretação de testes psicológicos."
	additionalContextHeader  = "\n\nContexto Adicional:\n"
	excerptRunes             = 500
)

// PipelineError reports the state an interpretation request failed in.
type PipelineError struct {
	State models.PipelineState
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("interpretation failed after %s: %v", e.State, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Interpreter produces a narrative interpretation of test results.
type Interpreter interface {
	Interpret(ctx context.Context, req *models.InterpretationRequest) (*models.InterpretationResult, error)
}

// InterpretationService runs the retrieval-augmented interpretation of one
// request: query, retrieval, prompt assembly, model call.
type InterpretationService struct {
	templates *PromptRegistry
	rag       *RAGService
	chat      ChatModel
	config    *config.LLMConfig
	logger    *zap.Logger
}

func NewInterpretationService(
	templates *PromptRegistry,
	rag *RAGService,
	chat ChatModel,
	cfg *config.LLMConfig,
	logger *zap.Logger,
) *InterpretationService {
	return &InterpretationService{
		templates: templates,
		rag:       rag,
		chat:      chat,
		config:    cfg,
		logger:    logger,
	}
}

func (s *InterpretationService) Interpret(ctx context.Context, req *models.InterpretationRequest) (*models.InterpretationResult, error) {
	state := models.StateInitialized
	fail := func(err error) (*models.InterpretationResult, error) {
		return nil, &PipelineError{State: state, Err: err}
	}

	tmpl, err := s.templates.Get(req.Category)
	if err != nil {
		return fail(err)
	}
	query := s.rag.BuildQuery(tmpl.KnowledgeCategory, req.RawResults, req.Context)
	state = models.StateQueryBuilt

	degraded := false
	result, err := s.rag.Retrieve(ctx, query)
	if err != nil {
		if !canDegrade(ctx, err) {
			return fail(err)
		}
		s.logger.Warn("Retrieval degraded, interpreting without knowledge",
			zap.String("category", req.Category),
			zap.String("kind", apperrors.Kind(err)),
			zap.Error(err),
		)
		degraded = true
		result = models.RetrievalResult{}
	}
	result = models.MergeResults(result)
	state = models.StateRetrieved

	prompt, err := s.templates.Render(req.Category, query.Context)
	if err != nil {
		return fail(err)
	}
	prompt = AppendContext(prompt, req.Context)
	prompt = EnrichPrompt(prompt, result)
	state = models.StatePromptAssembled

	params := s.parameters(tmpl)
	resp, err := s.chat.Complete(ctx, ChatRequest{
		Model: s.config.Model,
		Messages: []ChatMessage{
			{Role: RoleSystem, Content: interpretationSystemRole},
			{Role: RoleUser, Content: prompt},
		},
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
	})
	if err != nil {
		return fail(err)
	}
	state = models.StateModelCalled

	narrative := strings.TrimSpace(sanitizeUTF8(resp.Content))
	if narrative == "" {
		return fail(fmt.Errorf("%w: empty narrative", apperrors.ErrMalformedResponse))
	}

	return &models.InterpretationResult{
		Category:          req.Category,
		GeneratedAt:       time.Now().UTC(),
		NarrativeText:     narrative,
		ModelIdentifier:   resp.Model,
		Parameters:        params,
		CitedSources:      CiteSources(result),
		RetrievalDegraded: degraded,
		Context:           req.Context,
	}, nil
}

func (s *InterpretationService) parameters(tmpl PromptTemplate) models.ModelParameters {
	params := models.ModelParameters{
		Temperature: s.config.Temperature,
		MaxTokens:   s.config.MaxTokens,
	}
	if tmpl.Temperature != nil {
		params.Temperature = *tmpl.Temperature
	}
	if tmpl.MaxTokens != nil {
		params.MaxTokens = *tmpl.MaxTokens
	}
	return params
}

// canDegrade reports whether a retrieval failure may be absorbed. Outages
// and timeouts of the store or the embedding provider are; a cancelled
// request and malformed upstream answers are not.
func canDegrade(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return apperrors.IsRetriable(err)
}

// AppendContext adds the optional request context as sorted "key: value"
// lines.
func AppendContext(prompt string, extra map[string]any) string {
	if len(extra) == 0 {
		return prompt
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString(additionalContextHeader)
	for _, k := range keys {
		b.WriteString(k + ": " + FormatValue(extra[k]) + "\n")
	}
	return b.String()
}

// CiteSources lists the retrieved documents in score order.
func CiteSources(result models.RetrievalResult) []models.CitedSource {
	cited := make([]models.CitedSource, 0, len(result))
	for _, sd := range result {
		cited = append(cited, models.CitedSource{
			DocumentID:     sd.Document.ID,
			ContentExcerpt: excerpt(sd.Document.Content, excerptRunes),
			Source:         sd.Document.Source(),
			Year:           sd.Document.Year(),
			Score:          sd.Score,
		})
	}
	return cited
}

func excerpt(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n])) + "…"
}
