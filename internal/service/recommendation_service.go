package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"psi-rag/internal/models"
	"psi-rag/pkg/apperrors"
	"psi-rag/pkg/config"

	"go.uber.org/zap"
)

const (
	recommendationSystemRole = "Você é um psicólogo especializado em desenvolvimento e intervenção."
	maxRecommendations       = 5
)

var listItemRe = regexp.MustCompile(`^(\d+[\.\)]|[-*•])\s+`)

type RecommendationService struct {
	templates *PromptRegistry
	rag       *RAGService
	chat      ChatModel
	auditor   *Auditor
	config    *config.LLMConfig
	logger    *zap.Logger
}

// NewRecommendationService builds the service. auditor may be nil.
func NewRecommendationService(
	templates *PromptRegistry,
	rag *RAGService,
	chat ChatModel,
	auditor *Auditor,
	cfg *config.LLMConfig,
	logger *zap.Logger,
) *RecommendationService {
	return &RecommendationService{
		templates: templates,
		rag:       rag,
		chat:      chat,
		auditor:   auditor,
		config:    cfg,
		logger:    logger,
	}
}

// GenerateRecommendations asks the model for up to five actionable
// recommendations grounded in the knowledge of the test category.
func (s *RecommendationService) GenerateRecommendations(
	ctx context.Context,
	category string,
	results map[string]any,
	extra map[string]any,
) (recs []string, err error) {
	started := time.Now()
	out := AuditOutcome{State: models.StateInitialized}
	if s.auditor != nil {
		defer func() {
			out.Err = err
			if err != nil {
				out.State = models.StateFailed
			}
			s.auditor.Record(ctx, "recommendations", category, started, out)
		}()
	}

	tmpl, err := s.templates.Get(category)
	if err != nil {
		return nil, err
	}

	query := s.rag.BuildQuery(tmpl.KnowledgeCategory, results, extra)
	knowledge, err := s.rag.Retrieve(ctx, query)
	if err != nil {
		if !canDegrade(ctx, err) {
			return nil, err
		}
		s.logger.Warn("Retrieval degraded, recommending without knowledge",
			zap.String("category", category),
			zap.Error(err),
		)
		out.Degraded = true
		knowledge = models.RetrievalResult{}
	}
	knowledge = models.MergeResults(knowledge)
	out.Citations = len(knowledge)

	prompt := EnrichPrompt(recommendationPrompt(category, results, extra), knowledge)
	resp, err := s.chat.Complete(ctx, ChatRequest{
		Model: s.config.Model,
		Messages: []ChatMessage{
			{Role: RoleSystem, Content: recommendationSystemRole},
			{Role: RoleUser, Content: prompt},
		},
		Temperature: s.config.Temperature,
		MaxTokens:   s.config.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate recommendations: %w", err)
	}

	recs = parseRecommendations(sanitizeUTF8(resp.Content))
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: no recommendations in model answer", apperrors.ErrMalformedResponse)
	}
	out.State = models.StateCompleted

	s.logger.Info("Recommendations generated",
		zap.String("category", category),
		zap.Int("count", len(recs)),
		zap.Bool("retrieval_degraded", out.Degraded),
	)
	return recs, nil
}

func recommendationPrompt(category string, results, extra map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Com base nos seguintes resultados do teste %s:\n%s\n\n", category, prettyJSON(results))
	b.WriteString(`Gere 5 recomendações específicas e acionáveis para:
1. Desenvolvimento pessoal/profissional
2. Intervenções psicológicas
3. Acomodações educacionais (se aplicável)
4. Suporte familiar/social
5. Acompanhamento profissional`)
	if len(extra) > 0 {
		b.WriteString(additionalContextHeader)
		b.WriteString(prettyJSON(extra))
	}
	return b.String()
}

// parseRecommendations splits a model answer into list items. Lines that do
// not start a numbered or bulleted item continue the previous one, and lines
// before the first item are dropped. An answer without list markers yields
// one item per non-empty line.
func parseRecommendations(answer string) []string {
	var lines []string
	structured := false
	for _, line := range strings.Split(answer, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if listItemRe.MatchString(line) {
			structured = true
		}
		lines = append(lines, line)
	}

	if !structured {
		return capRecommendations(lines)
	}

	var items []string
	var current strings.Builder
	started := false
	for _, line := range lines {
		if listItemRe.MatchString(line) {
			if current.Len() > 0 {
				items = append(items, strings.TrimSpace(current.String()))
				current.Reset()
			}
			started = true
			line = listItemRe.ReplaceAllString(line, "")
		}
		if !started {
			continue
		}
		current.WriteString(line)
		current.WriteString(" ")
	}
	if current.Len() > 0 {
		items = append(items, strings.TrimSpace(current.String()))
	}
	return capRecommendations(items)
}

func capRecommendations(items []string) []string {
	if len(items) > maxRecommendations {
		return items[:maxRecommendations]
	}
	return items
}

func prettyJSON(v any) string {
	var sb strings.Builder
	enc := json.NewEncoder(&sb)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return strings.TrimRight(sb.String(), "\n")
}
