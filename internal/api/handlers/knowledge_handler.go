package handlers

import (
	"strings"
	"time"

	"psi-rag/internal/dto"
	"psi-rag/internal/models"
	"psi-rag/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const maxSearchQueries = 10

type KnowledgeHandler struct {
	knowledge *service.KnowledgeService
	rag       *service.RAGService
	logger    *zap.Logger
}

func NewKnowledgeHandler(knowledge *service.KnowledgeService, rag *service.RAGService, logger *zap.Logger) *KnowledgeHandler {
	return &KnowledgeHandler{
		knowledge: knowledge,
		rag:       rag,
		logger:    logger,
	}
}

// AddDocument godoc
// @Summary Add a knowledge document
// @Description Embeds the document, stores it in the vector store and records it in its category file
// @Tags knowledge
// @Accept json
// @Produce json
// @Param request body dto.AddDocumentRequest true "Knowledge document"
// @Security Bearer
// @Success 201 {object} dto.DocumentResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /knowledge/documents [post]
func (h *KnowledgeHandler) AddDocument(c *fiber.Ctx) error {
	var req dto.AddDocumentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	doc := &models.Document{
		ID:       strings.TrimSpace(req.ID),
		Category: strings.TrimSpace(req.Category),
		Content:  req.Content,
		Metadata: req.Metadata,
	}
	if err := h.knowledge.AddDocument(c.UserContext(), doc); err != nil {
		return writeError(c, h.logger, "Add document", err)
	}
	return c.Status(fiber.StatusCreated).JSON(toDocumentResponse(doc))
}

// Search godoc
// @Summary Multi-query knowledge search
// @Description Runs every query against one category and merges the hits by best score
// @Tags knowledge
// @Accept json
// @Produce json
// @Param request body dto.SearchRequest true "Queries, category and per-query limit"
// @Security Bearer
// @Success 200 {object} dto.SearchResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /knowledge/search [post]
func (h *KnowledgeHandler) Search(c *fiber.Ctx) error {
	var req dto.SearchRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	queries := make([]string, 0, len(req.Queries))
	for _, q := range req.Queries {
		if q = strings.TrimSpace(q); q != "" {
			queries = append(queries, q)
		}
	}
	switch {
	case len(queries) == 0:
		return badRequest(c, "at least one query is required")
	case len(queries) > maxSearchQueries:
		return badRequest(c, "too many queries")
	case req.Limit < 0:
		return badRequest(c, "limit must not be negative")
	}

	result, err := h.rag.SearchMultiQuery(c.UserContext(), queries, strings.TrimSpace(req.Category), req.Limit)
	if err != nil {
		return writeError(c, h.logger, "Knowledge search", err)
	}

	hits := make([]dto.SearchHit, 0, len(result))
	for _, sd := range result {
		hits = append(hits, dto.SearchHit{Document: toDocumentResponse(sd.Document), Score: sd.Score})
	}
	return c.JSON(dto.SearchResponse{Results: hits})
}

// ClearCache godoc
// @Summary Clear the retrieval cache
// @Tags knowledge
// @Produce json
// @Security Bearer
// @Success 200 {object} dto.CacheClearedResponse
// @Router /cache [delete]
func (h *KnowledgeHandler) ClearCache(c *fiber.Ctx) error {
	if err := h.knowledge.ClearCache(c.UserContext()); err != nil {
		return writeError(c, h.logger, "Clear cache", err)
	}
	h.logger.Info("Retrieval cache cleared on request")
	return c.JSON(dto.CacheClearedResponse{Cleared: true})
}

func toDocumentResponse(d *models.Document) dto.DocumentResponse {
	resp := dto.DocumentResponse{
		ID:       d.ID,
		Category: d.Category,
		Content:  d.Content,
		Metadata: d.Metadata,
	}
	if !d.CreatedAt.IsZero() {
		resp.CreatedAt = d.CreatedAt.Format(time.RFC3339)
	}
	return resp
}
