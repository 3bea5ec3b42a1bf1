package handlers

import (
	"psi-rag/internal/dto"
	"psi-rag/internal/scoring"
	"psi-rag/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type CatalogHandler struct {
	templates *service.PromptRegistry
	scorers   *scoring.Registry
	knowledge *service.KnowledgeService
	logger    *zap.Logger
}

func NewCatalogHandler(
	templates *service.PromptRegistry,
	scorers *scoring.Registry,
	knowledge *service.KnowledgeService,
	logger *zap.Logger,
) *CatalogHandler {
	return &CatalogHandler{
		templates: templates,
		scorers:   scorers,
		knowledge: knowledge,
		logger:    logger,
	}
}

// Categories godoc
// @Summary List supported categories
// @Description Interpretation templates, scorers and knowledge corpus categories
// @Tags catalog
// @Produce json
// @Security Bearer
// @Success 200 {object} dto.CategoriesResponse
// @Router /categories [get]
func (h *CatalogHandler) Categories(c *fiber.Ctx) error {
	knowledge, err := h.knowledge.Categories()
	if err != nil {
		return writeError(c, h.logger, "List categories", err)
	}
	return c.JSON(dto.CategoriesResponse{
		Interpretation: h.templates.Categories(),
		Scoring:        h.scorers.Categories(),
		Knowledge:      knowledge,
	})
}
