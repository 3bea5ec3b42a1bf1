package handlers

import (
	"strings"

	"psi-rag/internal/dto"
	"psi-rag/internal/models"
	"psi-rag/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type InterpretationHandler struct {
	interpreter service.Interpreter
	recommender service.Recommender
	logger      *zap.Logger
}

func NewInterpretationHandler(interpreter service.Interpreter, recommender service.Recommender, logger *zap.Logger) *InterpretationHandler {
	return &InterpretationHandler{
		interpreter: interpreter,
		recommender: recommender,
		logger:      logger,
	}
}

// Interpret godoc
// @Summary Interpret test results
// @Description Builds a retrieval query from the results, enriches the category prompt with the retrieved knowledge and asks the language model for a narrative interpretation
// @Tags interpretations
// @Accept json
// @Produce json
// @Param request body models.InterpretationRequest true "Test category, processed results and optional context"
// @Security Bearer
// @Success 200 {object} models.InterpretationResult
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Failure 504 {object} dto.ErrorResponse
// @Router /interpretations [post]
func (h *InterpretationHandler) Interpret(c *fiber.Ctx) error {
	var req models.InterpretationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if strings.TrimSpace(req.Category) == "" {
		return badRequest(c, "category is required")
	}
	if req.RawResults == nil {
		return badRequest(c, "raw_results is required")
	}

	result, err := h.interpreter.Interpret(c.UserContext(), &req)
	if err != nil {
		return writeError(c, h.logger, "Interpretation", err)
	}
	return c.JSON(result)
}

// Recommend godoc
// @Summary Generate recommendations
// @Description Asks the language model for up to five recommendations grounded in the category knowledge
// @Tags interpretations
// @Accept json
// @Produce json
// @Param request body dto.RecommendationRequest true "Test category, results and optional context"
// @Security Bearer
// @Success 200 {object} dto.RecommendationResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /recommendations [post]
func (h *InterpretationHandler) Recommend(c *fiber.Ctx) error {
	var req dto.RecommendationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if strings.TrimSpace(req.Category) == "" {
		return badRequest(c, "category is required")
	}

	recs, err := h.recommender.GenerateRecommendations(c.UserContext(), req.Category, req.Results, req.Context)
	if err != nil {
		return writeError(c, h.logger, "Recommendations", err)
	}
	return c.JSON(dto.RecommendationResponse{
		Category:        req.Category,
		Recommendations: recs,
	})
}
