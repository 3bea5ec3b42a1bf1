package handlers

import (
	"strings"

	"psi-rag/internal/dto"
	"psi-rag/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReportHandler struct {
	reports *service.ReportService
	logger  *zap.Logger
}

func NewReportHandler(reports *service.ReportService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		reports: reports,
		logger:  logger,
	}
}

// GenerateReport godoc
// @Summary Generate a full report
// @Description Scores a raw protocol, interprets the findings and adds recommendations
// @Tags reports
// @Accept json
// @Produce json
// @Param request body service.ReportRequest true "Category, instrument and raw protocol"
// @Security Bearer
// @Success 201 {object} models.Report
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /reports [post]
func (h *ReportHandler) GenerateReport(c *fiber.Ctx) error {
	var req service.ReportRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if strings.TrimSpace(req.Category) == "" {
		return badRequest(c, "category is required")
	}
	if len(req.RawData) == 0 {
		return badRequest(c, "raw_data is required")
	}

	rep, err := h.reports.GenerateReport(c.UserContext(), req)
	if err != nil {
		return writeError(c, h.logger, "Report generation", err)
	}
	return c.Status(fiber.StatusCreated).JSON(rep)
}

// GetReport godoc
// @Summary Get a report
// @Tags reports
// @Produce json
// @Param id path string true "Report ID"
// @Security Bearer
// @Success 200 {object} models.Report
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /reports/{id} [get]
func (h *ReportHandler) GetReport(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid report ID")
	}

	rep, err := h.reports.GetReport(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.logger, "Get report", err)
	}
	return c.JSON(rep)
}

// ListReports godoc
// @Summary List reports
// @Description Most recent reports first
// @Tags reports
// @Produce json
// @Param limit query int false "Limit" default(20)
// @Param offset query int false "Offset" default(0)
// @Security Bearer
// @Success 200 {object} dto.ReportListResponse
// @Router /reports [get]
func (h *ReportHandler) ListReports(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)
	if limit < 0 || offset < 0 {
		return badRequest(c, "limit and offset must not be negative")
	}

	pageLimit := service.PageLimit(uint64(limit))
	reports, err := h.reports.ListReports(c.UserContext(), pageLimit, uint64(offset))
	if err != nil {
		return writeError(c, h.logger, "List reports", err)
	}
	return c.JSON(dto.ReportListResponse{
		Reports: reports,
		Limit:   pageLimit,
		Offset:  uint64(offset),
	})
}
