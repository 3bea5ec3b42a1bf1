package handlers

import (
	"psi-rag/internal/dto"
	"psi-rag/pkg/apperrors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var statusByKind = map[string]int{
	"invalid_input":        fiber.StatusBadRequest,
	"unsupported_category": fiber.StatusBadRequest,
	"missing_field":        fiber.StatusBadRequest,
	"malformed_corpus":     fiber.StatusBadRequest,
	"not_found":            fiber.StatusNotFound,
	"upstream_unavailable": fiber.StatusBadGateway,
	"malformed_response":   fiber.StatusBadGateway,
	"store_unavailable":    fiber.StatusServiceUnavailable,
	"upstream_timeout":     fiber.StatusGatewayTimeout,
}

// StatusFor maps an error to the HTTP status of its kind.
func StatusFor(err error) int {
	if code, ok := statusByKind[apperrors.Kind(apperrors.FromContext(err))]; ok {
		return code
	}
	return fiber.StatusInternalServerError
}

// writeError answers with {kind, message}. Errors outside the taxonomy are
// reported as internal without their text.
func writeError(c *fiber.Ctx, logger *zap.Logger, op string, err error) error {
	err = apperrors.FromContext(err)
	status := StatusFor(err)
	resp := dto.ErrorResponse{Kind: apperrors.Kind(err), Message: err.Error()}

	if status == fiber.StatusInternalServerError {
		resp.Message = "internal error"
		logger.Error(op+" failed", zap.String("path", c.Path()), zap.Error(err))
	} else {
		logger.Warn(op+" failed",
			zap.String("path", c.Path()),
			zap.String("kind", resp.Kind),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	return c.Status(status).JSON(resp)
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Kind:    apperrors.Kind(apperrors.ErrInvalidInput),
		Message: message,
	})
}
