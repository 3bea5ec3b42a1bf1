package api

import (
	"errors"

	"psi-rag/docs"
	"psi-rag/internal/api/handlers"
	"psi-rag/internal/dto"
	"psi-rag/internal/service"
	"psi-rag/pkg/auth"
	"psi-rag/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// Handlers groups the route handlers of the API.
type Handlers struct {
	Interpretation *handlers.InterpretationHandler
	Reports        *handlers.ReportHandler
	Knowledge      *handlers.KnowledgeHandler
	Catalog        *handlers.CatalogHandler
}

// SetupRouter builds the fiber app. A nil jwtManager leaves /api/v1 open.
func SetupRouter(h Handlers, jwtManager *auth.JWTManager, appLogger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			kind := "internal"
			message := "internal error"
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
				kind = "http"
				message = e.Message
			} else {
				appLogger.Error("Unhandled request error", zap.String("path", c.Path()), zap.Error(err))
			}
			return c.Status(code).JSON(dto.ErrorResponse{Kind: kind, Message: message})
		},
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowMethods:  "GET,POST,DELETE,OPTIONS",
		AllowHeaders:  "Origin,Content-Type,Accept,Authorization," + requestIDHeader,
		ExposeHeaders: requestIDHeader,
	}))
	app.Use(logger.New())

	_ = docs.SwaggerInfo
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(dto.HealthResponse{Status: "ok"})
	})

	v1 := app.Group("/api/v1", middleware.AuthMiddleware(jwtManager, appLogger), RequestMeta())

	v1.Post("/interpretations", h.Interpretation.Interpret)
	v1.Post("/recommendations", h.Interpretation.Recommend)

	reports := v1.Group("/reports")
	reports.Post("", h.Reports.GenerateReport)
	reports.Get("", h.Reports.ListReports)
	reports.Get("/:id", h.Reports.GetReport)

	v1.Get("/categories", h.Catalog.Categories)

	knowledge := v1.Group("/knowledge")
	knowledge.Post("/documents", h.Knowledge.AddDocument)
	knowledge.Post("/search", h.Knowledge.Search)
	v1.Delete("/cache", h.Knowledge.ClearCache)

	return app
}

// RequestMeta puts the caller identity on the request context for auditing
// and echoes the request id.
func RequestMeta() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDHeader, requestID)

		actor, _ := c.Locals("username").(string)
		if actor == "" {
			actor, _ = c.Locals("userID").(string)
		}

		c.SetUserContext(service.WithRequestMeta(c.UserContext(), service.RequestMeta{
			RequestID: requestID,
			Actor:     actor,
			ClientIP:  c.IP(),
			UserAgent: c.Get(fiber.HeaderUserAgent),
		}))
		return c.Next()
	}
}
