package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"psi-rag/internal/api"
	"psi-rag/internal/api/handlers"
	"psi-rag/internal/repository"
	"psi-rag/internal/scoring"
	"psi-rag/internal/service"
	"psi-rag/pkg/auth"
	"psi-rag/pkg/config"
	"psi-rag/pkg/logger"
	"psi-rag/pkg/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// @title Psi RAG API
// @version 1.0
// @description Interpretação de testes psicológicos aumentada por recuperação de conhecimento

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting psi-rag service",
		zap.String("vector_store", cfg.VectorStore.Backend),
		zap.String("llm_provider", cfg.LLM.Provider),
	)

	ctx := context.Background()

	// Database is optional: without it reports and audit records are not persisted.
	var db *pgxpool.Pool
	if cfg.Database.Enabled {
		db, err = postgres.NewPool(ctx, &cfg.Database, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		if err := postgres.EnsureSchema(ctx, db, cfg.VectorStore.Dimension); err != nil {
			appLogger.Fatal("Failed to apply database schema", zap.Error(err))
		}
	}

	// Repositories
	store, err := repository.NewVectorStore(&cfg.VectorStore, db, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize vector store", zap.Error(err))
	}
	if err := store.EnsureCollection(ctx); err != nil {
		// Retrieval degrades while the store is down, so startup goes on.
		appLogger.Warn("Vector store not ready", zap.Error(err))
	}
	corpus := repository.NewCorpusRepository(cfg.Corpus.Dir, appLogger)

	var reportStore service.ReportStore
	auditSinks := service.FanOutSink{service.NewLoggerSink(logger.Audit())}
	if db != nil {
		reportStore = repository.NewReportRepository(db, appLogger)
		auditSinks = append(auditSinks, service.NewRepositorySink(repository.NewAuditRepository(db, appLogger)))
	}

	// Retrieval cache
	cache, err := service.NewRetrievalCache(ctx, &cfg.Cache, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize retrieval cache", zap.Error(err))
	}
	if closer, ok := cache.(io.Closer); ok {
		defer closer.Close()
	}
	if cfg.Cache.Enabled && cfg.Cache.ClearSchedule != "" {
		scheduler := service.NewCacheFlushScheduler(cache, appLogger)
		if err := scheduler.Schedule(cfg.Cache.ClearSchedule); err != nil {
			appLogger.Fatal("Invalid cache clear schedule", zap.Error(err))
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	// Language model
	chat, err := service.NewChatModel(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize chat model", zap.Error(err))
	}
	if closer, ok := chat.(io.Closer); ok {
		defer closer.Close()
	}

	templates := service.NewPromptRegistry()
	if cfg.Prompts.TemplatesFile != "" {
		if err := templates.LoadFile(cfg.Prompts.TemplatesFile); err != nil {
			appLogger.Fatal("Failed to load prompt templates", zap.Error(err))
		}
	}

	// Services
	embedder := service.NewEmbeddingService(&cfg.Embedding, appLogger)
	ragService := service.NewRAGService(store, embedder, cache, &cfg.RAG, appLogger)
	auditor := service.NewAuditor(auditSinks, appLogger)

	interpreter := service.WithAudit(
		service.NewInterpretationService(templates, ragService, chat, &cfg.LLM, appLogger),
		auditor,
	)
	recService := service.NewRecommendationService(templates, ragService, chat, auditor, &cfg.LLM, appLogger)
	scorers := scoring.DefaultRegistry()
	reportService := service.NewReportService(scorers, interpreter, recService, reportStore, appLogger)
	knowledgeService := service.NewKnowledgeService(corpus, store, embedder, cache, appLogger)

	var jwtManager *auth.JWTManager
	if cfg.JWT.Enabled() {
		jwtManager = auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Expiration)
	} else {
		appLogger.Warn("JWT_SECRET_KEY is not set, API routes are open")
	}

	// Handlers
	app := api.SetupRouter(api.Handlers{
		Interpretation: handlers.NewInterpretationHandler(interpreter, recService, appLogger),
		Reports:        handlers.NewReportHandler(reportService, appLogger),
		Knowledge:      handlers.NewKnowledgeHandler(knowledgeService, ragService, appLogger),
		Catalog:        handlers.NewCatalogHandler(templates, scorers, knowledgeService, appLogger),
	}, jwtManager, appLogger)

	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}
