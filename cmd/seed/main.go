package main

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"psi-rag/internal/repository"
	"psi-rag/internal/service"
	"psi-rag/pkg/auth"
	"psi-rag/pkg/config"
	"psi-rag/pkg/logger"
	"psi-rag/pkg/postgres"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const ingestRetries = 3

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := logger.Init(cfg.Logger.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	rootCmd := &cobra.Command{
		Use:   "seed",
		Short: "manage the psi-rag knowledge corpus",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "write the starter category files that do not exist yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			corpus := repository.NewCorpusRepository(cfg.Corpus.Dir, appLogger)
			knowledge := service.NewKnowledgeService(corpus, nil, nil, nil, appLogger)
			created, err := knowledge.WriteInitialCorpus()
			if err != nil {
				return err
			}
			appLogger.Info("Initial corpus written",
				zap.String("dir", corpus.Dir()),
				zap.Strings("created", created),
			)
			return nil
		},
	}

	var (
		ingestDir string
		force     bool
	)
	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "embed the category files and upsert them into the vector store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ingestDir != "" {
				cfg.Corpus.Dir = ingestDir
			}
			return runIngest(cmd.Context(), cfg, force, appLogger)
		},
	}
	ingestCmd.Flags().StringVar(&ingestDir, "dir", "", "corpus directory (defaults to CORPUS_DIR)")
	ingestCmd.Flags().BoolVar(&force, "force", false, "re-ingest files that did not change")

	var username string
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "mint a bearer token for the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cfg.JWT.Enabled() {
				return fmt.Errorf("JWT_SECRET_KEY is not set")
			}
			if username == "" {
				return fmt.Errorf("--user is required")
			}
			token, err := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Expiration).
				Generate(uuid.NewString(), username)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	tokenCmd.Flags().StringVar(&username, "user", "", "name recorded as the audit actor")

	rootCmd.AddCommand(initCmd, ingestCmd, tokenCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		appLogger.Fatal("Seed command failed", zap.Error(err))
	}
}

func runIngest(ctx context.Context, cfg *config.Config, force bool, appLogger *zap.Logger) error {
	var db *pgxpool.Pool
	if cfg.VectorStore.Backend == "postgres" {
		pool, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()
		if err := postgres.EnsureSchema(ctx, pool, cfg.VectorStore.Dimension); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
		db = pool
	}

	store, err := repository.NewVectorStore(&cfg.VectorStore, db, appLogger)
	if err != nil {
		return err
	}
	cache, err := service.NewRetrievalCache(ctx, &cfg.Cache, appLogger)
	if err != nil {
		return err
	}
	if closer, ok := cache.(io.Closer); ok {
		defer closer.Close()
	}

	corpus := repository.NewCorpusRepository(cfg.Corpus.Dir, appLogger)
	embedder := service.NewEmbeddingService(&cfg.Embedding, appLogger).WithRetries(ingestRetries)
	knowledge := service.NewKnowledgeService(corpus, store, embedder, cache, appLogger)

	cacheFile := filepath.Join(corpus.Dir(), ".seed_cache.json")
	seen, err := loadCache(cacheFile)
	if err != nil {
		appLogger.Warn("Failed to load cache, will process all files", zap.Error(err))
		seen = &CacheData{ProcessedFiles: make(map[string]ProcessedFile)}
	}

	pending := make(map[string]ProcessedFile)
	keep := func(path string) bool {
		fileHash, err := calculateFileHash(path)
		if err != nil {
			appLogger.Warn("Failed to calculate file hash, will process anyway", zap.String("path", path), zap.Error(err))
		}
		if cached, ok := seen.ProcessedFiles[path]; ok && !force && fileHash != "" && cached.FileHash == fileHash {
			appLogger.Info("Corpus file unchanged, skipping",
				zap.String("path", path),
				zap.Time("processed_at", cached.ProcessedAt),
			)
			return false
		}
		pending[filepath.Base(path)] = ProcessedFile{FilePath: path, FileHash: fileHash}
		return true
	}

	results, err := knowledge.IngestDirectory(ctx, keep)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, stats := range results {
		entry, ok := pending[stats.File]
		// Partially ingested files stay out of the cache so the next run retries them.
		if !ok || entry.FileHash == "" || stats.Error != "" || stats.Processed < stats.Total {
			continue
		}
		entry.ProcessedAt = now
		seen.ProcessedFiles[entry.FilePath] = entry
	}

	if err := saveCache(cacheFile, seen); err != nil {
		appLogger.Warn("Failed to save cache", zap.Error(err))
	} else {
		appLogger.Info("Cache saved", zap.Int("processed_files", len(seen.ProcessedFiles)))
	}
	return nil
}

// ProcessedFile is a corpus file that was fully ingested.
type ProcessedFile struct {
	FilePath    string    `json:"file_path"`
	FileHash    string    `json:"file_hash"`
	ProcessedAt time.Time `json:"processed_at"`
}

// CacheData stores information about processed files
type CacheData struct {
	ProcessedFiles map[string]ProcessedFile `json:"processed_files"` // key: file path
}

func loadCache(cacheFile string) (*CacheData, error) {
	cache := &CacheData{
		ProcessedFiles: make(map[string]ProcessedFile),
	}

	data, err := os.ReadFile(cacheFile)
	if os.IsNotExist(err) {
		return cache, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}
	if len(data) == 0 {
		return cache, nil
	}

	if err := json.Unmarshal(data, cache); err != nil {
		return nil, fmt.Errorf("failed to parse cache file: %w", err)
	}
	if cache.ProcessedFiles == nil {
		cache.ProcessedFiles = make(map[string]ProcessedFile)
	}
	return cache, nil
}

func saveCache(cacheFile string, cache *CacheData) error {
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}
	if err := os.WriteFile(cacheFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

func calculateFileHash(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("failed to calculate hash: %w", err)
	}
	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}
