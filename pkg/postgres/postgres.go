package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"psi-rag/pkg/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

//go:embed schema.sql
var schemaSQL string

func DSN(cfg *config.DatabaseConfig) string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)
}

func NewPool(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.DBName),
	)

	return pool, nil
}

// EnsureSchema creates the tables used by the service. The knowledge_base
// vector column is sized to the configured embedding dimension.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, dimension int) error {
	stmt := strings.ReplaceAll(schemaSQL, "{{dimension}}", fmt.Sprintf("%d", dimension))
	if _, err := pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
