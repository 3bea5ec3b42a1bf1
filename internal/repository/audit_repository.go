package repository

import (
	"context"
	"fmt"
	"time"

	"psi-rag/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var auditColumns = []string{
	"id", "request_id", "actor", "operation", "category", "final_state", "status",
	"error_kind", "error_message", "retrieval_degraded", "cited_sources", "duration_ms",
	"client_ip", "user_agent", "created_at",
}

// AuditRepository appends audit entries to the audit_log table.
type AuditRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewAuditRepository(db *pgxpool.Pool, logger *zap.Logger) *AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

func (r *AuditRepository) Create(ctx context.Context, entry *models.AuditEntry) error {
	return r.CreateBatch(ctx, []*models.AuditEntry{entry})
}

func (r *AuditRepository) CreateBatch(ctx context.Context, entries []*models.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}

	sql, args, err := insertAuditQuery(entries).ToSql()
	if err != nil {
		return err
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to insert audit entries: %w", err)
	}
	return nil
}

// ListByRequestID returns the entries of one request, oldest first.
func (r *AuditRepository) ListByRequestID(ctx context.Context, requestID string) ([]*models.AuditEntry, error) {
	sql, args, err := squirrel.Select(auditColumns...).
		From("audit_log").
		Where(squirrel.Eq{"request_id": requestID}).
		OrderBy("created_at ASC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	entries := []*models.AuditEntry{}
	for rows.Next() {
		var e models.AuditEntry
		var durationMs int64
		if err := rows.Scan(
			&e.ID, &e.RequestID, &e.Actor, &e.Operation, &e.Category, &e.FinalState, &e.Status,
			&e.ErrorKind, &e.ErrorMessage, &e.RetrievalDegraded, &e.CitedSources, &durationMs,
			&e.ClientIP, &e.UserAgent, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		e.Duration = time.Duration(durationMs) * time.Millisecond
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}

func insertAuditQuery(entries []*models.AuditEntry) squirrel.InsertBuilder {
	builder := squirrel.Insert("audit_log").
		Columns(auditColumns...).
		PlaceholderFormat(squirrel.Dollar)

	for _, e := range entries {
		builder = builder.Values(
			e.ID, e.RequestID, e.Actor, e.Operation, e.Category, string(e.FinalState), string(e.Status),
			e.ErrorKind, e.ErrorMessage, e.RetrievalDegraded, e.CitedSources, e.Duration.Milliseconds(),
			e.ClientIP, e.UserAgent, e.CreatedAt,
		)
	}
	return builder
}
