package repository

import (
	"context"
	"errors"
	"fmt"

	"psi-rag/internal/models"
	"psi-rag/pkg/apperrors"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var reportColumns = []string{
	"id", "category", "instrument", "scores", "findings", "scorer_report",
	"interpretation", "recommendations", "raw_data", "created_at",
}

type ReportRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewReportRepository(db *pgxpool.Pool, logger *zap.Logger) *ReportRepository {
	return &ReportRepository{
		db:     db,
		logger: logger,
	}
}

func (r *ReportRepository) Create(ctx context.Context, rep *models.Report) error {
	sql, args, err := insertReportQuery(rep).ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}
	return nil
}

func (r *ReportRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	sql, args, err := selectReportsQuery().
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rep models.Report
	err = r.db.QueryRow(ctx, sql, args...).Scan(reportFields(&rep)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: report %s", apperrors.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return &rep, nil
}

func (r *ReportRepository) List(ctx context.Context, limit, offset uint64) ([]*models.Report, error) {
	sql, args, err := selectReportsQuery().
		OrderBy("created_at DESC").
		Limit(limit).
		Offset(offset).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	reports := []*models.Report{}
	for rows.Next() {
		var rep models.Report
		if err := rows.Scan(reportFields(&rep)...); err != nil {
			return nil, err
		}
		reports = append(reports, &rep)
	}

	return reports, rows.Err()
}

func insertReportQuery(rep *models.Report) squirrel.InsertBuilder {
	return squirrel.Insert("reports").
		Columns(reportColumns...).
		Values(rep.ID, rep.Category, rep.Instrument, rep.Scores, rep.Findings, rep.ScorerReport,
			rep.Interpretation, rep.Recommendations, rep.RawData, rep.CreatedAt).
		PlaceholderFormat(squirrel.Dollar)
}

func selectReportsQuery() squirrel.SelectBuilder {
	return squirrel.Select(reportColumns...).
		From("reports").
		PlaceholderFormat(squirrel.Dollar)
}

func reportFields(rep *models.Report) []any {
	return []any{
		&rep.ID, &rep.Category, &rep.Instrument, &rep.Scores, &rep.Findings, &rep.ScorerReport,
		&rep.Interpretation, &rep.Recommendations, &rep.RawData, &rep.CreatedAt,
	}
}
