package service

import (
	"context"
	"fmt"
	"time"

	"psi-rag/internal/models"
	"psi-rag/internal/scoring"
	"psi-rag/pkg/apperrors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// ReportStore persists generated reports.
type ReportStore interface {
	Create(ctx context.Context, rep *models.Report) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error)
	List(ctx context.Context, limit, offset uint64) ([]*models.Report, error)
}

// Recommender produces recommendations for scored results.
type Recommender interface {
	GenerateRecommendations(ctx context.Context, category string, results, extra map[string]any) ([]string, error)
}

type ReportRequest struct {
	Category   string         `json:"category"`
	Instrument string         `json:"instrument"`
	RawData    map[string]any `json:"raw_data"`
	Context    map[string]any `json:"context,omitempty"`
}

// ReportService scores a raw protocol and combines the scorer output, the
// interpretation and the recommendations into one report.
type ReportService struct {
	scorers     *scoring.Registry
	interpreter Interpreter
	recommender Recommender
	store       ReportStore
	logger      *zap.Logger
}

// NewReportService builds the service. store may be nil, in which case
// reports are returned but not kept.
func NewReportService(
	scorers *scoring.Registry,
	interpreter Interpreter,
	recommender Recommender,
	store ReportStore,
	logger *zap.Logger,
) *ReportService {
	return &ReportService{
		scorers:     scorers,
		interpreter: interpreter,
		recommender: recommender,
		store:       store,
		logger:      logger,
	}
}

func (s *ReportService) GenerateReport(ctx context.Context, req ReportRequest) (*models.Report, error) {
	scorer, err := s.scorers.Get(req.Category)
	if err != nil {
		return nil, err
	}

	scored, err := scoring.Run(scorer, req.Instrument, req.RawData)
	if err != nil {
		return nil, fmt.Errorf("failed to score %s protocol: %w", req.Category, err)
	}

	interpretation, err := s.interpreter.Interpret(ctx, &models.InterpretationRequest{
		Category:   scorer.Category(),
		RawResults: scored.Findings.Fields,
		Context:    req.Context,
	})
	if err != nil {
		return nil, err
	}

	recs, err := s.recommender.GenerateRecommendations(ctx, scorer.Category(), scored.Findings.Fields, req.Context)
	if err != nil {
		return nil, err
	}

	rep := &models.Report{
		ID:              uuid.New(),
		Category:        scorer.Category(),
		Instrument:      scored.Instrument,
		Scores:          scoresMap(scored.Scores),
		Findings:        findingsMap(scored.Findings),
		ScorerReport:    scored.Report,
		Interpretation:  interpretation,
		Recommendations: recs,
		RawData:         req.RawData,
		CreatedAt:       time.Now().UTC(),
	}

	if s.store != nil {
		if err := s.store.Create(ctx, rep); err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
		}
	}

	s.logger.Info("Report generated",
		zap.String("report_id", rep.ID.String()),
		zap.String("category", rep.Category),
		zap.String("instrument", rep.Instrument),
		zap.Bool("persisted", s.store != nil),
	)
	return rep, nil
}

func (s *ReportService) GetReport(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: report storage is disabled", apperrors.ErrNotFound)
	}
	return s.store.GetByID(ctx, id)
}

func (s *ReportService) ListReports(ctx context.Context, limit, offset uint64) ([]*models.Report, error) {
	if s.store == nil {
		return []*models.Report{}, nil
	}
	return s.store.List(ctx, PageLimit(limit), offset)
}

// PageLimit applies the default page size to 0 and to limits above 100.
func PageLimit(limit uint64) uint64 {
	if limit == 0 || limit > maxPageLimit {
		return defaultPageLimit
	}
	return limit
}

func (s *ReportService) Categories() []string {
	return s.scorers.Categories()
}

func scoresMap(sc *scoring.Scores) map[string]any {
	out := map[string]any{
		"measures": sc.Measures,
	}
	if len(sc.Indices) > 0 {
		out["indices"] = sc.Indices
	}
	if sc.Total != 0 {
		out["total"] = sc.Total
	}
	if len(sc.Validity) > 0 {
		out["validity"] = sc.Validity
	}
	return out
}

func findingsMap(f *scoring.Findings) map[string]any {
	out := make(map[string]any, len(f.Fields)+1)
	for k, v := range f.Fields {
		out[k] = v
	}
	out["recomendacoes"] = f.Recommendations
	return out
}
