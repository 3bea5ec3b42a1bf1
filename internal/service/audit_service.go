package service

import (
	"context"
	"time"

	"psi-rag/internal/models"
	"psi-rag/internal/repository"
	"psi-rag/pkg/apperrors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const auditWriteTimeout = 5 * time.Second

type requestMetaKey struct{}

// RequestMeta identifies the caller of a request for auditing.
type RequestMeta struct {
	RequestID string
	Actor     string
	ClientIP  string
	UserAgent string
}

func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

func RequestMetaFrom(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(requestMetaKey{}).(RequestMeta)
	if meta.Actor == "" {
		meta.Actor = "system"
	}
	return meta
}

// AuditSink stores audit entries.
type AuditSink interface {
	Record(ctx context.Context, entry *models.AuditEntry) error
}

// LoggerSink writes entries to a zap logger.
type LoggerSink struct {
	logger *zap.Logger
}

func NewLoggerSink(logger *zap.Logger) *LoggerSink {
	return &LoggerSink{logger: logger}
}

func (s *LoggerSink) Record(ctx context.Context, e *models.AuditEntry) error {
	fields := []zap.Field{
		zap.String("audit_id", e.ID.String()),
		zap.String("request_id", e.RequestID),
		zap.String("actor", e.Actor),
		zap.String("operation", e.Operation),
		zap.String("category", e.Category),
		zap.String("final_state", string(e.FinalState)),
		zap.String("status", string(e.Status)),
		zap.Bool("retrieval_degraded", e.RetrievalDegraded),
		zap.Int("cited_sources", e.CitedSources),
		zap.Duration("duration", e.Duration),
		zap.String("client_ip", e.ClientIP),
		zap.String("user_agent", e.UserAgent),
	}
	if e.Status == models.AuditStatusFailure {
		fields = append(fields, zap.String("error_kind", e.ErrorKind), zap.String("error", e.ErrorMessage))
		s.logger.Warn("request audited", fields...)
		return nil
	}
	s.logger.Info("request audited", fields...)
	return nil
}

// RepositorySink persists entries to the audit_log table.
type RepositorySink struct {
	repo *repository.AuditRepository
}

func NewRepositorySink(repo *repository.AuditRepository) *RepositorySink {
	return &RepositorySink{repo: repo}
}

func (s *RepositorySink) Record(ctx context.Context, e *models.AuditEntry) error {
	return s.repo.Create(ctx, e)
}

// FanOutSink records every entry in each of its sinks and returns the first
// error after trying them all.
type FanOutSink []AuditSink

func (f FanOutSink) Record(ctx context.Context, e *models.AuditEntry) error {
	var first error
	for _, sink := range f {
		if err := sink.Record(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Auditor writes one entry per audited operation. Sink failures are logged
// and never reach the caller.
type Auditor struct {
	sink   AuditSink
	logger *zap.Logger
}

func NewAuditor(sink AuditSink, logger *zap.Logger) *Auditor {
	return &Auditor{sink: sink, logger: logger}
}

// AuditOutcome is what an operation reports about itself when it ends.
type AuditOutcome struct {
	State     models.PipelineState
	Degraded  bool
	Citations int
	Err       error
}

func (a *Auditor) Record(ctx context.Context, operation, category string, started time.Time, out AuditOutcome) {
	meta := RequestMetaFrom(ctx)
	entry := &models.AuditEntry{
		ID:                uuid.New(),
		RequestID:         meta.RequestID,
		Actor:             meta.Actor,
		Operation:         operation,
		Category:          category,
		FinalState:        out.State,
		Status:            models.AuditStatusSuccess,
		RetrievalDegraded: out.Degraded,
		CitedSources:      out.Citations,
		Duration:          time.Since(started),
		ClientIP:          meta.ClientIP,
		UserAgent:         meta.UserAgent,
		CreatedAt:         started.UTC(),
	}
	if out.Err != nil {
		entry.Status = models.AuditStatusFailure
		entry.ErrorKind = apperrors.Kind(out.Err)
		entry.ErrorMessage = out.Err.Error()
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()
	if err := a.sink.Record(writeCtx, entry); err != nil {
		a.logger.Error("Failed to record audit entry",
			zap.String("operation", operation),
			zap.String("request_id", entry.RequestID),
			zap.Error(err),
		)
	}
}

type auditedInterpreter struct {
	next    Interpreter
	auditor *Auditor
}

// WithAudit wraps an Interpreter so every request leaves exactly one audit
// entry, whatever its outcome.
func WithAudit(next Interpreter, auditor *Auditor) Interpreter {
	return &auditedInterpreter{next: next, auditor: auditor}
}

func (a *auditedInterpreter) Interpret(ctx context.Context, req *models.InterpretationRequest) (*models.InterpretationResult, error) {
	started := time.Now()
	result, err := a.next.Interpret(ctx, req)

	out := AuditOutcome{State: models.StateCompleted, Err: err}
	if err != nil {
		out.State = models.StateFailed
	} else {
		out.Degraded = result.RetrievalDegraded
		out.Citations = len(result.CitedSources)
	}
	a.auditor.Record(ctx, "interpretation", req.Category, started, out)

	return result, err
}
