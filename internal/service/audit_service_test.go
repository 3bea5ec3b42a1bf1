package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"psi-rag/internal/models"
	"psi-rag/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stubInterpreter struct {
	result *models.InterpretationResult
	err    error
}

func (s stubInterpreter) Interpret(ctx context.Context, req *models.InterpretationRequest) (*models.InterpretationResult, error) {
	return s.result, s.err
}

func TestWithAudit_Success(t *testing.T) {
	sink := &memorySink{}
	inner := stubInterpreter{result: &models.InterpretationResult{
		RetrievalDegraded: true,
		CitedSources:      []models.CitedSource{{DocumentID: "a"}, {DocumentID: "b"}},
	}}
	interp := WithAudit(inner, NewAuditor(sink, zap.NewNop()))

	ctx := WithRequestMeta(context.Background(), RequestMeta{RequestID: "req-1", Actor: "ana", ClientIP: "10.0.0.1"})
	res, err := interp.Interpret(ctx, &models.InterpretationRequest{Category: "wechsler"})
	require.NoError(t, err)
	assert.Same(t, inner.result, res)

	entries := sink.all()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "req-1", e.RequestID)
	assert.Equal(t, "ana", e.Actor)
	assert.Equal(t, "10.0.0.1", e.ClientIP)
	assert.Equal(t, "interpretation", e.Operation)
	assert.Equal(t, "wechsler", e.Category)
	assert.Equal(t, models.StateCompleted, e.FinalState)
	assert.Equal(t, models.AuditStatusSuccess, e.Status)
	assert.True(t, e.RetrievalDegraded)
	assert.Equal(t, 2, e.CitedSources)
	assert.Empty(t, e.ErrorKind)
}

func TestWithAudit_Failure(t *testing.T) {
	sink := &memorySink{}
	inner := stubInterpreter{err: &PipelineError{State: models.StateInitialized, Err: apperrors.ErrUnsupportedCategory}}
	interp := WithAudit(inner, NewAuditor(sink, zap.NewNop()))

	_, err := interp.Interpret(context.Background(), &models.InterpretationRequest{Category: "grafologia"})
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedCategory)

	entries := sink.all()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "system", e.Actor)
	assert.Equal(t, models.StateFailed, e.FinalState)
	assert.Equal(t, models.AuditStatusFailure, e.Status)
	assert.Equal(t, "unsupported_category", e.ErrorKind)
	assert.Contains(t, e.ErrorMessage, "unsupported category")
}

func TestAuditor_SinkErrorIsSwallowed(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	sink := &memorySink{err: errors.New("disk full")}
	interp := WithAudit(stubInterpreter{result: &models.InterpretationResult{}}, NewAuditor(sink, zap.New(core)))

	_, err := interp.Interpret(context.Background(), &models.InterpretationRequest{Category: "wechsler"})
	require.NoError(t, err)
	assert.Len(t, sink.all(), 1)
	assert.Equal(t, 1, logs.FilterMessage("Failed to record audit entry").Len())
}

func TestAuditor_WritesAfterCancellation(t *testing.T) {
	var seen error
	sink := sinkFunc(func(ctx context.Context, e *models.AuditEntry) error {
		seen = ctx.Err()
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	NewAuditor(sink, zap.NewNop()).Record(ctx, "recommendations", "wechsler", time.Now(), AuditOutcome{Err: context.Canceled})
	assert.NoError(t, seen)
}

func TestLoggerSink(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sink := NewLoggerSink(zap.New(core))

	require.NoError(t, sink.Record(context.Background(), &models.AuditEntry{Operation: "interpretation", Status: models.AuditStatusSuccess}))
	require.NoError(t, sink.Record(context.Background(), &models.AuditEntry{
		Operation: "interpretation", Status: models.AuditStatusFailure, ErrorKind: "store_unavailable",
	}))

	entries := logs.FilterMessage("request audited").All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "store_unavailable", entries[1].ContextMap()["error_kind"])
}

func TestFanOutSink(t *testing.T) {
	failing := &memorySink{err: errors.New("db down")}
	ok := &memorySink{}

	err := FanOutSink{failing, ok}.Record(context.Background(), &models.AuditEntry{Operation: "interpretation"})
	assert.EqualError(t, err, "db down")
	assert.Len(t, failing.all(), 1)
	assert.Len(t, ok.all(), 1)
}

type sinkFunc func(ctx context.Context, e *models.AuditEntry) error

func (f sinkFunc) Record(ctx context.Context, e *models.AuditEntry) error {
	return f(ctx, e)
}
