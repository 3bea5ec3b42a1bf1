package models

import (
	"time"

	"github.com/google/uuid"
)

type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailure AuditStatus = "failure"
)

// AuditEntry records the lifecycle of one interpretation request.
type AuditEntry struct {
	ID                uuid.UUID     `db:"id"`
	RequestID         string        `db:"request_id"`
	Actor             string        `db:"actor"`
	Operation         string        `db:"operation"`
	Category          string        `db:"category"`
	FinalState        PipelineState `db:"final_state"`
	Status            AuditStatus   `db:"status"`
	ErrorKind         string        `db:"error_kind"`
	ErrorMessage      string        `db:"error_message"`
	RetrievalDegraded bool          `db:"retrieval_degraded"`
	CitedSources      int           `db:"cited_sources"`
	Duration          time.Duration `db:"duration_ms"`
	ClientIP          string        `db:"client_ip"`
	UserAgent         string        `db:"user_agent"`
	CreatedAt         time.Time     `db:"created_at"`
}
