package models

import "time"

// PipelineState is a step of one interpretation request.
type PipelineState string

const (
	StateInitialized     PipelineState = "initialized"
	StateQueryBuilt      PipelineState = "query_built"
	StateRetrieved       PipelineState = "retrieved"
	StatePromptAssembled PipelineState = "prompt_assembled"
	StateModelCalled     PipelineState = "model_called"
	StateCompleted       PipelineState = "completed"
	StateFailed          PipelineState = "failed"
)

// IsTerminal reports whether no transition leaves s.
func (s PipelineState) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

type InterpretationRequest struct {
	Category   string         `json:"category"`
	RawResults map[string]any `json:"raw_results"`
	Context    map[string]any `json:"context,omitempty"`
}

type ModelParameters struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

type CitedSource struct {
	DocumentID     string  `json:"document_id"`
	ContentExcerpt string  `json:"content_excerpt"`
	Source         string  `json:"source"`
	Year           string  `json:"year"`
	Score          float64 `json:"score"`
}

type InterpretationResult struct {
	Category          string          `json:"category"`
	GeneratedAt       time.Time       `json:"generated_at"`
	NarrativeText     string          `json:"narrative_text"`
	ModelIdentifier   string          `json:"model_identifier"`
	Parameters        ModelParameters `json:"parameters"`
	CitedSources      []CitedSource   `json:"cited_sources"`
	RetrievalDegraded bool            `json:"retrieval_degraded"`
	Context           map[string]any  `json:"context,omitempty"`
}
