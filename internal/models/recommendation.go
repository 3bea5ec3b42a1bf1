package models

import (
	"time"

	"github.com/google/uuid"
)

// Report is the full assessment output: scorer results, the narrative
// interpretation and the personalised recommendations.
type Report struct {
	ID              uuid.UUID             `db:"id" json:"id"`
	Category        string                `db:"category" json:"category"`
	Instrument      string                `db:"instrument" json:"instrument"`
	Scores          map[string]any        `db:"scores" json:"scores"`
	Findings        map[string]any        `db:"findings" json:"findings"`
	ScorerReport    string                `db:"scorer_report" json:"scorer_report"`
	Interpretation  *InterpretationResult `db:"interpretation" json:"interpretation"`
	Recommendations []string              `db:"recommendations" json:"recommendations"`
	RawData         map[string]any        `db:"raw_data" json:"raw_data"`
	CreatedAt       time.Time             `db:"created_at" json:"created_at"`
}

// IngestStats counts the records of one corpus file that reached the vector store.
type IngestStats struct {
	File      string `json:"file"`
	Total     int    `json:"total"`
	Processed int    `json:"processed"`
	Error     string `json:"error,omitempty"`
}

// SuccessRate is Processed/Total in percent, 0 for an empty file.
func (s IngestStats) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Processed) / float64(s.Total) * 100
}
