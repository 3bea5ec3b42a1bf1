package dto

import "psi-rag/internal/models"

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

// CategoriesResponse lists what each part of the pipeline accepts.
type CategoriesResponse struct {
	Interpretation []string `json:"interpretation"`
	Scoring        []string `json:"scoring"`
	Knowledge      []string `json:"knowledge"`
}

type ReportListResponse struct {
	Reports []*models.Report `json:"reports"`
	Limit   uint64           `json:"limit"`
	Offset  uint64           `json:"offset"`
}

type CacheClearedResponse struct {
	Cleared bool `json:"cleared"`
}
