package dto

type RecommendationRequest struct {
	Category string         `json:"category"`
	Results  map[string]any `json:"results"`
	Context  map[string]any `json:"context,omitempty"`
}

type RecommendationResponse struct {
	Category        string   `json:"category"`
	Recommendations []string `json:"recommendations"`
}
