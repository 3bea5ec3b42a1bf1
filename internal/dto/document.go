package dto

type AddDocumentRequest struct {
	ID       string         `json:"id"`
	Category string         `json:"category"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type DocumentResponse struct {
	ID        string         `json:"id"`
	Category  string         `json:"category"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt string         `json:"created_at,omitempty"`
}

// SearchRequest runs several free-text queries against one category and
// merges the hits.
type SearchRequest struct {
	Queries  []string `json:"queries"`
	Category string   `json:"category"`
	Limit    int      `json:"limit,omitempty"`
}

type SearchHit struct {
	Document DocumentResponse `json:"document"`
	Score    float64          `json:"score"`
}

type SearchResponse struct {
	Results []SearchHit `json:"results"`
}
