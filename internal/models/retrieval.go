package models

import "sort"

type RetrievalQuery struct {
	Category       string         `json:"category"`
	Context        map[string]any `json:"context"`
	TopK           int            `json:"top_k"`
	ScoreThreshold float64        `json:"score_threshold"`
}

type ScoredDocument struct {
	Document *Document `json:"document"`
	Score    float64   `json:"score"`
}

// RetrievalResult is ordered by descending score and holds each document ID once.
type RetrievalResult []ScoredDocument

// MergeResults combines several result lists into one, keeping the best score
// seen for each document ID, ordered by descending score.
func MergeResults(lists ...RetrievalResult) RetrievalResult {
	best := make(map[string]int)
	merged := RetrievalResult{}
	for _, list := range lists {
		for _, sd := range list {
			if sd.Document == nil {
				continue
			}
			if idx, ok := best[sd.Document.ID]; ok {
				if sd.Score > merged[idx].Score {
					merged[idx] = sd
				}
				continue
			}
			best[sd.Document.ID] = len(merged)
			merged = append(merged, sd)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	return merged
}

func (r RetrievalResult) Documents() []*Document {
	docs := make([]*Document, 0, len(r))
	for _, sd := range r {
		docs = append(docs, sd.Document)
	}
	return docs
}
