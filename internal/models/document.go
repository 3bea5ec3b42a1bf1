package models

import (
	"fmt"
	"time"
)

const notAvailable = "N/A"

// Document is one knowledge record of the corpus. ID is unique across the corpus
// and re-ingesting the same ID replaces the stored record.
type Document struct {
	ID        string         `json:"id"`
	Category  string         `json:"category"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	Embedding []float32      `json:"embedding,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Source returns the citation source kept in metadata ("source" or "fonte").
func (d *Document) Source() string {
	return d.metadataString("source", "fonte")
}

// Year returns the citation year kept in metadata ("year" or "ano").
func (d *Document) Year() string {
	return d.metadataString("year", "ano")
}

func (d *Document) metadataString(keys ...string) string {
	for _, key := range keys {
		v, ok := d.Metadata[key]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case string:
			if val != "" {
				return val
			}
		case float64:
			return fmt.Sprintf("%g", val)
		default:
			return fmt.Sprintf("%v", val)
		}
	}
	return notAvailable
}

// Clone returns a copy that shares no slices or maps with d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := *d
	if d.Metadata != nil {
		out.Metadata = make(map[string]any, len(d.Metadata))
		for k, v := range d.Metadata {
			out.Metadata[k] = v
		}
	}
	if d.Embedding != nil {
		out.Embedding = make([]float32, len(d.Embedding))
		copy(out.Embedding, d.Embedding)
	}
	return &out
}
