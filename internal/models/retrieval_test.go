package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doc(id string) *Document {
	return &Document{ID: id, Category: "ansiedade", Content: "conteudo " + id}
}

func TestMergeResults(t *testing.T) {
	t.Run("dedupes overlapping hits and sorts by score", func(t *testing.T) {
		ansiedade := RetrievalResult{
			{Document: doc("a"), Score: 0.91},
			{Document: doc("b"), Score: 0.80},
			{Document: doc("c"), Score: 0.72},
		}
		depressao := RetrievalResult{
			{Document: doc("b"), Score: 0.88},
			{Document: doc("d"), Score: 0.85},
			{Document: doc("a"), Score: 0.70},
		}

		merged := MergeResults(ansiedade, depressao)

		require.Len(t, merged, 4)
		ids := make([]string, 0, len(merged))
		for _, sd := range merged {
			ids = append(ids, sd.Document.ID)
		}
		assert.Equal(t, []string{"a", "b", "d", "c"}, ids)
		assert.InDelta(t, 0.88, merged[1].Score, 1e-9, "best score wins for a repeated id")
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, MergeResults())
		assert.Empty(t, MergeResults(nil, RetrievalResult{}))
	})
}

func TestDocumentCitation(t *testing.T) {
	d := &Document{Metadata: map[string]any{"fonte": "Manual WAIS-IV", "ano": float64(2008)}}
	assert.Equal(t, "Manual WAIS-IV", d.Source())
	assert.Equal(t, "2008", d.Year())

	empty := &Document{}
	assert.Equal(t, "N/A", empty.Source())
	assert.Equal(t, "N/A", empty.Year())
}

func TestDocumentClone(t *testing.T) {
	d := &Document{ID: "x", Metadata: map[string]any{"k": "v"}, Embedding: []float32{1, 2}}
	c := d.Clone()
	c.Metadata["k"] = "changed"
	c.Embedding[0] = 9

	assert.Equal(t, "v", d.Metadata["k"])
	assert.Equal(t, float32(1), d.Embedding[0])
}
