package repository

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"psi-rag/internal/models"
	"psi-rag/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newCorpus(t *testing.T) *CorpusRepository {
	t.Helper()
	return NewCorpusRepository(t.TempDir(), zap.NewNop())
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCorpusRepository_Load(t *testing.T) {
	repo := newCorpus(t)

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(repo.Dir(), "wechsler.json")
		writeFile(t, path, `[
  {"id": "wais_001", "category": "wechsler", "content": "Índice de Compreensão Verbal", "metadata": {"fonte": "Manual WAIS-IV", "ano": 2008}},
  {"id": "wais_002", "category": "wechsler", "content": "Índice de Memória Operacional", "metadata": {}}
]`)

		docs, err := repo.Load(path)
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "wais_001", docs[0].ID)
		assert.Equal(t, "Manual WAIS-IV", docs[0].Source())
		assert.Equal(t, "2008", docs[0].Year())
	})

	t.Run("one bad record rejects the whole file", func(t *testing.T) {
		path := filepath.Join(repo.Dir(), "bad.json")
		writeFile(t, path, `[
  {"id": "ok", "category": "wechsler", "content": "x", "metadata": {}},
  {"id": "no_content", "category": "wechsler", "metadata": {}}
]`)

		docs, err := repo.Load(path)
		assert.Nil(t, docs)
		assert.ErrorIs(t, err, apperrors.ErrMalformedCorpus)
		assert.Contains(t, err.Error(), "missing content")
	})

	t.Run("missing metadata", func(t *testing.T) {
		path := filepath.Join(repo.Dir(), "nometa.json")
		writeFile(t, path, `[{"id": "a", "category": "wechsler", "content": "x"}]`)

		_, err := repo.Load(path)
		assert.ErrorIs(t, err, apperrors.ErrMalformedCorpus)
	})

	t.Run("not an array", func(t *testing.T) {
		path := filepath.Join(repo.Dir(), "object.json")
		writeFile(t, path, `{"id": "a"}`)

		_, err := repo.Load(path)
		assert.ErrorIs(t, err, apperrors.ErrMalformedCorpus)
	})

	t.Run("missing file is not malformed", func(t *testing.T) {
		_, err := repo.Load(filepath.Join(repo.Dir(), "absent.json"))
		require.Error(t, err)
		assert.NotErrorIs(t, err, apperrors.ErrMalformedCorpus)
	})
}

func TestCorpusRepository_UpsertToCategoryFile(t *testing.T) {
	repo := newCorpus(t)

	first := &models.Document{
		ID:       "tdah_001",
		Category: "Atencao Seletiva",
		Content:  "Déficit de atenção <seletiva> & sustentada",
		Metadata: map[string]any{"fonte": "DSM-5", "ano": 2013},
	}
	require.NoError(t, repo.UpsertToCategoryFile(first))

	path, err := repo.FileForCategory(first.Category)
	require.NoError(t, err)
	assert.Equal(t, "atencao_seletiva.json", filepath.Base(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Déficit de atenção <seletiva> & sustentada", "non-ASCII and HTML characters are kept")
	assert.Contains(t, string(raw), "\n  {\n    \"id\": \"tdah_001\"", "two-space indentation")

	t.Run("same id replaces the record", func(t *testing.T) {
		updated := first.Clone()
		updated.Content = "conteúdo revisado"
		require.NoError(t, repo.UpsertToCategoryFile(updated))

		docs, err := repo.Load(path)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "conteúdo revisado", docs[0].Content)
	})

	t.Run("new id is appended", func(t *testing.T) {
		second := &models.Document{ID: "tdah_002", Category: first.Category, Content: "outro", Metadata: map[string]any{}}
		require.NoError(t, repo.UpsertToCategoryFile(second))

		docs, err := repo.Load(path)
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "tdah_001", docs[0].ID)
		assert.Equal(t, "tdah_002", docs[1].ID)
	})

	t.Run("no temp files are left behind", func(t *testing.T) {
		entries, err := os.ReadDir(repo.Dir())
		require.NoError(t, err)
		for _, e := range entries {
			assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), e.Name())
		}
	})

	t.Run("path traversal in category", func(t *testing.T) {
		err := repo.UpsertToCategoryFile(&models.Document{ID: "x", Category: "../etc", Content: "x"})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestCorpusRepository_CreateCategoryFile(t *testing.T) {
	repo := newCorpus(t)
	docs := []*models.Document{{ID: "a", Category: "etica", Content: "sigilo", Metadata: map[string]any{}}}

	created, err := repo.CreateCategoryFile("etica", docs)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.CreateCategoryFile("etica", nil)
	require.NoError(t, err)
	assert.False(t, created, "existing file is kept")

	files, err := repo.CategoryFiles()
	require.NoError(t, err)
	require.Len(t, files, 1)

	loaded, err := repo.Load(files[0])
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "sigilo", loaded[0].Content)
}

func TestCorpusRepository_CategoryFilesSkipsHiddenFiles(t *testing.T) {
	repo := newCorpus(t)
	writeFile(t, filepath.Join(repo.Dir(), "wechsler.json"), `[]`)
	writeFile(t, filepath.Join(repo.Dir(), ".seed_cache.json"), `{"processed_files":{}}`)

	files, err := repo.CategoryFiles()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "wechsler.json", filepath.Base(files[0]))

	_, err = repo.FileForCategory(".seed_cache")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCorpusRepository_CreatedAtRoundTrip(t *testing.T) {
	repo := newCorpus(t)
	createdAt := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)

	require.NoError(t, repo.UpsertToCategoryFile(&models.Document{
		ID: "etica_001", Category: "etica", Content: "sigilo", Metadata: map[string]any{}, CreatedAt: createdAt,
	}))
	require.NoError(t, repo.UpsertToCategoryFile(&models.Document{
		ID: "etica_002", Category: "etica", Content: "consentimento", Metadata: map[string]any{},
	}))

	path, err := repo.FileForCategory("etica")
	require.NoError(t, err)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"created_at": "2024-03-05T14:30:00Z"`)
	assert.Equal(t, 1, strings.Count(string(raw), "created_at"), "unset creation time is omitted")

	docs, err := repo.Load(path)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.True(t, createdAt.Equal(docs[0].CreatedAt))
	assert.True(t, docs[1].CreatedAt.IsZero())
}
