package service

import (
	"os"
	"path/filepath"
	"testing"

	"psi-rag/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wechslerFields() map[string]any {
	return map[string]any{
		"test_type":         "WAIS-IV",
		"nivel_intelectual": "Média",
		"perfil_cognitivo":  "Perfil homogêneo",
		"pontos_fortes":     []string{"Compreensão Verbal"},
		"pontos_fracos":     []any{"Memória de Trabalho", "Velocidade de Processamento"},
	}
}

func TestPromptRegistry_Defaults(t *testing.T) {
	r := NewPromptRegistry()
	assert.Equal(t, []string{"personality", "projective", "wechsler"}, r.Categories())

	tmpl, err := r.Get("personality")
	require.NoError(t, err)
	assert.Equal(t, "personalidade", tmpl.KnowledgeCategory)
	assert.Equal(t, []string{"test_type", "validade", "perfil_personalidade", "caracteristicas_principais", "pontos_atencao"}, tmpl.Placeholders())
}

func TestPromptRegistry_Render(t *testing.T) {
	r := NewPromptRegistry()

	t.Run("substitutes every field", func(t *testing.T) {
		prompt, err := r.Render("wechsler", wechslerFields())
		require.NoError(t, err)
		assert.Contains(t, prompt, "teste de inteligência WAIS-IV:")
		assert.Contains(t, prompt, "Pontos Fortes: Compreensão Verbal\n")
		assert.Contains(t, prompt, "Pontos de Atenção: Memória de Trabalho, Velocidade de Processamento\n")
		assert.NotContains(t, prompt, "{")
	})

	t.Run("missing field", func(t *testing.T) {
		fields := wechslerFields()
		delete(fields, "perfil_cognitivo")
		_, err := r.Render("wechsler", fields)
		assert.ErrorIs(t, err, apperrors.ErrMissingField)
		assert.Contains(t, err.Error(), "perfil_cognitivo")
	})

	t.Run("nil field", func(t *testing.T) {
		fields := wechslerFields()
		fields["test_type"] = nil
		_, err := r.Render("wechsler", fields)
		assert.ErrorIs(t, err, apperrors.ErrMissingField)
	})

	t.Run("unsupported category", func(t *testing.T) {
		_, err := r.Render("grafologia", wechslerFields())
		assert.ErrorIs(t, err, apperrors.ErrUnsupportedCategory)
	})
}

func TestPromptRegistry_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
wechsler:
  template: "Resumo {test_type}: {nivel_intelectual}"
  temperature: 0.2
  max_tokens: 800
atencao:
  template: "Atenção {test_type}"
`), 0o644))

	r := NewPromptRegistry()
	require.NoError(t, r.LoadFile(path))

	tmpl, err := r.Get("wechsler")
	require.NoError(t, err)
	assert.Equal(t, "wechsler", tmpl.KnowledgeCategory)
	require.NotNil(t, tmpl.Temperature)
	assert.Equal(t, 0.2, *tmpl.Temperature)
	require.NotNil(t, tmpl.MaxTokens)
	assert.Equal(t, 800, *tmpl.MaxTokens)

	prompt, err := r.Render("wechsler", map[string]any{"test_type": "WISC-IV", "nivel_intelectual": "Superior"})
	require.NoError(t, err)
	assert.Equal(t, "Resumo WISC-IV: Superior", prompt)

	assert.True(t, r.Has("atencao"))
	tmpl, _ = r.Get("atencao")
	assert.Equal(t, "atencao", tmpl.KnowledgeCategory)
}

func TestPromptRegistry_LoadFileErrors(t *testing.T) {
	dir := t.TempDir()
	r := NewPromptRegistry()

	assert.Error(t, r.LoadFile(filepath.Join(dir, "missing.yaml")))

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("wechsler:\n  temperature: 0.1\n"), 0o644))
	assert.Error(t, r.LoadFile(empty))

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("wechsler: [unclosed"), 0o644))
	assert.Error(t, r.LoadFile(broken))
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"Média", "Média"},
		{112.5, "112.5"},
		{float64(100), "100"},
		{7, "7"},
		{true, "true"},
		{[]string{"a", "b"}, "a, b"},
		{[]any{"a", 1.5}, "a, 1.5"},
		{map[string]any{"escala": "F<80"}, `{"escala":"F<80"}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatValue(tt.in))
	}
}
