package service

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"psi-rag/pkg/apperrors"

	"gopkg.in/yaml.v3"
)

var placeholderRe = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// PromptTemplate is the static prompt of one test category. Temperature and
// MaxTokens override the model defaults when set. KnowledgeCategory names the
// corpus category searched for this test category.
type PromptTemplate struct {
	Category          string   `yaml:"-"`
	Text              string   `yaml:"template"`
	KnowledgeCategory string   `yaml:"knowledge_category"`
	Temperature       *float64 `yaml:"temperature"`
	MaxTokens         *int     `yaml:"max_tokens"`
}

// Placeholders lists the field names the template references, in order of
// first use.
func (t PromptTemplate) Placeholders() []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range placeholderRe.FindAllStringSubmatch(t.Text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

type PromptRegistry struct {
	mu        sync.RWMutex
	templates map[string]PromptTemplate
}

func NewPromptRegistry() *PromptRegistry {
	r := &PromptRegistry{templates: make(map[string]PromptTemplate)}
	for _, t := range defaultTemplates() {
		r.Register(t)
	}
	return r
}

func (r *PromptRegistry) Register(t PromptTemplate) {
	if t.KnowledgeCategory == "" {
		t.KnowledgeCategory = t.Category
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[t.Category] = t
}

func (r *PromptRegistry) Has(category string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.templates[category]
	return ok
}

func (r *PromptRegistry) Get(category string) (PromptTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[category]
	if !ok {
		return PromptTemplate{}, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedCategory, category)
	}
	return t, nil
}

func (r *PromptRegistry) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	categories := make([]string, 0, len(r.templates))
	for c := range r.templates {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	return categories
}

// Render substitutes every {name} placeholder of the category template with
// fields[name]. A placeholder without a value fails with ErrMissingField.
func (r *PromptRegistry) Render(category string, fields map[string]any) (string, error) {
	t, err := r.Get(category)
	if err != nil {
		return "", err
	}

	for _, name := range t.Placeholders() {
		if v, ok := fields[name]; !ok || v == nil {
			return "", fmt.Errorf("%w: %s requires %q", apperrors.ErrMissingField, category, name)
		}
	}

	return placeholderRe.ReplaceAllStringFunc(t.Text, func(m string) string {
		return FormatValue(fields[m[1:len(m)-1]])
	}), nil
}

// LoadFile merges templates from a YAML file keyed by category. Entries
// replace the built-in template of the same category.
func (r *PromptRegistry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read prompt templates: %w", err)
	}

	var file map[string]PromptTemplate
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse prompt templates: %w", err)
	}

	for category, t := range file {
		if strings.TrimSpace(t.Text) == "" {
			return fmt.Errorf("prompt template %q has no text", category)
		}
		t.Category = category
		if old, err := r.Get(category); err == nil && t.KnowledgeCategory == "" {
			t.KnowledgeCategory = old.KnowledgeCategory
		}
		r.Register(t)
	}
	return nil
}

// FormatValue renders a field value for a prompt. Lists are comma separated
// and maps are written as JSON.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case []string:
		return strings.Join(val, ", ")
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, FormatValue(item))
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		data, err := marshalNoEscape(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return data
	default:
		return fmt.Sprintf("%v", val)
	}
}

func marshalNoEscape(v any) (string, error) {
	var sb strings.Builder
	enc := json.NewEncoder(&sb)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func defaultTemplates() []PromptTemplate {
	return []PromptTemplate{
		{
			Category:          "wechsler",
			KnowledgeCategory: "wechsler",
			Text: `Analise os seguintes resultados do teste de inteligência {test_type}:

Nível Intelectual: {nivel_intelectual}
Perfil Cognitivo: {perfil_cognitivo}
Pontos Fortes: {pontos_fortes}
Pontos de Atenção: {pontos_fracos}

Forneça uma interpretação detalhada considerando:
1. Capacidades cognitivas gerais
2. Forças e limitações específicas
3. Implicações para o desenvolvimento/acadêmico
4. Recomendações para intervenção`,
		},
		{
			Category:          "personality",
			KnowledgeCategory: "personalidade",
			Text: `Analise os seguintes resultados do teste de personalidade {test_type}:

Validade: {validade}
Perfil de Personalidade: {perfil_personalidade}
Características Principais: {caracteristicas_principais}
Pontos de Atenção: {pontos_atencao}

Forneça uma interpretação detalhada considerando:
1. Padrões de personalidade
2. Fatores de risco e proteção
3. Implicações para o funcionamento social
4. Recomendações para desenvolvimento pessoal`,
		},
		{
			Category:          "projective",
			KnowledgeCategory: "projetivo",
			Text: `Analise os seguintes resultados do teste projetivo {test_type}:

Validade: {validade}
Perfil de Personalidade: {perfil_personalidade}
Características Principais: {caracteristicas_principais}
Pontos de Atenção: {pontos_atencao}

Forneça uma interpretação detalhada considerando:
1. Dinâmicas psicológicas subjacentes
2. Padrões de funcionamento emocional
3. Implicações para o desenvolvimento
4. Recomendações para intervenção psicológica`,
		},
	}
}
