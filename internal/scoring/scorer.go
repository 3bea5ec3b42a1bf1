package scoring

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"psi-rag/pkg/apperrors"
)

// Measure is one scored unit of a protocol: a subtest, a scale or a card.
type Measure struct {
	Raw          float64  `json:"raw"`
	Mean         float64  `json:"mean,omitempty"`
	SD           float64  `json:"sd,omitempty"`
	Time         float64  `json:"time,omitempty"`
	Notes        string   `json:"notes,omitempty"`
	Responses    int      `json:"responses,omitempty"`
	Determinants []string `json:"determinants,omitempty"`
}

// ProcessedData is the validated form of a raw protocol.
type ProcessedData struct {
	Instrument   string             `json:"instrument"`
	Measures     map[string]Measure `json:"measures"`
	Validity     map[string]float64 `json:"validity,omitempty"`
	Observations map[string]any     `json:"observations,omitempty"`
}

// Scores holds the normed scores of a protocol. Measures are keyed like
// ProcessedData.Measures; Indices are derived summaries.
type Scores struct {
	Instrument string             `json:"instrument"`
	Measures   map[string]float64 `json:"measures"`
	Indices    map[string]float64 `json:"indices,omitempty"`
	Total      float64            `json:"total,omitempty"`
	Validity   map[string]float64 `json:"validity,omitempty"`
}

// Findings is the clinical reading of the scores. Fields carries the values
// the category prompt template expects.
type Findings struct {
	Category        string         `json:"category"`
	Instrument      string         `json:"instrument"`
	Fields          map[string]any `json:"fields"`
	Recommendations []string       `json:"recommendations"`
}

// Scorer turns the raw protocol of one test family into findings.
type Scorer interface {
	Category() string
	Instruments() []string
	ProcessRawData(instrument string, raw map[string]any) (*ProcessedData, error)
	ComputeScores(data *ProcessedData) (*Scores, error)
	Interpret(scores *Scores) (*Findings, error)
	RenderReport(findings *Findings) string
}

// Result is the output of a complete scoring run.
type Result struct {
	Category    string    `json:"category"`
	Instrument  string    `json:"instrument"`
	Scores      *Scores   `json:"scores"`
	Findings    *Findings `json:"findings"`
	Report      string    `json:"report"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Run executes every stage of s in order.
func Run(s Scorer, instrument string, raw map[string]any) (*Result, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty raw data", apperrors.ErrInvalidInput)
	}

	data, err := s.ProcessRawData(instrument, raw)
	if err != nil {
		return nil, err
	}
	scores, err := s.ComputeScores(data)
	if err != nil {
		return nil, err
	}
	findings, err := s.Interpret(scores)
	if err != nil {
		return nil, err
	}

	return &Result{
		Category:    s.Category(),
		Instrument:  data.Instrument,
		Scores:      scores,
		Findings:    findings,
		Report:      s.RenderReport(findings),
		ProcessedAt: time.Now().UTC(),
	}, nil
}

// Registry maps test categories to scorers.
type Registry struct {
	mu      sync.RWMutex
	scorers map[string]Scorer
}

func NewRegistry() *Registry {
	return &Registry{scorers: make(map[string]Scorer)}
}

// DefaultRegistry holds the wechsler, personality and projective scorers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewWechslerScorer())
	r.Register(NewPersonalityScorer())
	r.Register(NewProjectiveScorer())
	return r
}

func (r *Registry) Register(s Scorer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scorers[strings.ToLower(s.Category())] = s
}

func (r *Registry) Get(category string) (Scorer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scorers[strings.ToLower(category)]
	if !ok {
		return nil, fmt.Errorf("%w: no scorer for %q", apperrors.ErrUnsupportedCategory, category)
	}
	return s, nil
}

func (r *Registry) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.scorers))
	for c := range r.scorers {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// resolveInstrument picks the requested instrument, or the first supported
// one when none is given.
func resolveInstrument(s Scorer, instrument string) (string, error) {
	supported := s.Instruments()
	if instrument == "" {
		return supported[0], nil
	}
	for _, name := range supported {
		if strings.EqualFold(name, instrument) {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: %s does not support instrument %q (supported: %s)",
		apperrors.ErrInvalidInput, s.Category(), instrument, strings.Join(supported, ", "))
}

// rawMeasure reads one protocol entry. It accepts a bare number or an object
// with "escore_bruto" and optional "media", "desvio_padrao", "tempo" and
// "observacoes".
func rawMeasure(name string, v any) (Measure, error) {
	if n, ok := toFloat(v); ok {
		return Measure{Raw: n}, nil
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return Measure{}, fmt.Errorf("%w: %q must be a number or an object", apperrors.ErrInvalidInput, name)
	}
	raw, ok := toFloat(obj["escore_bruto"])
	if !ok {
		return Measure{}, fmt.Errorf("%w: %q has no numeric escore_bruto", apperrors.ErrInvalidInput, name)
	}

	m := Measure{Raw: raw}
	m.Mean, _ = toFloat(obj["media"])
	m.SD, _ = toFloat(obj["desvio_padrao"])
	m.Time, _ = toFloat(obj["tempo"])
	m.Notes, _ = obj["observacoes"].(string)
	return m, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toStrings(v any) []string {
	switch items := v.(type) {
	case []string:
		return items
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if items == "" {
			return nil
		}
		return []string{items}
	default:
		return nil
	}
}

// zScore standardises x against mean and sd. A non-positive sd yields 0.
func zScore(x, mean, sd float64) float64 {
	if sd <= 0 {
		return 0
	}
	return (x - mean) / sd
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// orNone keeps empty lists readable in prompts and reports.
func orNone(items []string) []string {
	if len(items) == 0 {
		return []string{"Nenhum identificado"}
	}
	return items
}

// renderSections writes the numbered plain-text report shared by all scorers.
func renderSections(title string, sections [][2]string) string {
	var b strings.Builder
	b.WriteString("RELATÓRIO DE AVALIAÇÃO - " + title + "\n")
	for i, s := range sections {
		fmt.Fprintf(&b, "\n%d. %s\n%s\n", i+1, s[0], s[1])
	}
	return b.String()
}

func fieldList(f *Findings, key string) string {
	return strings.Join(toStrings(f.Fields[key]), ", ")
}

func fieldString(f *Findings, key string) string {
	s, _ := f.Fields[key].(string)
	return s
}
