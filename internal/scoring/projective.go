package scoring

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"psi-rag/pkg/apperrors"
)

const (
	highIndex = 1.5
	lowIndex  = 0.5
	// Share of cards that must be answered for a usable protocol.
	minCoverage = 0.7
)

type projectiveNorms struct {
	cards        int
	meanResponse float64
	sdResponse   float64
	variety      float64
	latency      float64
}

var projectiveInstruments = map[string]projectiveNorms{
	"Rorschach": {cards: 10, meanResponse: 20, sdResponse: 5, variety: 5, latency: 20},
	"TAT":       {cards: 20, meanResponse: 10, sdResponse: 2, variety: 3, latency: 60},
}

// ProjectiveScorer scores card-based projective protocols. Each card entry
// holds the response content, optional determinants and reaction time.
// Indices are ratios against the instrument norms, so 1.0 is typical.
type ProjectiveScorer struct{}

func NewProjectiveScorer() *ProjectiveScorer {
	return &ProjectiveScorer{}
}

func (s *ProjectiveScorer) Category() string { return "projective" }

func (s *ProjectiveScorer) Instruments() []string {
	return []string{"Rorschach", "TAT"}
}

func (s *ProjectiveScorer) ProcessRawData(instrument string, raw map[string]any) (*ProcessedData, error) {
	instrument, err := resolveInstrument(s, instrument)
	if err != nil {
		return nil, err
	}
	norms := projectiveInstruments[instrument]

	data := &ProcessedData{Instrument: instrument, Measures: make(map[string]Measure)}
	for card := 1; card <= norms.cards; card++ {
		key := strconv.Itoa(card)
		v, ok := raw[key]
		if !ok {
			continue
		}
		m, err := cardMeasure(key, v)
		if err != nil {
			return nil, err
		}
		data.Measures[key] = m
	}

	if float64(len(data.Measures)) < float64(norms.cards)*minCoverage {
		return nil, fmt.Errorf("%w: %s protocol answers %d of %d cards",
			apperrors.ErrInvalidInput, instrument, len(data.Measures), norms.cards)
	}
	if obs, ok := raw["comportamento"].(map[string]any); ok {
		data.Observations = obs
	}
	return data, nil
}

func cardMeasure(card string, v any) (Measure, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return Measure{}, fmt.Errorf("%w: card %s must be an object", apperrors.ErrInvalidInput, card)
	}

	contents := toStrings(obj["conteudo"])
	if len(contents) == 0 {
		return Measure{}, fmt.Errorf("%w: card %s has no conteudo", apperrors.ErrInvalidInput, card)
	}

	m := Measure{
		Responses:    len(contents),
		Determinants: toStrings(obj["determinantes"]),
		Notes:        strings.Join(contents, "; "),
	}
	if n, ok := toFloat(obj["respostas"]); ok && n > 0 {
		m.Responses = int(n)
	}
	m.Time, _ = toFloat(obj["tempo"])
	m.Raw = float64(m.Responses)
	return m, nil
}

func (s *ProjectiveScorer) ComputeScores(data *ProcessedData) (*Scores, error) {
	norms, ok := projectiveInstruments[data.Instrument]
	if !ok {
		return nil, fmt.Errorf("%w: unknown instrument %q", apperrors.ErrInvalidInput, data.Instrument)
	}

	scores := &Scores{
		Instrument: data.Instrument,
		Measures:   make(map[string]float64, len(data.Measures)),
		Indices:    make(map[string]float64),
	}

	var responses int
	var totalTime float64
	var timed int
	determinants := make(map[string]bool)
	for card, m := range data.Measures {
		scores.Measures[card] = m.Raw
		responses += m.Responses
		if m.Time > 0 {
			totalTime += m.Time
			timed++
		}
		for _, d := range m.Determinants {
			determinants[strings.ToLower(d)] = true
		}
	}

	scores.Total = float64(responses)
	scores.Indices["Produtividade"] = round2(float64(responses) / norms.meanResponse)
	if len(determinants) > 0 {
		scores.Indices["Variedade de Determinantes"] = round2(float64(len(determinants)) / norms.variety)
	}
	if timed > 0 {
		scores.Indices["Latência Média"] = round2(totalTime / float64(timed) / norms.latency)
	}
	scores.Validity = map[string]float64{
		"cobertura":   round2(float64(len(data.Measures)) / float64(norms.cards)),
		"z_respostas": round2(zScore(float64(responses), norms.meanResponse, norms.sdResponse)),
	}
	return scores, nil
}

func (s *ProjectiveScorer) Interpret(scores *Scores) (*Findings, error) {
	var high, low, recs []string
	for _, name := range sortedKeys(scores.Indices) {
		v := scores.Indices[name]
		switch {
		case v > highIndex:
			trait := "Elevado em " + name
			high = append(high, trait)
			recs = append(recs, "Considerar intervenções que aproveitem a característica de "+trait)
		case v < lowIndex:
			point := "Baixo em " + name
			low = append(low, point)
			recs = append(recs, "Desenvolver estratégias para trabalhar "+point)
		}
	}

	validity := fmt.Sprintf("Resultados válidos (%.0f%% das lâminas respondidas)", scores.Validity["cobertura"]*100)
	if scores.Validity["z_respostas"] <= -2 {
		validity = fmt.Sprintf("Protocolo com produtividade reduzida (R=%.0f); validade interpretativa limitada", scores.Total)
	}

	return &Findings{
		Category:   s.Category(),
		Instrument: scores.Instrument,
		Fields: map[string]any{
			"test_type":                  scores.Instrument,
			"validade":                   validity,
			"perfil_personalidade":       indexProfile(scores),
			"caracteristicas_principais": orNone(high),
			"pontos_atencao":             orNone(low),
		},
		Recommendations: recs,
	}, nil
}

func (s *ProjectiveScorer) RenderReport(f *Findings) string {
	return renderPersonalityReport(f)
}

func indexProfile(scores *Scores) string {
	parts := []string{fmt.Sprintf("R=%.0f", scores.Total)}
	for _, name := range sortedKeys(scores.Indices) {
		parts = append(parts, fmt.Sprintf("%s %.2f", name, scores.Indices[name]))
	}
	return "Índices em relação à norma: " + strings.Join(parts, "; ")
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
