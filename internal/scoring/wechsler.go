package scoring

import (
	"fmt"
	"strings"

	"psi-rag/pkg/apperrors"
)

const (
	scaledMean     = 10.0
	scaledSD       = 3.0
	compositeMean  = 100.0
	compositeSD    = 15.0
	strengthCutoff = 110.0
	weaknessCutoff = 90.0
	// A spread of one standard deviation between indices marks an uneven profile.
	heterogeneousSpread = 15.0
)

var wechslerIndices = map[string][]string{
	"WAIS-IV": {
		"Compreensão Verbal",
		"Raciocínio Perceptivo",
		"Memória de Trabalho",
		"Velocidade de Processamento",
	},
	"WISC-IV": {
		"Compreensão Verbal",
		"Raciocínio Perceptivo",
		"Memória de Trabalho",
		"Velocidade de Processamento",
	},
	"WPPSI-IV": {
		"Compreensão Verbal",
		"Raciocínio Visual",
		"Memória de Trabalho",
		"Velocidade de Processamento",
	},
}

// WechslerScorer scores the Wechsler intelligence scales. Raw values are
// scaled scores (mean 10, sd 3) per index; composites are 100 + 15·z.
type WechslerScorer struct{}

func NewWechslerScorer() *WechslerScorer {
	return &WechslerScorer{}
}

func (s *WechslerScorer) Category() string { return "wechsler" }

func (s *WechslerScorer) Instruments() []string {
	return []string{"WAIS-IV", "WISC-IV", "WPPSI-IV"}
}

func (s *WechslerScorer) ProcessRawData(instrument string, raw map[string]any) (*ProcessedData, error) {
	instrument, err := resolveInstrument(s, instrument)
	if err != nil {
		return nil, err
	}

	data := &ProcessedData{Instrument: instrument, Measures: make(map[string]Measure)}
	var missing []string
	for _, index := range wechslerIndices[instrument] {
		v, ok := raw[index]
		if !ok {
			missing = append(missing, index)
			continue
		}
		m, err := rawMeasure(index, v)
		if err != nil {
			return nil, err
		}
		data.Measures[index] = m
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s is missing %s", apperrors.ErrInvalidInput, instrument, strings.Join(missing, ", "))
	}
	if obs, ok := raw["observacoes"].(map[string]any); ok {
		data.Observations = obs
	}
	return data, nil
}

func (s *WechslerScorer) ComputeScores(data *ProcessedData) (*Scores, error) {
	if len(data.Measures) == 0 {
		return nil, fmt.Errorf("%w: no indices to score", apperrors.ErrInvalidInput)
	}

	scores := &Scores{Instrument: data.Instrument, Measures: make(map[string]float64, len(data.Measures))}
	var sum float64
	for name, m := range data.Measures {
		mean, sd := scaledMean, scaledSD
		if m.SD > 0 {
			mean, sd = m.Mean, m.SD
		}
		composite := round1(compositeMean + compositeSD*zScore(m.Raw, mean, sd))
		scores.Measures[name] = composite
		sum += composite
	}
	scores.Total = round1(sum / float64(len(scores.Measures)))
	return scores, nil
}

func (s *WechslerScorer) Interpret(scores *Scores) (*Findings, error) {
	var strengths, weaknesses, recs []string
	lowest, highest := 0.0, 0.0
	for i, name := range sortedKeys(scores.Measures) {
		v := scores.Measures[name]
		if i == 0 || v < lowest {
			lowest = v
		}
		if i == 0 || v > highest {
			highest = v
		}
		switch {
		case v > strengthCutoff:
			strengths = append(strengths, name)
			recs = append(recs, "Utilizar estratégias que aproveitem a força em "+name)
		case v < weaknessCutoff:
			weaknesses = append(weaknesses, name)
			recs = append(recs, "Desenvolver estratégias de compensação para "+name)
		}
	}

	profile := fmt.Sprintf("Perfil homogêneo (QI total estimado %.1f)", scores.Total)
	if spread := highest - lowest; spread >= heterogeneousSpread {
		profile = fmt.Sprintf("Perfil heterogêneo: discrepância de %.1f pontos entre índices (QI total estimado %.1f, interpretar com cautela)", spread, scores.Total)
	}

	return &Findings{
		Category:   s.Category(),
		Instrument: scores.Instrument,
		Fields: map[string]any{
			"test_type":         scores.Instrument,
			"nivel_intelectual": IntellectualLevel(scores.Total),
			"perfil_cognitivo":  profile,
			"pontos_fortes":     orNone(strengths),
			"pontos_fracos":     orNone(weaknesses),
			"escore_total":      scores.Total,
			"indices":           indexSummary(scores.Measures),
		},
		Recommendations: recs,
	}, nil
}

func (s *WechslerScorer) RenderReport(f *Findings) string {
	return renderSections("Wechsler "+f.Instrument, [][2]string{
		{"Nível Intelectual", fieldString(f, "nivel_intelectual")},
		{"Perfil Cognitivo", fieldString(f, "perfil_cognitivo")},
		{"Pontos Fortes", fieldList(f, "pontos_fortes")},
		{"Pontos de Atenção", fieldList(f, "pontos_fracos")},
		{"Recomendações", strings.Join(f.Recommendations, "\n")},
	})
}

// IntellectualLevel classifies a composite score.
func IntellectualLevel(total float64) string {
	switch {
	case total >= 130:
		return "Superior"
	case total >= 120:
		return "Acima da Média"
	case total >= 110:
		return "Média Superior"
	case total >= 90:
		return "Média"
	case total >= 80:
		return "Média Inferior"
	case total >= 70:
		return "Abaixo da Média"
	default:
		return "Inferior"
	}
}

func indexSummary(measures map[string]float64) []string {
	out := make([]string, 0, len(measures))
	for _, name := range sortedKeys(measures) {
		out = append(out, fmt.Sprintf("%s: %.1f", name, measures[name]))
	}
	return out
}
