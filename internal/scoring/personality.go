package scoring

import (
	"fmt"
	"strings"

	"psi-rag/pkg/apperrors"
)

const (
	tMean          = 50.0
	tSD            = 10.0
	elevatedCutoff = 65.0
	lowCutoff      = 35.0
	// Validity scales at or above this T score put the protocol in doubt.
	validityCutoff = 80.0
)

var personalityScales = map[string][]string{
	"MMPI-2": {
		"Hipocondria",
		"Depressão",
		"Histeria",
		"Desvio Psicopático",
		"Masculinidade/Feminilidade",
		"Paranóia",
		"Psicastenia",
		"Esquizofrenia",
		"Hipomania",
		"Introversão Social",
	},
	"NEO-PI-R": {
		"Neuroticismo",
		"Extroversão",
		"Abertura",
		"Agradabilidade",
		"Conscienciosidade",
	},
}

// PersonalityScorer scores self-report inventories as T scores (50 + 10·z).
// Scales default to norms of mean 50 and sd 10 unless the protocol carries
// its own "media" and "desvio_padrao".
type PersonalityScorer struct{}

func NewPersonalityScorer() *PersonalityScorer {
	return &PersonalityScorer{}
}

func (s *PersonalityScorer) Category() string { return "personality" }

func (s *PersonalityScorer) Instruments() []string {
	return []string{"MMPI-2", "NEO-PI-R"}
}

func (s *PersonalityScorer) ProcessRawData(instrument string, raw map[string]any) (*ProcessedData, error) {
	instrument, err := resolveInstrument(s, instrument)
	if err != nil {
		return nil, err
	}

	data := &ProcessedData{Instrument: instrument, Measures: make(map[string]Measure)}
	var missing []string
	for _, scale := range personalityScales[instrument] {
		v, ok := raw[scale]
		if !ok {
			missing = append(missing, scale)
			continue
		}
		m, err := rawMeasure(scale, v)
		if err != nil {
			return nil, err
		}
		data.Measures[scale] = m
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s is missing %s", apperrors.ErrInvalidInput, instrument, strings.Join(missing, ", "))
	}

	if validity, ok := raw["validacao"].(map[string]any); ok {
		data.Validity = make(map[string]float64, len(validity))
		for name, v := range validity {
			n, ok := toFloat(v)
			if !ok {
				return nil, fmt.Errorf("%w: validity scale %q must be numeric", apperrors.ErrInvalidInput, name)
			}
			data.Validity[name] = n
		}
	}
	if obs, ok := raw["observacoes"].(map[string]any); ok {
		data.Observations = obs
	}
	return data, nil
}

func (s *PersonalityScorer) ComputeScores(data *ProcessedData) (*Scores, error) {
	if len(data.Measures) == 0 {
		return nil, fmt.Errorf("%w: no scales to score", apperrors.ErrInvalidInput)
	}

	scores := &Scores{
		Instrument: data.Instrument,
		Measures:   make(map[string]float64, len(data.Measures)),
		Validity:   data.Validity,
	}
	for name, m := range data.Measures {
		mean, sd := tMean, tSD
		if m.SD > 0 {
			mean, sd = m.Mean, m.SD
		}
		scores.Measures[name] = round1(tMean + tSD*zScore(m.Raw, mean, sd))
	}
	return scores, nil
}

func (s *PersonalityScorer) Interpret(scores *Scores) (*Findings, error) {
	var elevated, low, recs []string
	for _, name := range sortedKeys(scores.Measures) {
		t := scores.Measures[name]
		switch {
		case t > elevatedCutoff:
			trait := "Elevado em " + name
			elevated = append(elevated, trait)
			recs = append(recs, "Considerar intervenções que aproveitem a característica de "+trait)
		case t < lowCutoff:
			point := "Baixo em " + name
			low = append(low, point)
			recs = append(recs, "Desenvolver estratégias para trabalhar "+point)
		}
	}

	return &Findings{
		Category:   s.Category(),
		Instrument: scores.Instrument,
		Fields: map[string]any{
			"test_type":                  scores.Instrument,
			"validade":                   validityVerdict(scores.Validity),
			"perfil_personalidade":       profileSummary(scores.Measures, len(elevated), len(low)),
			"caracteristicas_principais": orNone(elevated),
			"pontos_atencao":             orNone(low),
			"escalas":                    tScoreSummary(scores.Measures),
		},
		Recommendations: recs,
	}, nil
}

func (s *PersonalityScorer) RenderReport(f *Findings) string {
	return renderPersonalityReport(f)
}

// renderPersonalityReport is shared with the projective scorer, whose
// findings use the same fields.
func renderPersonalityReport(f *Findings) string {
	return renderSections(f.Instrument, [][2]string{
		{"Validade do Teste", fieldString(f, "validade")},
		{"Perfil de Personalidade", fieldString(f, "perfil_personalidade")},
		{"Características Principais", fieldList(f, "caracteristicas_principais")},
		{"Pontos de Atenção", fieldList(f, "pontos_atencao")},
		{"Recomendações", strings.Join(f.Recommendations, "\n")},
	})
}

func validityVerdict(validity map[string]float64) string {
	var flagged []string
	for _, name := range sortedKeys(validity) {
		if validity[name] >= validityCutoff {
			flagged = append(flagged, fmt.Sprintf("%s (T=%.0f)", name, validity[name]))
		}
	}
	if len(flagged) > 0 {
		return "Validade questionável: escalas de validade elevadas em " + strings.Join(flagged, ", ")
	}
	return "Resultados válidos"
}

func profileSummary(measures map[string]float64, elevated, low int) string {
	if elevated == 0 && low == 0 {
		return "Perfil dentro dos limites normativos em todas as escalas"
	}
	return fmt.Sprintf("%d de %d escalas fora dos limites normativos (%d elevadas, %d baixas)",
		elevated+low, len(measures), elevated, low)
}

func tScoreSummary(measures map[string]float64) []string {
	out := make([]string, 0, len(measures))
	for _, name := range sortedKeys(measures) {
		out = append(out, fmt.Sprintf("%s: T=%.1f", name, measures[name]))
	}
	return out
}
