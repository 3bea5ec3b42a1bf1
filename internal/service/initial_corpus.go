package service

import "psi-rag/internal/models"

type seedDoc struct {
	id, content, source, author, relevance string
	year                                   int
}

var initialCorpus = map[string][]seedDoc{
	"wechsler": {
		{
			id:        "wechsler_001",
			content:   "A Escala Wechsler de Inteligência para Crianças (WISC) avalia o funcionamento intelectual de crianças entre 6 e 16 anos. O QI Total é derivado dos índices de Compreensão Verbal, Raciocínio Perceptual, Memória Operacional e Velocidade de Processamento. Escores entre 90 e 109 são considerados na média. Escores acima de 130 indicam capacidade intelectual muito superior, enquanto escores abaixo de 70 podem indicar deficiência intelectual, embora múltiplos fatores devam ser considerados para esse diagnóstico.",
			source:    "Manual técnico WISC-IV",
			author:    "David Wechsler",
			relevance: "alta",
			year:      2013,
		},
		{
			id:        "wechsler_002",
			content:   "O Índice de Compreensão Verbal (ICV) da escala Wechsler avalia a formação de conceitos verbais, raciocínio verbal e conhecimento adquirido. Escores baixos no ICV podem refletir dificuldades na compreensão verbal, vocabulário limitado ou baixa exposição a conteúdos educacionais. É importante considerar fatores culturais e educacionais na interpretação desses resultados, especialmente em contextos de vulnerabilidade socioeconômica.",
			source:    "Interpretação clínica das Escalas Wechsler",
			author:    "Silva, M.T.",
			relevance: "alta",
			year:      2019,
		},
		{
			id:        "wechsler_003",
			content:   "Discrepâncias de 15 pontos ou mais entre índices compostos indicam um perfil cognitivo heterogêneo. Nesses casos o QI Total pode não representar adequadamente o funcionamento intelectual, e a interpretação deve priorizar os índices. Diferenças entre Memória Operacional e Velocidade de Processamento são frequentes em quadros atencionais e devem ser investigadas com medidas complementares.",
			source:    "Avaliação intelectual: interpretação por índices",
			author:    "Flanagan, D.P. & Kaufman, A.S.",
			relevance: "alta",
			year:      2009,
		},
	},
	"personalidade": {
		{
			id:        "personalidade_001",
			content:   "O MMPI-2 (Inventário Multifásico de Personalidade Minnesota) é um dos instrumentos mais amplamente utilizados para avaliação de personalidade e psicopatologia. Contém escalas de validade que avaliam a abordagem do examinando ao teste. Elevações nas escalas clínicas podem sugerir diferentes configurações de personalidade ou condições psicopatológicas, mas devem ser interpretadas no contexto global da avaliação e história do indivíduo.",
			source:    "Manual do MMPI-2",
			author:    "Butcher, J.N.",
			relevance: "alta",
			year:      2003,
		},
		{
			id:        "personalidade_002",
			content:   "O Inventário de Personalidade NEO PI-R avalia os cinco grandes fatores de personalidade: Neuroticismo, Extroversão, Abertura, Amabilidade e Conscienciosidade. Cada fator é composto por seis facetas, permitindo uma avaliação abrangente e detalhada da personalidade normal. O instrumento é particularmente útil em contextos de orientação profissional, seleção de pessoal e compreensão de diferenças individuais em diversos contextos.",
			source:    "Manual técnico do NEO PI-R",
			author:    "Costa, P.T. & McCrae, R.R.",
			relevance: "alta",
			year:      2010,
		},
	},
	"atencao": {
		{
			id:        "atencao_001",
			content:   "O Teste D2 de Atenção Concentrada avalia a atenção seletiva e a capacidade de concentração. Fornece medidas de velocidade de processamento, precisão e consistência do desempenho. Escores baixos podem sugerir dificuldades atencionais, impulsividade ou problemas na capacidade de discriminação visual. É importante considerar fatores como ansiedade, fadiga e motivação na interpretação dos resultados.",
			source:    "Manual do Teste D2",
			author:    "Brickenkamp, R.",
			relevance: "alta",
			year:      2015,
		},
		{
			id:        "atencao_002",
			content:   "O TEACO-FF (Teste de Atenção Concentrada) avalia a capacidade de selecionar estímulos em meio a distratores, mantendo o foco por determinado período. Resultados abaixo da média podem indicar dificuldades em sustentar a atenção, comprometendo tarefas que exigem vigilância ou foco prolongado. Em avaliações para TDAH, este teste deve ser complementado por outras medidas e informações clínicas.",
			source:    "Manual do TEACO-FF",
			author:    "Rueda, F.J.M.",
			relevance: "media",
			year:      2018,
		},
	},
	"neuropsicologico": {
		{
			id:        "neuropsicologico_001",
			content:   "A avaliação neuropsicológica investiga a relação entre funcionamento cerebral e comportamento, examinando memória, atenção, linguagem, funções executivas e habilidades visuoespaciais. Os resultados devem ser comparados a normas ajustadas por idade e escolaridade, e interpretados à luz da história clínica, de exames complementares e da queixa principal.",
			source:    "Neuropsicologia: teoria e prática",
			author:    "Fuentes, D. et al.",
			relevance: "alta",
			year:      2014,
		},
		{
			id:        "neuropsicologico_002",
			content:   "Déficits em funções executivas, como planejamento, flexibilidade cognitiva e controle inibitório, afetam a autonomia nas atividades de vida diária mesmo quando o QI global está preservado. Instrumentos como o Teste Wisconsin de Classificação de Cartas e o Teste de Trilhas auxiliam na caracterização desses déficits.",
			source:    "Avaliação das funções executivas",
			author:    "Malloy-Diniz, L.F.",
			relevance: "media",
			year:      2018,
		},
	},
	"projetivo": {
		{
			id:        "projetivo_001",
			content:   "No Método de Rorschach, o número total de respostas (R) é um indicador de produtividade e engajamento na tarefa. Protocolos com poucas respostas limitam a confiabilidade das demais variáveis e podem refletir defensividade, enquanto protocolos muito extensos podem indicar dificuldade de autorregulação ou necessidade de desempenho.",
			source:    "Rorschach: sistema compreensivo",
			author:    "Exner, J.E.",
			relevance: "alta",
			year:      2003,
		},
		{
			id:        "projetivo_002",
			content:   "O Teste de Apercepção Temática (TAT) investiga necessidades, pressões ambientais e conflitos por meio de histórias construídas a partir de pranchas. A interpretação considera o herói da história, o tema principal e o desfecho, buscando padrões recorrentes entre as narrativas em vez de respostas isoladas.",
			source:    "Manual do TAT",
			author:    "Murray, H.A.",
			relevance: "alta",
			year:      2005,
		},
	},
	"desenvolvimento": {
		{
			id:        "desenvolvimento_001",
			content:   "A avaliação do desenvolvimento infantil considera marcos motores, cognitivos, de linguagem e socioemocionais esperados para cada faixa etária. Atrasos em mais de um domínio justificam encaminhamento para avaliação multiprofissional e intervenção precoce, que apresenta melhores resultados quando iniciada nos primeiros anos de vida.",
			source:    "Escalas Bayley de Desenvolvimento Infantil",
			author:    "Bayley, N.",
			relevance: "alta",
			year:      2006,
		},
	},
	"recomendacoes": {
		{
			id:        "recomendacoes_001",
			content:   "Recomendações em documentos psicológicos devem ser específicas, exequíveis e relacionadas aos achados da avaliação. Devem indicar o tipo de intervenção, a frequência sugerida e os profissionais envolvidos, evitando orientações genéricas. Acomodações escolares, como tempo adicional em provas e instruções segmentadas, são indicadas quando há prejuízo em velocidade de processamento ou memória operacional.",
			source:    "Guia de elaboração de documentos psicológicos",
			author:    "Conselho Federal de Psicologia",
			relevance: "alta",
			year:      2019,
		},
		{
			id:        "recomendacoes_002",
			content:   "O envolvimento da família no plano de intervenção aumenta a adesão e a generalização dos ganhos terapêuticos. Orientações aos pais devem traduzir os resultados em estratégias concretas para a rotina, e reavaliações periódicas permitem verificar a eficácia das intervenções propostas.",
			source:    "Intervenção psicológica baseada em evidências",
			author:    "Associação Brasileira de Psicologia",
			relevance: "media",
			year:      2020,
		},
	},
	"normativas": {
		{
			id:        "normativas_001",
			content:   "De acordo com a Resolução CFP nº 06/2019, os documentos psicológicos devem ser fundamentados na observância dos princípios e dispositivos do Código de Ética Profissional do Psicólogo. A linguagem deve ser precisa, clara, inteligível e concisa, ou seja, deve-se restringir pontualmente às informações que se fizerem necessárias. O texto deve ser escrito em narrativa descritiva e precisa, ilustrado com fundamentos teóricos, baseado em dados colhidos e analisados à luz de um instrumental técnico.",
			source:    "Resolução CFP nº 06/2019",
			author:    "Conselho Federal de Psicologia",
			relevance: "alta",
			year:      2019,
		},
		{
			id:        "normativas_002",
			content:   "O laudo psicológico deve conter no mínimo: 1) identificação; 2) descrição da demanda; 3) procedimento; 4) análise; 5) conclusão. Na conclusão do documento, deve constar o posicionamento profissional após a exposição dos resultados obtidos e das considerações realizadas, respondendo à demanda inicial. É facultado ao psicólogo acrescentar outros itens ao documento, desde que não prejudiquem a clareza e objetividade da comunicação.",
			source:    "Resolução CFP nº 06/2019",
			author:    "Conselho Federal de Psicologia",
			relevance: "alta",
			year:      2019,
		},
	},
	"etica": {
		{
			id:        "etica_001",
			content:   "O Código de Ética Profissional do Psicólogo estabelece que o profissional deve basear seu trabalho no respeito e na promoção da liberdade, dignidade, igualdade e integridade do ser humano, apoiado nos valores que embasam a Declaração Universal dos Direitos Humanos. O psicólogo deve atuar com responsabilidade social, analisando crítica e historicamente a realidade política, econômica, social e cultural.",
			source:    "Código de Ética Profissional do Psicólogo",
			author:    "Conselho Federal de Psicologia",
			relevance: "alta",
			year:      2005,
		},
		{
			id:        "etica_002",
			content:   "Na utilização de instrumentos e procedimentos de avaliação psicológica, o psicólogo deve considerar as limitações das técnicas, os padrões psicométricos e a validade dos instrumentos para os diferentes contextos e populações. É fundamental considerar aspectos culturais, sociais e econômicos na interpretação dos resultados, evitando generalizações indevidas e discriminações.",
			source:    "Código de Ética Profissional do Psicólogo",
			author:    "Conselho Federal de Psicologia",
			relevance: "alta",
			year:      2005,
		},
	},
}

// InitialCategories lists the starter corpus categories in seeding order.
func InitialCategories() []string {
	return []string{
		"wechsler",
		"personalidade",
		"atencao",
		"neuropsicologico",
		"projetivo",
		"desenvolvimento",
		"recomendacoes",
		"normativas",
		"etica",
	}
}

// InitialDocuments returns fresh copies of the starter documents of category.
func InitialDocuments(category string) []*models.Document {
	seeds := initialCorpus[category]
	docs := make([]*models.Document, 0, len(seeds))
	for _, s := range seeds {
		docs = append(docs, &models.Document{
			ID:       s.id,
			Category: category,
			Content:  s.content,
			Metadata: map[string]any{
				"source":    s.source,
				"year":      s.year,
				"author":    s.author,
				"relevance": s.relevance,
			},
		})
	}
	return docs
}
