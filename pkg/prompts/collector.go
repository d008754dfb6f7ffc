package prompts

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/growth-engine/pkg/models"
)

// Collector renders the history digest prompt.
func (r *Renderer) Collector(in *models.CollectorInput) Prompt {
	var b strings.Builder

	b.WriteString("# Resumo executivo do histórico\n\n")
	b.WriteString("Resuma o histórico de análises e sugestões da loja. Resuma somente o que está listado; não especule sobre resultados não registrados.\n\n")

	section(&b, "Loja")
	fmt.Fprintf(&b, "- Plataforma: %s\n", in.Store.Platform)
	fmt.Fprintf(&b, "- Nicho: %s\n", in.Store.Niche)
	fmt.Fprintf(&b, "- Meses de operação: %s\n\n", count(in.Store.Stats.TenureMonths))
	writeProfile(&b, in.Profile)

	section(&b, "Análises anteriores")
	var prior []string
	for _, a := range in.PriorAnalyses {
		score := models.Undetermined
		if a.HealthScore != nil {
			score = fmt.Sprintf("%d (%s)", *a.HealthScore, a.Classification)
		}
		line := fmt.Sprintf("%s: saúde %s, %d sugestões", a.CompletedAt.Format("02/01/2006"), score, a.SuggestionCount)
		if a.Summary != "" {
			line += " - " + a.Summary
		}
		prior = append(prior, line)
	}
	bullets(&b, prior, "nenhuma análise anterior")

	section(&b, "Sugestões anteriores e status")
	var history []string
	for _, h := range in.History {
		history = append(history, fmt.Sprintf("[%s] %s (%s)", h.Status, h.Title, h.Category))
	}
	bullets(&b, history, "nenhuma sugestão anterior")
	b.WriteString("Status accepted, in_progress e completed indicam sucesso; rejected indica rejeição; pending ainda não tem resultado.\n\n")

	if in.Knowledge != nil {
		if in.Knowledge.Benchmarks != nil {
			section(&b, "Benchmarks recuperados")
			writeJSON(&b, in.Knowledge.Benchmarks.Figures())
		}
		if len(in.Knowledge.MarketTrends) > 0 {
			section(&b, "Tendências do nicho")
			bullets(&b, in.Knowledge.MarketTrends, "")
		}
	}

	section(&b, "Formato da resposta")
	b.WriteString("```json\n")
	b.WriteString(`{
  "historical_summary": ["fatos do histórico"],
  "success_patterns": ["padrões das sugestões aceitas ou concluídas"],
  "suggestions_to_avoid": ["títulos rejeitados ou que não devem se repetir"],
  "relevant_benchmarks": {"ticket_medio": 150},
  "identified_gaps": ["lacunas ainda não trabalhadas"],
  "special_context": "contexto especial do período, ou string vazia"
}`)
	b.WriteString("\n```\n")
	b.WriteString("Em relevant_benchmarks use apenas chaves dos benchmarks recuperados.\n")

	return Prompt{
		System: system("Você é um analista que resume o histórico de consultoria de uma loja virtual."),
		User:   b.String(),
	}
}
