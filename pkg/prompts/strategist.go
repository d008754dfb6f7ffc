package prompts

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/growth-engine/pkg/models"
	"github.com/ekaya-inc/growth-engine/pkg/suggestions"
)

// StrategistContext is everything the Strategist prompt shows besides the
// stage input.
type StrategistContext struct {
	Input    *models.StrategistInput
	Facts    suggestions.FactSheet
	Platform []string
	// Counts is how many suggestions to write per tier.
	Counts map[models.ImpactTier]int
	// Accepted and Dropped are set on a refill round.
	Accepted []models.Suggestion
	Dropped  []models.DroppedCandidate
}

// Strategist renders the slate generation prompt.
func (r *Renderer) Strategist(c *StrategistContext) Prompt {
	var b strings.Builder
	in := c.Input

	b.WriteString("# Sugestões de crescimento\n\n")
	writeStore(&b, in.Store)
	writeGoals(&b, in.Store)
	writeProfile(&b, in.Profile)
	writeFacts(&b, c.Facts)

	if in.Analysis != nil {
		section(&b, "Saúde e anomalias")
		h := in.Analysis.Metrics.Health
		if h.Score != nil {
			fmt.Fprintf(&b, "Health score %d (%s).\n\n", *h.Score, h.Classification)
		} else {
			b.WriteString("Health score indeterminado: faltam dados para ao menos um componente.\n\n")
		}
		var lines []string
		for _, a := range in.Analysis.Anomalies {
			lines = append(lines, fmt.Sprintf("[%s] %s", a.Severity, a.Description))
		}
		bullets(&b, lines, "nenhuma anomalia")
		section(&b, "Problemas prioritários (em ordem)")
		bullets(&b, in.Analysis.Priorities, "nenhum")
	}

	if in.Digest != nil {
		section(&b, "Histórico resumido")
		bullets(&b, in.Digest.HistoricalSummary, "sem histórico")
		section(&b, "Não repetir")
		bullets(&b, in.Digest.SuggestionsToAvoid, "nada")
		if in.Digest.SpecialContext != "" {
			fmt.Fprintf(&b, "Contexto especial: %s\n\n", in.Digest.SpecialContext)
		}
	}

	if in.Similarity != nil {
		section(&b, "Zonas proibidas")
		for _, z := range in.Similarity.Zones {
			fmt.Fprintf(&b, "- %s [%s/%s]: %s\n", z.Title, z.ProblemCategory, z.SolutionType, strings.Join(z.ProhibitedVariations, "; "))
		}
		b.WriteString("\n")
		if blocked := in.Similarity.BlockedThemes(); len(blocked) > 0 {
			fmt.Fprintf(&b, "Temas bloqueados (3+ usos): %s\n\n", strings.Join(blocked, ", "))
		}
		if len(in.Similarity.AllowedApproaches) > 0 {
			section(&b, "Abordagens permitidas por categoria")
			for _, cat := range sortedCategories(in.Similarity.AllowedApproaches) {
				fmt.Fprintf(&b, "- %s: %s\n", cat, strings.Join(in.Similarity.AllowedApproaches[cat], "; "))
			}
			b.WriteString("\nSe não houver ângulo realmente novo para uma categoria, use uma destas abordagens.\n\n")
		}
	}

	section(&b, "Catálogo da plataforma")
	bullets(&b, c.Platform, "sem catálogo; prefira recursos nativos")

	if in.Knowledge != nil && len(in.Knowledge.Strategies) > 0 {
		section(&b, "Estratégias de referência")
		for _, s := range in.Knowledge.Strategies {
			fmt.Fprintf(&b, "- [%s] %s: %s\n", s.Category, s.Title, s.Content)
		}
		b.WriteString("\n")
	}

	if len(in.Competitors) > 0 {
		section(&b, "Concorrentes (dados fornecidos)")
		writeJSON(&b, in.Competitors)
	}

	if len(c.Accepted) > 0 || len(c.Dropped) > 0 {
		section(&b, "Rodada de complemento")
		b.WriteString("Já aceitas (não repita):\n")
		for _, s := range c.Accepted {
			fmt.Fprintf(&b, "- %s\n", s.Title)
		}
		b.WriteString("Descartadas e motivo:\n")
		for _, d := range c.Dropped {
			fmt.Fprintf(&b, "- %s: %s\n", d.Title, d.Reason)
		}
		b.WriteString("\n")
	}

	section(&b, "Quantidades")
	for _, tier := range models.AllTiers {
		if n := c.Counts[tier]; n > 0 {
			fmt.Fprintf(&b, "- %s: %d sugestões\n", tierLabel(tier), n)
		}
	}
	b.WriteString("\n")

	section(&b, "Regras")
	fmt.Fprintf(&b, "- Nível ALTA aceita somente as categorias %s.\n", categoryList(models.StrategicCategories))
	fmt.Fprintf(&b, "- Categorias válidas: %s.\n", categoryList(models.AllCategories))
	b.WriteString("- O problema deve citar um número real da lista de números verificáveis, e cited_metrics deve nomear a métrica.\n")
	b.WriteString("- impact_calculation: base_value (métrica verificável) x improvement_rate = projected_value.\n")
	b.WriteString("- Nada que o catálogo marque como inviável; apps pagos com o preço real.\n")
	b.WriteString("- Sem dados suficientes para fundamentar uma sugestão, omita-a.\n\n")

	section(&b, "Formato da resposta")
	b.WriteString("```json\n{\"suggestions\": [")
	b.WriteString(suggestionSchema)
	b.WriteString("]}\n```\n")

	return Prompt{
		System: system("Você é um estrategista de crescimento para lojas virtuais brasileiras."),
		User:   b.String(),
	}
}
