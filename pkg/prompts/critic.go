package prompts

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/growth-engine/pkg/locale"
	"github.com/ekaya-inc/growth-engine/pkg/models"
	"github.com/ekaya-inc/growth-engine/pkg/suggestions"
)

// CriticContext is everything the Critic prompt shows besides the stage
// input.
type CriticContext struct {
	Input    *models.CriticInput
	Facts    suggestions.FactSheet
	Platform []string
	// Targets is how many suggestions each tier keeps.
	Targets map[models.ImpactTier]int
	// Blocked lists the labels of themes with 3+ uses.
	Blocked []string
	// TargetAverage is the expected mean quality of a rigorous review;
	// MaxAverage is the ceiling above which scores are redone.
	TargetAverage float64
	MaxAverage    float64
	GoalCoverage  float64
}

// Critic renders the review prompt.
func (r *Renderer) Critic(c *CriticContext) Prompt {
	var b strings.Builder
	in := c.Input

	b.WriteString("# Revisão crítica das sugestões\n\n")
	writeFacts(&b, c.Facts)

	if in.Analysis != nil {
		section(&b, "Problemas prioritários")
		bullets(&b, in.Analysis.Priorities, "nenhum")
	}

	section(&b, "Temas bloqueados (rejeição automática)")
	bullets(&b, c.Blocked, "nenhum")

	section(&b, "Catálogo da plataforma")
	bullets(&b, c.Platform, "sem catálogo")

	section(&b, "Concorrentes")
	if len(in.Competitors) == 0 {
		b.WriteString("Nenhum dado de concorrente foi fornecido. Não cite concorrentes.\n\n")
	} else {
		writeJSON(&b, in.Competitors)
	}

	section(&b, "Sugestões candidatas")
	writeJSON(&b, in.Candidates)

	section(&b, "Protocolo (execute em ordem para cada sugestão)")
	b.WriteString("1. Números: compare cada número citado com os números verificáveis e corrija divergências.\n")
	b.WriteString("2. Originalidade: sugestão em tema bloqueado deve ser substituída.\n")
	b.WriteString("3. Especificidade: texto genérico que serviria para qualquer loja deve ser reescrito com dados da loja.\n")
	b.WriteString("4. Viabilidade: ações inviáveis na plataforma são rejeitadas.\n")
	b.WriteString("5. Impacto: complete base x taxa = resultado com dados reais.\n")
	b.WriteString("6. Alinhamento: itens de nível ALTA devem atacar um problema prioritário.\n")
	b.WriteString("7. Ações: cada passo precisa de what, how, expected_result e resources.\n\n")

	section(&b, "Seleção")
	for _, tier := range models.AllTiers {
		fmt.Fprintf(&b, "- %s: escolha as %d melhores\n", tierLabel(tier), c.Targets[tier])
	}
	if c.TargetAverage > 0 {
		fmt.Fprintf(&b, "\nNotas de qualidade de 0 a 10; uma revisão rigorosa fica com média perto de %s.", locale.FormatNumber(c.TargetAverage))
	}
	fmt.Fprintf(&b, "\nUma média de qualidade acima de %s indica revisão pouco rigorosa.\n", locale.FormatNumber(c.MaxAverage))
	if gap, ok := c.Facts.Gap(); ok && c.GoalCoverage > 0 {
		fmt.Fprintf(&b, "A soma dos resultados esperados em R$ deve cobrir ao menos %.0f%% do gap mensal de %s.\n",
			c.GoalCoverage*100, locale.FormatBRL(gap))
	}
	b.WriteString("\n")

	section(&b, "Formato da resposta")
	b.WriteString("Em selected, devolva as escolhidas em ordem de preferência, com o mesmo id e os campos corrigidos. ")
	b.WriteString("Em alternatives, proponha substitutas completas para as que falharem.\n\n")
	b.WriteString("```json\n{\"selected\": [")
	b.WriteString(suggestionSchema)
	b.WriteString("], \"alternatives\": [{\"replaces_id\": \"s2\", \"suggestion\": {}}]}\n```\n")

	return Prompt{
		System: system("Você é um revisor cético. Prefira rejeitar a aprovar sem evidência."),
		User:   b.String(),
	}
}
