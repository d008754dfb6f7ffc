package prompts

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/growth-engine/pkg/models"
)

// Similarity renders the dedup prompt. Every history item must get a zone.
func (r *Renderer) Similarity(in *models.SimilarityInput, saturation []models.ThemeSaturation) Prompt {
	var b strings.Builder

	b.WriteString("# Zonas proibidas e abordagens permitidas\n\n")
	fmt.Fprintf(&b, "Processe TODAS as %d sugestões anteriores abaixo, sem amostragem.\n\n", len(in.History))

	section(&b, "Histórico de sugestões")
	for i, h := range in.History {
		fmt.Fprintf(&b, "- id=%s | categoria=%s | %s", h.Key(i), h.Category, h.Title)
		if h.Description != "" {
			fmt.Fprintf(&b, " | %s", h.Description)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	section(&b, "Saturação de temas")
	var lines []string
	for _, s := range saturation {
		if s.Count > 0 {
			lines = append(lines, fmt.Sprintf("%s: %d vez(es), %s", s.Label, s.Count, s.Level))
		}
	}
	bullets(&b, lines, "nenhum tema usado")

	section(&b, "Tarefa")
	b.WriteString("Para cada sugestão, gere uma zona proibida com o tipo de solução, palavras-chave e pelo menos 3 variações parafraseadas que não podem ser repetidas.\n")
	b.WriteString("Para cada categoria presente no histórico, proponha pelo menos 2 abordagens ainda não exploradas, evitando temas frequentes ou bloqueados.\n\n")

	section(&b, "Formato da resposta")
	b.WriteString("```json\n")
	b.WriteString(`{
  "zones": [
    {"suggestion_id": "id do histórico", "solution_type": "fidelidade", "keywords": ["pontos"], "prohibited_variations": ["...", "...", "..."]}
  ],
  "allowed_approaches": {"customer": ["...", "..."]}
}`)
	b.WriteString("\n```\n")

	return Prompt{
		System: system("Você classifica sugestões já entregues para impedir repetições."),
		User:   b.String(),
	}
}
