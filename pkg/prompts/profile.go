package prompts

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/growth-engine/pkg/locale"
	"github.com/ekaya-inc/growth-engine/pkg/models"
	"github.com/ekaya-inc/growth-engine/pkg/profile"
)

// Profile renders the Profile Synthesizer prompt.
func (r *Renderer) Profile(in *models.ProfileInput, events []models.SeasonalEvent) Prompt {
	var b strings.Builder

	b.WriteString("# Perfil da loja\n\n")
	b.WriteString("Sintetize o perfil da loja abaixo a partir exclusivamente dos dados fornecidos.\n\n")

	writeStore(&b, in.Store)
	writeGoals(&b, in.Store)

	section(&b, "Sinais de maturidade digital")
	s := in.Store.Signals
	fmt.Fprintf(&b, "- Domínio próprio: %t\n", s.CustomDomain)
	fmt.Fprintf(&b, "- Apps instalados: %d\n", s.InstalledApps)
	fmt.Fprintf(&b, "- E-mail marketing: %t\n", s.EmailMarketing)
	fmt.Fprintf(&b, "- Canais sociais: %d\n", s.SocialChannels)
	fmt.Fprintf(&b, "- Avaliações habilitadas: %t\n", s.ReviewsEnabled)
	fmt.Fprintf(&b, "- Tráfego pago: %t\n\n", s.PaidTraffic)

	if in.Benchmarks != nil {
		section(&b, "Benchmarks do nicho")
		writeJSON(&b, in.Benchmarks.Figures())
	}

	section(&b, "Datas comerciais próximas")
	var lines []string
	for _, e := range events {
		lines = append(lines, fmt.Sprintf("%s em %s (%d dias)", e.Name, e.Date.Format("02/01/2006"), e.DaysAway))
	}
	bullets(&b, lines, "nenhuma data relevante nos próximos 90 dias")

	section(&b, "Critérios")
	fmt.Fprintf(&b, "- porte: micro (< R$ %s/mês), pequena (< R$ %s), media (< R$ %s), grande (acima); sem receita, \"indeterminado\".\n",
		locale.FormatNumber(profile.MicroRevenueLimit), locale.FormatNumber(profile.SmallRevenueLimit), locale.FormatNumber(profile.MediumRevenueLimit))
	fmt.Fprintf(&b, "- maturidade_digital: iniciante (< %d visitas/mês), intermediario (< %d), avancado (acima), ajustada pelos sinais acima.\n",
		profile.BeginnerVisitLimit, profile.IntermediateVisitLimit)
	b.WriteString("- diferenciais: somente com qualificador mensurável (quantidade, preço ou percentual). Adjetivos soltos como \"qualidade\" ou \"ótimo atendimento\" são proibidos.\n")
	b.WriteString("- Campos sem dados suficientes recebem \"indeterminado\".\n\n")

	section(&b, "Formato da resposta")
	b.WriteString("```json\n")
	b.WriteString(`{
  "perfil_loja": {
    "nicho": "...",
    "subnicho": "...",
    "porte": "micro | pequena | media | grande | indeterminado",
    "maturidade_digital": "iniciante | intermediario | avancado | indeterminado",
    "publico_alvo": "...",
    "posicionamento": "...",
    "diferenciais": ["frete grátis acima de R$ 199"],
    "sazonalidade": ["..."]
  },
  "contexto_analise": {
    "observacoes_iniciais": ["..."]
  }
}`)
	b.WriteString("\n```\n")

	return Prompt{
		System: system("Você é um analista de e-commerce que descreve lojas brasileiras com rigor factual."),
		User:   b.String(),
	}
}
