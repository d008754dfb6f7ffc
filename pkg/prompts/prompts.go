// Package prompts renders the Portuguese prompt of every pipeline stage.
// Prompts only describe the task and the expected JSON; the rules that
// decide the result (scores, gating, verification) live in typed code and
// are re-applied to whatever the model answers.
package prompts

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ekaya-inc/growth-engine/pkg/locale"
	"github.com/ekaya-inc/growth-engine/pkg/models"
	"github.com/ekaya-inc/growth-engine/pkg/suggestions"
)

// Prompt is a rendered system + user message pair.
type Prompt struct {
	System string
	User   string
}

// Renderer builds stage prompts. It holds no state and is safe for
// concurrent use.
type Renderer struct{}

// NewRenderer returns the default renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// baseRules are appended to every system prompt.
const baseRules = `Regras obrigatórias:
- Responda SOMENTE com um objeto JSON válido, sem texto antes ou depois.
- Todo texto deve estar em português do Brasil. Nunca use palavras em inglês como "growing", "stable" ou "falling".
- Use apenas os dados fornecidos. Quando um dado não existir, escreva "indeterminado" ou null; nunca invente números.
- Valores monetários em reais (R$).`

func system(role string) string {
	return role + "\n\n" + baseRules
}

// writeJSON appends v as an indented JSON block.
func writeJSON(b *strings.Builder, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		data = []byte("null")
	}
	b.WriteString("```json\n")
	b.Write(data)
	b.WriteString("\n```\n\n")
}

func section(b *strings.Builder, title string) {
	fmt.Fprintf(b, "## %s\n\n", title)
}

func bullets(b *strings.Builder, items []string, empty string) {
	if len(items) == 0 {
		fmt.Fprintf(b, "- %s\n\n", empty)
		return
	}
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

func money(v *float64) string {
	if v == nil {
		return models.Undetermined
	}
	return locale.FormatBRL(*v)
}

func count(v *int) string {
	if v == nil {
		return models.Undetermined
	}
	return locale.FormatNumber(float64(*v))
}

func percent(v *float64) string {
	if v == nil {
		return models.Undetermined
	}
	return locale.FormatPercent(*v)
}

// writeStore renders store identity and raw statistics.
func writeStore(b *strings.Builder, s models.StoreInput) {
	section(b, "Loja")
	fmt.Fprintf(b, "- Nome: %s\n", s.Name)
	fmt.Fprintf(b, "- Plataforma: %s\n", s.Platform)
	fmt.Fprintf(b, "- Nicho: %s\n", s.Niche)
	if s.Subcategory != "" {
		fmt.Fprintf(b, "- Subcategoria: %s\n", s.Subcategory)
	}
	if s.URL != "" {
		fmt.Fprintf(b, "- URL: %s\n", s.URL)
	}
	st := s.Stats
	fmt.Fprintf(b, "- Receita mensal: %s\n", money(st.MonthlyRevenue))
	fmt.Fprintf(b, "- Pedidos mensais: %s\n", count(st.MonthlyOrders))
	fmt.Fprintf(b, "- Visitas mensais: %s\n", count(st.MonthlyVisits))
	fmt.Fprintf(b, "- Produtos ativos: %s\n", count(st.ActiveProducts))
	fmt.Fprintf(b, "- Clientes: %s\n", count(st.TotalCustomers))
	fmt.Fprintf(b, "- Taxa de recompra: %s\n", percent(st.RepeatCustomerRate))
	fmt.Fprintf(b, "- Meses de operação: %s\n", count(st.TenureMonths))
	if st.PriceRange != nil {
		fmt.Fprintf(b, "- Faixa de preço: %s a %s\n", locale.FormatBRL(st.PriceRange.Min), locale.FormatBRL(st.PriceRange.Max))
	}
	if len(st.TopProducts) > 0 {
		fmt.Fprintf(b, "- Produtos mais vendidos: %s\n", strings.Join(st.TopProducts, ", "))
	}
	b.WriteString("\n")
}

func writeGoals(b *strings.Builder, s models.StoreInput) {
	section(b, "Metas da loja")
	g := s.Goals
	fmt.Fprintf(b, "- Meta de receita mensal: %s\n", money(g.MonthlyRevenue))
	fmt.Fprintf(b, "- Meta de receita anual: %s\n", money(g.AnnualRevenue))
	fmt.Fprintf(b, "- Ticket alvo: %s\n", money(g.TargetTicket))
	fmt.Fprintf(b, "- Meta de visitas mensais: %s\n", count(g.MonthlyVisits))
	if gap := g.MonthlyGap(s.Stats.MonthlyRevenue); gap != nil {
		fmt.Fprintf(b, "- Gap mensal até a meta: %s\n", locale.FormatBRL(*gap))
	}
	b.WriteString("\n")
}

// writeFacts renders the fact sheet the model must cite from.
func writeFacts(b *strings.Builder, facts suggestions.FactSheet) {
	section(b, "Números verificáveis (cite pelo nome da métrica)")
	for _, key := range facts.Keys() {
		fmt.Fprintf(b, "- %s = %s\n", key, suggestions.Format(key, facts[key]))
	}
	b.WriteString("\n")
}

func writeProfile(b *strings.Builder, p *models.StoreProfile) {
	if p == nil {
		return
	}
	section(b, "Perfil da loja")
	writeJSON(b, p)
}

func tierLabel(t models.ImpactTier) string {
	switch t {
	case models.TierHigh:
		return "ALTA (estratégica)"
	case models.TierMedium:
		return "MÉDIA (tática)"
	}
	return "BAIXA (tática)"
}

func categoryList(cats []models.SuggestionCategory) string {
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = string(c)
	}
	return strings.Join(out, ", ")
}

func sortedCategories[V any](m map[models.SuggestionCategory]V) []models.SuggestionCategory {
	out := make([]models.SuggestionCategory, 0, len(m))
	for c := range m {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// suggestionSchema documents the suggestion object shared by the
// Strategist and the Critic.
const suggestionSchema = `{
  "id": "s1",
  "category": "growth",
  "tier": "high",
  "title": "título curto e específico",
  "problem": "problema com número real da loja, ex.: ticket médio de R$ 80,00 contra R$ 150,00 do nicho",
  "cited_metrics": [{"metric": "ticket_medio", "value": 80}],
  "action_steps": [
    {"what": "o que fazer", "how": "como fazer na plataforma", "expected_result": "resultado do passo", "time": "1 semana", "resources": "quem/ferramenta", "indicator": "como medir"}
  ],
  "expected_result": {"description": "receita adicional mensal", "value": 1200, "unit": "BRL"},
  "impact_calculation": {"base_metric": "receita_mensal", "base_value": 20000, "improvement_rate": 0.06, "projected_value": 1200},
  "data_source": "dado_direto | inferencia | boas_praticas",
  "implementation": {"type": "nativo | app | terceiro", "complexity": "baixa | media | alta", "cost": "gratuito"},
  "competitor_reference": "somente se houver dado de concorrente fornecido",
  "confidence": "alta | media | baixa",
  "addresses_problem": "chave do problema prioritário atendido, ex.: ticket"
}`
