package prompts

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/growth-engine/pkg/models"
)

// Analyst renders the Analyst prompt. The metrics, health score and fired
// anomaly rules are computed beforehand; the model only explains them.
func (r *Renderer) Analyst(in *models.AnalystInput, computed *models.AnalystResult) Prompt {
	var b strings.Builder

	b.WriteString("# Análise quantitativa do período\n\n")
	fmt.Fprintf(&b, "Nicho: %s. Período: %d dias.\n\n", in.Niche, in.Period.Days)
	writeProfile(&b, in.Profile)

	section(&b, "Métricas calculadas (null = dado ausente, não zero)")
	writeJSON(&b, computed.Metrics)

	section(&b, "Anomalias detectadas pelas regras")
	if len(computed.Anomalies) == 0 {
		b.WriteString("- nenhuma regra disparou; não liste anomalias\n\n")
	} else {
		writeJSON(&b, computed.Anomalies)
	}

	section(&b, "Qualidade dos dados")
	bullets(&b, computed.DataQuality.MissingMetrics, "todas as métricas disponíveis")

	section(&b, "Tarefa")
	b.WriteString("1. Para cada anomalia detectada, escreva uma descrição clara e, se possível, estime o impacto em R$. Não crie anomalias de outros tipos.\n")
	b.WriteString("2. Liste padrões identificados nos números (ex.: concentração de vendas, dependência de cupom).\n")
	b.WriteString("3. Recomende como obter as métricas ausentes.\n\n")

	section(&b, "Formato da resposta")
	b.WriteString("```json\n")
	b.WriteString(`{
  "anomalies": [{"tipo": "ruptura_estoque", "descricao": "...", "impacto_estimado": 1500}],
  "identified_patterns": ["..."],
  "data_quality": {"missing_metrics": ["..."], "recommendations": ["..."]}
}`)
	b.WriteString("\n```\n")

	return Prompt{
		System: system("Você é um analista quantitativo de e-commerce. Você explica números; não os recalcula."),
		User:   b.String(),
	}
}
