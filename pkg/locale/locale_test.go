package locale

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFold(t *testing.T) {
	assert.Equal(t, "promocao relampago", Fold("Promoção Relâmpago"))
	assert.Equal(t, "estavel", Fold("ESTÁVEL"))
	assert.Equal(t, "", Fold(""))
}

func TestContainsTerm(t *testing.T) {
	tests := []struct {
		text string
		term string
		want bool
	}{
		{"Programa de Pontos para Clientes Recorrentes", "programa de pontos", true},
		{"Programa de Pontos para Clientes Recorrentes", "cliente recorrente", false},
		{"Programa de Pontos para Clientes Recorrentes", "clientes recorrentes", true},
		{"Kit presente", "kits", false},
		{"Monte kits promocionais", "kit", true},
		{"Frete grátis acima de R$ 199", "frete gratis", true},
		{"Quizz interativo", "quiz", false},
		{"anything", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.text+"/"+tt.term, func(t *testing.T) {
			assert.Equal(t, tt.want, ContainsTerm(tt.text, tt.term))
		})
	}
}

func TestFormatBRL(t *testing.T) {
	assert.Equal(t, "R$ 1.234,50", FormatBRL(1234.5))
	assert.Equal(t, "R$ 80,00", FormatBRL(80))
	assert.Equal(t, "12,5%", FormatPercent(12.5))
}

func TestReplaceNumbers_WholeTokensOnly(t *testing.T) {
	got := ReplaceNumbers("18% em 180 pedidos, 18 dias", func(_ string, v float64) (string, bool) {
		return "X", v == 18
	})
	assert.Equal(t, "X% em 180 pedidos, X dias", got)
}

func TestFormatLike(t *testing.T) {
	assert.Equal(t, "150,00", FormatLike("140,00", 150))
	assert.Equal(t, "12,5", FormatLike("18", 12.5))
	assert.Equal(t, "12", FormatLike("18", 12))
	assert.Equal(t, "1.500,50", FormatLike("1.234,56", 1500.5))
	assert.Equal(t, "1.500", FormatLike("1.200", 1500))
}

func TestExtractNumbers(t *testing.T) {
	got := ExtractNumbers("Ticket médio de R$ 80,00 contra R$ 1.500 do nicho e 18% de cancelamento")
	assert.Equal(t, []float64{80, 1500, 18}, got)

	assert.Equal(t, []float64{1234.56}, ExtractNumbers("valor 1234.56"))
	assert.Equal(t, []float64{10000.5}, ExtractNumbers("gap de R$ 10.000,50"))
	assert.Empty(t, ExtractNumbers("sem números aqui"))
}

func TestFindEnglish_TrendWords(t *testing.T) {
	var payload any
	require.NoError(t, json.Unmarshal([]byte(`{
		"tendencia": "stable",
		"descricao": "As vendas estão estáveis no período",
		"itens": ["Receita crescendo 12%", "sales are growing"]
	}`), &payload))

	violations := FindEnglish(payload)
	require.Len(t, violations, 2)
	assert.Equal(t, "$.itens[1]", violations[0].Path)
	assert.Equal(t, []string{"growing"}, violations[0].Words)
	assert.Equal(t, "$.tendencia", violations[1].Path)
}

func TestFindEnglish_Stopwords(t *testing.T) {
	assert.True(t, IsEnglish("Improve the checkout with your best offers"))
	assert.False(t, IsEnglish("Melhore o checkout com suas melhores ofertas"))
	// Short labels are not sentences.
	assert.False(t, IsEnglish("the end"))
}

func TestFindEnglish_SkipKeys(t *testing.T) {
	payload := map[string]any{
		"app_name": "The Loyalty App with Points",
		"url":      "https://example.com/the-and-with",
	}
	assert.Empty(t, FindEnglish(payload, "app_name"))
}
