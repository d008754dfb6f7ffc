package similarity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/growth-engine/pkg/models"
	"github.com/ekaya-inc/growth-engine/pkg/themes"
)

func hist(cat models.SuggestionCategory, title, desc string) models.HistoricalSuggestion {
	return models.HistoricalSuggestion{
		ID:          uuid.New(),
		Category:    cat,
		Title:       title,
		Description: desc,
		Status:      models.SuggestionStatusPending,
	}
}

func loyaltyHistory() []models.HistoricalSuggestion {
	return []models.HistoricalSuggestion{
		hist(models.CategoryCustomer, "Criar programa de fidelidade", "Recompensar compras repetidas"),
		hist(models.CategoryMarketing, "Cashback na segunda compra", "Devolver 5% em crédito"),
		hist(models.CategoryCustomer, "Clube VIP para melhores clientes", "Benefícios exclusivos"),
	}
}

func TestTitleSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, TitleSimilarity("Frete Grátis", "frete gratis"))
	assert.Equal(t, 0.0, TitleSimilarity("", "qualquer"))
	assert.Greater(t, TitleSimilarity("Criar programa de fidelidade", "Criar programa de fidelização"), 0.7)
	assert.Less(t, TitleSimilarity("Criar programa de fidelidade", "Revisar fotos dos produtos"), 0.5)

	// Symmetric.
	a, b := "Kit presente dia das mães", "Kits de presente para o dia das mães"
	assert.Equal(t, TitleSimilarity(a, b), TitleSimilarity(b, a))
}

func TestChecker_IsDuplicate(t *testing.T) {
	c := NewChecker(themes.Default(), 0)
	assert.Equal(t, DefaultTitleThreshold, c.Threshold)

	sameKind := c.IsDuplicate(
		Fingerprint{Title: "Cashback progressivo", Category: models.CategoryCustomer, SolutionType: "fidelidade"},
		Fingerprint{Title: "Clube de vantagens", Category: models.CategoryCustomer, SolutionType: "fidelidade"},
	)
	assert.True(t, sameKind)

	otherCategory := c.IsDuplicate(
		Fingerprint{Title: "Cashback progressivo", Category: models.CategoryFinancial, SolutionType: "fidelidade"},
		Fingerprint{Title: "Clube de vantagens", Category: models.CategoryCustomer, SolutionType: "fidelidade"},
	)
	assert.False(t, otherCategory)

	similarTitle := c.IsDuplicate(
		Fingerprint{Title: "Ativar frete grátis acima de R$ 199", Category: models.CategoryPricing},
		Fingerprint{Title: "Ativar frete grátis acima de R$ 149", Category: models.CategoryConversion},
	)
	assert.True(t, similarTitle)

	// No theme on either side never matches on the pair alone.
	noTheme := c.IsDuplicate(
		Fingerprint{Title: "Revisar fotos", Category: models.CategoryProduct},
		Fingerprint{Title: "Melhorar descrições", Category: models.CategoryProduct},
	)
	assert.False(t, noTheme)
}

func TestChecker_SolutionType(t *testing.T) {
	c := NewChecker(themes.Default(), 0)
	assert.Equal(t, "fidelidade", c.SolutionType("Programa de Pontos para Clientes Recorrentes", ""))
	assert.Equal(t, "kits", c.SolutionType("Aumentar o ticket médio", "Montar kit e combo com os mais vendidos"))
	assert.Equal(t, "", c.SolutionType("Revisar fotos", "Trocar fundo das imagens"))
}

func TestComputeSaturation(t *testing.T) {
	reg := themes.Default()
	history := append(loyaltyHistory(),
		hist(models.CategoryConversion, "Frete grátis acima de R$ 199", ""),
		hist(models.CategoryConversion, "Frete grátis no Sul e Sudeste", ""),
		hist(models.CategoryMarketing, "Quiz de estilo", ""),
	)
	idx := SaturationIndex(ComputeSaturation(history, reg))

	assert.Equal(t, 3, idx["fidelidade"].Count)
	assert.Equal(t, models.SaturationBlocked, idx["fidelidade"].Level)
	assert.Equal(t, models.SaturationFrequent, idx["frete_gratis"].Level)
	assert.Equal(t, models.SaturationUsed, idx["quiz"].Level)
	assert.Equal(t, models.SaturationPreferred, idx["cross_sell"].Level)
	assert.Len(t, idx, len(reg.Keys()))
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, models.SaturationPreferred, LevelFor(0))
	assert.Equal(t, models.SaturationUsed, LevelFor(1))
	assert.Equal(t, models.SaturationFrequent, LevelFor(2))
	assert.Equal(t, models.SaturationBlocked, LevelFor(3))
	assert.Equal(t, models.SaturationBlocked, LevelFor(7))
}

func TestBlockedMatch_LoyaltyScenario(t *testing.T) {
	reg := themes.Default()
	saturation := ComputeSaturation(loyaltyHistory(), reg)

	candidate := models.Suggestion{Title: "Programa de Pontos para Clientes Recorrentes", Category: models.CategoryCustomer}
	for i := 0; i < 100; i++ {
		th, blocked := BlockedMatch(candidate, saturation, reg)
		require.True(t, blocked)
		require.Equal(t, "fidelidade", th.Theme)
	}

	fresh := models.Suggestion{Title: "Kits presenteáveis para o Natal", Category: models.CategoryProduct}
	_, blocked := BlockedMatch(fresh, saturation, reg)
	assert.False(t, blocked)
}

func TestCompleteZones_CoversWholeHistory(t *testing.T) {
	c := NewChecker(themes.Default(), 0)
	history := loyaltyHistory()
	proposed := []models.ProhibitedZone{{
		SuggestionID:         history[1].ID.String(),
		Title:                "ignored",
		SolutionType:         "cashback",
		ProhibitedVariations: []string{"Cashback em dobro"},
	}, {
		SuggestionID: uuid.NewString(),
		Title:        "not in history",
	}}

	zones := c.CompleteZones(history, proposed)
	require.Len(t, zones, len(history))
	for i, z := range zones {
		assert.Equal(t, history[i].ID.String(), z.SuggestionID)
		assert.Equal(t, history[i].Title, z.Title)
		assert.GreaterOrEqual(t, len(z.ProhibitedVariations), MinVariations)
		assert.NotEmpty(t, z.Keywords)
	}
	assert.Equal(t, "cashback", zones[1].SolutionType)
	assert.Equal(t, "Cashback em dobro", zones[1].ProhibitedVariations[0])
	assert.Equal(t, "fidelidade", zones[0].SolutionType)

	cov := Coverage(history, zones)
	assert.Equal(t, 3, cov.Total)
	assert.Equal(t, 3, cov.Processed)
	assert.Equal(t, 2, cov.ByCategory[models.CategoryCustomer].Processed)
}

func TestCompleteZones_KeysItemsWithoutIDByPosition(t *testing.T) {
	c := NewChecker(themes.Default(), 0)
	history := loyaltyHistory()
	for i := range history {
		history[i].ID = uuid.Nil
	}
	proposed := []models.ProhibitedZone{{
		SuggestionID:         "hist-2",
		SolutionType:         "cashback",
		ProhibitedVariations: []string{"Cashback em dobro"},
	}}

	zones := c.CompleteZones(history, proposed)
	require.Len(t, zones, len(history))
	assert.Equal(t, []string{"hist-1", "hist-2", "hist-3"},
		[]string{zones[0].SuggestionID, zones[1].SuggestionID, zones[2].SuggestionID})
	assert.Equal(t, "Cashback em dobro", zones[1].ProhibitedVariations[0])
	assert.NotEqual(t, "Cashback em dobro", zones[0].ProhibitedVariations[0])

	cov := Coverage(history, zones)
	assert.Equal(t, 3, cov.Processed)

	// A zone list missing one item must not count as full coverage.
	cov = Coverage(history, zones[:1])
	assert.Equal(t, 1, cov.Processed)
	assert.Equal(t, 1, cov.ByCategory[models.CategoryCustomer].Processed)
}

func TestDuplicateOf(t *testing.T) {
	c := NewChecker(themes.Default(), 0)
	zones := c.CompleteZones(loyaltyHistory(), nil)

	dup := c.DuplicateOf(models.Suggestion{
		Title:    "Programa de pontos",
		Category: models.CategoryCustomer,
	}, zones)
	require.NotNil(t, dup)
	assert.Equal(t, "Criar programa de fidelidade", dup.Title)

	assert.Nil(t, c.DuplicateOf(models.Suggestion{
		Title:    "Kits presenteáveis para o Natal",
		Category: models.CategoryProduct,
	}, zones))
}

func TestAllowedApproaches(t *testing.T) {
	reg := themes.Default()
	c := NewChecker(reg, 0)
	history := loyaltyHistory()
	saturation := ComputeSaturation(history, reg)

	proposed := map[models.SuggestionCategory][]string{
		models.CategoryCustomer: {"Cashback turbinado", "Pesquisa de satisfação pós-compra"},
	}
	got := c.AllowedApproaches(history, saturation, proposed)

	require.Contains(t, got, models.CategoryCustomer)
	require.Contains(t, got, models.CategoryMarketing)
	for cat, approaches := range got {
		assert.GreaterOrEqual(t, len(approaches), MinAllowedApproaches, cat)
		for _, a := range approaches {
			_, blocked := BlockedMatch(models.Suggestion{Title: a}, saturation, reg)
			assert.False(t, blocked, a)
		}
	}
	assert.Contains(t, got[models.CategoryCustomer], "Pesquisa de satisfação pós-compra")
	assert.NotContains(t, got[models.CategoryCustomer], "Cashback turbinado")
}
