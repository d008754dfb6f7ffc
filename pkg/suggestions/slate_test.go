package suggestions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/growth-engine/pkg/models"
	"github.com/ekaya-inc/growth-engine/pkg/platform"
	"github.com/ekaya-inc/growth-engine/pkg/similarity"
	"github.com/ekaya-inc/growth-engine/pkg/themes"
)

func newSlateValidator(history []models.HistoricalSuggestion) *SlateValidator {
	checker := similarity.NewChecker(themes.Default(), 0)
	return &SlateValidator{
		Facts:    storeFacts(),
		Checker:  checker,
		Platform: platform.Default().Lookup("nuvemshop"),
		Zones:    checker.CompleteZones(history, nil),
		Config:   SlateConfig{StrategicCount: 2, TacticalCount: 6},
	}
}

func TestSlateValidator_Validate(t *testing.T) {
	v := newSlateValidator(loyaltyHistory())

	first := candidate("", models.CategoryStrategy, models.TierHigh, "Expandir linha de acessórios para ampliar ticket", 2000)
	demoted := candidate("c2", models.CategoryPricing, models.TierHigh, "Revisar tabela de frete", 900)
	ungrounded := candidate("c3", models.CategoryMarketing, models.TierMedium, "Melhorar fotos dos produtos mais vendidos", 700)
	ungrounded.Problem = "As fotos estão ruins."
	noImpact := candidate("c4", models.CategoryConversion, models.TierMedium, "Revisar descrições das categorias principais", 700)
	noImpact.ImpactCalculation = nil
	repeated := candidate("c5", models.CategoryCustomer, models.TierMedium, "Criar programa de fidelidade", 700)
	infeasible := candidate("c6", models.CategoryConversion, models.TierMedium, "Provador em realidade aumentada", 700)
	unknown := candidate("c7", models.SuggestionCategory("seo"), models.TierLow, "Escrever artigos semanais", 300)
	second := candidate("c8", models.CategoryGrowth, models.TierHigh, "Abrir canal para revendedores regionais", 1800)
	overflow := candidate("c9", models.CategoryMarket, models.TierHigh, "Criar linha própria de produtos exclusivos", 1700)

	res := v.Validate([]models.Suggestion{first, demoted, ungrounded, noImpact, repeated, infeasible, unknown, second, overflow})

	require.Len(t, res.Suggestions, 3)
	assert.Equal(t, "s1", res.Suggestions[0].ID, "missing ids are assigned by position")
	assert.Equal(t, "c8", res.Suggestions[1].ID)
	assert.Equal(t, "c2", res.Suggestions[2].ID)
	assert.Equal(t, models.TierMedium, res.Suggestions[2].Tier)

	reasons := make(map[string]string)
	for _, d := range res.Dropped {
		reasons[d.ID] = d.Reason
	}
	assert.Equal(t, map[string]string{
		"c3": ReasonUngrounded,
		"c4": ReasonNoImpact,
		"c5": ReasonDuplicate,
		"c6": ReasonInfeasible,
		"c7": ReasonUnknownCategory,
		"c9": ReasonOverflow,
	}, reasons)

	assert.Equal(t, map[models.ImpactTier]int{models.TierMedium: 5, models.TierLow: 6}, v.Short(res))
}

func TestSlateValidator_RejectsDuplicatesWithinSlate(t *testing.T) {
	v := newSlateValidator(nil)

	a := candidate("a", models.CategoryProduct, models.TierMedium, "Montar kit presente de fim de ano", 800)
	b := candidate("b", models.CategoryProduct, models.TierMedium, "Combo de produtos para presentear", 700)

	res := v.Validate([]models.Suggestion{a, b})

	require.Len(t, res.Suggestions, 1)
	require.Len(t, res.Dropped, 1)
	assert.Equal(t, "b", res.Dropped[0].ID)
	assert.Equal(t, ReasonDuplicate, res.Dropped[0].Reason)
}

func TestGateTier(t *testing.T) {
	for _, cat := range models.AllCategories {
		s := models.Suggestion{Category: cat, Tier: models.TierHigh}
		changed := GateTier(&s)
		assert.Equal(t, !cat.IsStrategic(), changed, cat)
		if cat.IsStrategic() {
			assert.Equal(t, models.TierHigh, s.Tier)
		} else {
			assert.Equal(t, models.TierMedium, s.Tier)
		}
	}
}

func TestNormalizeEnums(t *testing.T) {
	s := models.Suggestion{Category: " Growth ", Tier: "alto", DataSource: "palpite"}
	NormalizeEnums(&s)

	assert.Equal(t, models.CategoryGrowth, s.Category)
	assert.Equal(t, models.TierHigh, s.Tier)
	assert.Equal(t, models.DataSourceInference, s.DataSource)
	assert.Equal(t, models.UnitBRL, s.ExpectedResult.Unit)
}
