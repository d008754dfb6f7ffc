package suggestions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/growth-engine/pkg/locale"
	"github.com/ekaya-inc/growth-engine/pkg/models"
)

func checkOf(t *testing.T, s models.Suggestion, check models.VerificationCheck) models.CheckResult {
	t.Helper()
	require.NotNil(t, s.Review)
	for _, c := range s.Review.Checks {
		if c.Check == check {
			return c
		}
	}
	t.Fatalf("check %s not recorded", check)
	return models.CheckResult{}
}

func TestVerify_CleanSuggestionApproved(t *testing.T) {
	v := newVerifier(storeFacts(), nil)
	o := v.Verify(candidate("s1", models.CategoryStrategy, models.TierHigh, "Expandir linha de acessórios para ampliar ticket", 2000))

	assert.Equal(t, VerdictKeep, o.Verdict)
	require.NotNil(t, o.Suggestion.Review)
	assert.Equal(t, models.ReviewApproved, o.Suggestion.Review.State)
	assert.Len(t, o.Suggestion.Review.Checks, len(models.VerificationOrder))
	for i, c := range o.Suggestion.Review.Checks {
		assert.Equal(t, models.VerificationOrder[i], c.Check, "checks run in protocol order")
		assert.True(t, c.Passed)
	}
	assert.Equal(t, 9.0, o.Suggestion.Review.QualityScore)
}

func TestVerify_DoesNotMutateInput(t *testing.T) {
	v := newVerifier(storeFacts(), nil)
	in := candidate("s1", models.CategoryPricing, models.TierHigh, "Revisar tabela de frete", 1000)
	in.CitedMetrics[0].Value = 140

	_ = v.Verify(in)

	assert.Equal(t, models.TierHigh, in.Tier)
	assert.Equal(t, 140.0, in.CitedMetrics[0].Value)
	assert.Nil(t, in.Review)
}

func TestVerify_CorrectsCitedNumbers(t *testing.T) {
	v := newVerifier(storeFacts(), nil)
	s := candidate("s1", models.CategoryPricing, models.TierMedium, "Reorganizar vitrine da página inicial", 1000)
	s.Problem = "Ticket médio de " + locale.FormatBRL(140) + " abaixo do mercado."
	s.CitedMetrics = []models.MetricCitation{
		{Metric: "average_ticket", Value: 140},
		{Metric: "taxa_de_conversao", Value: 1.2},
	}

	o := v.Verify(s)

	assert.Equal(t, VerdictKeep, o.Verdict)
	assert.Equal(t, models.ReviewImproved, o.Suggestion.Review.State)
	assert.Equal(t, []models.MetricCitation{{Metric: FactAverageTicket, Value: 150}}, o.Suggestion.CitedMetrics)
	assert.Contains(t, o.Suggestion.Problem, locale.FormatBRL(150))
	assert.True(t, checkOf(t, o.Suggestion, models.CheckNumeric).Corrected)
}

func TestVerify_CorrectionLeavesOtherNumbersAlone(t *testing.T) {
	facts := storeFacts()
	facts[FactCancellationRate] = 12.5
	v := newVerifier(facts, nil)
	s := candidate("s1", models.CategoryConversion, models.TierMedium, "Revisar política de trocas", 1000)
	s.Problem = "Taxa de cancelamento de 18% em 180 pedidos no mês."
	s.CitedMetrics = []models.MetricCitation{{Metric: FactCancellationRate, Value: 18}}

	o := v.Verify(s)

	assert.Equal(t, "Taxa de cancelamento de 12,5% em 180 pedidos no mês.", o.Suggestion.Problem)
	assert.True(t, checkOf(t, o.Suggestion, models.CheckNumeric).Corrected)
}

func TestVerify_BlockedThemeIsReplacedWithZeroScore(t *testing.T) {
	v := newVerifier(storeFacts(), loyaltyHistory())
	o := v.Verify(candidate("s2", models.CategoryGrowth, models.TierHigh, "Programa de Pontos para Clientes Recorrentes", 1500))

	assert.Equal(t, VerdictReplace, o.Verdict)
	assert.Equal(t, ReasonBlockedTheme, o.Reason)
	assert.Equal(t, 0.0, o.Suggestion.Review.QualityScore)
	assert.False(t, checkOf(t, o.Suggestion, models.CheckOriginality).Passed)
}

func TestVerify_BlockedThemeScoresZeroEvenWhenLaterRejected(t *testing.T) {
	v := newVerifier(storeFacts(), loyaltyHistory())
	s := candidate("s2", models.CategoryGrowth, models.TierHigh, "Programa de Pontos para Clientes Recorrentes", 1500)
	s.ImpactCalculation.ImprovementRate = 0

	o := v.Verify(s)

	assert.Equal(t, VerdictReject, o.Verdict)
	assert.Equal(t, ReasonNoImpact, o.Reason)
	assert.False(t, checkOf(t, o.Suggestion, models.CheckOriginality).Passed)
	assert.Equal(t, 0.0, o.Suggestion.Review.QualityScore)
}

func TestVerify_GenericProblemIsAnchored(t *testing.T) {
	v := newVerifier(storeFacts(), nil)
	s := candidate("s1", models.CategoryCoupon, models.TierLow, "Reduzir dependência de desconto", 500)
	s.Problem = "Muitos pedidos usam desconto."
	s.CitedMetrics = nil

	o := v.Verify(s)

	assert.Equal(t, VerdictKeep, o.Verdict)
	require.Len(t, o.Suggestion.CitedMetrics, 1)
	assert.Equal(t, FactCouponUsage, o.Suggestion.CitedMetrics[0].Metric)
	assert.True(t, locale.HasNumber(o.Suggestion.Problem))
	assert.True(t, checkOf(t, o.Suggestion, models.CheckSpecificity).Corrected)
}

func TestVerify_Feasibility(t *testing.T) {
	v := newVerifier(storeFacts(), nil)

	infeasible := v.Verify(candidate("s1", models.CategoryConversion, models.TierMedium, "Provador em realidade aumentada", 800))
	assert.Equal(t, VerdictReject, infeasible.Verdict)
	assert.Equal(t, ReasonInfeasible, infeasible.Reason)

	app := v.Verify(candidate("s2", models.CategoryProduct, models.TierMedium, "Montar kit presente de fim de ano", 800))
	require.Equal(t, VerdictKeep, app.Verdict)
	impl := app.Suggestion.Implementation
	assert.Equal(t, models.ImplementationApp, impl.Type)
	assert.Equal(t, "Kits & Combos", impl.AppName)
	require.NotNil(t, impl.MonthlyCost)
	assert.InDelta(t, 39.90, *impl.MonthlyCost, 0.001)
	assert.True(t, checkOf(t, app.Suggestion, models.CheckFeasibility).Corrected)
}

func TestVerify_ImpactCompletedFromGroundTruth(t *testing.T) {
	v := newVerifier(storeFacts(), nil)
	s := candidate("s1", models.CategoryMarketing, models.TierMedium, "Reorganizar vitrine da página inicial", 2000)
	s.ImpactCalculation = nil

	o := v.Verify(s)

	require.Equal(t, VerdictKeep, o.Verdict)
	calc := o.Suggestion.ImpactCalculation
	require.NotNil(t, calc)
	assert.Equal(t, FactMonthlyRevenue, calc.BaseMetric)
	assert.Equal(t, 20000.0, calc.BaseValue)
	assert.Equal(t, 0.1, calc.ImprovementRate)
	assert.Equal(t, 2000.0, calc.ProjectedValue)
}

func TestVerify_ImpactArithmeticCorrected(t *testing.T) {
	v := newVerifier(storeFacts(), nil)
	s := candidate("s1", models.CategoryMarketing, models.TierMedium, "Reorganizar vitrine da página inicial", 2000)
	s.ImpactCalculation = &models.ImpactCalculation{
		BaseMetric:      "monthly_revenue",
		BaseValue:       25000,
		ImprovementRate: 12,
		ProjectedValue:  3000,
	}

	o := v.Verify(s)

	require.Equal(t, VerdictKeep, o.Verdict)
	calc := o.Suggestion.ImpactCalculation
	assert.Equal(t, FactMonthlyRevenue, calc.BaseMetric)
	assert.Equal(t, 20000.0, calc.BaseValue)
	assert.Equal(t, 0.12, calc.ImprovementRate)
	assert.Equal(t, 2400.0, calc.ProjectedValue)
	assert.Equal(t, 2400.0, o.Suggestion.ExpectedResult.Value)
	assert.True(t, checkOf(t, o.Suggestion, models.CheckImpact).Corrected)
}

func TestVerify_HighTierGating(t *testing.T) {
	v := newVerifier(storeFacts(), nil)

	o := v.Verify(candidate("s1", models.CategoryPricing, models.TierHigh, "Revisar tabela de frete", 1000))
	assert.Equal(t, VerdictKeep, o.Verdict)
	assert.Equal(t, models.TierMedium, o.Suggestion.Tier, "tactical categories never stay HIGH")
}

func TestVerify_HighTierAlignment(t *testing.T) {
	v := newVerifier(storeFacts(), nil)

	unaligned := candidate("s1", models.CategoryGrowth, models.TierHigh, "Abrir canal para revendedores regionais", 1000)
	unaligned.AddressesProblem = "logistica"
	o := v.Verify(unaligned)
	assert.Equal(t, VerdictReplace, o.Verdict)
	assert.Equal(t, ReasonUnaligned, o.Reason)

	// The revenue gap always counts as a priority when the goal is known.
	gapped := unaligned
	gapped.AddressesProblem = models.ProblemGoalGap
	assert.Equal(t, VerdictKeep, v.Verify(gapped).Verdict)

	// MEDIUM items are not held to the priorities.
	medium := unaligned
	medium.Category = models.CategoryMarketing
	medium.Tier = models.TierMedium
	assert.Equal(t, VerdictKeep, v.Verify(medium).Verdict)
}

func TestVerify_ActionPlan(t *testing.T) {
	v := newVerifier(storeFacts(), nil)

	s := candidate("s1", models.CategoryMarketing, models.TierMedium, "Reorganizar vitrine da página inicial", 1000)
	s.ActionSteps[0].Resources = ""
	s.ActionSteps[1].ExpectedResult = ""
	o := v.Verify(s)
	require.Equal(t, VerdictKeep, o.Verdict)
	assert.NotEmpty(t, o.Suggestion.ActionSteps[0].Resources)
	assert.NotEmpty(t, o.Suggestion.ActionSteps[1].ExpectedResult)
	assert.Equal(t, models.ReviewImproved, o.Suggestion.Review.State)

	thin := candidate("s2", models.CategoryMarketing, models.TierMedium, "Reorganizar vitrine da página inicial", 1000)
	thin.ActionSteps[2].How = "fazer"
	o = v.Verify(thin)
	assert.Equal(t, VerdictReject, o.Verdict)
	assert.Equal(t, ReasonIncomplete, o.Reason)
}
