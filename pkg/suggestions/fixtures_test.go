package suggestions

import (
	"github.com/ekaya-inc/growth-engine/pkg/models"
	"github.com/ekaya-inc/growth-engine/pkg/platform"
	"github.com/ekaya-inc/growth-engine/pkg/similarity"
	"github.com/ekaya-inc/growth-engine/pkg/themes"
)

// storeFacts: R$ 20.000/month against a R$ 30.000 goal.
func storeFacts() FactSheet {
	return FactSheet{
		FactAverageTicket:     150,
		FactBenchmarkTicket:   200,
		FactPeriodRevenue:     20000,
		FactMonthlyRevenue:    20000,
		FactRevenueGoal:       30000,
		FactGoalGap:           10000,
		FactCouponUsage:       85,
		FactOutOfStockPercent: 40,
	}
}

func candidate(id string, cat models.SuggestionCategory, tier models.ImpactTier, title string, value float64) models.Suggestion {
	return models.Suggestion{
		ID:       id,
		Category: cat,
		Tier:     tier,
		Title:    title,
		Problem:  "Ticket médio de R$ 150,00 está 25% abaixo do benchmark de R$ 200,00.",
		CitedMetrics: []models.MetricCitation{
			{Metric: FactAverageTicket, Value: 150},
		},
		ActionSteps: []models.ActionStep{
			{What: "Mapear itens", How: "Exportar relatório do painel", ExpectedResult: "Lista priorizada", Resources: "Equipe da loja"},
			{What: "Configurar regra", How: "Cadastrar regra no painel administrativo", ExpectedResult: "Regra ativa", Resources: "Painel da plataforma"},
			{What: "Medir resultado", How: "Comparar ticket semana a semana", ExpectedResult: "Ticket acompanhado", Resources: "Relatórios nativos"},
		},
		ExpectedResult: models.ExpectedResult{Description: "Receita adicional mensal", Value: value, Unit: models.UnitBRL},
		ImpactCalculation: &models.ImpactCalculation{
			BaseMetric:      FactMonthlyRevenue,
			BaseValue:       20000,
			ImprovementRate: value / 20000,
			ProjectedValue:  value,
		},
		DataSource:       models.DataSourceDirect,
		Implementation:   models.Implementation{Type: models.ImplementationNative, Complexity: models.ComplexityLow},
		Confidence:       models.ConfidenceHigh,
		AddressesProblem: "ticket",
	}
}

func loyaltyHistory() []models.HistoricalSuggestion {
	return []models.HistoricalSuggestion{
		{Category: models.CategoryCustomer, Title: "Criar programa de fidelidade", Description: "Recompensar compras repetidas"},
		{Category: models.CategoryMarketing, Title: "Cashback na segunda compra", Description: "Devolver 5% em crédito"},
		{Category: models.CategoryCustomer, Title: "Clube VIP para melhores clientes", Description: "Benefícios exclusivos"},
	}
}

func newVerifier(facts FactSheet, history []models.HistoricalSuggestion) *Verifier {
	reg := themes.Default()
	return &Verifier{
		Facts:      facts,
		Registry:   reg,
		Saturation: similarity.ComputeSaturation(history, reg),
		Platform:   platform.Default().Lookup("nuvemshop"),
		Priorities: []string{models.ComponentTicket, models.ComponentStock, models.ComponentCoupon},
		Config:     VerifierConfig{TopPriorities: 3, MinActionSteps: 3},
	}
}

func newCurator(v *Verifier, history []models.HistoricalSuggestion) *Curator {
	checker := similarity.NewChecker(v.Registry, 0)
	return &Curator{
		Verifier: v,
		Checker:  checker,
		Zones:    checker.CompleteZones(history, nil),
		Config:   SelectionConfig{Ratio: 0.5, MaxAverage: 8.0, MinExternal: 1, GoalCoverage: 0.8},
	}
}

func titles(slate []models.Suggestion) []string {
	out := make([]string, 0, len(slate))
	for _, s := range slate {
		out = append(out, s.Title)
	}
	return out
}
