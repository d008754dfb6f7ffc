package health

import (
	"fmt"
	"sort"

	"github.com/ekaya-inc/growth-engine/pkg/locale"
	"github.com/ekaya-inc/growth-engine/pkg/models"
)

// Detection thresholds.
const (
	DailyDropRatio        = 0.5  // day below 50% of the period average
	StockRuptureLimit     = 30.0 // % of active catalog out of stock
	ConcentrationLimit    = 60.0 // % of revenue in the top 3 products
	CouponDependencyLimit = 70.0 // % of orders with a coupon
	HighCancellationLimit = 10.0 // % of orders cancelled
	TicketBenchmarkLimit  = 60.0 // % of the niche ticket
	maxDailyEvidence      = 5
)

// rule fires at most one anomaly from the metrics.
type rule func(p models.PeriodData, m models.AnalysisMetrics) *models.Anomaly

var rules = []rule{
	dailyRevenueDrop,
	stockRupture,
	revenueConcentration,
	couponDependency,
	highCancellation,
	ticketBelowBenchmark,
}

// DetectAnomalies runs every rule and returns the ones that fired, most
// severe first. Each anomaly carries the evidence that triggered it.
func DetectAnomalies(p models.PeriodData, m models.AnalysisMetrics) []models.Anomaly {
	out := []models.Anomaly{}
	for _, r := range rules {
		if a := r(p, m); a != nil && len(a.Evidence) > 0 {
			out = append(out, *a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Severity.Rank() > out[j].Severity.Rank()
	})
	return out
}

func dailyRevenueDrop(p models.PeriodData, _ models.AnalysisMetrics) *models.Anomaly {
	days := p.Orders.DailyRevenue
	if len(days) < 2 {
		return nil
	}
	sum := 0.0
	for _, d := range days {
		sum += d.Revenue
	}
	avg := sum / float64(len(days))
	if avg <= 0 {
		return nil
	}
	limit := avg * DailyDropRatio
	var evidence []models.Evidence
	severe := false
	lost := 0.0
	for _, d := range days {
		if d.Revenue >= limit {
			continue
		}
		if d.Revenue < avg*0.25 {
			severe = true
		}
		lost += avg - d.Revenue
		if len(evidence) < maxDailyEvidence {
			evidence = append(evidence, models.Evidence{
				Metric:    "receita_diaria",
				Value:     d.Revenue,
				Threshold: round2(limit),
				Detail:    d.Date,
			})
		}
	}
	if len(evidence) == 0 {
		return nil
	}
	sev := models.SeverityMedium
	if severe || len(evidence) >= 3 {
		sev = models.SeverityHigh
	}
	return &models.Anomaly{
		Type: models.AnomalyDailyRevenueDrop,
		Description: fmt.Sprintf("%d dia(s) com receita abaixo de 50%% da média diária de %s",
			len(evidence), locale.FormatBRL(avg)),
		Severity:       sev,
		Evidence:       evidence,
		ImpactEstimate: floatPtr(round2(lost)),
	}
}

func stockRupture(_ models.PeriodData, m models.AnalysisMetrics) *models.Anomaly {
	if m.OutOfStockPercent == nil || *m.OutOfStockPercent <= StockRuptureLimit {
		return nil
	}
	sev := models.SeverityMedium
	if *m.OutOfStockPercent > 50 {
		sev = models.SeverityHigh
	}
	a := &models.Anomaly{
		Type:        models.AnomalyStockRupture,
		Description: fmt.Sprintf("%s do catálogo ativo está sem estoque", locale.FormatPercent(*m.OutOfStockPercent)),
		Severity:    sev,
		Evidence: []models.Evidence{{
			Metric: "percentual_sem_estoque", Value: *m.OutOfStockPercent, Threshold: StockRuptureLimit,
		}},
	}
	if m.SalesTotal != nil {
		a.ImpactEstimate = floatPtr(round2(*m.SalesTotal * *m.OutOfStockPercent / 100))
	}
	return a
}

func revenueConcentration(_ models.PeriodData, m models.AnalysisMetrics) *models.Anomaly {
	if m.TopProductsShare == nil || *m.TopProductsShare <= ConcentrationLimit {
		return nil
	}
	sev := models.SeverityMedium
	if *m.TopProductsShare > 80 {
		sev = models.SeverityHigh
	}
	return &models.Anomaly{
		Type:        models.AnomalyRevenueConcentration,
		Description: fmt.Sprintf("os 3 produtos mais vendidos concentram %s da receita", locale.FormatPercent(*m.TopProductsShare)),
		Severity:    sev,
		Evidence: []models.Evidence{{
			Metric: "concentracao_top3", Value: *m.TopProductsShare, Threshold: ConcentrationLimit,
		}},
	}
}

func couponDependency(_ models.PeriodData, m models.AnalysisMetrics) *models.Anomaly {
	if m.CouponUsageRate == nil || *m.CouponUsageRate <= CouponDependencyLimit {
		return nil
	}
	sev := models.SeverityMedium
	if *m.CouponUsageRate >= 85 {
		sev = models.SeverityHigh
	}
	a := &models.Anomaly{
		Type:        models.AnomalyCouponDependency,
		Description: fmt.Sprintf("%s dos pedidos usam cupom", locale.FormatPercent(*m.CouponUsageRate)),
		Severity:    sev,
		Evidence: []models.Evidence{{
			Metric: "uso_cupom", Value: *m.CouponUsageRate, Threshold: CouponDependencyLimit,
		}},
	}
	if m.CouponTicketImpact != nil && m.SalesTotal != nil {
		a.Evidence = append(a.Evidence, models.Evidence{Metric: "impacto_cupom_ticket", Value: *m.CouponTicketImpact})
		a.ImpactEstimate = floatPtr(round2(*m.SalesTotal * *m.CouponUsageRate / 100 * *m.CouponTicketImpact / 100))
	}
	return a
}

func highCancellation(_ models.PeriodData, m models.AnalysisMetrics) *models.Anomaly {
	if m.CancellationRate == nil || *m.CancellationRate <= HighCancellationLimit {
		return nil
	}
	sev := models.SeverityMedium
	if *m.CancellationRate > 20 {
		sev = models.SeverityHigh
	}
	a := &models.Anomaly{
		Type:        models.AnomalyHighCancellation,
		Description: fmt.Sprintf("taxa de cancelamento de %s no período", locale.FormatPercent(*m.CancellationRate)),
		Severity:    sev,
		Evidence: []models.Evidence{{
			Metric: "taxa_cancelamento", Value: *m.CancellationRate, Threshold: HighCancellationLimit,
		}},
	}
	if m.SalesTotal != nil {
		a.ImpactEstimate = floatPtr(round2(*m.SalesTotal * *m.CancellationRate / 100))
	}
	return a
}

func ticketBelowBenchmark(_ models.PeriodData, m models.AnalysisMetrics) *models.Anomaly {
	if m.TicketVsBenchmark == nil || *m.TicketVsBenchmark >= TicketBenchmarkLimit {
		return nil
	}
	sev := models.SeverityMedium
	if *m.TicketVsBenchmark < 40 {
		sev = models.SeverityHigh
	}
	a := &models.Anomaly{
		Type: models.AnomalyTicketBelowBenchmark,
		Description: fmt.Sprintf("ticket médio de %s contra %s do nicho",
			locale.FormatBRL(*m.AverageTicket), locale.FormatBRL(*m.BenchmarkTicket)),
		Severity: sev,
		Evidence: []models.Evidence{
			{Metric: "ticket_medio", Value: *m.AverageTicket, Threshold: round2(*m.BenchmarkTicket * TicketBenchmarkLimit / 100)},
			{Metric: "ticket_vs_benchmark", Value: *m.TicketVsBenchmark, Threshold: TicketBenchmarkLimit},
		},
	}
	if m.OrderCount != nil {
		a.ImpactEstimate = floatPtr(round2((*m.BenchmarkTicket - *m.AverageTicket) * float64(*m.OrderCount)))
	}
	return a
}

// ProblemOf maps an anomaly type to the problem key used for prioritization.
func ProblemOf(t models.AnomalyType) string {
	switch t {
	case models.AnomalyDailyRevenueDrop:
		return models.ComponentTrend
	case models.AnomalyStockRupture:
		return models.ComponentStock
	case models.AnomalyRevenueConcentration:
		return models.ProblemConcentration
	case models.AnomalyCouponDependency:
		return models.ComponentCoupon
	case models.AnomalyHighCancellation:
		return models.ComponentCancellation
	case models.AnomalyTicketBelowBenchmark:
		return models.ComponentTicket
	}
	return ""
}

// Priorities orders problem keys by urgency: fired anomalies by severity,
// then the scored components furthest from their maximum.
func Priorities(anomalies []models.Anomaly, h models.HealthScore) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, a := range anomalies {
		if key := ProblemOf(a.Type); key != "" && !seen[key] {
			seen[key] = true
			out = append(out, key)
		}
	}

	type gap struct {
		key  string
		lost float64
	}
	var gaps []gap
	for _, key := range []string{models.ComponentTicket, models.ComponentStock, models.ComponentCancellation, models.ComponentCoupon, models.ComponentTrend} {
		c := h.Breakdown.Components()[key]
		if c.Points == nil || seen[key] || *c.Points >= c.Max {
			continue
		}
		gaps = append(gaps, gap{key: key, lost: float64(c.Max-*c.Points) / float64(c.Max)})
	}
	sort.SliceStable(gaps, func(i, j int) bool { return gaps[i].lost > gaps[j].lost })
	for _, g := range gaps {
		out = append(out, g.key)
	}
	return out
}
