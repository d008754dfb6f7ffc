package health

import (
	"math"
	"sort"

	"github.com/ekaya-inc/growth-engine/pkg/models"
)

// missingHints maps a metric's JSON name to the fix recommended when it is absent.
var missingHints = []struct {
	name string
	get  func(m *models.AnalysisMetrics) bool
	hint string
}{
	{"order_count", func(m *models.AnalysisMetrics) bool { return m.OrderCount != nil }, "Sincronizar os pedidos do período para medir volume de vendas."},
	{"sales_total", func(m *models.AnalysisMetrics) bool { return m.SalesTotal != nil }, "Sincronizar o faturamento do período."},
	{"sales_change_percent", func(m *models.AnalysisMetrics) bool { return m.SalesChangePercent != nil }, "Manter o histórico do período anterior para calcular a tendência de vendas."},
	{"average_ticket", func(m *models.AnalysisMetrics) bool { return m.AverageTicket != nil }, "Registrar pedidos com valor para calcular o ticket médio."},
	{"ticket_vs_benchmark", func(m *models.AnalysisMetrics) bool { return m.TicketVsBenchmark != nil }, "Cadastrar o benchmark de ticket médio do nicho."},
	{"cancellation_rate", func(m *models.AnalysisMetrics) bool { return m.CancellationRate != nil }, "Sincronizar o status dos pedidos para medir cancelamentos."},
	{"out_of_stock_percent", func(m *models.AnalysisMetrics) bool { return m.OutOfStockPercent != nil }, "Sincronizar o estoque dos produtos ativos."},
	{"coupon_usage_rate", func(m *models.AnalysisMetrics) bool { return m.CouponUsageRate != nil }, "Sincronizar o uso de cupons nos pedidos."},
	{"coupon_ticket_impact", func(m *models.AnalysisMetrics) bool {
		return m.CouponTicketImpact != nil || (m.CouponUsageRate != nil && *m.CouponUsageRate == 0)
	}, "Registrar o desconto concedido por cupom para medir o impacto no ticket."},
}

// ComputeMetrics derives the period metrics. Every value that cannot be
// computed from the input stays nil and is listed in the returned DataQuality.
func ComputeMetrics(p models.PeriodData, bench *models.NicheBenchmarks) (models.AnalysisMetrics, models.DataQuality) {
	m := models.AnalysisMetrics{PeriodDays: p.Days}
	o := p.Orders

	m.OrderCount = o.Count
	m.SalesTotal = o.Revenue
	if m.SalesTotal == nil && len(o.DailyRevenue) > 0 {
		sum := 0.0
		for _, d := range o.DailyRevenue {
			sum += d.Revenue
		}
		m.SalesTotal = floatPtr(round2(sum))
	}
	m.PreviousSalesTotal = o.PreviousRevenue
	if m.SalesTotal != nil && m.PreviousSalesTotal != nil && *m.PreviousSalesTotal > 0 {
		change := round2((*m.SalesTotal - *m.PreviousSalesTotal) / *m.PreviousSalesTotal * 100)
		m.SalesChangePercent = &change
		trend := TrendOf(change)
		m.SalesTrend = &trend
	}

	valid := validOrders(o)
	switch {
	case o.AverageTicket != nil:
		m.AverageTicket = o.AverageTicket
	case m.SalesTotal != nil && valid != nil && *valid > 0:
		m.AverageTicket = floatPtr(round2(*m.SalesTotal / float64(*valid)))
	}
	if bench != nil && bench.AverageTicket != nil && *bench.AverageTicket > 0 {
		m.BenchmarkTicket = bench.AverageTicket
		if m.AverageTicket != nil {
			m.TicketVsBenchmark = floatPtr(round2(*m.AverageTicket / *bench.AverageTicket * 100))
		}
	}

	if o.Count != nil && *o.Count > 0 && o.Cancelled != nil {
		m.CancellationRate = floatPtr(round2(float64(*o.Cancelled) / float64(*o.Count) * 100))
	}

	m.ActiveProducts = p.Products.Active
	m.OutOfStockCount = p.Products.OutOfStock
	m.LowStockCount = p.Products.LowStock
	if m.ActiveProducts != nil && *m.ActiveProducts > 0 && m.OutOfStockCount != nil {
		m.OutOfStockPercent = floatPtr(round2(float64(*m.OutOfStockCount) / float64(*m.ActiveProducts) * 100))
	}

	switch {
	case p.Coupons.UsageRate != nil:
		m.CouponUsageRate = p.Coupons.UsageRate
	case p.Coupons.OrdersWithCoupon != nil && o.Count != nil && *o.Count > 0:
		m.CouponUsageRate = floatPtr(round2(float64(*p.Coupons.OrdersWithCoupon) / float64(*o.Count) * 100))
	}
	m.CouponTicketImpact = p.Coupons.TicketImpact

	if share := topShare(o.TopProducts, m.SalesTotal, 3); share != nil {
		m.TopProductsShare = share
	}

	m.Health = Score(m)
	return m, assessQuality(&m)
}

func assessQuality(m *models.AnalysisMetrics) models.DataQuality {
	q := models.DataQuality{MissingMetrics: []string{}, Recommendations: []string{}}
	for _, h := range missingHints {
		if !h.get(m) {
			q.MissingMetrics = append(q.MissingMetrics, h.name)
			q.Recommendations = append(q.Recommendations, h.hint)
		}
	}
	return q
}

// validOrders is the order count net of cancellations, when known.
func validOrders(o models.OrdersSummary) *int {
	if o.Count == nil {
		return nil
	}
	n := *o.Count
	if o.Cancelled != nil {
		n -= *o.Cancelled
	}
	return &n
}

// topShare returns the revenue share (%) of the n best-selling products.
func topShare(products []models.ProductRevenue, total *float64, n int) *float64 {
	if len(products) == 0 || total == nil || *total <= 0 {
		return nil
	}
	sorted := append([]models.ProductRevenue(nil), products...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Revenue > sorted[j].Revenue })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	sum := 0.0
	for _, p := range sorted {
		sum += p.Revenue
	}
	return floatPtr(round2(sum / *total * 100))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func floatPtr(v float64) *float64 {
	return &v
}
