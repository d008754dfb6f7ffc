// Package health computes the Analyst's deterministic figures: period
// metrics, the weighted 0-100 health score and rule-based anomalies.
package health

import (
	"fmt"

	"github.com/ekaya-inc/growth-engine/pkg/models"
)

// Component maxima. They sum to 100.
const (
	MaxTicket       = 25
	MaxStock        = 25
	MaxCancellation = 15
	MaxCoupon       = 15
	MaxTrend        = 20
)

// TicketPoints tiers the average ticket as a percentage of the niche benchmark.
func TicketPoints(ratioPct float64) int {
	switch {
	case ratioPct >= 100:
		return 25
	case ratioPct >= 80:
		return 20
	case ratioPct >= 60:
		return 15
	case ratioPct >= 40:
		return 10
	default:
		return 5
	}
}

// StockPoints tiers the share of the active catalog that is out of stock.
func StockPoints(outOfStockPct float64) int {
	switch {
	case outOfStockPct <= 10:
		return 25
	case outOfStockPct <= 20:
		return 20
	case outOfStockPct <= 30:
		return 15
	case outOfStockPct <= 50:
		return 10
	default:
		return 5
	}
}

// CancellationPoints tiers the cancellation rate.
func CancellationPoints(ratePct float64) int {
	switch {
	case ratePct <= 3:
		return 15
	case ratePct <= 5:
		return 12
	case ratePct <= 10:
		return 8
	case ratePct <= 20:
		return 4
	default:
		return 0
	}
}

// CouponPoints tiers coupon dependency: how many orders use a coupon and how
// much the coupon cuts the ticket. A store that does not use coupons is healthy.
func CouponPoints(usagePct, ticketImpactPct float64) int {
	switch {
	case usagePct == 0:
		return 15
	case usagePct < 20 && ticketImpactPct <= 10:
		return 15
	case usagePct < 40 && ticketImpactPct <= 15:
		return 10
	case usagePct < 60 && ticketImpactPct <= 20:
		return 5
	default:
		return 0
	}
}

// TrendPoints tiers the period-over-period sales change.
func TrendPoints(changePct float64) int {
	switch {
	case changePct > 5:
		return 20
	case changePct >= -5:
		return 15
	case changePct >= -15:
		return 10
	default:
		return 5
	}
}

// TrendOf names the direction of a sales change using the same bands as TrendPoints.
func TrendOf(changePct float64) models.SalesTrend {
	switch {
	case changePct > 5:
		return models.TrendGrowing
	case changePct >= -5:
		return models.TrendStable
	case changePct >= -15:
		return models.TrendMildDecline
	default:
		return models.TrendStrongDrop
	}
}

// Classify maps a score to its band. Bands do not overlap.
func Classify(score int) models.HealthClass {
	switch {
	case score <= 25:
		return models.HealthCritical
	case score <= 50:
		return models.HealthAttention
	case score <= 75:
		return models.HealthHealthy
	default:
		return models.HealthExcellent
	}
}

// Score computes the health score from metrics. A component whose input is
// missing keeps nil points. The total is only reported when all five
// components are scored; a partial sum is never passed off as a score.
func Score(m models.AnalysisMetrics) models.HealthScore {
	b := models.HealthBreakdown{
		Ticket:       models.ComponentScore{Max: MaxTicket},
		Stock:        models.ComponentScore{Max: MaxStock},
		Cancellation: models.ComponentScore{Max: MaxCancellation},
		Coupon:       models.ComponentScore{Max: MaxCoupon},
		Trend:        models.ComponentScore{Max: MaxTrend},
	}

	if m.TicketVsBenchmark != nil {
		b.Ticket.Points = intPtr(TicketPoints(*m.TicketVsBenchmark))
		b.Ticket.Basis = fmt.Sprintf("ticket em %.0f%% do benchmark", *m.TicketVsBenchmark)
	}
	if m.OutOfStockPercent != nil {
		b.Stock.Points = intPtr(StockPoints(*m.OutOfStockPercent))
		b.Stock.Basis = fmt.Sprintf("%.0f%% do catálogo sem estoque", *m.OutOfStockPercent)
	}
	if m.CancellationRate != nil {
		b.Cancellation.Points = intPtr(CancellationPoints(*m.CancellationRate))
		b.Cancellation.Basis = fmt.Sprintf("%.1f%% de cancelamento", *m.CancellationRate)
	}
	if m.CouponUsageRate != nil {
		switch {
		case *m.CouponUsageRate == 0:
			b.Coupon.Points = intPtr(CouponPoints(0, 0))
			b.Coupon.Basis = "nenhum pedido com cupom"
		case m.CouponTicketImpact != nil:
			b.Coupon.Points = intPtr(CouponPoints(*m.CouponUsageRate, *m.CouponTicketImpact))
			b.Coupon.Basis = fmt.Sprintf("%.0f%% dos pedidos com cupom, impacto de %.0f%% no ticket", *m.CouponUsageRate, *m.CouponTicketImpact)
		}
	}
	if m.SalesChangePercent != nil {
		b.Trend.Points = intPtr(TrendPoints(*m.SalesChangePercent))
		b.Trend.Basis = fmt.Sprintf("variação de %.1f%% nas vendas", *m.SalesChangePercent)
	}

	h := models.HealthScore{Classification: models.HealthUndetermined, Breakdown: b}
	total := 0
	for _, c := range []models.ComponentScore{b.Ticket, b.Stock, b.Cancellation, b.Coupon, b.Trend} {
		if c.Points == nil {
			return h
		}
		total += clamp(*c.Points, 0, c.Max)
	}
	total = clamp(total, 0, 100)
	h.Score = &total
	h.Classification = Classify(total)
	return h
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func intPtr(v int) *int {
	return &v
}
