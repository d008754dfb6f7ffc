package models

// PeriodData is the pre-aggregated summary of one analysis period.
type PeriodData struct {
	Days     int            `json:"days"`
	Orders   OrdersSummary  `json:"orders"`
	Products ProductSummary `json:"products"`
	Coupons  CouponSummary  `json:"coupons"`
}

// OrdersSummary aggregates orders for the period. Count includes cancelled orders.
type OrdersSummary struct {
	Count           *int             `json:"count"`
	Revenue         *float64         `json:"revenue"`
	AverageTicket   *float64         `json:"average_ticket"`
	Cancelled       *int             `json:"cancelled"`
	PreviousRevenue *float64         `json:"previous_revenue"`
	DailyRevenue    []DailyRevenue   `json:"daily_revenue,omitempty"`
	TopProducts     []ProductRevenue `json:"top_products,omitempty"`
}

// DailyRevenue is revenue for a single day (YYYY-MM-DD).
type DailyRevenue struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
}

// ProductRevenue is revenue attributed to a product in the period.
type ProductRevenue struct {
	Name    string  `json:"name"`
	Revenue float64 `json:"revenue"`
}

// ProductSummary is the inventory snapshot.
type ProductSummary struct {
	Active     *int `json:"active"`
	OutOfStock *int `json:"out_of_stock"`
	LowStock   *int `json:"low_stock"`
}

// CouponSummary aggregates coupon usage. UsageRate and TicketImpact are
// percentages (0-100); when UsageRate is nil it is derived from OrdersWithCoupon.
type CouponSummary struct {
	OrdersWithCoupon *int     `json:"orders_with_coupon"`
	UsageRate        *float64 `json:"usage_rate"`
	TicketImpact     *float64 `json:"ticket_impact"`
}

// NicheBenchmarks are reference figures for a niche retrieved from the knowledge store.
type NicheBenchmarks struct {
	Niche            string             `json:"niche"`
	AverageTicket    *float64           `json:"average_ticket"`
	ConversionRate   *float64           `json:"conversion_rate"`
	CancellationRate *float64           `json:"cancellation_rate"`
	CouponUsageRate  *float64           `json:"coupon_usage_rate"`
	Extra            map[string]float64 `json:"extra,omitempty"`
	Source           string             `json:"source,omitempty"`
}

// Figures flattens the benchmarks into a named map, skipping unknown values.
func (b *NicheBenchmarks) Figures() map[string]float64 {
	out := make(map[string]float64)
	if b == nil {
		return out
	}
	if b.AverageTicket != nil {
		out["ticket_medio"] = *b.AverageTicket
	}
	if b.ConversionRate != nil {
		out["taxa_conversao"] = *b.ConversionRate
	}
	if b.CancellationRate != nil {
		out["taxa_cancelamento"] = *b.CancellationRate
	}
	if b.CouponUsageRate != nil {
		out["uso_cupom"] = *b.CouponUsageRate
	}
	for k, v := range b.Extra {
		out[k] = v
	}
	return out
}

// SalesTrend is the period-over-period sales direction.
type SalesTrend string

const (
	TrendGrowing     SalesTrend = "crescendo"
	TrendStable      SalesTrend = "estavel"
	TrendMildDecline SalesTrend = "queda_leve"
	TrendStrongDrop  SalesTrend = "queda_forte"
)

// HealthClass is the classification band of a health score.
type HealthClass string

const (
	HealthCritical  HealthClass = "critico"
	HealthAttention HealthClass = "atencao"
	HealthHealthy   HealthClass = "saudavel"
	HealthExcellent HealthClass = "excelente"

	// HealthUndetermined is used when any sub-score lacks its input.
	HealthUndetermined HealthClass = Undetermined
)

// Health component keys, also used as problem keys for prioritization.
const (
	ComponentTicket       = "ticket"
	ComponentStock        = "estoque"
	ComponentCancellation = "cancelamento"
	ComponentCoupon       = "cupom"
	ComponentTrend        = "tendencia"

	// Problems that are not health components.
	ProblemConcentration = "concentracao"
	ProblemGoalGap       = "gap_meta"
)

// ComponentScore is one weighted sub-score. Points is nil when the input
// needed to score it was missing.
type ComponentScore struct {
	Points *int   `json:"points"`
	Max    int    `json:"max"`
	Basis  string `json:"basis,omitempty"`
}

// Earned returns the points counted toward the total.
func (c ComponentScore) Earned() int {
	if c.Points == nil {
		return 0
	}
	return *c.Points
}

// HealthBreakdown holds the five sub-scores.
type HealthBreakdown struct {
	Ticket       ComponentScore `json:"ticket"`
	Stock        ComponentScore `json:"estoque"`
	Cancellation ComponentScore `json:"cancelamento"`
	Coupon       ComponentScore `json:"cupom"`
	Trend        ComponentScore `json:"tendencia"`
}

// Components returns the sub-scores keyed by component name.
func (b HealthBreakdown) Components() map[string]ComponentScore {
	return map[string]ComponentScore{
		ComponentTicket:       b.Ticket,
		ComponentStock:        b.Stock,
		ComponentCancellation: b.Cancellation,
		ComponentCoupon:       b.Coupon,
		ComponentTrend:        b.Trend,
	}
}

// HealthScore is the composite 0-100 store health metric. Score is nil and
// Classification is HealthUndetermined unless all five sub-scores are known.
type HealthScore struct {
	Score          *int            `json:"score"`
	Classification HealthClass     `json:"classification"`
	Breakdown      HealthBreakdown `json:"breakdown"`
}

// Determined reports whether every sub-score had its input.
func (h HealthScore) Determined() bool {
	return h.Score != nil
}

// AnalysisMetrics is the computed quantitative snapshot. Pointer fields are
// nil when the underlying input was missing.
type AnalysisMetrics struct {
	PeriodDays         int         `json:"period_days"`
	OrderCount         *int        `json:"order_count"`
	SalesTotal         *float64    `json:"sales_total"`
	PreviousSalesTotal *float64    `json:"previous_sales_total"`
	SalesChangePercent *float64    `json:"sales_change_percent"`
	SalesTrend         *SalesTrend `json:"sales_trend"`
	AverageTicket      *float64    `json:"average_ticket"`
	BenchmarkTicket    *float64    `json:"benchmark_ticket"`
	TicketVsBenchmark  *float64    `json:"ticket_vs_benchmark"`
	CancellationRate   *float64    `json:"cancellation_rate"`
	ActiveProducts     *int        `json:"active_products"`
	OutOfStockCount    *int        `json:"out_of_stock_count"`
	OutOfStockPercent  *float64    `json:"out_of_stock_percent"`
	LowStockCount      *int        `json:"low_stock_count"`
	CouponUsageRate    *float64    `json:"coupon_usage_rate"`
	CouponTicketImpact *float64    `json:"coupon_ticket_impact"`
	TopProductsShare   *float64    `json:"top_products_share"`
	Health             HealthScore `json:"health"`
}

// DataQuality lists what the Analyst could not compute and how to fix it.
type DataQuality struct {
	MissingMetrics  []string `json:"missing_metrics"`
	Recommendations []string `json:"recommendations"`
}
