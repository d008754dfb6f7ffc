// Package suggestions holds the deterministic rules applied to suggestion
// slates: grounding against store facts, tier gating, feasibility, the
// review protocol and the final selection.
package suggestions

import (
	"math"
	"sort"
	"strings"

	"github.com/ekaya-inc/growth-engine/pkg/locale"
	"github.com/ekaya-inc/growth-engine/pkg/models"
)

// Fact keys. These are the only metric names a suggestion may cite.
const (
	FactAverageTicket      = "ticket_medio"
	FactBenchmarkTicket    = "ticket_benchmark"
	FactPeriodRevenue      = "receita_periodo"
	FactPreviousRevenue    = "receita_anterior"
	FactSalesChange        = "variacao_vendas"
	FactOrders             = "pedidos"
	FactCancellationRate   = "taxa_cancelamento"
	FactActiveProducts     = "produtos_ativos"
	FactOutOfStock         = "produtos_sem_estoque"
	FactOutOfStockPercent  = "percentual_sem_estoque"
	FactLowStock           = "estoque_baixo"
	FactCouponUsage        = "uso_cupom"
	FactCouponTicketImpact = "impacto_cupom_ticket"
	FactTopProductsShare   = "concentracao_top3"
	FactHealthScore        = "health_score"
	FactMonthlyRevenue     = "receita_mensal"
	FactMonthlyOrders      = "pedidos_mensais"
	FactMonthlyVisits      = "visitas_mensais"
	FactRepeatRate         = "taxa_recompra"
	FactCustomers          = "clientes"
	FactRevenueGoal        = "meta_receita_mensal"
	FactGoalGap            = "gap_meta"
	FactTargetTicket       = "meta_ticket"
)

// aliases maps names models tend to use to the canonical fact keys.
var aliases = map[string]string{
	"average_ticket":       FactAverageTicket,
	"aov":                  FactAverageTicket,
	"ticket":               FactAverageTicket,
	"benchmark_ticket":     FactBenchmarkTicket,
	"sales_total":          FactPeriodRevenue,
	"receita":              FactPeriodRevenue,
	"faturamento":          FactPeriodRevenue,
	"previous_sales_total": FactPreviousRevenue,
	"sales_change_percent": FactSalesChange,
	"order_count":          FactOrders,
	"cancellation_rate":    FactCancellationRate,
	"active_products":      FactActiveProducts,
	"out_of_stock_count":   FactOutOfStock,
	"out_of_stock_percent": FactOutOfStockPercent,
	"low_stock_count":      FactLowStock,
	"coupon_usage_rate":    FactCouponUsage,
	"coupon_ticket_impact": FactCouponTicketImpact,
	"top_products_share":   FactTopProductsShare,
	"monthly_revenue":      FactMonthlyRevenue,
	"monthly_visits":       FactMonthlyVisits,
	"repeat_customer_rate": FactRepeatRate,
	"goal_gap":             FactGoalGap,
}

// FactSheet is the ground truth every cited number is checked against.
type FactSheet map[string]float64

// BuildFacts collects known figures; unknown metrics are simply absent.
func BuildFacts(m models.AnalysisMetrics, store models.StoreInput) FactSheet {
	f := FactSheet{}
	f.setF(FactAverageTicket, m.AverageTicket)
	f.setF(FactBenchmarkTicket, m.BenchmarkTicket)
	f.setF(FactPeriodRevenue, m.SalesTotal)
	f.setF(FactPreviousRevenue, m.PreviousSalesTotal)
	f.setF(FactSalesChange, m.SalesChangePercent)
	f.setI(FactOrders, m.OrderCount)
	f.setF(FactCancellationRate, m.CancellationRate)
	f.setI(FactActiveProducts, m.ActiveProducts)
	f.setI(FactOutOfStock, m.OutOfStockCount)
	f.setF(FactOutOfStockPercent, m.OutOfStockPercent)
	f.setI(FactLowStock, m.LowStockCount)
	f.setF(FactCouponUsage, m.CouponUsageRate)
	f.setF(FactCouponTicketImpact, m.CouponTicketImpact)
	f.setF(FactTopProductsShare, m.TopProductsShare)
	f.setI(FactHealthScore, m.Health.Score)

	s := store.Stats
	f.setF(FactMonthlyRevenue, s.MonthlyRevenue)
	f.setI(FactMonthlyOrders, s.MonthlyOrders)
	f.setI(FactMonthlyVisits, s.MonthlyVisits)
	f.setF(FactRepeatRate, s.RepeatCustomerRate)
	f.setI(FactCustomers, s.TotalCustomers)
	f.setF(FactRevenueGoal, store.Goals.MonthlyRevenue)
	f.setF(FactTargetTicket, store.Goals.TargetTicket)
	f.setF(FactGoalGap, store.Goals.MonthlyGap(s.MonthlyRevenue))
	return f
}

func (f FactSheet) setF(key string, v *float64) {
	if v != nil {
		f[key] = *v
	}
}

func (f FactSheet) setI(key string, v *int) {
	if v != nil {
		f[key] = float64(*v)
	}
}

// Canonical resolves aliases and folds the key.
func Canonical(key string) string {
	k := strings.ReplaceAll(locale.Normalize(key), " ", "_")
	if alias, ok := aliases[k]; ok {
		return alias
	}
	return k
}

// Get returns a fact by canonical or alias name.
func (f FactSheet) Get(key string) (float64, bool) {
	v, ok := f[Canonical(key)]
	return v, ok
}

// Keys lists the known facts in sorted order.
func (f FactSheet) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Gap returns the monthly revenue gap to the goal, if known.
func (f FactSheet) Gap() (float64, bool) {
	v, ok := f[FactGoalGap]
	return v, ok && v > 0
}

// Matches reports whether value equals the fact within tolerance.
func Matches(fact, value float64) bool {
	return math.Abs(fact-value) <= math.Max(0.01, math.Abs(fact)*0.01)
}

// Contains reports whether v equals any known fact within tolerance.
func (f FactSheet) Contains(v float64) bool {
	for _, fact := range f {
		if Matches(fact, v) {
			return true
		}
	}
	return false
}

// categoryFacts is the fact most relevant to each category, used to anchor
// a generic problem statement in store data.
var categoryFacts = map[models.SuggestionCategory][]string{
	models.CategoryPricing:     {FactAverageTicket, FactBenchmarkTicket},
	models.CategoryInventory:   {FactOutOfStockPercent, FactOutOfStock},
	models.CategoryCoupon:      {FactCouponUsage, FactCouponTicketImpact},
	models.CategoryCustomer:    {FactRepeatRate, FactCustomers},
	models.CategoryConversion:  {FactMonthlyVisits, FactOrders},
	models.CategoryOperational: {FactCancellationRate},
	models.CategoryProduct:     {FactTopProductsShare, FactActiveProducts},
	models.CategoryMarketing:   {FactMonthlyVisits},
	models.CategoryFinancial:   {FactGoalGap, FactMonthlyRevenue},
	models.CategoryGrowth:      {FactGoalGap, FactSalesChange},
}

// AnchorFor picks the fact that best grounds a suggestion of category.
func (f FactSheet) AnchorFor(category models.SuggestionCategory) (string, float64, bool) {
	for _, key := range append(categoryFacts[category], FactPeriodRevenue, FactMonthlyRevenue, FactAverageTicket) {
		if v, ok := f[key]; ok {
			return key, v, true
		}
	}
	return "", 0, false
}

// Label renders a fact key for Portuguese text.
func Label(key string) string {
	return strings.ReplaceAll(key, "_", " ")
}

// Format renders a fact value in its natural unit.
func Format(key string, v float64) string {
	switch key {
	case FactAverageTicket, FactBenchmarkTicket, FactPeriodRevenue, FactPreviousRevenue,
		FactMonthlyRevenue, FactRevenueGoal, FactGoalGap, FactTargetTicket:
		return locale.FormatBRL(v)
	case FactCancellationRate, FactOutOfStockPercent, FactCouponUsage, FactCouponTicketImpact,
		FactTopProductsShare, FactSalesChange, FactRepeatRate:
		return locale.FormatPercent(v)
	}
	return locale.FormatNumber(v)
}
