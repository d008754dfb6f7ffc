package health

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/growth-engine/pkg/models"
)

func TestDetectAnomalies_ScenarioA(t *testing.T) {
	period, bench := scenarioA()
	m, _ := ComputeMetrics(period, bench)
	anomalies := DetectAnomalies(period, m)

	types := make(map[models.AnomalyType]models.Anomaly)
	for _, a := range anomalies {
		require.NotEmpty(t, a.Evidence, a.Type)
		types[a.Type] = a
	}
	assert.Contains(t, types, models.AnomalyStockRupture)
	assert.Contains(t, types, models.AnomalyCouponDependency)
	assert.Contains(t, types, models.AnomalyHighCancellation)
	assert.Contains(t, types, models.AnomalyTicketBelowBenchmark)
	assert.NotContains(t, types, models.AnomalyDailyRevenueDrop)
	assert.NotContains(t, types, models.AnomalyRevenueConcentration)

	assert.Equal(t, models.SeverityHigh, types[models.AnomalyCouponDependency].Severity)
	assert.Equal(t, models.SeverityMedium, types[models.AnomalyStockRupture].Severity)

	// Most severe first.
	for i := 1; i < len(anomalies); i++ {
		assert.GreaterOrEqual(t, anomalies[i-1].Severity.Rank(), anomalies[i].Severity.Rank())
	}
}

func TestDetectAnomalies_NoRuleNoAnomaly(t *testing.T) {
	period := models.PeriodData{
		Orders: models.OrdersSummary{Count: ptrI(100), Revenue: ptrF(20000), Cancelled: ptrI(2)},
	}
	m, _ := ComputeMetrics(period, nil)
	assert.Empty(t, DetectAnomalies(period, m))
}

func TestDetectAnomalies_DailyDrop(t *testing.T) {
	period := models.PeriodData{
		Orders: models.OrdersSummary{DailyRevenue: []models.DailyRevenue{
			{Date: "2026-10-01", Revenue: 1000},
			{Date: "2026-10-02", Revenue: 1000},
			{Date: "2026-10-03", Revenue: 1000},
			{Date: "2026-10-04", Revenue: 100},
		}},
	}
	m, _ := ComputeMetrics(period, nil)
	anomalies := DetectAnomalies(period, m)
	require.Len(t, anomalies, 1)

	a := anomalies[0]
	assert.Equal(t, models.AnomalyDailyRevenueDrop, a.Type)
	require.Len(t, a.Evidence, 1)
	assert.Equal(t, "2026-10-04", a.Evidence[0].Detail)
	assert.InDelta(t, 387.5, a.Evidence[0].Threshold, 0.001)
	// 100 is below 25% of the 775 average.
	assert.Equal(t, models.SeverityHigh, a.Severity)
}

func TestPriorities(t *testing.T) {
	period, bench := scenarioA()
	m, _ := ComputeMetrics(period, bench)
	prio := Priorities(DetectAnomalies(period, m), m.Health)

	require.NotEmpty(t, prio)
	assert.Equal(t, models.ComponentCoupon, prio[0])
	assert.ElementsMatch(t,
		[]string{models.ComponentCoupon, models.ComponentStock, models.ComponentCancellation, models.ComponentTicket, models.ComponentTrend},
		prio)
	assert.Equal(t, models.ComponentTrend, prio[len(prio)-1])
}
