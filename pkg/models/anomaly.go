package models

// AnomalyType identifies the detection rule that fired.
type AnomalyType string

const (
	AnomalyDailyRevenueDrop     AnomalyType = "queda_receita_diaria"
	AnomalyStockRupture         AnomalyType = "ruptura_estoque"
	AnomalyRevenueConcentration AnomalyType = "concentracao_receita"
	AnomalyCouponDependency     AnomalyType = "dependencia_cupom"
	AnomalyHighCancellation     AnomalyType = "cancelamento_elevado"
	AnomalyTicketBelowBenchmark AnomalyType = "ticket_abaixo_benchmark"
)

// Severity grades an anomaly.
type Severity string

const (
	SeverityHigh   Severity = "alta"
	SeverityMedium Severity = "media"
	SeverityLow    Severity = "baixa"
)

// Rank orders severities, higher first.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// Evidence is a metric observation that supports an anomaly.
type Evidence struct {
	Metric    string  `json:"metrica"`
	Value     float64 `json:"valor"`
	Threshold float64 `json:"limite"`
	Detail    string  `json:"detalhe,omitempty"`
}

// Anomaly is a rule-backed deviation. It always carries at least one Evidence.
type Anomaly struct {
	Type           AnomalyType `json:"tipo"`
	Description    string      `json:"descricao"`
	Severity       Severity    `json:"severidade"`
	Evidence       []Evidence  `json:"dados"`
	ImpactEstimate *float64    `json:"impacto_estimado,omitempty"`
}
