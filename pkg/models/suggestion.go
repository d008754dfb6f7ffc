package models

// MetricCitation is a number from store data quoted by a suggestion.
type MetricCitation struct {
	Metric string  `json:"metric"`
	Value  float64 `json:"value"`
}

// ActionStep is one step of a suggestion's action plan.
type ActionStep struct {
	What           string `json:"what"`
	How            string `json:"how"`
	ExpectedResult string `json:"expected_result"`
	Time           string `json:"time,omitempty"`
	Resources      string `json:"resources"`
	Indicator      string `json:"indicator,omitempty"`
}

// ResultUnit is the unit of a quantified expected result.
type ResultUnit string

const (
	UnitBRL     ResultUnit = "BRL"
	UnitPercent ResultUnit = "percent"
)

// ExpectedResult is the quantified outcome of a suggestion.
type ExpectedResult struct {
	Description string     `json:"description"`
	Value       float64    `json:"value"`
	Unit        ResultUnit `json:"unit"`
}

// ImpactCalculation records base_metric x improvement_rate = projected_value.
type ImpactCalculation struct {
	BaseMetric      string  `json:"base_metric"`
	BaseValue       float64 `json:"base_value"`
	ImprovementRate float64 `json:"improvement_rate"`
	ProjectedValue  float64 `json:"projected_value"`
}

// Implementation describes how a suggestion is delivered on the platform.
type Implementation struct {
	Type        ImplementationType `json:"type"`
	Complexity  Complexity         `json:"complexity"`
	Cost        string             `json:"cost,omitempty"`
	MonthlyCost *float64           `json:"monthly_cost,omitempty"`
	AppName     string             `json:"app_name,omitempty"`
}

// CheckResult is the recorded outcome of one verification step.
type CheckResult struct {
	Check     VerificationCheck `json:"check"`
	Passed    bool              `json:"passed"`
	Corrected bool              `json:"corrected,omitempty"`
	Detail    string            `json:"detail,omitempty"`
}

// ReviewRecord is attached to every suggestion that survives the Critic.
type ReviewRecord struct {
	State        ReviewState   `json:"state"`
	Checks       []CheckResult `json:"checks"`
	QualityScore float64       `json:"quality_score"`
	ReplacedID   string        `json:"replaced_id,omitempty"`
	Notes        []string      `json:"notes,omitempty"`
}

// Failed reports whether any check failed without a correction.
func (r *ReviewRecord) Failed() bool {
	for _, c := range r.Checks {
		if !c.Passed && !c.Corrected {
			return true
		}
	}
	return false
}

// Corrections counts checks that passed only after an in-place fix.
func (r *ReviewRecord) Corrections() int {
	n := 0
	for _, c := range r.Checks {
		if c.Corrected {
			n++
		}
	}
	return n
}

// Suggestion is a candidate or curated growth action.
type Suggestion struct {
	ID                  string             `json:"id"`
	Category            SuggestionCategory `json:"category"`
	Tier                ImpactTier         `json:"tier"`
	Title               string             `json:"title"`
	Problem             string             `json:"problem"`
	CitedMetrics        []MetricCitation   `json:"cited_metrics"`
	ActionSteps         []ActionStep       `json:"action_steps"`
	ExpectedResult      ExpectedResult     `json:"expected_result"`
	ImpactCalculation   *ImpactCalculation `json:"impact_calculation"`
	DataSource          DataSource         `json:"data_source"`
	Implementation      Implementation     `json:"implementation"`
	CompetitorReference string             `json:"competitor_reference,omitempty"`
	Confidence          ConfidenceLevel    `json:"confidence"`
	AddressesProblem    string             `json:"addresses_problem,omitempty"`
	Themes              []string           `json:"themes,omitempty"`
	Review              *ReviewRecord      `json:"review,omitempty"`
}

// Clone returns a deep copy so reviews never mutate the Strategist's slate.
func (s Suggestion) Clone() Suggestion {
	out := s
	out.CitedMetrics = append([]MetricCitation(nil), s.CitedMetrics...)
	out.ActionSteps = append([]ActionStep(nil), s.ActionSteps...)
	out.Themes = append([]string(nil), s.Themes...)
	if s.ImpactCalculation != nil {
		calc := *s.ImpactCalculation
		out.ImpactCalculation = &calc
	}
	if s.Implementation.MonthlyCost != nil {
		cost := *s.Implementation.MonthlyCost
		out.Implementation.MonthlyCost = &cost
	}
	if s.Review != nil {
		review := *s.Review
		review.Checks = append([]CheckResult(nil), s.Review.Checks...)
		review.Notes = append([]string(nil), s.Review.Notes...)
		out.Review = &review
	}
	return out
}

// DroppedCandidate records a suggestion removed by validation.
type DroppedCandidate struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
}
