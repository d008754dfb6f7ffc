package services

import (
	"github.com/ekaya-inc/growth-engine/pkg/jsonutil"
	"github.com/ekaya-inc/growth-engine/pkg/models"
	"github.com/ekaya-inc/growth-engine/pkg/suggestions"
)

// Models write numbers as "R$ 1.200,00" or "12%" often enough that every
// numeric field of a drafted suggestion is decoded leniently.

type wireCitation struct {
	Metric string                 `json:"metric"`
	Value  jsonutil.FlexibleFloat `json:"value"`
}

type wireExpectedResult struct {
	Description jsonutil.FlexibleString `json:"description"`
	Value       jsonutil.FlexibleFloat  `json:"value"`
	Unit        models.ResultUnit       `json:"unit"`
}

type wireImpact struct {
	BaseMetric      string                 `json:"base_metric"`
	BaseValue       jsonutil.FlexibleFloat `json:"base_value"`
	ImprovementRate jsonutil.FlexibleFloat `json:"improvement_rate"`
	ProjectedValue  jsonutil.FlexibleFloat `json:"projected_value"`
}

type wireImplementation struct {
	Type        models.ImplementationType `json:"type"`
	Complexity  models.Complexity         `json:"complexity"`
	Cost        jsonutil.FlexibleString   `json:"cost"`
	MonthlyCost *jsonutil.FlexibleFloat   `json:"monthly_cost"`
	AppName     string                    `json:"app_name"`
}

type wireActionStep struct {
	What           jsonutil.FlexibleString `json:"what"`
	How            jsonutil.FlexibleString `json:"how"`
	ExpectedResult jsonutil.FlexibleString `json:"expected_result"`
	Time           jsonutil.FlexibleString `json:"time"`
	Resources      jsonutil.FlexibleString `json:"resources"`
	Indicator      jsonutil.FlexibleString `json:"indicator"`
}

// wireSuggestion shadows the numeric fields of models.Suggestion.
type wireSuggestion struct {
	models.Suggestion
	ID                jsonutil.FlexibleString `json:"id"`
	CitedMetrics      []wireCitation          `json:"cited_metrics"`
	ActionSteps       []wireActionStep        `json:"action_steps"`
	ExpectedResult    wireExpectedResult      `json:"expected_result"`
	ImpactCalculation *wireImpact             `json:"impact_calculation"`
	Implementation    wireImplementation      `json:"implementation"`
}

// toModel converts and normalizes loosely written enum values. Review data
// is never taken from the model.
func (w wireSuggestion) toModel() models.Suggestion {
	s := w.Suggestion
	s.ID = string(w.ID)
	s.Review = nil

	s.CitedMetrics = make([]models.MetricCitation, 0, len(w.CitedMetrics))
	for _, c := range w.CitedMetrics {
		s.CitedMetrics = append(s.CitedMetrics, models.MetricCitation{Metric: c.Metric, Value: c.Value.Float()})
	}
	s.ActionSteps = make([]models.ActionStep, 0, len(w.ActionSteps))
	for _, a := range w.ActionSteps {
		s.ActionSteps = append(s.ActionSteps, models.ActionStep{
			What:           string(a.What),
			How:            string(a.How),
			ExpectedResult: string(a.ExpectedResult),
			Time:           string(a.Time),
			Resources:      string(a.Resources),
			Indicator:      string(a.Indicator),
		})
	}
	s.ExpectedResult = models.ExpectedResult{
		Description: string(w.ExpectedResult.Description),
		Value:       w.ExpectedResult.Value.Float(),
		Unit:        w.ExpectedResult.Unit,
	}
	s.ImpactCalculation = nil
	if w.ImpactCalculation != nil {
		s.ImpactCalculation = &models.ImpactCalculation{
			BaseMetric:      w.ImpactCalculation.BaseMetric,
			BaseValue:       w.ImpactCalculation.BaseValue.Float(),
			ImprovementRate: w.ImpactCalculation.ImprovementRate.Float(),
			ProjectedValue:  w.ImpactCalculation.ProjectedValue.Float(),
		}
	}
	s.Implementation = models.Implementation{
		Type:       w.Implementation.Type,
		Complexity: w.Implementation.Complexity,
		Cost:       string(w.Implementation.Cost),
		AppName:    w.Implementation.AppName,
	}
	if w.Implementation.MonthlyCost != nil {
		cost := w.Implementation.MonthlyCost.Float()
		s.Implementation.MonthlyCost = &cost
	}
	suggestions.NormalizeEnums(&s)
	return s
}

func toModels(in []wireSuggestion) []models.Suggestion {
	out := make([]models.Suggestion, 0, len(in))
	for _, w := range in {
		out = append(out, w.toModel())
	}
	return out
}

// suggestionSkipKeys are enum and identifier fields the language check ignores.
var suggestionSkipKeys = []string{
	"id", "replaces_id", "category", "tier", "metric", "base_metric", "unit",
	"data_source", "type", "complexity", "confidence", "app_name", "addresses_problem",
}
