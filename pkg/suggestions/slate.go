package suggestions

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/growth-engine/pkg/locale"
	"github.com/ekaya-inc/growth-engine/pkg/models"
	"github.com/ekaya-inc/growth-engine/pkg/platform"
	"github.com/ekaya-inc/growth-engine/pkg/similarity"
)

// Drop reasons recorded for rejected candidates.
const (
	ReasonUnknownCategory = "categoria desconhecida"
	ReasonUnknownTier     = "nível de impacto desconhecido"
	ReasonUngrounded      = "sem número verificável dos dados da loja"
	ReasonNoImpact        = "cálculo de impacto ausente ou sem base rastreável"
	ReasonDuplicate       = "repete sugestão anterior"
	ReasonInfeasible      = "inviável na plataforma"
	ReasonOverflow        = "excede o tamanho do nível"
	ReasonBlockedTheme    = "tema saturado no histórico"
	ReasonIncomplete      = "plano de ação incompleto"
	ReasonUnaligned       = "não endereça problema prioritário"
)

// SlateConfig fixes the slate size per tier.
type SlateConfig struct {
	StrategicCount int
	TacticalCount  int
}

// Target returns the slate size of tier.
func (c SlateConfig) Target(tier models.ImpactTier) int {
	if tier == models.TierHigh {
		return c.StrategicCount
	}
	return c.TacticalCount
}

// SlateValidator enforces the Strategist's contract on a model-drafted slate.
type SlateValidator struct {
	Facts    FactSheet
	Checker  *similarity.Checker
	Platform *platform.Platform
	Zones    []models.ProhibitedZone
	Config   SlateConfig
}

// Validate keeps the grounded, original and feasible candidates, demotes
// non-strategic HIGH items and truncates each tier to its configured size.
// Candidates are never invented here; the result may be short.
func (v *SlateValidator) Validate(candidates []models.Suggestion) models.StrategistResult {
	res := models.StrategistResult{Suggestions: []models.Suggestion{}}
	var accepted []models.Suggestion
	counts := make(map[models.ImpactTier]int)

	for i, raw := range candidates {
		s := raw.Clone()
		if s.ID == "" {
			s.ID = fmt.Sprintf("s%d", i+1)
		}
		reason := v.check(&s, accepted)
		if reason == "" && counts[s.Tier] >= v.Config.Target(s.Tier) {
			reason = ReasonOverflow
		}
		if reason != "" {
			res.Dropped = append(res.Dropped, models.DroppedCandidate{ID: s.ID, Title: s.Title, Reason: reason})
			continue
		}
		counts[s.Tier]++
		accepted = append(accepted, s)
	}

	// Stable tier order: HIGH, MEDIUM, LOW.
	for _, tier := range models.AllTiers {
		for _, s := range accepted {
			if s.Tier == tier {
				res.Suggestions = append(res.Suggestions, s)
			}
		}
	}
	return res
}

// Short reports how many candidates each tier is missing.
func (v *SlateValidator) Short(res models.StrategistResult) map[models.ImpactTier]int {
	counts := make(map[models.ImpactTier]int)
	for _, s := range res.Suggestions {
		counts[s.Tier]++
	}
	out := make(map[models.ImpactTier]int)
	for _, tier := range models.AllTiers {
		if missing := v.Config.Target(tier) - counts[tier]; missing > 0 {
			out[tier] = missing
		}
	}
	return out
}

func (v *SlateValidator) check(s *models.Suggestion, accepted []models.Suggestion) string {
	if !s.Category.IsValid() {
		return ReasonUnknownCategory
	}
	if !s.Tier.IsValid() {
		return ReasonUnknownTier
	}
	GateTier(s)

	if !v.grounded(s) {
		return ReasonUngrounded
	}
	if !v.traceableImpact(s) {
		return ReasonNoImpact
	}
	if z := v.Checker.DuplicateOf(*s, v.Zones); z != nil {
		return ReasonDuplicate
	}
	fp := v.Checker.FingerprintOf(*s)
	for _, a := range accepted {
		if v.Checker.IsDuplicate(fp, v.Checker.FingerprintOf(a)) {
			return ReasonDuplicate
		}
	}
	if v.Platform != nil && !ApplyFeasibility(s, v.Platform) {
		return ReasonInfeasible
	}
	return ""
}

// grounded requires a number in the problem statement and at least one
// citation of a known fact.
func (v *SlateValidator) grounded(s *models.Suggestion) bool {
	if !locale.HasNumber(s.Problem) {
		return false
	}
	for _, c := range s.CitedMetrics {
		if _, ok := v.Facts.Get(c.Metric); ok {
			return true
		}
	}
	return false
}

func (v *SlateValidator) traceableImpact(s *models.Suggestion) bool {
	if s.ImpactCalculation == nil {
		return false
	}
	_, ok := v.Facts.Get(s.ImpactCalculation.BaseMetric)
	return ok
}

// GateTier demotes a HIGH suggestion whose category is not business-strategic.
// It reports whether the tier changed.
func GateTier(s *models.Suggestion) bool {
	if s.Tier == models.TierHigh && !s.Category.IsStrategic() {
		s.Tier = models.TierMedium
		return true
	}
	return false
}

// ApplyFeasibility annotates the implementation from the catalogue and
// reports whether the action is feasible at all.
func ApplyFeasibility(s *models.Suggestion, p *platform.Platform) bool {
	a := p.Assess(similarity.SuggestionText(*s))
	if !a.Feasible {
		return false
	}
	if a.Matched == nil {
		if !s.Implementation.Type.IsValid() {
			s.Implementation.Type = models.ImplementationNative
		}
		return true
	}
	s.Implementation.Type = a.Type
	if a.Type == models.ImplementationApp {
		s.Implementation.AppName = a.Matched.App
		cost := *a.Matched.MonthlyCost
		s.Implementation.MonthlyCost = &cost
		s.Implementation.Cost = locale.FormatBRL(cost) + "/mês"
	} else {
		s.Implementation.AppName = ""
		s.Implementation.MonthlyCost = nil
		s.Implementation.Cost = "gratuito"
	}
	return true
}

// NormalizeEnums folds loosely written enum values from model output.
func NormalizeEnums(s *models.Suggestion) {
	s.Category = models.SuggestionCategory(strings.ToLower(strings.TrimSpace(string(s.Category))))
	if tier, err := models.ParseTier(string(s.Tier)); err == nil {
		s.Tier = tier
	}
	if !s.DataSource.IsValid() {
		s.DataSource = models.DataSourceInference
	}
	if s.ExpectedResult.Unit == "" {
		s.ExpectedResult.Unit = models.UnitBRL
	}
}
