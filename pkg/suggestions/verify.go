package suggestions

import (
	"fmt"
	"math"
	"strings"

	"github.com/ekaya-inc/growth-engine/pkg/locale"
	"github.com/ekaya-inc/growth-engine/pkg/models"
	"github.com/ekaya-inc/growth-engine/pkg/platform"
	"github.com/ekaya-inc/growth-engine/pkg/similarity"
	"github.com/ekaya-inc/growth-engine/pkg/themes"
)

// Verdict is the outcome of the review protocol for one suggestion.
type Verdict string

const (
	// VerdictKeep: every check passed, possibly after corrections.
	VerdictKeep Verdict = "keep"
	// VerdictReplace: the item must be substituted (saturated theme or unaligned HIGH).
	VerdictReplace Verdict = "replace"
	// VerdictReject: the item cannot be salvaged.
	VerdictReject Verdict = "reject"
)

// VerifierConfig tunes the review protocol.
type VerifierConfig struct {
	TopPriorities  int
	MinActionSteps int
}

// Verifier runs the seven-step review protocol against ground truth.
type Verifier struct {
	Facts       FactSheet
	Registry    *themes.Registry
	Saturation  []models.ThemeSaturation
	Platform    *platform.Platform
	Priorities  []string
	Gaps        []string
	Competitors []models.CompetitorInsight
	Config      VerifierConfig
}

// Outcome is a reviewed suggestion with its verdict.
type Outcome struct {
	Suggestion models.Suggestion
	Verdict    Verdict
	Reason     string
}

// Verify reviews a copy of s. Checks run in order and are all recorded; the
// suggestion's Review carries the record and a provisional state.
func (v *Verifier) Verify(in models.Suggestion) Outcome {
	s := in.Clone()
	NormalizeEnums(&s)
	rec := &models.ReviewRecord{}
	out := Outcome{Verdict: VerdictKeep}
	blocked := false
	fail := func(verdict Verdict, reason string) {
		if reason == ReasonBlockedTheme {
			blocked = true
		}
		// Reject outranks replace.
		if out.Verdict == VerdictKeep || verdict == VerdictReject {
			out.Verdict = verdict
			out.Reason = reason
		}
	}

	steps := []struct {
		check models.VerificationCheck
		run   func(*models.Suggestion) (models.CheckResult, Verdict, string)
	}{
		{models.CheckNumeric, v.checkNumeric},
		{models.CheckOriginality, v.checkOriginality},
		{models.CheckSpecificity, v.checkSpecificity},
		{models.CheckFeasibility, v.checkFeasibility},
		{models.CheckImpact, v.checkImpact},
		{models.CheckAlignment, v.checkAlignment},
		{models.CheckAction, v.checkActions},
	}
	for _, step := range steps {
		res, verdict, reason := step.run(&s)
		res.Check = step.check
		rec.Checks = append(rec.Checks, res)
		if verdict != VerdictKeep {
			fail(verdict, reason)
		}
	}

	rec.State = models.ReviewApproved
	if rec.Corrections() > 0 {
		rec.State = models.ReviewImproved
	}
	s.Review = rec
	rec.QualityScore = QualityScore(&s, len(v.Competitors) > 0)
	if blocked {
		rec.QualityScore = 0
	}
	out.Suggestion = s
	return out
}

func passed() (models.CheckResult, Verdict, string) {
	return models.CheckResult{Passed: true}, VerdictKeep, ""
}

func corrected(detail string) (models.CheckResult, Verdict, string) {
	return models.CheckResult{Passed: true, Corrected: true, Detail: detail}, VerdictKeep, ""
}

func failed(verdict Verdict, reason, detail string) (models.CheckResult, Verdict, string) {
	return models.CheckResult{Passed: false, Detail: detail}, verdict, reason
}

// 1. Every cited number must match ground truth; mismatches are corrected in
// place and unknown metrics are removed.
func (v *Verifier) checkNumeric(s *models.Suggestion) (models.CheckResult, Verdict, string) {
	var fixes []string
	kept := s.CitedMetrics[:0:0]
	for _, c := range s.CitedMetrics {
		key := Canonical(c.Metric)
		fact, ok := v.Facts[key]
		if !ok {
			fixes = append(fixes, fmt.Sprintf("%s removida (sem dado)", c.Metric))
			continue
		}
		if !Matches(fact, c.Value) {
			fixes = append(fixes, fmt.Sprintf("%s: %s -> %s", key, locale.FormatNumber(c.Value), locale.FormatNumber(fact)))
			s.Problem = replaceNumber(s.Problem, c.Value, fact)
		}
		kept = append(kept, models.MetricCitation{Metric: key, Value: fact})
	}
	s.CitedMetrics = kept
	if len(fixes) == 0 {
		return passed()
	}
	return corrected(strings.Join(fixes, "; "))
}

// 2. A suggestion on a blocked theme is rejected with minimum score and replaced.
func (v *Verifier) checkOriginality(s *models.Suggestion) (models.CheckResult, Verdict, string) {
	if t, blocked := similarity.BlockedMatch(*s, v.Saturation, v.Registry); blocked {
		return failed(VerdictReplace, ReasonBlockedTheme,
			fmt.Sprintf("tema %q já aparece %d vezes no histórico", t.Label, t.Count))
	}
	s.Themes = v.Registry.Match(similarity.SuggestionText(*s))
	return passed()
}

// 3. The problem statement must carry store data; generic statements are
// rewritten with the most relevant fact.
func (v *Verifier) checkSpecificity(s *models.Suggestion) (models.CheckResult, Verdict, string) {
	if len(s.CitedMetrics) > 0 && locale.HasNumber(s.Problem) {
		return passed()
	}
	var key string
	var value float64
	if len(s.CitedMetrics) > 0 {
		key, value = s.CitedMetrics[0].Metric, s.CitedMetrics[0].Value
	} else {
		var ok bool
		key, value, ok = v.Facts.AnchorFor(s.Category)
		if !ok {
			return failed(VerdictReject, ReasonUngrounded, "nenhum dado da loja disponível para ancorar o problema")
		}
		s.CitedMetrics = append(s.CitedMetrics, models.MetricCitation{Metric: key, Value: value})
	}
	if !locale.HasNumber(s.Problem) {
		s.Problem = strings.TrimRight(strings.TrimSpace(s.Problem), ".") +
			fmt.Sprintf(" (%s: %s).", Label(key), Format(key, value))
	}
	return corrected("problema reescrito com " + key)
}

// 4. Infeasible actions are rejected; paid apps get their real price.
func (v *Verifier) checkFeasibility(s *models.Suggestion) (models.CheckResult, Verdict, string) {
	if v.Platform == nil {
		return passed()
	}
	before := s.Implementation
	if !ApplyFeasibility(s, v.Platform) {
		return failed(VerdictReject, ReasonInfeasible, "ação não suportada pela plataforma")
	}
	if before.Type != s.Implementation.Type || before.AppName != s.Implementation.AppName ||
		!sameCost(before.MonthlyCost, s.Implementation.MonthlyCost) {
		return corrected(fmt.Sprintf("implementação ajustada para %s", s.Implementation.Type))
	}
	return passed()
}

// 5. base x rate = projected must hold; incomplete calculations are
// completed from ground truth.
func (v *Verifier) checkImpact(s *models.Suggestion) (models.CheckResult, Verdict, string) {
	var fixes []string
	calc := s.ImpactCalculation
	if calc == nil {
		key, base, ok := v.baseFor(s)
		if !ok || s.ExpectedResult.Value <= 0 || s.ExpectedResult.Unit != models.UnitBRL {
			return failed(VerdictReject, ReasonNoImpact, "cálculo de impacto ausente e sem base para completá-lo")
		}
		rate := round4(s.ExpectedResult.Value / base)
		s.ImpactCalculation = &models.ImpactCalculation{
			BaseMetric: key, BaseValue: base, ImprovementRate: rate, ProjectedValue: round2(base * rate),
		}
		s.ExpectedResult.Value = s.ImpactCalculation.ProjectedValue
		return corrected("cálculo de impacto completado a partir de " + key)
	}

	key := Canonical(calc.BaseMetric)
	fact, ok := v.Facts[key]
	if !ok {
		var alt string
		if alt, fact, ok = v.baseFor(s); !ok {
			return failed(VerdictReject, ReasonNoImpact, fmt.Sprintf("métrica base %q sem dado", calc.BaseMetric))
		}
		fixes = append(fixes, fmt.Sprintf("base %s -> %s", calc.BaseMetric, alt))
		key = alt
	}
	calc.BaseMetric = key
	if !Matches(fact, calc.BaseValue) {
		fixes = append(fixes, fmt.Sprintf("valor base %s -> %s", locale.FormatNumber(calc.BaseValue), locale.FormatNumber(fact)))
		calc.BaseValue = fact
	}
	if calc.ImprovementRate > 1 {
		calc.ImprovementRate = round4(calc.ImprovementRate / 100)
		fixes = append(fixes, "taxa convertida de percentual")
	}
	if calc.ImprovementRate <= 0 {
		return failed(VerdictReject, ReasonNoImpact, "taxa de melhoria inválida")
	}
	projected := round2(calc.BaseValue * calc.ImprovementRate)
	if !Matches(projected, calc.ProjectedValue) {
		fixes = append(fixes, fmt.Sprintf("projeção %s -> %s", locale.FormatNumber(calc.ProjectedValue), locale.FormatNumber(projected)))
		calc.ProjectedValue = projected
	}
	if s.ExpectedResult.Unit == models.UnitBRL && !Matches(calc.ProjectedValue, s.ExpectedResult.Value) {
		fixes = append(fixes, "resultado esperado alinhado à projeção")
		s.ExpectedResult.Value = calc.ProjectedValue
	}
	if len(fixes) == 0 {
		return passed()
	}
	return corrected(strings.Join(fixes, "; "))
}

// baseFor picks a revenue base for completing an impact calculation.
func (v *Verifier) baseFor(s *models.Suggestion) (string, float64, bool) {
	for _, key := range []string{FactMonthlyRevenue, FactPeriodRevenue} {
		if base, ok := v.Facts[key]; ok && base > 0 {
			return key, base, true
		}
	}
	return "", 0, false
}

// 6. HIGH items must target a top priority (or a known gap) and stay within
// the strategic categories.
func (v *Verifier) checkAlignment(s *models.Suggestion) (models.CheckResult, Verdict, string) {
	if s.Tier != models.TierHigh {
		return passed()
	}
	if GateTier(s) {
		return corrected("categoria tática rebaixada para média")
	}
	if v.Aligned(s.AddressesProblem) {
		return passed()
	}
	return failed(VerdictReplace, ReasonUnaligned,
		fmt.Sprintf("problema %q fora das %d prioridades", s.AddressesProblem, v.Config.TopPriorities))
}

// Aligned reports whether problem is one of the top priorities or an
// identified gap.
func (v *Verifier) Aligned(problem string) bool {
	p := Canonical(problem)
	if p == "" {
		return false
	}
	top := v.Priorities
	if k := v.Config.TopPriorities; k > 0 && len(top) > k {
		top = top[:k]
	}
	raw := strings.ReplaceAll(locale.Normalize(problem), " ", "_")
	for _, key := range top {
		if raw == key || Canonical(key) == p {
			return true
		}
	}
	if p == models.ProblemGoalGap || p == FactGoalGap {
		_, ok := v.Facts.Gap()
		return ok
	}
	for _, gap := range v.Gaps {
		if locale.ContainsTerm(gap, strings.ReplaceAll(p, "_", " ")) {
			return true
		}
	}
	return false
}

// 7. Every step needs what/how/expected result/resources. Missing results
// and resources are completed; steps without what or how are dropped.
func (v *Verifier) checkActions(s *models.Suggestion) (models.CheckResult, Verdict, string) {
	var fixes []string
	steps := make([]models.ActionStep, 0, len(s.ActionSteps))
	for i, st := range s.ActionSteps {
		if strings.TrimSpace(st.What) == "" || len(strings.Fields(st.How)) < 3 {
			fixes = append(fixes, fmt.Sprintf("passo %d removido", i+1))
			continue
		}
		if strings.TrimSpace(st.ExpectedResult) == "" {
			st.ExpectedResult = stepResult(s)
			fixes = append(fixes, fmt.Sprintf("passo %d: resultado esperado", i+1))
		}
		if strings.TrimSpace(st.Resources) == "" {
			st.Resources = stepResources(s)
			fixes = append(fixes, fmt.Sprintf("passo %d: recursos", i+1))
		}
		steps = append(steps, st)
	}
	s.ActionSteps = steps
	if len(steps) < v.Config.MinActionSteps {
		return failed(VerdictReject, ReasonIncomplete,
			fmt.Sprintf("%d passos completos, mínimo %d", len(steps), v.Config.MinActionSteps))
	}
	if len(fixes) == 0 {
		return passed()
	}
	return corrected(strings.Join(fixes, "; "))
}

func stepResult(s *models.Suggestion) string {
	if c := s.ImpactCalculation; c != nil {
		return fmt.Sprintf("Contribuir para a projeção de %s", locale.FormatBRL(c.ProjectedValue))
	}
	return "Contribuir para o resultado esperado da sugestão"
}

func stepResources(s *models.Suggestion) string {
	if s.Implementation.Type == models.ImplementationApp && s.Implementation.AppName != "" {
		return fmt.Sprintf("App %s (%s)", s.Implementation.AppName, s.Implementation.Cost)
	}
	return "Recursos nativos da plataforma e equipe da loja"
}

// replaceNumber rewrites the number tokens of text that are old, keeping
// each token's decimal style.
func replaceNumber(text string, old, updated float64) string {
	return locale.ReplaceNumbers(text, func(token string, v float64) (string, bool) {
		if !Matches(old, v) {
			return "", false
		}
		return locale.FormatLike(token, updated), true
	})
}

func sameCost(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return math.Abs(*a-*b) < 0.005
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
