package suggestions

import (
	"math"

	"github.com/ekaya-inc/growth-engine/pkg/locale"
	"github.com/ekaya-inc/growth-engine/pkg/models"
)

// Quality score bounds.
const (
	MinQuality = 0.0
	MaxQuality = 10.0

	maxRescorePasses = 3

	// Strict pass weights. Only checks that passed without correction earn
	// the review share.
	strictReviewShare = 6.0
	strictDataBonus   = 1.0
	strictDepthBonus  = 1.0
	strictTraitBonus  = 0.5
)

// QualityScore rates a reviewed suggestion from 0 to 10. Every correction
// the review had to make costs a point.
func QualityScore(s *models.Suggestion, externalData bool) float64 {
	score := 5.0
	if s.DataSource == models.DataSourceDirect {
		score++
	}
	if len(s.CitedMetrics) >= 2 {
		score++
	}
	if len(s.ActionSteps) >= 3 {
		score++
	}
	if s.ImpactCalculation != nil && s.ExpectedResult.Value > 0 {
		score++
	}
	if externalData && s.CompetitorReference != "" {
		score++
	}
	if s.Implementation.Type == models.ImplementationNative {
		score += 0.5
	}
	if s.Confidence == models.ConfidenceHigh {
		score += 0.5
	}
	if s.Review != nil {
		score -= float64(s.Review.Corrections())
	}
	return clampScore(score)
}

// Average returns the mean quality score of a slate.
func Average(slate []models.Suggestion) float64 {
	if len(slate) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range slate {
		if s.Review != nil {
			sum += s.Review.QualityScore
		}
	}
	return math.Round(sum/float64(len(slate))*100) / 100
}

// Rescore applies strict passes while the average exceeds maxAverage: a
// high average across the board means the review was not rigorous enough.
// Each pass re-scores every item against tighter criteria and never raises a
// score. It reports whether a pass ran.
func Rescore(slate []models.Suggestion, maxAverage float64) bool {
	changed := false
	for pass := 1; pass <= maxRescorePasses && len(slate) > 0 && Average(slate) > maxAverage; pass++ {
		for i := range slate {
			r := slate[i].Review
			if r == nil {
				continue
			}
			r.QualityScore = math.Min(r.QualityScore, StrictScore(&slate[i], pass))
			if !changed {
				r.Notes = append(r.Notes, "nota revisada em passada rigorosa")
			}
		}
		changed = true
	}
	return changed
}

// StrictScore rates s under the criteria of a strict pass. Corrected checks
// earn nothing. Later passes demand more cited metrics and action steps, and
// from the second pass on confidence and native implementation stop counting.
func StrictScore(s *models.Suggestion, pass int) float64 {
	score := 0.0
	if r := s.Review; r != nil && len(r.Checks) > 0 {
		clean := 0
		for _, c := range r.Checks {
			if c.Passed && !c.Corrected {
				clean++
			}
		}
		score += strictReviewShare * float64(clean) / float64(len(models.VerificationOrder))
	}
	if s.DataSource == models.DataSourceDirect {
		score += strictDataBonus
	}
	if len(s.CitedMetrics) >= 2+pass {
		score += strictDepthBonus
	}
	if len(s.ActionSteps) >= 3+pass {
		score += strictDepthBonus
	}
	if pass < 2 {
		if s.Confidence == models.ConfidenceHigh {
			score += strictTraitBonus
		}
		if s.Implementation.Type == models.ImplementationNative {
			score += strictTraitBonus
		}
	}
	return clampScore(math.Round(score*100) / 100)
}

// StripFabricatedReference clears a competitor reference that does not name
// a supplied competitor. Without competitor data every reference is dropped.
// It reports whether the reference was removed.
func StripFabricatedReference(s *models.Suggestion, competitors []models.CompetitorInsight) bool {
	if s.CompetitorReference == "" {
		return false
	}
	for _, c := range competitors {
		if c.Name != "" && locale.ContainsTerm(s.CompetitorReference, c.Name) {
			return false
		}
	}
	s.CompetitorReference = ""
	return true
}

func clampScore(v float64) float64 {
	return math.Max(MinQuality, math.Min(MaxQuality, v))
}
