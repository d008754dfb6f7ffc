// Package profile holds the deterministic rules behind the store profile:
// size and maturity tiers, measurable differentiators and the retail calendar.
package profile

import (
	"strings"

	"github.com/ekaya-inc/growth-engine/pkg/locale"
	"github.com/ekaya-inc/growth-engine/pkg/models"
)

// Monthly revenue bands (BRL).
const (
	MicroRevenueLimit  = 10_000.0
	SmallRevenueLimit  = 50_000.0
	MediumRevenueLimit = 200_000.0
)

// Monthly visit bands.
const (
	BeginnerVisitLimit     = 1_000
	IntermediateVisitLimit = 10_000
)

// SizeTierFor classifies monthly revenue; unknown revenue is undetermined.
func SizeTierFor(monthlyRevenue *float64) models.SizeTier {
	if monthlyRevenue == nil || *monthlyRevenue < 0 {
		return models.SizeUndetermined
	}
	switch r := *monthlyRevenue; {
	case r < MicroRevenueLimit:
		return models.SizeMicro
	case r < SmallRevenueLimit:
		return models.SizeSmall
	case r < MediumRevenueLimit:
		return models.SizeMedium
	default:
		return models.SizeLarge
	}
}

var maturityBands = []models.MaturityTier{
	models.MaturityBeginner,
	models.MaturityIntermediate,
	models.MaturityAdvanced,
}

// MaturityFor classifies digital maturity. Visits give the base band; four or
// more qualitative signals move it one band up, and a top-band store with no
// signal at all moves one band down. Without visits, signals alone decide and
// fewer than two signals is undetermined.
func MaturityFor(monthlyVisits *int, signals models.MaturitySignals) models.MaturityTier {
	n := signals.Count()
	if monthlyVisits == nil {
		switch {
		case n < 2:
			return models.MaturityUndetermined
		case n < 4:
			return models.MaturityIntermediate
		default:
			return models.MaturityAdvanced
		}
	}

	band := 0
	switch v := *monthlyVisits; {
	case v < BeginnerVisitLimit:
		band = 0
	case v < IntermediateVisitLimit:
		band = 1
	default:
		band = 2
	}
	switch {
	case n >= 4 && band < 2:
		band++
	case n == 0 && band == 2:
		band--
	}
	return maturityBands[band]
}

// IsMeasurable reports whether a differentiator carries a count, price or
// percentage rather than a bare adjective.
func IsMeasurable(differentiator string) bool {
	return locale.HasNumber(differentiator)
}

// FilterDifferentiators splits differentiators into measurable and rejected.
func FilterDifferentiators(in []string) (kept, rejected []string) {
	kept = []string{}
	for _, d := range in {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		if IsMeasurable(d) {
			kept = append(kept, d)
		} else {
			rejected = append(rejected, d)
		}
	}
	return kept, rejected
}

// OrUndetermined returns s, or the undetermined marker when s is blank.
func OrUndetermined(s string) string {
	if strings.TrimSpace(s) == "" {
		return models.Undetermined
	}
	return s
}
