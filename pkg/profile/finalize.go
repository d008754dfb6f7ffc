package profile

import (
	"time"

	"github.com/ekaya-inc/growth-engine/pkg/locale"
	"github.com/ekaya-inc/growth-engine/pkg/models"
)

// Finalize applies the deterministic rules over a model-drafted profile:
// threshold tiers replace the model's guess, blank fields become
// undetermined, unmeasurable differentiators are dropped and the event list
// is rebuilt from the calendar.
func Finalize(draft models.ProfileResult, in models.ProfileInput) models.ProfileResult {
	out := draft
	p := &out.Profile

	if p.Niche == "" {
		p.Niche = in.Store.Niche
	}
	if p.SubNiche == "" {
		p.SubNiche = in.Store.Subcategory
	}
	p.Niche = OrUndetermined(p.Niche)
	p.SubNiche = OrUndetermined(p.SubNiche)
	p.TargetAudience = OrUndetermined(p.TargetAudience)
	p.Positioning = OrUndetermined(p.Positioning)

	p.SizeTier = SizeTierFor(in.Store.Stats.MonthlyRevenue)
	p.DigitalMaturity = MaturityFor(in.Store.Stats.MonthlyVisits, in.Store.Signals)

	kept, rejected := FilterDifferentiators(p.Differentiators)
	p.Differentiators = kept
	out.RejectedDifferentials = rejected
	if p.SeasonalityNotes == nil {
		p.SeasonalityNotes = []string{}
	}

	date := in.Date
	if date.IsZero() {
		date = time.Now()
	}
	out.Context.Date = date
	out.Context.UpcomingEvents = UpcomingEvents(date, EventWindowDays)

	observations := make([]string, 0, len(out.Context.InitialObservations))
	for _, o := range out.Context.InitialObservations {
		if o != "" && !locale.IsEnglish(o) {
			observations = append(observations, o)
		}
	}
	out.Context.InitialObservations = observations
	return out
}
