package suggestions

import (
	"math"
	"sort"

	"github.com/ekaya-inc/growth-engine/pkg/models"
	"github.com/ekaya-inc/growth-engine/pkg/similarity"
)

// SelectionConfig tunes the Critic's selection.
type SelectionConfig struct {
	// Ratio of each tier kept, e.g. 0.5 keeps 3 of 6.
	Ratio float64
	// MaxAverage triggers strict re-scoring when exceeded.
	MaxAverage float64
	// MinExternal HIGH/MEDIUM items must cite supplied competitor data.
	MinExternal int
	// GoalCoverage is the share of the monthly revenue gap the slate must cover.
	GoalCoverage float64
}

// TargetCount is how many of size candidates a tier keeps: floor(size x
// ratio), always strictly fewer than size.
func TargetCount(size int, ratio float64) int {
	if size <= 0 {
		return 0
	}
	n := int(math.Floor(float64(size) * ratio))
	if n >= size {
		n = size - 1
	}
	if n < 0 {
		n = 0
	}
	return n
}

// Alternative is a freshly built substitute proposed by the model.
type Alternative struct {
	ReplacesID string
	Suggestion models.Suggestion
}

// Proposal is the model's review of the slate.
type Proposal struct {
	// Picks are revised candidates in preference order, matched by ID.
	Picks        []models.Suggestion
	Alternatives []Alternative
}

// Curation is the curated slate.
type Curation struct {
	Suggestions    []models.Suggestion
	Rejected       []models.DroppedCandidate
	External       models.ExternalJustification
	GoalCoverage   *models.GoalCoverage
	AverageQuality float64
	Rescored       bool
}

// Curator selects, reviews and replaces suggestions.
type Curator struct {
	Verifier *Verifier
	Checker  *similarity.Checker
	Zones    []models.ProhibitedZone
	Config   SelectionConfig
}

type curationRun struct {
	c         *Curator
	byTier    map[models.ImpactTier][]models.Suggestion
	revised   map[string]models.Suggestion
	alts      []Alternative
	altUsed   []bool
	used      map[string]bool
	accepted  map[models.ImpactTier][]models.Suggestion
	demoted   []models.Suggestion
	leftovers map[models.ImpactTier][]models.Suggestion
	out       Curation
}

// Curate reduces candidates to the configured share per tier. Every kept
// item passed the full review protocol; failed items are replaced by a
// model alternative when one passes the same protocol, otherwise the next
// candidate of the tier takes the slot.
func (c *Curator) Curate(candidates []models.Suggestion, p Proposal) Curation {
	r := &curationRun{
		c:         c,
		byTier:    make(map[models.ImpactTier][]models.Suggestion),
		revised:   make(map[string]models.Suggestion),
		used:      make(map[string]bool),
		accepted:  make(map[models.ImpactTier][]models.Suggestion),
		leftovers: make(map[models.ImpactTier][]models.Suggestion),
	}
	known := make(map[string]models.Suggestion, len(candidates))
	for _, s := range candidates {
		r.byTier[s.Tier] = append(r.byTier[s.Tier], s)
		known[s.ID] = s
	}
	var pickOrder []string
	for _, pick := range p.Picks {
		orig, ok := known[pick.ID]
		if !ok {
			r.alts = append(r.alts, Alternative{Suggestion: pick})
			continue
		}
		pick.Tier = orig.Tier
		r.revised[pick.ID] = pick
		pickOrder = append(pickOrder, pick.ID)
	}
	r.alts = append(r.alts, p.Alternatives...)
	r.altUsed = make([]bool, len(r.alts))

	for _, tier := range models.AllTiers {
		r.selectTier(tier, pickOrder)
	}
	r.collectLeftovers()
	r.enforceExternal()
	r.pursueGoal()
	r.finish()
	return r.out
}

func (r *curationRun) selectTier(tier models.ImpactTier, pickOrder []string) {
	target := TargetCount(len(r.byTier[tier]), r.c.Config.Ratio)

	type entry struct {
		s       models.Suggestion
		demoted bool
	}
	var queue []entry
	for _, id := range pickOrder {
		if s := r.revised[id]; s.Tier == tier {
			queue = append(queue, entry{s: s})
		}
	}
	if tier == models.TierMedium {
		for _, d := range r.demoted {
			queue = append(queue, entry{s: d, demoted: true})
		}
		r.demoted = nil
	}
	for _, s := range r.byTier[tier] {
		if v, ok := r.revised[s.ID]; ok {
			s = v
		}
		queue = append(queue, entry{s: s})
	}

	for _, e := range queue {
		if len(r.accepted[tier]) >= target {
			return
		}
		s := e.s
		if r.used[s.ID] && !e.demoted {
			continue
		}
		r.used[s.ID] = true

		o := r.c.Verifier.Verify(s)
		switch o.Verdict {
		case VerdictKeep:
			if o.Suggestion.Tier != tier {
				r.demoted = append(r.demoted, o.Suggestion)
				continue
			}
			if r.duplicatesAccepted(o.Suggestion) {
				r.reject(s, ReasonDuplicate)
				continue
			}
			r.accept(o.Suggestion)
		case VerdictReplace:
			if alt, ok := r.replacement(s, tier); ok {
				r.reject(s, o.Reason)
				r.accept(alt)
				continue
			}
			if o.Reason == ReasonUnaligned && tier == models.TierHigh {
				d := s.Clone()
				d.Tier = models.TierMedium
				r.demoted = append(r.demoted, d)
				continue
			}
			r.reject(s, o.Reason)
		default:
			r.reject(s, o.Reason)
		}
	}
}

// replacement finds a model alternative for orig that passes the whole protocol.
func (r *curationRun) replacement(orig models.Suggestion, tier models.ImpactTier) (models.Suggestion, bool) {
	try := func(match func(Alternative) bool) (models.Suggestion, bool) {
		for i, alt := range r.alts {
			if r.altUsed[i] || !match(alt) {
				continue
			}
			s := alt.Suggestion.Clone()
			s.Tier = tier
			if s.ID == "" || r.used[s.ID] {
				s.ID = orig.ID + "-r"
			}
			if r.c.Checker != nil && r.c.Checker.DuplicateOf(s, r.c.Zones) != nil {
				continue
			}
			o := r.c.Verifier.Verify(s)
			if o.Verdict != VerdictKeep || o.Suggestion.Tier != tier || r.duplicatesAccepted(o.Suggestion) {
				continue
			}
			r.altUsed[i] = true
			r.used[s.ID] = true
			out := o.Suggestion
			out.Review.State = models.ReviewReplaced
			out.Review.ReplacedID = orig.ID
			return out, true
		}
		return models.Suggestion{}, false
	}
	if s, ok := try(func(a Alternative) bool { return a.ReplacesID == orig.ID }); ok {
		return s, true
	}
	return try(func(a Alternative) bool {
		return a.ReplacesID == "" && (a.Suggestion.Tier == "" || a.Suggestion.Tier == tier)
	})
}

func (r *curationRun) duplicatesAccepted(s models.Suggestion) bool {
	return r.duplicatesAcceptedExcept(s, "", -1)
}

// duplicatesAcceptedExcept is duplicatesAccepted ignoring the accepted item
// at skip in skipTier, the one a swap would take out.
func (r *curationRun) duplicatesAcceptedExcept(s models.Suggestion, skipTier models.ImpactTier, skip int) bool {
	if r.c.Checker == nil {
		return false
	}
	fp := r.c.Checker.FingerprintOf(s)
	for tier, list := range r.accepted {
		for i, a := range list {
			if tier == skipTier && i == skip {
				continue
			}
			if a.ID == s.ID {
				return true
			}
			if r.c.Checker.IsDuplicate(fp, r.c.Checker.FingerprintOf(a)) {
				return true
			}
		}
	}
	return false
}

func (r *curationRun) accept(s models.Suggestion) {
	r.accepted[s.Tier] = append(r.accepted[s.Tier], s)
}

func (r *curationRun) reject(s models.Suggestion, reason string) {
	r.out.Rejected = append(r.out.Rejected, models.DroppedCandidate{ID: s.ID, Title: s.Title, Reason: reason})
}

// collectLeftovers verifies the candidates never reached, so swaps only
// ever bring in reviewed items.
func (r *curationRun) collectLeftovers() {
	for _, tier := range models.AllTiers {
		for _, s := range r.byTier[tier] {
			if r.used[s.ID] {
				continue
			}
			if v, ok := r.revised[s.ID]; ok {
				s = v
			}
			o := r.c.Verifier.Verify(s)
			if o.Verdict == VerdictKeep && o.Suggestion.Tier == tier && !r.duplicatesAccepted(o.Suggestion) {
				r.leftovers[tier] = append(r.leftovers[tier], o.Suggestion)
			}
		}
	}
}

// enforceExternal strips fabricated competitor references and, when
// competitor data exists, swaps in referenced items up to the minimum.
func (r *curationRun) enforceExternal() {
	competitors := r.c.Verifier.Competitors
	ext := models.ExternalJustification{Required: r.c.Config.MinExternal}
	strip := func(list []models.Suggestion) {
		for i := range list {
			if StripFabricatedReference(&list[i], competitors) && list[i].Review != nil {
				list[i].Review.Notes = append(list[i].Review.Notes, "referência externa sem fonte removida")
				list[i].Review.QualityScore = QualityScore(&list[i], len(competitors) > 0)
			}
		}
	}
	for _, tier := range models.AllTiers {
		strip(r.accepted[tier])
		strip(r.leftovers[tier])
	}
	if len(competitors) == 0 {
		ext.Waived = true
		r.out.External = ext
		return
	}

	count := func() int {
		n := 0
		for _, tier := range []models.ImpactTier{models.TierHigh, models.TierMedium} {
			for _, s := range r.accepted[tier] {
				if s.CompetitorReference != "" {
					n++
				}
			}
		}
		return n
	}
	for _, tier := range []models.ImpactTier{models.TierHigh, models.TierMedium} {
		for count() < ext.Required {
			out := lowestQuality(r.accepted[tier], func(s models.Suggestion) bool { return s.CompetitorReference == "" })
			if out < 0 {
				break
			}
			in := indexOf(r.leftovers[tier], func(s models.Suggestion) bool {
				return s.CompetitorReference != "" && !r.duplicatesAcceptedExcept(s, tier, out)
			})
			if in < 0 {
				break
			}
			r.swap(tier, out, in)
		}
	}
	ext.Met = count()
	r.out.External = ext
}

// pursueGoal swaps higher-value reviewed leftovers in until the BRL results
// cover the configured share of the monthly gap, or no swap helps.
func (r *curationRun) pursueGoal() {
	gap, ok := r.c.Verifier.Facts.Gap()
	if !ok {
		return
	}
	need := gap * r.c.Config.GoalCoverage
	protected := func(s models.Suggestion) bool {
		return len(r.c.Verifier.Competitors) > 0 && s.CompetitorReference != "" && r.out.External.Met <= r.out.External.Required
	}
	for r.covered() < need {
		bestTier, bestOut, bestIn, bestGain := models.ImpactTier(""), -1, -1, 0.0
		for _, tier := range models.AllTiers {
			for i, a := range r.accepted[tier] {
				if protected(a) {
					continue
				}
				for j, l := range r.leftovers[tier] {
					gain := brl(l) - brl(a)
					if gain <= bestGain || r.duplicatesAcceptedExcept(l, tier, i) {
						continue
					}
					bestTier, bestOut, bestIn, bestGain = tier, i, j, gain
				}
			}
		}
		if bestOut < 0 {
			break
		}
		r.swap(bestTier, bestOut, bestIn)
	}
	covered := r.covered()
	ratio := 0.0
	if gap > 0 {
		ratio = math.Round(covered/gap*10000) / 10000
	}
	r.out.GoalCoverage = &models.GoalCoverage{Gap: gap, Covered: round2(covered), Ratio: ratio, Met: covered >= need}
}

func (r *curationRun) covered() float64 {
	sum := 0.0
	for _, list := range r.accepted {
		for _, s := range list {
			sum += brl(s)
		}
	}
	return sum
}

func (r *curationRun) swap(tier models.ImpactTier, out, in int) {
	removed := r.accepted[tier][out]
	added := r.leftovers[tier][in]
	r.accepted[tier][out] = added
	r.leftovers[tier] = append(r.leftovers[tier][:in], r.leftovers[tier][in+1:]...)
	r.leftovers[tier] = append(r.leftovers[tier], removed)
	r.used[added.ID] = true
}

func (r *curationRun) finish() {
	var slate []models.Suggestion
	for _, tier := range models.AllTiers {
		for _, s := range r.accepted[tier] {
			GateTier(&s)
			slate = append(slate, s)
		}
	}
	sort.SliceStable(slate, func(i, j int) bool {
		return tierRank(slate[i].Tier) < tierRank(slate[j].Tier)
	})
	r.out.Rescored = Rescore(slate, r.c.Config.MaxAverage)
	r.out.AverageQuality = Average(slate)
	if slate == nil {
		slate = []models.Suggestion{}
	}
	r.out.Suggestions = slate
}

func tierRank(t models.ImpactTier) int {
	for i, known := range models.AllTiers {
		if t == known {
			return i
		}
	}
	return len(models.AllTiers)
}

func brl(s models.Suggestion) float64 {
	if s.ExpectedResult.Unit != models.UnitBRL || s.ExpectedResult.Value < 0 {
		return 0
	}
	return s.ExpectedResult.Value
}

func indexOf(list []models.Suggestion, pred func(models.Suggestion) bool) int {
	for i, s := range list {
		if pred(s) {
			return i
		}
	}
	return -1
}

func lowestQuality(list []models.Suggestion, pred func(models.Suggestion) bool) int {
	idx, low := -1, math.Inf(1)
	for i, s := range list {
		if !pred(s) || s.Review == nil {
			continue
		}
		if s.Review.QualityScore < low {
			idx, low = i, s.Review.QualityScore
		}
	}
	return idx
}
