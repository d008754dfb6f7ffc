package similarity

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ekaya-inc/growth-engine/pkg/locale"
	"github.com/ekaya-inc/growth-engine/pkg/models"
	"github.com/ekaya-inc/growth-engine/pkg/themes"
)

// Minimum sizes of the dedup report.
const (
	MinVariations        = 3
	MinAllowedApproaches = 2
)

// stopwords are dropped when extracting zone keywords from titles.
var stopwords = map[string]bool{
	"de": true, "da": true, "do": true, "das": true, "dos": true, "para": true,
	"com": true, "em": true, "e": true, "a": true, "o": true, "as": true,
	"os": true, "no": true, "na": true, "por": true, "um": true, "uma": true,
}

// ZoneFor builds the deterministic prohibited zone of the history item at
// position i.
func (c *Checker) ZoneFor(h models.HistoricalSuggestion, i int) models.ProhibitedZone {
	fp := c.HistoryFingerprint(h)
	return models.ProhibitedZone{
		SuggestionID:         h.Key(i),
		Title:                h.Title,
		ProblemCategory:      h.Category,
		SolutionType:         fp.SolutionType,
		Keywords:             c.zoneKeywords(h),
		ProhibitedVariations: padVariations(nil, h.Title, fp.SolutionType, c.Registry),
	}
}

// CompleteZones returns exactly one zone per history item, in history order.
// Zones proposed by the model are kept when they reference a known item;
// missing fields and missing zones are filled deterministically.
func (c *Checker) CompleteZones(history []models.HistoricalSuggestion, proposed []models.ProhibitedZone) []models.ProhibitedZone {
	byID := make(map[string]models.ProhibitedZone, len(proposed))
	for _, z := range proposed {
		if z.SuggestionID != "" {
			byID[z.SuggestionID] = z
		}
	}
	out := make([]models.ProhibitedZone, 0, len(history))
	for i, h := range history {
		base := c.ZoneFor(h, i)
		z, ok := byID[base.SuggestionID]
		if !ok {
			out = append(out, base)
			continue
		}
		// Identity fields always come from history.
		z.Title = base.Title
		z.ProblemCategory = base.ProblemCategory
		if z.SolutionType == "" {
			z.SolutionType = base.SolutionType
		}
		z.Keywords = mergeUnique(base.Keywords, z.Keywords)
		z.ProhibitedVariations = padVariations(z.ProhibitedVariations, h.Title, base.SolutionType, c.Registry)
		out = append(out, z)
	}
	return out
}

func (c *Checker) zoneKeywords(h models.HistoricalSuggestion) []string {
	var kws []string
	for _, key := range c.Registry.Match(HistoryText(h)) {
		kws = append(kws, c.Registry.MatchedKeywords(key, HistoryText(h))...)
	}
	for _, w := range locale.Words(h.Title) {
		if len(w) > 3 && !stopwords[w] {
			kws = append(kws, w)
		}
	}
	return mergeUnique(nil, kws)
}

func padVariations(existing []string, title, solutionType string, reg *themes.Registry) []string {
	out := mergeUnique(nil, existing)
	candidates := []string{title}
	if th, ok := reg.Get(solutionType); ok {
		candidates = append(candidates, th.Label, th.Approach)
		for _, kw := range th.Keywords {
			candidates = append(candidates, fmt.Sprintf("%s: %s", th.Label, kw))
		}
	}
	candidates = append(candidates,
		"Nova versão de "+title,
		title+" com outro nome",
		"Relançamento de "+title,
	)
	for _, v := range candidates {
		if len(out) >= MinVariations {
			break
		}
		out = mergeUnique(out, []string{v})
	}
	return out
}

// AllowedApproaches returns, for every category present in history, at least
// MinAllowedApproaches unexplored angles. Proposed approaches that hit a
// frequent or blocked theme, or duplicate a delivered title, are discarded;
// the rest is completed with approaches of preferred themes.
func (c *Checker) AllowedApproaches(
	history []models.HistoricalSuggestion,
	saturation []models.ThemeSaturation,
	proposed map[models.SuggestionCategory][]string,
) map[models.SuggestionCategory][]string {
	idx := SaturationIndex(saturation)
	saturated := func(text string) bool {
		for _, key := range c.Registry.Match(text) {
			if lvl := idx[key].Level; lvl == models.SaturationBlocked || lvl == models.SaturationFrequent {
				return true
			}
		}
		return false
	}
	delivered := func(text string) bool {
		for _, h := range history {
			if TitleSimilarity(text, h.Title) >= c.Threshold {
				return true
			}
		}
		return false
	}

	out := make(map[models.SuggestionCategory][]string)
	for _, cat := range categoriesOf(history) {
		var approaches []string
		for _, a := range proposed[cat] {
			if strings.TrimSpace(a) == "" || saturated(a) || delivered(a) {
				continue
			}
			approaches = mergeUnique(approaches, []string{a})
		}
		for _, key := range fallbackThemes(c.Registry, cat, idx) {
			if len(approaches) >= MinAllowedApproaches {
				break
			}
			th, _ := c.Registry.Get(key)
			if th.Approach == "" || saturated(th.Approach) || delivered(th.Approach) {
				continue
			}
			approaches = mergeUnique(approaches, []string{th.Approach})
		}
		out[cat] = approaches
	}
	return out
}

// fallbackThemes lists unused themes linked to the category first, then any
// other unused theme, then lightly used ones.
func fallbackThemes(reg *themes.Registry, cat models.SuggestionCategory, idx map[string]models.ThemeSaturation) []string {
	var linked, others, used []string
	isLinked := make(map[string]bool)
	for _, key := range reg.ForCategory(cat) {
		isLinked[key] = true
	}
	for _, key := range reg.Keys() {
		switch idx[key].Level {
		case models.SaturationPreferred, "":
			if isLinked[key] {
				linked = append(linked, key)
			} else {
				others = append(others, key)
			}
		case models.SaturationUsed:
			used = append(used, key)
		}
	}
	return append(append(linked, others...), used...)
}

// Coverage proves that every history item was processed.
func Coverage(history []models.HistoricalSuggestion, zones []models.ProhibitedZone) models.SimilarityCoverage {
	processed := make(map[string]bool, len(zones))
	for _, z := range zones {
		processed[z.SuggestionID] = true
	}
	cov := models.SimilarityCoverage{
		Total:      len(history),
		ByCategory: make(map[models.SuggestionCategory]models.CategoryCoverage),
	}
	for i, h := range history {
		cc := cov.ByCategory[h.Category]
		cc.Total++
		if processed[h.Key(i)] {
			cc.Processed++
			cov.Processed++
		}
		cov.ByCategory[h.Category] = cc
	}
	return cov
}

func categoriesOf(history []models.HistoricalSuggestion) []models.SuggestionCategory {
	seen := make(map[models.SuggestionCategory]bool)
	var out []models.SuggestionCategory
	for _, h := range history {
		if !seen[h.Category] {
			seen[h.Category] = true
			out = append(out, h.Category)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// mergeUnique appends items not already present, comparing folded text.
func mergeUnique(base, items []string) []string {
	seen := make(map[string]bool, len(base)+len(items))
	out := make([]string, 0, len(base)+len(items))
	for _, s := range append(append([]string(nil), base...), items...) {
		s = strings.TrimSpace(s)
		key := locale.Normalize(s)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
