package similarity

import (
	"github.com/ekaya-inc/growth-engine/pkg/models"
	"github.com/ekaya-inc/growth-engine/pkg/themes"
)

// Saturation counts at which a theme changes level.
const (
	FrequentCount = 2
	BlockedCount  = 3
)

// LevelFor maps a history count to a saturation level.
func LevelFor(count int) models.SaturationLevel {
	switch {
	case count >= BlockedCount:
		return models.SaturationBlocked
	case count == FrequentCount:
		return models.SaturationFrequent
	case count == 1:
		return models.SaturationUsed
	default:
		return models.SaturationPreferred
	}
}

// ComputeSaturation counts, for every theme, how many history items mention
// it. Each item counts at most once per theme. The whole history is read.
func ComputeSaturation(history []models.HistoricalSuggestion, reg *themes.Registry) []models.ThemeSaturation {
	counts := make(map[string]int)
	for _, h := range history {
		for _, key := range reg.Match(HistoryText(h)) {
			counts[key]++
		}
	}
	out := make([]models.ThemeSaturation, 0, len(reg.Keys()))
	for _, key := range reg.Keys() {
		out = append(out, models.ThemeSaturation{
			Theme: key,
			Label: reg.Label(key),
			Count: counts[key],
			Level: LevelFor(counts[key]),
		})
	}
	return out
}

// SaturationIndex indexes saturation by theme key.
func SaturationIndex(s []models.ThemeSaturation) map[string]models.ThemeSaturation {
	out := make(map[string]models.ThemeSaturation, len(s))
	for _, t := range s {
		out[t.Theme] = t
	}
	return out
}

// BlockedMatch returns the first blocked theme the candidate mentions.
func BlockedMatch(s models.Suggestion, saturation []models.ThemeSaturation, reg *themes.Registry) (models.ThemeSaturation, bool) {
	idx := SaturationIndex(saturation)
	for _, key := range reg.Match(SuggestionText(s)) {
		if t, ok := idx[key]; ok && t.Level == models.SaturationBlocked {
			return t, true
		}
	}
	return models.ThemeSaturation{}, false
}
