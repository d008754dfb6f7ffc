package models

// SaturationLevel grades how often a theme already appeared in history.
type SaturationLevel string

const (
	SaturationPreferred SaturationLevel = "preferido"
	SaturationUsed      SaturationLevel = "usado"
	SaturationFrequent  SaturationLevel = "frequente"
	SaturationBlocked   SaturationLevel = "bloqueado"
)

// ThemeSaturation is the recurrence count of one theme in suggestion history.
type ThemeSaturation struct {
	Theme string          `json:"theme"`
	Label string          `json:"label"`
	Count int             `json:"count"`
	Level SaturationLevel `json:"level"`
}

// ProhibitedZone blocks regeneration of a previously delivered suggestion.
type ProhibitedZone struct {
	SuggestionID         string             `json:"suggestion_id"`
	Title                string             `json:"title"`
	ProblemCategory      SuggestionCategory `json:"problem_category"`
	SolutionType         string             `json:"solution_type"`
	Keywords             []string           `json:"keywords"`
	ProhibitedVariations []string           `json:"prohibited_variations"`
}

// CategoryCoverage counts history items per category.
type CategoryCoverage struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
}

// SimilarityCoverage proves that the whole history was processed.
type SimilarityCoverage struct {
	Total      int                                     `json:"total"`
	Processed  int                                     `json:"processed"`
	ByCategory map[SuggestionCategory]CategoryCoverage `json:"by_category"`
}

// SimilarityReport is the output of the dedup stage.
type SimilarityReport struct {
	Zones             []ProhibitedZone                `json:"zones"`
	AllowedApproaches map[SuggestionCategory][]string `json:"allowed_approaches"`
	Coverage          SimilarityCoverage              `json:"coverage"`
	Saturation        []ThemeSaturation               `json:"saturation"`
}

// BlockedThemes returns the keys of themes at or above the blocking count.
func (r *SimilarityReport) BlockedThemes() []string {
	if r == nil {
		return nil
	}
	var out []string
	for _, s := range r.Saturation {
		if s.Level == SaturationBlocked {
			out = append(out, s.Theme)
		}
	}
	return out
}
