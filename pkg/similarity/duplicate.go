// Package similarity implements duplicate detection against suggestion
// history and the theme saturation derived from it.
package similarity

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/ekaya-inc/growth-engine/pkg/locale"
	"github.com/ekaya-inc/growth-engine/pkg/models"
	"github.com/ekaya-inc/growth-engine/pkg/themes"
)

// DefaultTitleThreshold is the title similarity at which two suggestions are duplicates.
const DefaultTitleThreshold = 0.70

// TitleSimilarity is 1 - normalized edit distance between the folded titles.
// Identical titles score 1, empty titles score 0.
func TitleSimilarity(a, b string) float64 {
	na, nb := locale.Normalize(a), locale.Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	longest := utf8.RuneCountInString(na)
	if n := utf8.RuneCountInString(nb); n > longest {
		longest = n
	}
	return 1 - float64(levenshtein.ComputeDistance(na, nb))/float64(longest)
}

// Fingerprint is what the duplicate rule compares.
type Fingerprint struct {
	Title        string
	Category     models.SuggestionCategory
	SolutionType string
}

// Checker applies the two-part duplicate rule: same (category, solution
// type) pair, or title similarity at or above Threshold.
type Checker struct {
	Registry  *themes.Registry
	Threshold float64
}

// NewChecker returns a Checker; threshold <= 0 selects DefaultTitleThreshold.
func NewChecker(reg *themes.Registry, threshold float64) *Checker {
	if threshold <= 0 {
		threshold = DefaultTitleThreshold
	}
	return &Checker{Registry: reg, Threshold: threshold}
}

// IsDuplicate reports whether a and b are the same suggestion.
func (c *Checker) IsDuplicate(a, b Fingerprint) bool {
	if a.Category == b.Category && a.SolutionType != "" && a.SolutionType == b.SolutionType {
		return true
	}
	return TitleSimilarity(a.Title, b.Title) >= c.Threshold
}

// DuplicateOf returns the first zone that candidate duplicates, comparing
// against the zone's title and each of its prohibited variations.
func (c *Checker) DuplicateOf(candidate models.Suggestion, zones []models.ProhibitedZone) *models.ProhibitedZone {
	fp := c.FingerprintOf(candidate)
	for i := range zones {
		z := &zones[i]
		zf := Fingerprint{Title: z.Title, Category: z.ProblemCategory, SolutionType: z.SolutionType}
		if c.IsDuplicate(fp, zf) {
			return z
		}
		for _, v := range z.ProhibitedVariations {
			if TitleSimilarity(fp.Title, v) >= c.Threshold {
				return z
			}
		}
	}
	return nil
}

// FingerprintOf builds the fingerprint of a candidate suggestion.
func (c *Checker) FingerprintOf(s models.Suggestion) Fingerprint {
	return Fingerprint{
		Title:        s.Title,
		Category:     s.Category,
		SolutionType: c.SolutionType(s.Title, SuggestionText(s)),
	}
}

// HistoryFingerprint builds the fingerprint of a delivered suggestion.
func (c *Checker) HistoryFingerprint(h models.HistoricalSuggestion) Fingerprint {
	return Fingerprint{
		Title:        h.Title,
		Category:     h.Category,
		SolutionType: c.SolutionType(h.Title, HistoryText(h)),
	}
}

// SolutionType is the dominant theme of a suggestion: the title's theme
// when the title names one, otherwise the theme with most keyword hits in
// body. Empty when no theme matches.
func (c *Checker) SolutionType(title, body string) string {
	if key := dominantTheme(c.Registry, title); key != "" {
		return key
	}
	return dominantTheme(c.Registry, body)
}

func dominantTheme(reg *themes.Registry, text string) string {
	best, bestHits := "", 0
	for _, key := range reg.Match(text) {
		if hits := len(reg.MatchedKeywords(key, text)); hits > bestHits {
			best, bestHits = key, hits
		}
	}
	return best
}

// SuggestionText is the text used to classify a candidate: its title and
// the "what" of each action step. Problem statements cite metrics of other
// themes and are left out.
func SuggestionText(s models.Suggestion) string {
	parts := []string{s.Title}
	for _, step := range s.ActionSteps {
		parts = append(parts, step.What)
	}
	return strings.Join(parts, ". ")
}

// HistoryText is the text used to classify a delivered suggestion.
func HistoryText(h models.HistoricalSuggestion) string {
	return h.Title + ". " + h.Description
}
