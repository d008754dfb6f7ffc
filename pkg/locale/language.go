package locale

import (
	"fmt"
	"sort"
	"strings"
)

// trendWords are English terms the stage prompts forbid outright.
var trendWords = map[string]bool{
	"growing":    true,
	"stable":     true,
	"falling":    true,
	"declining":  true,
	"increasing": true,
	"decreasing": true,
	"improving":  true,
	"worsening":  true,
}

// stopwords are frequent English function words absent from Portuguese.
var stopwords = map[string]bool{
	"the":    true,
	"and":    true,
	"with":   true,
	"your":   true,
	"this":   true,
	"that":   true,
	"will":   true,
	"should": true,
	"which":  true,
	"into":   true,
	"of":     true,
	"is":     true,
}

// Violation is an English fragment found in a stage response.
type Violation struct {
	Path  string   `json:"path"`
	Text  string   `json:"text"`
	Words []string `json:"words"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %q (%s)", v.Path, v.Text, strings.Join(v.Words, ", "))
}

// FindEnglish walks a decoded JSON value and reports free-text leaves that
// are not Portuguese. A leaf is flagged when it contains a forbidden trend
// word, or when it is a sentence (3+ spaces) with two or more English
// stopwords. Keys in skipKeys are not inspected (URLs, app names, ...).
func FindEnglish(v any, skipKeys ...string) []Violation {
	skip := make(map[string]bool, len(skipKeys))
	for _, k := range skipKeys {
		skip[k] = true
	}
	var out []Violation
	walk(v, "$", skip, &out)
	return out
}

func walk(v any, path string, skip map[string]bool, out *[]Violation) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if skip[k] {
				continue
			}
			walk(t[k], path+"."+k, skip, out)
		}
	case []any:
		for i, item := range t {
			walk(item, fmt.Sprintf("%s[%d]", path, i), skip, out)
		}
	case string:
		if words := englishWords(t); len(words) > 0 {
			*out = append(*out, Violation{Path: path, Text: t, Words: words})
		}
	}
}

// IsEnglish reports whether a single string would be flagged.
func IsEnglish(s string) bool {
	return len(englishWords(s)) > 0
}

func englishWords(s string) []string {
	if strings.Contains(s, "://") {
		return nil
	}
	var trend, stops []string
	seen := make(map[string]bool)
	for _, w := range Words(s) {
		if seen[w] {
			continue
		}
		seen[w] = true
		if trendWords[w] {
			trend = append(trend, w)
		}
		if stopwords[w] {
			stops = append(stops, w)
		}
	}
	if len(trend) > 0 {
		return trend
	}
	if strings.Count(strings.TrimSpace(s), " ") >= 3 && len(stops) >= 2 {
		return stops
	}
	return nil
}
