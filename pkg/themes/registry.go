// Package themes is the static suggestion-theme taxonomy used for saturation
// detection and automatic rejection of repeated ideas.
package themes

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/growth-engine/pkg/locale"
	"github.com/ekaya-inc/growth-engine/pkg/models"
)

//go:embed themes.yaml
var embeddedThemes []byte

// Theme is one bucket of the taxonomy.
type Theme struct {
	Key        string                      `yaml:"key"`
	Label      string                      `yaml:"label"`
	Approach   string                      `yaml:"approach"`
	Categories []models.SuggestionCategory `yaml:"categories"`
	Keywords   []string                    `yaml:"keywords"`
}

type document struct {
	Version string  `yaml:"version"`
	Themes  []Theme `yaml:"themes"`
}

// Registry is an immutable, ordered theme taxonomy.
type Registry struct {
	version string
	order   []string
	byKey   map[string]Theme
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the embedded taxonomy. It panics if the embedded file is
// invalid, which is a build defect.
func Default() *Registry {
	defaultOnce.Do(func() {
		r, err := Parse(embeddedThemes)
		if err != nil {
			panic(fmt.Sprintf("themes: invalid embedded taxonomy: %v", err))
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

// Parse builds a Registry from YAML.
func Parse(data []byte) (*Registry, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse themes: %w", err)
	}
	r := &Registry{version: doc.Version, byKey: make(map[string]Theme, len(doc.Themes))}
	for _, t := range doc.Themes {
		if t.Key == "" {
			return nil, fmt.Errorf("theme without key")
		}
		if _, dup := r.byKey[t.Key]; dup {
			return nil, fmt.Errorf("duplicate theme %q", t.Key)
		}
		if len(t.Keywords) == 0 {
			return nil, fmt.Errorf("theme %q has no keywords", t.Key)
		}
		for _, c := range t.Categories {
			if !c.IsValid() {
				return nil, fmt.Errorf("theme %q: unknown category %q", t.Key, c)
			}
		}
		r.order = append(r.order, t.Key)
		r.byKey[t.Key] = t
	}
	return r, nil
}

// Version identifies the taxonomy revision.
func (r *Registry) Version() string {
	return r.version
}

// Themes returns theme key -> keywords. The result is a fresh copy.
func (r *Registry) Themes() map[string][]string {
	out := make(map[string][]string, len(r.byKey))
	for k, t := range r.byKey {
		out[k] = append([]string(nil), t.Keywords...)
	}
	return out
}

// Keys returns theme keys in taxonomy order.
func (r *Registry) Keys() []string {
	return append([]string(nil), r.order...)
}

// Label returns the display label for key, or key itself when unknown.
func (r *Registry) Label(key string) string {
	if t, ok := r.byKey[key]; ok {
		return t.Label
	}
	return key
}

// Get returns the theme for key.
func (r *Registry) Get(key string) (Theme, bool) {
	t, ok := r.byKey[key]
	return t, ok
}

// Match returns the keys of every theme with a keyword in text, in taxonomy order.
func (r *Registry) Match(text string) []string {
	var out []string
	for _, key := range r.order {
		for _, kw := range r.byKey[key].Keywords {
			if locale.ContainsTerm(text, kw) {
				out = append(out, key)
				break
			}
		}
	}
	return out
}

// MatchedKeywords returns the keywords of theme key found in text.
func (r *Registry) MatchedKeywords(key, text string) []string {
	var out []string
	for _, kw := range r.byKey[key].Keywords {
		if locale.ContainsTerm(text, kw) {
			out = append(out, kw)
		}
	}
	return out
}

// ForCategory returns the themes linked to category, in taxonomy order.
func (r *Registry) ForCategory(category models.SuggestionCategory) []string {
	var out []string
	for _, key := range r.order {
		for _, c := range r.byKey[key].Categories {
			if c == category {
				out = append(out, key)
				break
			}
		}
	}
	return out
}

// SortByOrder sorts keys in taxonomy order; unknown keys go last alphabetically.
func (r *Registry) SortByOrder(keys []string) {
	pos := make(map[string]int, len(r.order))
	for i, k := range r.order {
		pos[k] = i
	}
	sort.SliceStable(keys, func(i, j int) bool {
		pi, iok := pos[keys[i]]
		pj, jok := pos[keys[j]]
		switch {
		case iok && jok:
			return pi < pj
		case iok:
			return true
		case jok:
			return false
		}
		return keys[i] < keys[j]
	})
}
