// Package platform is the feasibility catalogue of what each e-commerce
// platform supports natively, through a paid app, or not at all.
package platform

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/growth-engine/pkg/locale"
	"github.com/ekaya-inc/growth-engine/pkg/models"
)

//go:embed catalogue.yaml
var embeddedCatalogue []byte

// Availability of a capability on a platform.
type Availability string

const (
	Native     Availability = "nativo"
	PaidApp    Availability = "app"
	Infeasible Availability = "inviavel"
)

// Capability is one action the catalogue knows about.
type Capability struct {
	Key          string       `yaml:"key"`
	Label        string       `yaml:"label"`
	Availability Availability `yaml:"availability"`
	App          string       `yaml:"app,omitempty"`
	MonthlyCost  *float64     `yaml:"monthly_cost,omitempty"`
	Keywords     []string     `yaml:"keywords"`
}

// Platform lists capabilities for one e-commerce platform.
type Platform struct {
	Key          string       `yaml:"key"`
	Label        string       `yaml:"label"`
	Capabilities []Capability `yaml:"capabilities"`
}

// Catalogue indexes platforms by key.
type Catalogue struct {
	platforms map[string]*Platform
}

// GenericKey is the fallback platform for unknown stores.
const GenericKey = "generic"

var (
	defaultOnce      sync.Once
	defaultCatalogue *Catalogue
)

// Default returns the embedded catalogue.
func Default() *Catalogue {
	defaultOnce.Do(func() {
		c, err := Parse(embeddedCatalogue)
		if err != nil {
			panic(fmt.Sprintf("platform: invalid embedded catalogue: %v", err))
		}
		defaultCatalogue = c
	})
	return defaultCatalogue
}

// Parse builds a Catalogue from YAML.
func Parse(data []byte) (*Catalogue, error) {
	var doc struct {
		Platforms []Platform `yaml:"platforms"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalogue: %w", err)
	}
	c := &Catalogue{platforms: make(map[string]*Platform, len(doc.Platforms))}
	for i := range doc.Platforms {
		p := &doc.Platforms[i]
		for _, capability := range p.Capabilities {
			switch capability.Availability {
			case Native, Infeasible:
			case PaidApp:
				if capability.MonthlyCost == nil {
					return nil, fmt.Errorf("%s/%s: paid app without monthly_cost", p.Key, capability.Key)
				}
			default:
				return nil, fmt.Errorf("%s/%s: unknown availability %q", p.Key, capability.Key, capability.Availability)
			}
		}
		c.platforms[p.Key] = p
	}
	if _, ok := c.platforms[GenericKey]; !ok {
		return nil, fmt.Errorf("catalogue has no %q platform", GenericKey)
	}
	return c, nil
}

// Lookup returns the platform for key, falling back to the generic entry.
func (c *Catalogue) Lookup(key string) *Platform {
	if p, ok := c.platforms[strings.ToLower(strings.TrimSpace(key))]; ok {
		return p
	}
	return c.platforms[GenericKey]
}

// Assessment is the feasibility verdict for a suggestion's text.
type Assessment struct {
	// Matched is nil when the catalogue has no opinion on the action.
	Matched  *Capability
	Feasible bool
	Type     models.ImplementationType
}

// Assess matches text against the platform's capabilities. An infeasible
// match wins over any feasible one.
func (p *Platform) Assess(text string) Assessment {
	var best *Capability
	for i := range p.Capabilities {
		capability := &p.Capabilities[i]
		if !matches(capability, text) {
			continue
		}
		if capability.Availability == Infeasible {
			return Assessment{Matched: capability, Feasible: false}
		}
		if best == nil {
			best = capability
		}
	}
	if best == nil {
		return Assessment{Feasible: true}
	}
	a := Assessment{Matched: best, Feasible: true, Type: models.ImplementationNative}
	if best.Availability == PaidApp {
		a.Type = models.ImplementationApp
	}
	return a
}

// Summary renders the catalogue for prompts, one capability per line.
func (p *Platform) Summary() []string {
	out := make([]string, 0, len(p.Capabilities))
	for _, c := range p.Capabilities {
		line := fmt.Sprintf("%s: %s", c.Label, c.Availability)
		if c.Availability == PaidApp && c.MonthlyCost != nil {
			line += fmt.Sprintf(" (%s, %s/mês)", c.App, locale.FormatBRL(*c.MonthlyCost))
		}
		out = append(out, line)
	}
	return out
}

func matches(c *Capability, text string) bool {
	for _, kw := range c.Keywords {
		if locale.ContainsTerm(text, kw) {
			return true
		}
	}
	return false
}
