package config

import (
	"github.com/rotisserie/eris"
)

// Validate detects structural configuration errors at load time so the
// evaluation cycle never has to: empty domains, pair caps naming
// non-members, rules or weights naming unknown indicators or domains,
// and an out-of-order band table all fail the load.
func (c *Config) Validate() error {
	if len(c.Indicators) == 0 {
		return eris.New("config: no indicators defined")
	}
	if len(c.Domains) == 0 {
		return eris.New("config: no domains defined")
	}
	if len(c.Bands) == 0 {
		return eris.New("config: no phase bands defined")
	}

	indicators := make(map[string]IndicatorConfig, len(c.Indicators))
	for _, ind := range c.Indicators {
		if ind.Name == "" {
			return eris.New("config: indicator with empty name")
		}
		if _, dup := indicators[ind.Name]; dup {
			return eris.Errorf("config: duplicate indicator %q", ind.Name)
		}
		switch ind.Kind {
		case KindNumeric:
			if !ind.Invert && ind.Amber >= ind.Red {
				return eris.Errorf("config: indicator %q amber cutoff must be below red", ind.Name)
			}
			if ind.Invert && ind.Amber <= ind.Red {
				return eris.Errorf("config: inverted indicator %q amber cutoff must be above red", ind.Name)
			}
		case KindEnumerated:
			if ind.GreenCode == "" || ind.AmberCode == "" || ind.RedCode == "" {
				return eris.Errorf("config: enumerated indicator %q missing codes", ind.Name)
			}
			if ind.GreenCode == ind.AmberCode || ind.AmberCode == ind.RedCode || ind.GreenCode == ind.RedCode {
				return eris.Errorf("config: enumerated indicator %q has duplicate codes", ind.Name)
			}
		default:
			return eris.Errorf("config: indicator %q has unknown kind %q", ind.Name, ind.Kind)
		}
		indicators[ind.Name] = ind
	}

	domains := make(map[string]DomainConfig, len(c.Domains))
	memberOf := make(map[string]string) // indicator -> owning domain
	for _, d := range c.Domains {
		if d.Name == "" {
			return eris.New("config: domain with empty name")
		}
		if _, dup := domains[d.Name]; dup {
			return eris.Errorf("config: duplicate domain %q", d.Name)
		}
		if d.Weight < 0 {
			return eris.Errorf("config: domain %q has negative weight", d.Name)
		}
		if len(d.Indicators) == 0 {
			return eris.Errorf("config: domain %q has no members", d.Name)
		}
		for _, name := range d.Indicators {
			if _, ok := indicators[name]; !ok {
				return eris.Errorf("config: domain %q references unknown indicator %q", d.Name, name)
			}
			if owner, taken := memberOf[name]; taken {
				return eris.Errorf("config: indicator %q belongs to both %q and %q", name, owner, d.Name)
			}
			memberOf[name] = d.Name
		}
		members := make(map[string]bool, len(d.Indicators))
		for _, name := range d.Indicators {
			members[name] = true
		}
		for _, name := range d.Critical {
			if !members[name] {
				return eris.Errorf("config: domain %q critical indicator %q is not a member", d.Name, name)
			}
		}
		domains[d.Name] = d
	}

	for _, pc := range c.PairCaps {
		if len(pc.Indicators) != 2 || pc.Indicators[0] == pc.Indicators[1] {
			return eris.Errorf("config: pair cap in %q must name two distinct indicators", pc.Domain)
		}
		d, ok := domains[pc.Domain]
		if !ok {
			return eris.Errorf("config: pair cap references unknown domain %q", pc.Domain)
		}
		for _, name := range pc.Indicators {
			if memberOf[name] != d.Name {
				return eris.Errorf("config: pair cap indicator %q is not a member of %q", name, pc.Domain)
			}
		}
		if pc.CapFactor <= 0 {
			return eris.Errorf("config: pair cap in %q has non-positive cap factor", pc.Domain)
		}
	}

	for name := range c.CompositeWeights {
		if _, ok := domains[name]; !ok {
			return eris.Errorf("config: composite weight for unknown domain %q", name)
		}
	}

	phases := make(map[float64]bool, len(c.Bands))
	prev := -1.0
	for _, b := range c.Bands {
		if b.Phase <= prev {
			return eris.Errorf("config: phase bands out of order at phase %v", b.Phase)
		}
		prev = b.Phase
		phases[b.Phase] = true
	}
	if last := c.Bands[len(c.Bands)-1]; last.MaxScore <= 1.0 {
		return eris.Errorf("config: final band (phase %v) must cover composite 1.0", last.Phase)
	}

	for _, rule := range c.CriticalRules {
		if len(rule.Indicators) == 0 {
			return eris.Errorf("config: critical rule %q names no indicators", rule.Name)
		}
		for _, name := range rule.Indicators {
			if _, ok := indicators[name]; !ok {
				return eris.Errorf("config: critical rule %q references unknown indicator %q", rule.Name, name)
			}
		}
		if !phases[rule.MinPhase] {
			return eris.Errorf("config: critical rule %q minimum phase %v is not a configured phase", rule.Name, rule.MinPhase)
		}
		if rule.Bump != nil {
			if _, ok := indicators[rule.Bump.Indicator]; !ok {
				return eris.Errorf("config: critical rule %q bump references unknown indicator %q", rule.Name, rule.Bump.Indicator)
			}
		}
	}

	if c.Staleness.AmberHours <= 0 || c.Staleness.RedHours <= c.Staleness.AmberHours {
		return eris.New("config: staleness limits must satisfy 0 < amber < red")
	}
	if c.Confirmation.RequiredPolls < 1 || c.Confirmation.WindowMinutes <= 0 {
		return eris.New("config: confirmation requires at least one poll and a positive window")
	}

	return nil
}

// CriticalSet returns the unified set of critical indicators across all
// domains. Both the aggregator and the phase machine consume this one
// resolution; critical lists are never duplicated elsewhere.
func (c *Config) CriticalSet() map[string]bool {
	set := make(map[string]bool)
	for _, d := range c.Domains {
		for _, name := range d.Critical {
			set[name] = true
		}
	}
	return set
}

// DomainOf returns the indicator-to-owning-domain mapping.
func (c *Config) DomainOf() map[string]string {
	owner := make(map[string]string)
	for _, d := range c.Domains {
		for _, name := range d.Indicators {
			owner[name] = d.Name
		}
	}
	return owner
}

// Domain returns the domain config by name.
func (c *Config) Domain(name string) (DomainConfig, bool) {
	for _, d := range c.Domains {
		if d.Name == name {
			return d, true
		}
	}
	return DomainConfig{}, false
}

// BandFor returns the band row for an exact phase value.
func (c *Config) BandFor(phase float64) (PhaseBand, bool) {
	for _, b := range c.Bands {
		if b.Phase == phase {
			return b, true
		}
	}
	return PhaseBand{}, false
}
