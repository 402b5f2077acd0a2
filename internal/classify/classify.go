// Package classify maps raw indicator readings to severity colors using
// thresholds resolved once at configuration load. The hot path carries no
// per-name special cases: numeric versus enumerated is a tagged variant
// decided at resolution time.
package classify

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/watchtower/internal/config"
	"github.com/sells-group/watchtower/internal/model"
)

// Threshold is a resolved classification rule for one indicator.
type Threshold struct {
	Kind config.IndicatorKind

	// Numeric: value < Amber is green, < Red is amber, else red.
	// For inverted series the cutoffs are pre-negated and Negate tells
	// the caller to negate the value before comparing; the comparison
	// itself stays monotonic increasing-is-worse.
	Amber  float64
	Red    float64
	Negate bool

	// Enumerated: exact code match.
	GreenCode string
	AmberCode string
	RedCode   string
}

// Resolve converts indicator configuration into a name-keyed threshold
// table. Inverted numeric thresholds are negated here so classification
// never branches on indicator identity.
func Resolve(indicators []config.IndicatorConfig) (map[string]Threshold, error) {
	out := make(map[string]Threshold, len(indicators))
	for _, ind := range indicators {
		switch ind.Kind {
		case config.KindNumeric:
			t := Threshold{Kind: config.KindNumeric, Amber: ind.Amber, Red: ind.Red}
			if ind.Invert {
				t.Amber, t.Red = -ind.Amber, -ind.Red
				t.Negate = true
			}
			out[ind.Name] = t
		case config.KindEnumerated:
			out[ind.Name] = Threshold{
				Kind:      config.KindEnumerated,
				GreenCode: ind.GreenCode,
				AmberCode: ind.AmberCode,
				RedCode:   ind.RedCode,
			}
		default:
			return nil, eris.Errorf("classify: indicator %q has unknown kind %q", ind.Name, ind.Kind)
		}
	}
	return out, nil
}

// Classify returns the value-derived color for a reading. The second
// return is true when an enumerated code matched none of the configured
// codes; such readings score as green but are flagged for audit.
func (t Threshold) Classify(r *model.Reading) (model.Color, bool) {
	if t.Kind == config.KindEnumerated {
		switch r.Code {
		case t.RedCode:
			return model.Red, false
		case t.AmberCode:
			return model.Amber, false
		case t.GreenCode:
			return model.Green, false
		default:
			return model.Green, true
		}
	}

	v := r.Value
	if t.Negate {
		v = -v
	}
	switch {
	case v >= t.Red:
		return model.Red, false
	case v >= t.Amber:
		return model.Amber, false
	default:
		return model.Green, false
	}
}
