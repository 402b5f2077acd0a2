// Package hopi computes the composite risk score: per-indicator points,
// pair-cap correction, domain normalization, trend bonus, the weighted
// composite, and confidence. The whole pass is a pure function of the
// current indicator states, static configuration, and the bounded
// snapshot history.
package hopi

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/watchtower/internal/config"
	"github.com/sells-group/watchtower/internal/model"
)

// TrendLookback is how many polls back the trend bonus compares against
// (or the oldest available when history is shorter).
const TrendLookback = 3

// TrendBonus is added to a domain's score when at least TrendMinRising of
// its members worsened over the lookback.
const (
	TrendBonus     = 0.10
	TrendMinRising = 2
)

// SingleSourcePenalty discounts confidence per fraction of reds that are
// uncorroborated.
const SingleSourcePenalty = 0.15

// Engine aggregates indicator states into a HOPIResult.
type Engine struct {
	domains          []config.DomainConfig
	pairCaps         []config.PairCapConfig
	pairWeights      []float64
	compositeWeights map[string]float64
	critical         map[string]bool
}

// New builds an Engine from validated configuration. Each pair cap's
// owning-domain weight is resolved once here rather than per cycle.
func New(cfg *config.Config) *Engine {
	pairWeights := make([]float64, len(cfg.PairCaps))
	for i, pc := range cfg.PairCaps {
		if d, ok := cfg.Domain(pc.Domain); ok {
			pairWeights[i] = d.Weight
		}
	}
	return &Engine{
		domains:          cfg.Domains,
		pairCaps:         cfg.PairCaps,
		pairWeights:      pairWeights,
		compositeWeights: cfg.CompositeWeights,
		critical:         cfg.CriticalSet(),
	}
}

// Calculate produces the HOPIResult for one cycle. snapshots is the
// bounded poll history with the current poll as its last element.
func (e *Engine) Calculate(states map[string]model.IndicatorState, snapshots []model.Snapshot, now time.Time) model.HOPIResult {
	points := e.indicatorPoints(states)
	e.applyPairCaps(points)

	domainScores := e.domainScores(points)
	e.applyTrendBonus(domainScores, snapshots)

	totalReds, criticalReds, singleSourceReds := e.countReds(states)
	staleCount := 0
	for _, st := range states {
		if st.Stale {
			staleCount++
		}
	}

	return model.HOPIResult{
		Composite:        round3(e.composite(domainScores)),
		Confidence:       round3(confidence(len(states), staleCount, totalReds, singleSourceReds)),
		DomainScores:     roundScores(domainScores),
		TotalReds:        totalReds,
		CriticalReds:     criticalReds,
		SingleSourceReds: singleSourceReds,
		StaleCount:       staleCount,
		Timestamp:        now.UTC(),
	}
}

// indicatorPoints assigns points = color × domain weight × (2 if
// critical). Each indicator contributes to exactly one domain.
func (e *Engine) indicatorPoints(states map[string]model.IndicatorState) map[string]float64 {
	points := make(map[string]float64, len(states))
	for _, d := range e.domains {
		for _, name := range d.Indicators {
			st, ok := states[name]
			if !ok {
				continue
			}
			p := float64(st.Color) * d.Weight
			if e.critical[name] {
				p *= 2
			}
			points[name] = p
		}
	}
	return points
}

// applyPairCaps scales both members of a correlated pair down
// proportionally when their combined points exceed cap_factor times what
// a single plain red in the owning domain would contribute. A pair with
// a member absent from this cycle is left uncapped.
func (e *Engine) applyPairCaps(points map[string]float64) {
	for i, pc := range e.pairCaps {
		a, aOK := points[pc.Indicators[0]]
		b, bOK := points[pc.Indicators[1]]
		if !aOK || !bOK {
			continue
		}

		pairTotal := a + b
		cap := 2 * e.pairWeights[i] * pc.CapFactor
		if pairTotal <= cap || pairTotal == 0 {
			continue
		}

		scale := cap / pairTotal
		points[pc.Indicators[0]] = a * scale
		points[pc.Indicators[1]] = b * scale
		zap.L().Debug("hopi: pair cap applied",
			zap.Strings("pair", pc.Indicators),
			zap.Float64("total", pairTotal),
			zap.Float64("cap", cap),
		)
	}
}

// domainScores normalizes each domain's point total against the maximum
// it could reach with every member plain red, capped to 1.0.
func (e *Engine) domainScores(points map[string]float64) map[string]float64 {
	scores := make(map[string]float64, len(e.domains))
	for _, d := range e.domains {
		n := len(d.Indicators)
		if n == 0 || d.Weight == 0 {
			// Guarded at config load; kept here so a hot-reloaded
			// config can never divide by zero.
			zap.L().Warn("hopi: domain has no scoreable members", zap.String("domain", d.Name))
			scores[d.Name] = 0
			continue
		}
		var sum float64
		for _, name := range d.Indicators {
			sum += points[name]
		}
		scores[d.Name] = math.Min(1.0, sum/(2*d.Weight*float64(n)))
	}
	return scores
}

// applyTrendBonus adds a flat bonus to any domain where at least two
// members' colors strictly rose between the poll TrendLookback cycles
// ago (or the oldest retained) and now.
func (e *Engine) applyTrendBonus(scores map[string]float64, snapshots []model.Snapshot) {
	if len(snapshots) < 2 {
		return
	}
	lookback := TrendLookback
	if lookback > len(snapshots)-1 {
		lookback = len(snapshots) - 1
	}
	old := snapshots[len(snapshots)-1-lookback]
	current := snapshots[len(snapshots)-1]

	for _, d := range e.domains {
		rising := 0
		for _, name := range d.Indicators {
			oldColor, okOld := old.Colors[name]
			newColor, okNew := current.Colors[name]
			if okOld && okNew && newColor > oldColor {
				rising++
			}
		}
		if rising >= TrendMinRising {
			scores[d.Name] = math.Min(1.0, scores[d.Name]+TrendBonus)
			zap.L().Info("hopi: trend bonus",
				zap.String("domain", d.Name),
				zap.Int("rising", rising),
			)
		}
	}
}

// composite reduces domain scores to one number using the composite
// weight table (distinct from the domains' own aggregation weights).
// Domains without scoreable members are excluded from the denominator.
func (e *Engine) composite(scores map[string]float64) float64 {
	var weighted, total float64
	for _, d := range e.domains {
		if len(d.Indicators) == 0 || d.Weight == 0 {
			continue
		}
		w := 1.0
		if cw, ok := e.compositeWeights[d.Name]; ok {
			w = cw
		}
		weighted += scores[d.Name] * w
		total += w
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

// confidence = 1 − stale fraction − penalty × single-source red fraction,
// clamped to [0,1]. With no indicators at all, confidence is 1.
func confidence(total, stale, totalReds, singleSourceReds int) float64 {
	if total == 0 {
		return 1
	}
	c := 1.0 - float64(stale)/float64(total)
	c -= SingleSourcePenalty * float64(singleSourceReds) / math.Max(1, float64(totalReds))
	return math.Max(0, math.Min(1, c))
}

// countReds tallies current reds, the critical subset, and reds resting
// on an uncorroborated source or an unconfirmed streak.
func (e *Engine) countReds(states map[string]model.IndicatorState) (total, critical, singleSource int) {
	for name, st := range states {
		if st.Color != model.Red {
			continue
		}
		total++
		if e.critical[name] {
			critical++
		}
		if st.SingleSource || !st.Confirmed {
			singleSource++
		}
	}
	return total, critical, singleSource
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func roundScores(scores map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(scores))
	for k, v := range scores {
		out[k] = round3(v)
	}
	return out
}
