// Package phase maps composite scores to the discrete operational phase
// through an ordered band table, hysteresis, critical jump rules, and a
// confidence gate. The machine is deliberately asymmetric: two
// corroborating polls to go up, seventy-two quiet hours and three
// in-band cycles to come down.
package phase

import (
	"math"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/watchtower/internal/config"
	"github.com/sells-group/watchtower/internal/model"
)

const (
	// HighDomainScore is the domain-score threshold above which a domain
	// counts toward band gates.
	HighDomainScore = 0.60

	// ConfidenceGate caps the phase at ConfidenceCap when confidence
	// falls below it and no critical indicator is red.
	ConfidenceGate = 0.60
	ConfidenceCap  = 3.0

	// deescalateCooldown is the minimum quiet period after any phase
	// change before the machine will stand down.
	deescalateCooldown = 72 * time.Hour

	// deescalateLookback is how many recent composite scores must all
	// sit inside the target band before standing down.
	deescalateLookback = 3

	// maxTransitions bounds the retained transition history.
	maxTransitions = 100
)

// Inputs carries everything the machine needs for one step.
type Inputs struct {
	HOPI       model.HOPIResult
	States     map[string]model.IndicatorState
	Tallies    model.Tallies
	// FirstRedSeen reports when an indicator's current red streak began,
	// for rule time-window checks.
	FirstRedSeen func(name string) (time.Time, bool)
}

// Machine holds the cross-cycle phase state. It is not safe for
// concurrent use; the owning evaluator serializes cycles.
type Machine struct {
	bands []config.PhaseBand
	rules []config.CriticalRule

	current      float64
	lastChange   time.Time
	prevTarget   float64
	hasPrev      bool
	recentScores []float64
	transitions  []model.Transition
}

// New builds a Machine from validated configuration, starting at phase 0.
func New(cfg *config.Config, startedAt time.Time) *Machine {
	return &Machine{
		bands:      cfg.Bands,
		rules:      cfg.CriticalRules,
		lastChange: startedAt,
	}
}

// Current returns the machine's phase.
func (m *Machine) Current() float64 { return m.current }

// Seed restores phase state persisted by a previous run.
func (m *Machine) Seed(phase float64, lastChange time.Time) {
	m.current = phase
	if !lastChange.IsZero() {
		m.lastChange = lastChange
	}
}

// Transitions returns a copy of the retained transition history.
func (m *Machine) Transitions() []model.Transition {
	out := make([]model.Transition, len(m.transitions))
	copy(out, m.transitions)
	return out
}

// TransitionsSince returns transitions at or after the cutoff.
func (m *Machine) TransitionsSince(cutoff time.Time) []model.Transition {
	var out []model.Transition
	for _, tr := range m.transitions {
		if !tr.At.Before(cutoff) {
			out = append(out, tr)
		}
	}
	return out
}

// Step runs one cycle of the state machine. On a configuration error it
// fails closed: the error is returned and the phase holds.
func (m *Machine) Step(now time.Time, in Inputs) (model.PhaseDecision, error) {
	highDomains := 0
	for _, score := range in.HOPI.DomainScores {
		if score >= HighDomainScore {
			highDomains++
		}
	}
	confirmedReds := 0
	for _, st := range in.States {
		if st.Color == model.Red && st.Confirmed {
			confirmedReds++
		}
	}

	target, err := m.targetPhase(in.HOPI.Composite, in.Tallies.Amber, confirmedReds, highDomains)
	if err != nil {
		return model.PhaseDecision{}, err
	}

	// The de-escalation window covers the last three cycles including
	// this one, so the current composite is recorded before hysteresis.
	m.recentScores = append(m.recentScores, in.HOPI.Composite)
	if len(m.recentScores) > deescalateLookback {
		m.recentScores = m.recentScores[len(m.recentScores)-deescalateLookback:]
	}

	next := m.applyHysteresis(now, target, in.HOPI)
	hystHeld := next != target

	floor := m.criticalFloor(now, in)
	if floor > next {
		zap.L().Warn("phase: critical jump",
			zap.Float64("from", next),
			zap.Float64("floor", floor),
		)
		next = floor
	}

	capped := false
	if in.HOPI.Confidence < ConfidenceGate && in.HOPI.CriticalReds == 0 && next > ConfidenceCap {
		zap.L().Info("phase: low confidence, capping",
			zap.Float64("confidence", in.HOPI.Confidence),
			zap.Float64("uncapped", next),
		)
		next = math.Min(next, ConfidenceCap)
		capped = true
	}

	band, ok := m.bandFor(next)
	if !ok {
		// A rule forced a phase the band table does not define; hold.
		return model.PhaseDecision{}, eris.Errorf("phase: no band configured for phase %v", next)
	}

	changed := next != m.current
	if changed {
		m.record(now, m.current, next)
		m.current = next
		m.lastChange = now
	}

	// Book-keeping for the next cycle's hysteresis checks.
	m.prevTarget = target
	m.hasPrev = true

	return model.PhaseDecision{
		Phase:            m.current,
		Name:             band.Name,
		Headline:         band.Headline,
		Changed:          changed,
		TargetPhase:      target,
		Hysteresis:       hystHeld,
		CriticalFloor:    floor,
		ConfidenceCapped: capped,
	}, nil
}

// targetPhase evaluates the ordered band table low-to-high for the
// first composite match, then applies the trigger columns: any band
// whose amber-count or confirmed-red trigger is satisfied floors the
// target at that band's phase, no matter how low the composite sits.
// Triggers only ever raise the target, never lower it.
func (m *Machine) targetPhase(composite float64, ambers, confirmedReds, highDomains int) (float64, error) {
	target, found := 0.0, false
	for _, b := range m.bands {
		if bandMatches(b, composite, ambers, highDomains) {
			target, found = b.Phase, true
			break
		}
	}
	if !found {
		return 0, eris.Errorf("phase: no band matches composite %.3f", composite)
	}

	for _, b := range m.bands {
		triggered := (b.OrConfirmedRed && confirmedReds >= 1) ||
			(b.OrAmbers > 0 && ambers >= b.OrAmbers)
		if triggered && b.Phase > target {
			target = b.Phase
		}
	}
	return target, nil
}

func bandMatches(b config.PhaseBand, composite float64, ambers, highDomains int) bool {
	if composite >= b.MaxScore {
		return false
	}
	if b.RequireNoAmbers && ambers > 0 {
		return false
	}
	if b.MinHighDomains > 0 && highDomains < b.MinHighDomains {
		return false
	}
	return true
}

// applyHysteresis holds the phase unless the escalation or de-escalation
// conditions are met. Escalation needs the previous cycle to have
// computed the same or a higher target. De-escalation needs the cooldown
// elapsed, zero reds, and the recent composites all inside the target
// band.
func (m *Machine) applyHysteresis(now time.Time, target float64, hopi model.HOPIResult) float64 {
	switch {
	case target > m.current:
		if m.hasPrev && m.prevTarget >= target {
			return target
		}
		return m.current

	case target < m.current:
		if now.Sub(m.lastChange) < deescalateCooldown {
			return m.current
		}
		if hopi.TotalReds > 0 {
			return m.current
		}
		if len(m.recentScores) < deescalateLookback {
			return m.current
		}
		band, ok := m.bandFor(target)
		if !ok {
			return m.current
		}
		for _, s := range m.recentScores {
			if s >= band.MaxScore {
				return m.current
			}
		}
		return target

	default:
		return m.current
	}
}

// criticalFloor returns the highest minimum phase forced by any rule
// whose named indicators are all confirmed red (within the rule's time
// window, when one is set).
func (m *Machine) criticalFloor(now time.Time, in Inputs) float64 {
	var floor float64
	for _, rule := range m.rules {
		if !ruleFires(rule, now, in) {
			continue
		}
		min := rule.MinPhase
		if rule.Bump != nil {
			if st, ok := in.States[rule.Bump.Indicator]; ok && st.RawValue >= rule.Bump.MinValue {
				min += rule.Bump.PhaseBump
			}
		}
		if min > floor {
			floor = min
			zap.L().Warn("phase: critical rule fired",
				zap.String("rule", rule.Name),
				zap.Float64("min_phase", min),
			)
		}
	}
	return floor
}

func ruleFires(rule config.CriticalRule, now time.Time, in Inputs) bool {
	var earliest, latest time.Time
	for _, name := range rule.Indicators {
		st, ok := in.States[name]
		if !ok || st.Color != model.Red || !st.Confirmed {
			return false
		}
		if rule.WindowHours > 0 {
			seen, ok := in.FirstRedSeen(name)
			if !ok {
				return false
			}
			if earliest.IsZero() || seen.Before(earliest) {
				earliest = seen
			}
			if seen.After(latest) {
				latest = seen
			}
		}
	}
	if rule.WindowHours > 0 {
		if latest.Sub(earliest).Hours() > rule.WindowHours {
			return false
		}
	}
	return true
}

func (m *Machine) bandFor(phase float64) (config.PhaseBand, bool) {
	for _, b := range m.bands {
		if b.Phase == phase {
			return b, true
		}
	}
	return config.PhaseBand{}, false
}

func (m *Machine) record(now time.Time, from, to float64) {
	dir := model.DirectionUp
	if to < from {
		dir = model.DirectionDown
	}
	m.transitions = append(m.transitions, model.Transition{
		From:      from,
		To:        to,
		Direction: dir,
		At:        now.UTC(),
	})
	if len(m.transitions) > maxTransitions {
		m.transitions = m.transitions[len(m.transitions)-maxTransitions:]
	}
	zap.L().Info("phase: transition",
		zap.Float64("from", from),
		zap.Float64("to", to),
		zap.String("direction", string(dir)),
	)
}
