// Package engine owns the evaluation cycle: classification, staleness
// forcing, confirmation, aggregation, and the phase step, in that order.
// All cross-cycle mutable state (confirmation streaks, the snapshot
// ring, the phase machine) lives on one Evaluator instance behind a
// single mutex, so concurrent callers serialize and per-tenant
// instances stay independent.
package engine

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/watchtower/internal/classify"
	"github.com/sells-group/watchtower/internal/config"
	"github.com/sells-group/watchtower/internal/confirm"
	"github.com/sells-group/watchtower/internal/hopi"
	"github.com/sells-group/watchtower/internal/model"
	"github.com/sells-group/watchtower/internal/phase"
	"github.com/sells-group/watchtower/internal/staleness"
)

// SnapshotHistory bounds the poll snapshot ring used for trend lookback.
const SnapshotHistory = 10

// TightenUpReds is the red count at which the tighten-up flag raises.
const TightenUpReds = 2

// Evaluator runs one full fusion pass per poll.
type Evaluator struct {
	mu sync.Mutex

	cfg        *config.Config
	thresholds map[string]classify.Threshold
	critical   map[string]bool
	stale      *staleness.Evaluator
	tracker    *confirm.Tracker
	aggregator *hopi.Engine
	machine    *phase.Machine

	snapshots  []model.Snapshot
	lastResult *model.CycleResult

	now func() time.Time
}

// New builds an Evaluator from validated configuration.
func New(cfg *config.Config) (*Evaluator, error) {
	thresholds, err := classify.Resolve(cfg.Indicators)
	if err != nil {
		return nil, err
	}

	nowFn := time.Now
	return &Evaluator{
		cfg:        cfg,
		thresholds: thresholds,
		critical:   cfg.CriticalSet(),
		stale:      staleness.New(cfg.Staleness.AmberHours, cfg.Staleness.RedHours),
		tracker:    confirm.New(time.Duration(cfg.Confirmation.WindowMinutes)*time.Minute, cfg.Confirmation.RequiredPolls),
		aggregator: hopi.New(cfg),
		machine:    phase.New(cfg, nowFn()),
		now:        nowFn,
	}, nil
}

// SetClock overrides the evaluator's clock, for tests.
func (e *Evaluator) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

// SeedPhase restores the phase machine from persisted state, before the
// first cycle runs.
func (e *Evaluator) SeedPhase(p float64, lastChange time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.machine.Seed(p, lastChange)
}

// CurrentPhase returns the machine's phase.
func (e *Evaluator) CurrentPhase() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.machine.Current()
}

// LastResult returns the most recent cycle output, nil before the first
// successful cycle.
func (e *Evaluator) LastResult() *model.CycleResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastResult
}

// Transitions returns the retained phase transition history.
func (e *Evaluator) Transitions() []model.Transition {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.machine.Transitions()
}

// TransitionsSince returns transitions at or after the cutoff.
func (e *Evaluator) TransitionsSince(cutoff time.Time) []model.Transition {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.machine.TransitionsSince(cutoff)
}

// EvaluateCycle runs one full pass over the given readings. Readings may
// be absent for any configured indicator; absence is handled as forced
// red by staleness, never as an error. A structural configuration
// problem fails the cycle closed: the phase holds and the error
// surfaces to the caller.
func (e *Evaluator) EvaluateCycle(readings map[string]*model.Reading) (*model.CycleResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	states := make(map[string]model.IndicatorState, len(e.cfg.Indicators))

	for _, ind := range e.cfg.Indicators {
		reading := readings[ind.Name]
		st := model.IndicatorState{
			Name:     ind.Name,
			Critical: e.critical[ind.Name],
		}

		if reading != nil {
			threshold, ok := e.thresholds[ind.Name]
			if !ok {
				return nil, eris.Errorf("engine: no threshold resolved for %q", ind.Name)
			}
			st.Color, st.Unknown = threshold.Classify(reading)
			st.RawValue = reading.Value
			st.Code = reading.Code
		}
		st.SingleSource = reading.SingleSource()

		staleness.Apply(&st, e.stale.Evaluate(reading, now))

		st.Confirmed = e.tracker.Observe(ind.Name, st.Color, st.Critical, now)
		states[ind.Name] = st
	}

	e.pushSnapshot(now, states)

	hopiResult := e.aggregator.Calculate(states, e.snapshots, now)
	tallies := tally(states)

	decision, err := e.machine.Step(now, phase.Inputs{
		HOPI:         hopiResult,
		States:       states,
		Tallies:      tallies,
		FirstRedSeen: e.tracker.FirstSeen,
	})
	if err != nil {
		zap.L().Error("engine: cycle failed closed, holding phase", zap.Error(err))
		return nil, eris.Wrap(err, "engine: phase step")
	}

	result := &model.CycleResult{
		Phase:        decision,
		HOPI:         hopiResult,
		Indicators:   states,
		Tallies:      tallies,
		Actions:      e.cfg.ActionsFor(decision.Phase),
		PhaseChanged: decision.Changed,
		Timestamp:    now.UTC(),
	}
	e.lastResult = result

	zap.L().Info("engine: cycle complete",
		zap.Float64("composite", hopiResult.Composite),
		zap.Float64("confidence", hopiResult.Confidence),
		zap.Float64("phase", decision.Phase),
		zap.Bool("phase_changed", decision.Changed),
		zap.Int("reds", hopiResult.TotalReds),
		zap.Int("stale", hopiResult.StaleCount),
	)

	return result, nil
}

// pushSnapshot appends this poll's colors to the bounded ring.
func (e *Evaluator) pushSnapshot(now time.Time, states map[string]model.IndicatorState) {
	snap := model.Snapshot{
		Timestamp: now.UTC(),
		Colors:    make(map[string]model.Color, len(states)),
		Values:    make(map[string]float64, len(states)),
	}
	for name, st := range states {
		snap.Colors[name] = st.Color
		snap.Values[name] = st.RawValue
	}
	e.snapshots = append(e.snapshots, snap)
	if len(e.snapshots) > SnapshotHistory {
		e.snapshots = e.snapshots[len(e.snapshots)-SnapshotHistory:]
	}
}

func tally(states map[string]model.IndicatorState) model.Tallies {
	var t model.Tallies
	for _, st := range states {
		switch st.Color {
		case model.Red:
			t.Red++
		case model.Amber:
			t.Amber++
		default:
			t.Green++
		}
		if st.Unknown {
			t.Unknown++
		}
	}
	t.TightenUp = t.Red >= TightenUpReds
	return t
}
