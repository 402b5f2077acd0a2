// Package staleness forces a minimum color on aging readings. A stale
// floor only ever raises a color; the value-derived color wins whenever
// it is already worse.
package staleness

import (
	"time"

	"github.com/sells-group/watchtower/internal/model"
)

// Reasons attached to IndicatorState.StaleReason.
const (
	ReasonNoData      = "no_data"
	ReasonNoTimestamp = "no_timestamp"
	ReasonStaleRed    = "stale>7d"
	ReasonStaleAmber  = "stale>48h"
)

// Evaluator computes reading age and the forced color floor.
type Evaluator struct {
	amberHours float64
	redHours   float64
}

// New creates an Evaluator with the given age limits in hours.
func New(amberHours, redHours float64) *Evaluator {
	return &Evaluator{amberHours: amberHours, redHours: redHours}
}

// Result describes the staleness evaluation of one reading.
type Result struct {
	AgeHours float64
	Floor    model.Color
	Stale    bool
	Reason   string
}

// Evaluate computes the staleness floor for a reading at the given time.
// A missing reading or missing timestamp forces red; beyond the red limit
// forces red; beyond the amber limit forces amber.
func (e *Evaluator) Evaluate(r *model.Reading, now time.Time) Result {
	if r == nil {
		return Result{Floor: model.Red, Stale: true, Reason: ReasonNoData}
	}
	if r.Timestamp == nil {
		return Result{Floor: model.Red, Stale: true, Reason: ReasonNoTimestamp}
	}

	age := now.Sub(*r.Timestamp).Hours()
	if age < 0 {
		age = 0
	}

	switch {
	case age >= e.redHours:
		return Result{AgeHours: age, Floor: model.Red, Stale: true, Reason: ReasonStaleRed}
	case age >= e.amberHours:
		return Result{AgeHours: age, Floor: model.Amber, Stale: true, Reason: ReasonStaleAmber}
	default:
		return Result{AgeHours: age, Floor: model.Green}
	}
}

// Apply folds a staleness result into an indicator state. The floor is
// combined with the value-derived color via max, so staleness never
// downgrades.
func Apply(state *model.IndicatorState, res Result) {
	state.AgeHours = res.AgeHours
	state.Stale = res.Stale
	if res.Stale {
		state.StaleReason = res.Reason
	}
	state.Color = state.Color.Max(res.Floor)
}
