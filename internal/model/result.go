package model

import "time"

// HOPIResult is the output of one aggregation pass: the composite risk
// score, per-domain scores, confidence, and red tallies. Immutable once
// produced.
type HOPIResult struct {
	Composite        float64            `json:"composite"`
	Confidence       float64            `json:"confidence"`
	DomainScores     map[string]float64 `json:"domain_scores"`
	TotalReds        int                `json:"total_reds"`
	CriticalReds     int                `json:"critical_reds"`
	SingleSourceReds int                `json:"single_source_reds"`
	StaleCount       int                `json:"stale_count"`
	Timestamp        time.Time          `json:"timestamp"`
}

// Tallies are the per-cycle color counts used for band conditions and the
// tighten-up flag.
type Tallies struct {
	Red       int  `json:"red"`
	Amber     int  `json:"amber"`
	Green     int  `json:"green"`
	Unknown   int  `json:"unknown"`
	TightenUp bool `json:"tighten_up"`
}

// TransitionDirection marks whether a phase change escalated or stood down.
type TransitionDirection string

const (
	DirectionUp   TransitionDirection = "up"
	DirectionDown TransitionDirection = "down"
)

// Transition records a single phase change for audit and hysteresis
// lookback.
type Transition struct {
	From      float64             `json:"from"`
	To        float64             `json:"to"`
	Direction TransitionDirection `json:"direction"`
	At        time.Time           `json:"at"`
}

// PhaseDecision is the phase machine's output for one cycle.
type PhaseDecision struct {
	Phase       float64 `json:"phase"`
	Name        string  `json:"name"`
	Headline    string  `json:"headline"`
	Changed     bool    `json:"changed"`
	TargetPhase float64 `json:"target_phase"`
	// Hysteresis reports that the raw target was overridden by the
	// escalation/de-escalation rules this cycle.
	Hysteresis bool `json:"hysteresis"`
	// CriticalFloor is the highest minimum phase forced by a critical
	// jump rule, zero when no rule fired.
	CriticalFloor float64 `json:"critical_floor"`
	// ConfidenceCapped reports that low confidence capped the phase at 3.
	ConfidenceCapped bool `json:"confidence_capped"`
}

// CycleResult is the full output record of one evaluation cycle.
type CycleResult struct {
	ID           string                    `json:"id,omitempty"`
	Phase        PhaseDecision             `json:"phase"`
	HOPI         HOPIResult                `json:"hopi"`
	Indicators   map[string]IndicatorState `json:"indicators"`
	Tallies      Tallies                   `json:"tallies"`
	Actions      []string                  `json:"actions"`
	PhaseChanged bool                      `json:"phase_changed"`
	Timestamp    time.Time                 `json:"timestamp"`
}
