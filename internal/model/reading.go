package model

import "time"

// Reading is one raw observation for a single indicator, produced by an
// external collector once per poll. Readings are never mutated after
// creation; each cycle wraps them into IndicatorStates.
type Reading struct {
	Name      string     `json:"name"`
	Value     float64    `json:"value"`
	Code      string     `json:"code,omitempty"` // set for enumerated indicators
	Unit      string     `json:"unit,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Source    string     `json:"source,omitempty"`
}

// SyntheticSource marks a reading produced by a fallback generator rather
// than a live feed. Reds built on such readings count as single-source and
// discount confidence.
const SyntheticSource = "synthetic"

// SingleSource reports whether the reading's declared source is an
// uncorroborated fallback.
func (r *Reading) SingleSource() bool {
	return r == nil || r.Source == "" || r.Source == SyntheticSource
}

// IndicatorState is the per-cycle derived state for one indicator: the
// classified color after staleness forcing, plus the audit fields the
// aggregator and phase machine consume.
type IndicatorState struct {
	Name         string  `json:"name"`
	Color        Color   `json:"color"`
	RawValue     float64 `json:"raw_value"`
	Code         string  `json:"code,omitempty"`
	Stale        bool    `json:"stale"`
	StaleReason  string  `json:"stale_reason,omitempty"`
	AgeHours     float64 `json:"age_hours"`
	Confirmed    bool    `json:"confirmed"`
	Critical     bool    `json:"critical"`
	SingleSource bool    `json:"single_source"`
	Unknown      bool    `json:"unknown,omitempty"` // enum code matched nothing; scored as green
}

// Snapshot captures the per-indicator colors of one completed poll. The
// evaluator retains a bounded ring of these for trend-bonus lookback.
type Snapshot struct {
	Timestamp time.Time        `json:"timestamp"`
	Colors    map[string]Color `json:"colors"`
	Values    map[string]float64 `json:"values"`
}
