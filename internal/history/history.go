// Package history summarizes stored cycles: composite score statistics
// and how long the system has spent in each phase.
package history

import (
	"context"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/rotisserie/eris"

	"github.com/sells-group/watchtower/internal/config"
	"github.com/sells-group/watchtower/internal/model"
	"github.com/sells-group/watchtower/internal/store"
)

// Summary aggregates composite score statistics over a window of cycles.
type Summary struct {
	Cycles          int                `json:"cycles"`
	From            time.Time          `json:"from"`
	To              time.Time          `json:"to"`
	MeanComposite   float64            `json:"mean_composite"`
	MedianComposite float64            `json:"median_composite"`
	P90Composite    float64            `json:"p90_composite"`
	MaxComposite    float64            `json:"max_composite"`
	MeanConfidence  float64            `json:"mean_confidence"`
	CurrentPhase    float64            `json:"current_phase"`
	PhaseHours      map[string]float64 `json:"phase_hours"`
	Transitions     []model.Transition `json:"transitions,omitempty"`
}

// Summarize reads the most recent cycles and transitions from the store
// and computes the summary. limit bounds the cycle window; since bounds
// the transition lookback.
func Summarize(ctx context.Context, st store.Store, limit int, since time.Time) (*Summary, error) {
	cycles, err := st.ListCycles(ctx, limit)
	if err != nil {
		return nil, eris.Wrap(err, "history: list cycles")
	}
	if len(cycles) == 0 {
		return nil, eris.Wrap(store.ErrNotFound, "history: no cycles recorded")
	}

	transitions, err := st.ListTransitions(ctx, since)
	if err != nil {
		return nil, eris.Wrap(err, "history: list transitions")
	}

	composites := make([]float64, 0, len(cycles))
	confidences := make([]float64, 0, len(cycles))
	for _, c := range cycles {
		composites = append(composites, c.HOPI.Composite)
		confidences = append(confidences, c.HOPI.Confidence)
	}

	mean, err := stats.Mean(composites)
	if err != nil {
		return nil, eris.Wrap(err, "history: mean composite")
	}
	median, err := stats.Median(composites)
	if err != nil {
		return nil, eris.Wrap(err, "history: median composite")
	}
	p90, err := stats.Percentile(composites, 90)
	if err != nil {
		// Percentile needs more than one sample; fall back to the only value.
		p90 = composites[0]
	}
	maxC, err := stats.Max(composites)
	if err != nil {
		return nil, eris.Wrap(err, "history: max composite")
	}
	meanConf, err := stats.Mean(confidences)
	if err != nil {
		return nil, eris.Wrap(err, "history: mean confidence")
	}

	// Cycles come back newest first.
	newest := cycles[0]
	oldest := cycles[len(cycles)-1]

	return &Summary{
		Cycles:          len(cycles),
		From:            oldest.Timestamp,
		To:              newest.Timestamp,
		MeanComposite:   mean,
		MedianComposite: median,
		P90Composite:    p90,
		MaxComposite:    maxC,
		MeanConfidence:  meanConf,
		CurrentPhase:    newest.Phase.Phase,
		PhaseHours:      phaseHours(cycles),
		Transitions:     transitions,
	}, nil
}

// phaseHours attributes the gap between consecutive cycles to the phase
// in effect during that gap.
func phaseHours(cycles []model.CycleResult) map[string]float64 {
	out := make(map[string]float64)
	// Walk oldest to newest; cycles are newest first.
	for i := len(cycles) - 1; i > 0; i-- {
		cur := cycles[i]
		next := cycles[i-1]
		gap := next.Timestamp.Sub(cur.Timestamp).Hours()
		if gap < 0 {
			continue
		}
		out[config.PhaseKey(cur.Phase.Phase)] += gap
	}
	return out
}
