// Package confirm tracks consecutive-red streaks so a transient red on a
// non-critical indicator does not count until a second poll corroborates
// it. Critical indicators confirm immediately.
package confirm

import (
	"time"

	"github.com/sells-group/watchtower/internal/model"
)

type entry struct {
	count     int
	firstSeen time.Time
}

// Tracker holds per-indicator confirmation state across cycles. Entries
// exist only while an indicator stays red; any drop below red clears the
// streak, so the map never grows beyond the red set.
type Tracker struct {
	entries       map[string]*entry
	window        time.Duration
	requiredPolls int
}

// New creates a Tracker. window is the maximum gap between the first red
// and a corroborating poll (one nominal poll interval); requiredPolls is
// the streak length that confirms.
func New(window time.Duration, requiredPolls int) *Tracker {
	return &Tracker{
		entries:       make(map[string]*entry),
		window:        window,
		requiredPolls: requiredPolls,
	}
}

// Observe records one cycle's color for an indicator and returns whether
// its red is confirmed. Non-red observations clear the tracked streak.
// Critical reds confirm unconditionally but still record a first-seen
// time for rule-window checks.
func (t *Tracker) Observe(name string, color model.Color, critical bool, now time.Time) bool {
	if color != model.Red {
		delete(t.entries, name)
		return false
	}

	e, ok := t.entries[name]
	if !ok {
		t.entries[name] = &entry{count: 1, firstSeen: now}
		return critical || t.requiredPolls <= 1
	}

	if critical {
		return true
	}

	if now.Sub(e.firstSeen) > t.window {
		// A poll was missed or the interval degraded; do not carry
		// stale confirmation state forward.
		e.count = 1
		e.firstSeen = now
		return false
	}

	e.count++
	return e.count >= t.requiredPolls
}

// FirstSeen returns when the indicator's current red streak began.
func (t *Tracker) FirstSeen(name string) (time.Time, bool) {
	e, ok := t.entries[name]
	if !ok {
		return time.Time{}, false
	}
	return e.firstSeen, true
}

// Len reports the number of tracked streaks, for tests and diagnostics.
func (t *Tracker) Len() int {
	return len(t.entries)
}
